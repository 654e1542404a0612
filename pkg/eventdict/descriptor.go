package eventdict

import (
	"reflect"
)

// Descriptor identifies one event channel.
//
// The id is the only dispatch key. InnerPath and Path are display metadata:
// InnerPath is relative to the dictionary that declared the event, Path is
// relative to the outermost dictionary after Build or Combine.
//
// Descriptors are immutable values. Rewriting the path returns a copy that
// keeps the id, so every copy resolves to the same emitter entry.
type Descriptor struct {
	id          string
	innerPath   string
	path        string
	hasPath     bool
	payloadType reflect.Type
}

// ID returns the unique identifier assigned at declaration.
func (d Descriptor) ID() string {
	return d.id
}

// InnerPath returns the dot-joined path inside the declaring dictionary.
func (d Descriptor) InnerPath() string {
	return d.innerPath
}

// Path returns the dot-joined path inside the outermost dictionary.
// It is empty until a builder or combiner assigns it; see HasPath.
func (d Descriptor) Path() string {
	return d.path
}

// HasPath reports whether a builder or combiner assigned a path.
func (d Descriptor) HasPath() bool {
	return d.hasPath
}

// PayloadType returns the payload type the event was declared with.
func (d Descriptor) PayloadType() reflect.Type {
	return d.payloadType
}

// IsZero reports whether d was never declared.
func (d Descriptor) IsZero() bool {
	return d.id == ""
}

// Equal reports whether both descriptors resolve to the same emitter entry.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.id == other.id
}

// WithPath returns a copy of d with its path replaced.
func (d Descriptor) WithPath(path string) Descriptor {
	d.path = path
	d.hasPath = true
	return d
}

// String returns the most specific display path available.
func (d Descriptor) String() string {
	if d.hasPath {
		return d.path
	}
	return d.innerPath
}

// displayPath is used for logs, metrics and errors.
func (d Descriptor) displayPath() string {
	if s := d.String(); s != "" {
		return s
	}
	return d.id
}

func (Descriptor) isNode() {}

func (d Descriptor) descriptor() Descriptor { return d }

func (d Descriptor) withPath(path string) Node { return d.WithPath(path) }

// Event is a Descriptor tagged with its payload type T.
// The emitter only accepts payloads of type T for it.
type Event[T any] struct {
	d Descriptor
}

// Descriptor returns the untyped descriptor.
func (e Event[T]) Descriptor() Descriptor {
	return e.d
}

// ID returns the unique identifier assigned at declaration.
func (e Event[T]) ID() string {
	return e.d.id
}

// InnerPath returns the dot-joined path inside the declaring dictionary.
func (e Event[T]) InnerPath() string {
	return e.d.innerPath
}

// Path returns the dot-joined path inside the outermost dictionary.
func (e Event[T]) Path() string {
	return e.d.path
}

// String returns the most specific display path available.
func (e Event[T]) String() string {
	return e.d.String()
}

func (Event[T]) isNode() {}

func (e Event[T]) descriptor() Descriptor { return e.d }

func (e Event[T]) withPath(path string) Node {
	return Event[T]{d: e.d.WithPath(path)}
}

// built is implemented by every node that already carries a descriptor.
type built interface {
	Node
	descriptor() Descriptor
	withPath(path string) Node
}

// asEvent converts an untyped descriptor to Event[T] when the declared
// payload type matches T.
func asEvent[T any](d Descriptor) (Event[T], bool) {
	if d.payloadType != reflect.TypeFor[T]() {
		return Event[T]{}, false
	}
	return Event[T]{d: d}, true
}
