package eventdict

import (
	"context"
)

// Bound is an Event paired with the Emitter it publishes to.
type Bound[T any] struct {
	ev Event[T]
	e  *Emitter
}

// Bind pairs ev with e.
//
//	added := eventdict.Bind(todo.TaskAdded, em)
//	_ = added.On(onAdded)
//	err := added.Emit(ctx, TaskAdded{Title: "write docs"})
func Bind[T any](ev Event[T], e *Emitter) Bound[T] {
	return Bound[T]{ev: ev, e: e}
}

// On subscribes l. See On.
func (b Bound[T]) On(l Listener[T]) error {
	return On(b.e, b.ev, l)
}

// Off unsubscribes l. See Off.
func (b Bound[T]) Off(l Listener[T]) {
	Off(b.e, b.ev, l)
}

// Emit publishes payload. See Emit.
func (b Bound[T]) Emit(ctx context.Context, payload T) error {
	return Emit(ctx, b.e, b.ev, payload)
}

// Event returns the bound event.
func (b Bound[T]) Event() Event[T] {
	return b.ev
}

// Emitter returns the emitter the event publishes to.
func (b Bound[T]) Emitter() *Emitter {
	return b.e
}

func (Bound[T]) isNode() {}

func (b Bound[T]) descriptor() Descriptor { return b.ev.d }

func (b Bound[T]) withPath(path string) Node {
	return Bound[T]{ev: Event[T]{d: b.ev.d.WithPath(path)}, e: b.e}
}

func (b Bound[T]) emitter() *Emitter { return b.e }

// Binding is the untyped form of Bound, produced by BindTree.
// Use BoundAt to recover a typed handle.
type Binding struct {
	d Descriptor
	e *Emitter
}

// Descriptor returns the bound descriptor.
func (b Binding) Descriptor() Descriptor {
	return b.d
}

// Emitter returns the emitter the event publishes to.
func (b Binding) Emitter() *Emitter {
	return b.e
}

// On subscribes an untyped listener.
func (b Binding) On(l Listener[any]) error {
	return b.e.OnDescriptor(b.d, l)
}

// Off unsubscribes an untyped listener.
func (b Binding) Off(l Listener[any]) {
	b.e.OffDescriptor(b.d, l)
}

// Emit publishes payload after checking it against the declared payload type.
func (b Binding) Emit(ctx context.Context, payload any) error {
	return b.e.EmitDescriptor(ctx, b.d, payload)
}

func (Binding) isNode() {}

func (b Binding) descriptor() Descriptor { return b.d }

func (b Binding) withPath(path string) Node {
	return Binding{d: b.d.WithPath(path), e: b.e}
}

func (b Binding) emitter() *Emitter { return b.e }

// boundNode is implemented by Bound and Binding.
type boundNode interface {
	built
	emitter() *Emitter
}

// BindTree returns a copy of d in which every descriptor leaf is bound to e.
// Leaves that were already bound are rebound to e. Other nodes are copied
// unchanged.
func BindTree(d Dict, e *Emitter) Dict {
	out := make(Dict, len(d))
	for k, node := range d {
		switch n := node.(type) {
		case Dict:
			out[k] = BindTree(n, e)
		case built:
			out[k] = Binding{d: n.descriptor(), e: e}
		default:
			out[k] = node
		}
	}
	return out
}

// BoundAt reads a typed bound handle from a tree produced by BindTree.
// Errors are *LookupError wrapping ErrNotFound, ErrNotDescriptor,
// ErrNotBound or ErrPayloadMismatch.
func BoundAt[T any](tree Dict, keys ...string) (Bound[T], error) {
	n, ok := tree.Get(keys...)
	if !ok {
		return Bound[T]{}, &LookupError{Keys: keys, Err: ErrNotFound}
	}

	var (
		d Descriptor
		e *Emitter
	)
	switch b := n.(type) {
	case Bound[T]:
		return b, nil
	case boundNode:
		d, e = b.descriptor(), b.emitter()
	case built:
		return Bound[T]{}, &LookupError{Keys: keys, Err: ErrNotBound}
	default:
		return Bound[T]{}, &LookupError{Keys: keys, Err: ErrNotDescriptor}
	}

	ev, ok := asEvent[T](d)
	if !ok {
		return Bound[T]{}, mismatch[T](keys, d)
	}
	return Bind(ev, e), nil
}
