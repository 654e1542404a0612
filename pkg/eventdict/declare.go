package eventdict

import (
	"reflect"

	"github.com/google/uuid"
)

// Marker is a declaration of one event inside a dictionary.
// Build calls Declare once per position the marker occupies.
type Marker interface {
	Node

	// Declare returns a descriptor with a fresh id.
	Declare(innerPath, outerPath string) Descriptor
}

// Decl declares an event whose payload has type T.
// It holds no state and can be reused; every Declare call yields a new id.
type Decl[T any] struct{}

// Define returns a declaration marker for an event carrying T.
//
// Example:
//
//	var todo = eventdict.Build(eventdict.Dict{
//	    "tasks": eventdict.Dict{
//	        "added":   eventdict.Define[TaskAdded](),
//	        "removed": eventdict.Define[TaskRemoved](),
//	    },
//	})
func Define[T any]() Decl[T] {
	return Decl[T]{}
}

// Declare implements Marker.
func (Decl[T]) Declare(innerPath, outerPath string) Descriptor {
	return Descriptor{
		id:          newID(innerPath),
		innerPath:   innerPath,
		path:        outerPath,
		hasPath:     true,
		payloadType: reflect.TypeFor[T](),
	}
}

// Event declares a typed event directly, outside of a dictionary.
func (m Decl[T]) Event(innerPath, outerPath string) Event[T] {
	return Event[T]{d: m.Declare(innerPath, outerPath)}
}

func (Decl[T]) isNode() {}

// Declare creates a standalone typed event.
// Its path equals innerPath.
//
//	var taskAdded = eventdict.Declare[TaskAdded]("taskAdded")
func Declare[T any](innerPath string) Event[T] {
	return Define[T]().Event(innerPath, innerPath)
}

// newID keeps the inner path as a readable prefix; the uuid carries uniqueness.
func newID(innerPath string) string {
	return innerPath + "__" + uuid.NewString()
}
