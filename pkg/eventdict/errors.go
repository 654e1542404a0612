package eventdict

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for subscribing listeners.
var (
	// ErrNilListener indicates On was called with a nil listener.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrListenerNotComparable indicates the listener's dynamic type cannot be
	// compared for identity (func values, structs holding slices or maps).
	// Wrap the function with Func or pass a pointer instead.
	ErrListenerNotComparable = errors.New("listener is not comparable")
)

// Sentinel errors for reading dictionaries.
var (
	// ErrNotFound indicates no node exists at the requested key path.
	ErrNotFound = errors.New("no node at path")

	// ErrNotDescriptor indicates the node at the key path is not an event descriptor.
	ErrNotDescriptor = errors.New("node is not an event descriptor")

	// ErrPayloadMismatch indicates the descriptor was declared with a different payload type.
	ErrPayloadMismatch = errors.New("payload type mismatch")

	// ErrInvalidDeclaration indicates a dictionary node that is neither a
	// declaration, a nested dictionary, nor a built descriptor.
	ErrInvalidDeclaration = errors.New("invalid declaration")

	// ErrNotBound indicates the node at the key path is a descriptor that has
	// not been bound to an emitter.
	ErrNotBound = errors.New("descriptor is not bound to an emitter")
)

// ListenerError wraps the error returned by a listener during Emit.
// Delivery stops at the failing listener.
type ListenerError struct {
	// EventID is the id of the descriptor being emitted.
	EventID string
	// Path is the descriptor's display path.
	Path string
	// Index is the position of the failing listener in subscription order.
	Index int
	// Err is the listener's error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("event %s: listener %d: %v", e.Path, e.Index, e.Err)
}

// Unwrap returns the listener's error for errors.Is/As support.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// LookupError reports a failed typed read from a dictionary.
type LookupError struct {
	// Keys is the key path that was requested.
	Keys []string
	// Want is the requested payload type, when relevant.
	Want string
	// Got is the declared payload type, when relevant.
	Got string
	// Err is ErrNotFound, ErrNotDescriptor, ErrNotBound or ErrPayloadMismatch.
	Err error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	path := strings.Join(e.Keys, ".")
	if e.Want != "" || e.Got != "" {
		return fmt.Sprintf("lookup %q: %v: want %s, got %s", path, e.Err, e.Want, e.Got)
	}
	return fmt.Sprintf("lookup %q: %v", path, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *LookupError) Unwrap() error {
	return e.Err
}

// DeclarationError lists the key paths of nodes that Build passed through
// without declaring an event.
type DeclarationError struct {
	Paths []string
}

// Error implements the error interface.
func (e *DeclarationError) Error() string {
	return fmt.Sprintf("%v at %s", ErrInvalidDeclaration, strings.Join(e.Paths, ", "))
}

// Unwrap returns ErrInvalidDeclaration for errors.Is support.
func (e *DeclarationError) Unwrap() error {
	return ErrInvalidDeclaration
}
