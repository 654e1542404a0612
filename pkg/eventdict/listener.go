package eventdict

import (
	"context"
	"reflect"
)

// Listener receives payloads for one event.
//
// The emitter tracks listeners by identity, so the dynamic type behind a
// Listener must be comparable. Pointers always are; plain func values never
// are. Wrap functions with Func or Callback, keep the returned pointer, and
// pass that same pointer to Off.
type Listener[T any] interface {
	Handle(ctx context.Context, payload T) error
}

// FuncListener adapts a function to Listener.
// Always use it through a pointer; the pointer is the listener's identity.
type FuncListener[T any] struct {
	fn func(ctx context.Context, payload T) error
}

// Func wraps fn as a listener.
//
//	onAdded := eventdict.Func(func(ctx context.Context, t TaskAdded) error {
//	    return store.Insert(ctx, t)
//	})
//	_ = eventdict.On(em, todo.TaskAdded, onAdded)
//	// later
//	eventdict.Off(em, todo.TaskAdded, onAdded)
func Func[T any](fn func(ctx context.Context, payload T) error) *FuncListener[T] {
	return &FuncListener[T]{fn: fn}
}

// Callback wraps a plain callback that cannot fail.
func Callback[T any](fn func(payload T)) *FuncListener[T] {
	return Func(func(_ context.Context, payload T) error {
		fn(payload)
		return nil
	})
}

// Handle implements Listener.
func (f *FuncListener[T]) Handle(ctx context.Context, payload T) error {
	if f == nil || f.fn == nil {
		return nil
	}
	return f.fn(ctx, payload)
}

// listenerKey returns the identity under which l is stored.
func listenerKey[T any](l Listener[T]) (any, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	rv := reflect.ValueOf(l)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			return nil, ErrNilListener
		}
	}
	if !rv.Comparable() {
		return nil, ErrListenerNotComparable
	}
	return l, nil
}
