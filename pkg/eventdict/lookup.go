package eventdict

import (
	"cmp"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// EventAt reads a typed event from a built dictionary.
// Errors are *LookupError wrapping ErrNotFound, ErrNotDescriptor or
// ErrPayloadMismatch.
//
//	added, err := eventdict.EventAt[TaskAdded](todo, "tasks", "added")
func EventAt[T any](d Dict, keys ...string) (Event[T], error) {
	n, ok := d.Get(keys...)
	if !ok {
		return Event[T]{}, &LookupError{Keys: keys, Err: ErrNotFound}
	}
	b, ok := n.(built)
	if !ok {
		return Event[T]{}, &LookupError{Keys: keys, Err: ErrNotDescriptor}
	}
	desc := b.descriptor()
	ev, ok := asEvent[T](desc)
	if !ok {
		return Event[T]{}, mismatch[T](keys, desc)
	}
	return ev, nil
}

// MustEventAt is like EventAt but panics on error.
// It is meant for package-level variables.
func MustEventAt[T any](d Dict, keys ...string) Event[T] {
	ev, err := EventAt[T](d, keys...)
	if err != nil {
		panic(err)
	}
	return ev
}

// Descriptors returns every descriptor in d, sorted by display path.
// Descriptors sharing a path are ordered by id.
func Descriptors(d Dict) []Descriptor {
	var out []Descriptor
	walk(d, nil, func(_ []string, n Node) {
		if b, ok := n.(built); ok {
			out = append(out, b.descriptor())
		}
	})
	slices.SortFunc(out, func(a, b Descriptor) int {
		return cmp.Or(
			strings.Compare(a.String(), b.String()),
			strings.Compare(a.id, b.id),
		)
	})
	return out
}

// Validate reports nodes that are neither nested dictionaries, markers nor
// descriptors. Build copies such nodes through unchanged; Validate lets
// callers reject them. The error is a *DeclarationError.
func Validate(d Dict) error {
	var bad []string
	walk(d, nil, func(keys []string, n Node) {
		switch n.(type) {
		case Marker, built:
		default:
			bad = append(bad, strings.Join(keys, "."))
		}
	})
	if len(bad) == 0 {
		return nil
	}
	slices.Sort(bad)
	return &DeclarationError{Paths: bad}
}

// walk calls fn for every non-Dict node, in sorted key order.
func walk(d Dict, prefix []string, fn func(keys []string, n Node)) {
	for _, k := range slices.Sorted(maps.Keys(d)) {
		keys := append(slices.Clip(prefix), k)
		if sub, ok := d[k].(Dict); ok {
			walk(sub, keys, fn)
			continue
		}
		fn(keys, d[k])
	}
}

func mismatch[T any](keys []string, d Descriptor) *LookupError {
	return &LookupError{
		Keys: keys,
		Want: reflect.TypeFor[T]().String(),
		Got:  typeName(d.payloadType),
		Err:  ErrPayloadMismatch,
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<none>"
	}
	return t.String()
}
