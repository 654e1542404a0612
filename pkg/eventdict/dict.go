package eventdict

import (
	"strings"
)

// Node is one value in a dictionary tree.
//
// The set of node kinds is closed:
//   - Dict: a nested dictionary
//   - Marker: an event declaration (see Define)
//   - Descriptor and Event[T]: an already-built event
//   - Bound[T] and Binding: a built event paired with an emitter (see Bind
//     and BindTree)
//   - Value: an opaque value carried through unchanged
type Node interface {
	isNode()
}

// Dict maps names to nodes. Nesting is unbounded.
type Dict map[string]Node

func (Dict) isNode() {}

// Value carries an arbitrary value through Build, Combine and BindTree
// without interpretation.
type Value struct {
	V any
}

func (Value) isNode() {}

// Get walks the dictionary one key per level.
func (d Dict) Get(keys ...string) (Node, bool) {
	if len(keys) == 0 {
		return d, true
	}
	var cur Node = d
	for _, k := range keys {
		sub, ok := cur.(Dict)
		if !ok {
			return nil, false
		}
		cur, ok = sub[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Lookup walks the dictionary along a dot-joined path such as "tasks.added".
func (d Dict) Lookup(path string) (Node, bool) {
	if path == "" {
		return d, true
	}
	return d.Get(strings.Split(path, ".")...)
}

// Descriptor returns the descriptor at the key path, if the node there
// carries one.
func (d Dict) Descriptor(keys ...string) (Descriptor, bool) {
	n, ok := d.Get(keys...)
	if !ok {
		return Descriptor{}, false
	}
	b, ok := n.(built)
	if !ok {
		return Descriptor{}, false
	}
	return b.descriptor(), true
}

// Sub returns the nested dictionary at the key path.
func (d Dict) Sub(keys ...string) (Dict, bool) {
	n, ok := d.Get(keys...)
	if !ok {
		return nil, false
	}
	sub, ok := n.(Dict)
	return sub, ok
}
