// Package registry provides a concurrency-safe map whose entries are created
// lazily and never replaced once present.
//
// The emitter stores one listener list per event id in a Registry. The map
// lock only guards the id -> entry index; each entry carries its own lock, so
// dispatch on one event never contends with subscriptions on another.
//
// # Lazy Initialization
//
//	entries := registry.New[string, *entry]()
//
//	// First call creates the entry, later calls return the same pointer.
//	e := entries.GetOrCreate(id, func() *entry { return &entry{} })
//
// GetOrCreate is atomic: the factory runs at most once per key, even under
// concurrent access.
//
// # Ordering
//
// Keys and Range visit keys in ascending order, which keeps introspection
// output stable across runs.
package registry
