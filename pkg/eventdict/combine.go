package eventdict

// Combine merges already-built dictionaries under their keys and rewrites
// every descriptor's path to include the keys of its containers.
//
// Ids and inner paths are preserved, so listeners registered through the
// original dictionaries keep firing when emitting through the combined one.
//
// Example:
//
//	all := eventdict.Combine(eventdict.Dict{
//	    "todoApp":        todoEvents,
//	    "calendarModule": calendarEvents,
//	}, "")
//	// all["todoApp"]["tasks"]["added"] has Path() == "todoApp.tasks.added"
//
// Markers and Value nodes are copied unchanged.
func Combine(dicts Dict, prefix string) Dict {
	out := make(Dict, len(dicts))
	for k, node := range dicts {
		switch n := node.(type) {
		case Dict:
			out[k] = Combine(n, prefix+k+".")
		case built:
			out[k] = n.withPath(prefix + k)
		default:
			out[k] = node
		}
	}
	return out
}
