// Package snapshot records the shape of built event dictionaries.
//
// A Snapshot lists every descriptor in a dictionary with its id, paths and
// payload type. Snapshots are for inspection and debugging, such as checking
// which events a build produced or comparing two builds. Published payloads
// are never recorded.
package snapshot

import (
	"time"

	"github.com/randalmurphal/eventdict/pkg/eventdict"
)

// Entry describes one descriptor.
type Entry struct {
	ID          string `json:"id"`
	InnerPath   string `json:"inner_path"`
	Path        string `json:"path"`
	PayloadType string `json:"payload_type"`
}

// Snapshot is the recorded shape of one dictionary.
type Snapshot struct {
	Name    string    `json:"name"`
	Taken   time.Time `json:"taken"`
	Entries []Entry   `json:"entries"`
}

// Capture records every descriptor in d, ordered by path.
func Capture(name string, d eventdict.Dict) Snapshot {
	descs := eventdict.Descriptors(d)
	entries := make([]Entry, 0, len(descs))
	for _, desc := range descs {
		entries = append(entries, entryOf(desc))
	}
	return Snapshot{
		Name:    name,
		Taken:   time.Now().UTC(),
		Entries: entries,
	}
}

func entryOf(d eventdict.Descriptor) Entry {
	e := Entry{
		ID:        d.ID(),
		InnerPath: d.InnerPath(),
		Path:      d.String(),
	}
	if t := d.PayloadType(); t != nil {
		e.PayloadType = t.String()
	}
	return e
}

// Diff lists the differences between two snapshots, matched by path.
type Diff struct {
	// Added holds entries whose path exists only in the newer snapshot.
	Added []Entry
	// Removed holds entries whose path exists only in the older snapshot.
	Removed []Entry
	// Changed holds newer entries whose path exists in both snapshots but
	// whose payload type differs.
	Changed []Entry
}

// Empty reports whether the snapshots describe the same paths and types.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs older against newer. Ids are ignored: every build assigns
// fresh ids, so only paths and payload types are compared.
func Compare(older, newer Snapshot) Diff {
	byPath := make(map[string]Entry, len(older.Entries))
	for _, e := range older.Entries {
		byPath[e.Path] = e
	}

	var d Diff
	seen := make(map[string]bool, len(newer.Entries))
	for _, e := range newer.Entries {
		seen[e.Path] = true
		old, ok := byPath[e.Path]
		switch {
		case !ok:
			d.Added = append(d.Added, e)
		case old.PayloadType != e.PayloadType:
			d.Changed = append(d.Changed, e)
		}
	}
	for _, e := range older.Entries {
		if !seen[e.Path] {
			d.Removed = append(d.Removed, e)
		}
	}
	return d
}
