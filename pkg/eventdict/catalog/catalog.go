// Package catalog declares event dictionaries from YAML or JSON documents.
//
// A catalog is a nested map. A leaf is either the string "event" or a map
// with "event: true" and an optional description:
//
//	tasks:
//	  added: event
//	  removed:
//	    event: true
//	    description: A task was deleted
//
// Every leaf becomes a marker for an event carrying Payload. The result is a
// declaration tree; pass it to eventdict.Build.
package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/randalmurphal/eventdict/pkg/eventdict"
	"github.com/randalmurphal/eventdict/pkg/eventdict/config"
)

// Payload is the payload type of events declared by a catalog.
type Payload = map[string]any

// leafWord is the scalar spelling of a leaf.
const leafWord = "event"

// ErrInvalidCatalog indicates a node that is neither a leaf nor a section.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is a parsed catalog document.
type Catalog struct {
	// Declarations is the declaration tree, ready for eventdict.Build.
	Declarations eventdict.Dict
	// Descriptions maps dot-joined key paths to leaf descriptions.
	Descriptions map[string]string
}

// Build builds the declarations. See eventdict.Build.
func (c Catalog) Build(opts ...eventdict.BuildOption) eventdict.Dict {
	return eventdict.Build(c.Declarations, opts...)
}

// Event reads a built catalog event by dotted path.
func Event(d eventdict.Dict, path string) (eventdict.Event[Payload], error) {
	return eventdict.EventAt[Payload](d, strings.Split(path, ".")...)
}

// Load declares events from a parsed document.
func Load(cfg config.Config) (Catalog, error) {
	c := Catalog{Descriptions: map[string]string{}}
	d, err := load(cfg, nil, c.Descriptions)
	if err != nil {
		return Catalog{}, err
	}
	c.Declarations = d
	return c, nil
}

// FromFile loads a catalog from a .yaml, .yml or .json file.
func FromFile(path string) (Catalog, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return Load(cfg)
}

// FromYAML loads a catalog from YAML data.
func FromYAML(data []byte) (Catalog, error) {
	cfg, err := config.FromYAML(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return Load(cfg)
}

// FromJSON loads a catalog from JSON data.
func FromJSON(data []byte) (Catalog, error) {
	cfg, err := config.FromJSON(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return Load(cfg)
}

func load(cfg config.Config, prefix []string, descriptions map[string]string) (eventdict.Dict, error) {
	out := make(eventdict.Dict, cfg.Len())
	for _, key := range cfg.Keys() {
		keys := append(slices.Clip(prefix), key)
		path := strings.Join(keys, ".")

		if key == "" || strings.Contains(key, ".") {
			return nil, fmt.Errorf("%w: key %q at %s: keys must be non-empty and contain no dots", ErrInvalidCatalog, key, path)
		}

		if s, ok := cfg.Raw()[key].(string); ok {
			if s != leafWord {
				return nil, fmt.Errorf("%w: %s: unexpected value %q", ErrInvalidCatalog, path, s)
			}
			out[key] = eventdict.Define[Payload]()
			continue
		}

		if !cfg.IsSection(key) {
			return nil, fmt.Errorf("%w: %s: unexpected %T", ErrInvalidCatalog, path, cfg.Raw()[key])
		}
		sub := cfg.Sub(key)

		if sub.Has(leafWord) {
			if !sub.Bool(leafWord, false) {
				return nil, fmt.Errorf("%w: %s: %q must be true", ErrInvalidCatalog, path, leafWord)
			}
			if extra := unknownLeafKeys(sub); len(extra) > 0 {
				return nil, fmt.Errorf("%w: %s: unknown leaf keys %s", ErrInvalidCatalog, path, strings.Join(extra, ", "))
			}
			if desc := sub.String("description", ""); desc != "" {
				descriptions[path] = desc
			}
			out[key] = eventdict.Define[Payload]()
			continue
		}

		if sub.Len() == 0 {
			return nil, fmt.Errorf("%w: %s: empty section", ErrInvalidCatalog, path)
		}
		nested, err := load(sub, keys, descriptions)
		if err != nil {
			return nil, err
		}
		out[key] = nested
	}
	return out, nil
}

func unknownLeafKeys(sub config.Config) []string {
	var extra []string
	for k := range maps.Keys(sub.Raw()) {
		if k != leafWord && k != "description" {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return extra
}
