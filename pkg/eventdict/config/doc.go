/*
Package config reads loosely typed YAML or JSON documents for eventdict.

A Config wraps a map[string]any. Accessors take a default that is returned
when the key is missing or holds a value of the wrong type, so callers never
need type assertions:

	cfg, err := config.FromFile("events.yaml")
	if err != nil {
	    return err
	}

	emitterCfg := cfg.Sub("emitter")
	if emitterCfg.Bool("metrics", false) {
	    // ...
	}

Nested maps are reached with Sub. Both map[string]any (YAML and JSON) and
map[any]any values are accepted, the latter only when every key is a string.

The catalog package uses Config to read event declaration documents, and
eventdict.OptionsFromConfig turns an "emitter" section into emitter options.

Config is safe for concurrent reads. Do not modify the wrapped map after
creation.
*/
package config
