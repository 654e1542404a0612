package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by FromFile for a file whose extension
// names no known document format.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format identifies a document encoding.
type Format string

// Known formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf maps a file name to its format by extension.
// Config and catalog files are accepted as .yaml, .yml or .json.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%s: %w %q (want .yaml, .yml or .json)", path, ErrUnsupportedFormat, ext)
	}
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (Config, error) {
	switch format {
	case FormatYAML:
		return FromYAML(data)
	case FormatJSON:
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

// FromFile reads a config or catalog document from disk.
// Parse errors carry the file path.
func FromFile(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FromYAML parses a YAML document. An empty document yields an empty Config.
func FromYAML(data []byte) (Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(doc), nil
}

// FromJSON parses a JSON object.
func FromJSON(data []byte) (Config, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(doc), nil
}
