package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// decodeStrict unmarshals a config file, rejecting unknown keys. The format
// follows the file extension: .yaml/.yml decode as YAML, anything else as
// JSON. Both formats share the same key vocabulary.
func decodeStrict(path string, data []byte) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			if errors.Is(err, io.EOF) {
				// An empty file means the same as a missing one.
				return &Config{}, nil
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("parse %s: trailing data after config object", path)
		}
	}
	return &cfg, nil
}
