// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/a8m/envsubst"
	"gopkg.in/yaml.v3"
)

// Load reads path, expands ${VAR} references and decodes the YAML.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(raw)
}

// Parse is Load without the file read.
func Parse(raw []byte) (*Config, error) {
	expanded, err := envsubst.Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expand env: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
