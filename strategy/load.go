package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a strategy from a YAML or JSON file, normalizes it and
// validates it.
func LoadFile(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file: %w", err)
	}

	s, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a strategy. ext selects the format; anything other than
// ".json" is tried as YAML first and JSON second.
func Parse(data []byte, ext string) (*Strategy, error) {
	var s Strategy
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: parse JSON: %v", ErrInvalidConfig, err)
		}
	} else if err := yaml.Unmarshal(data, &s); err != nil {
		if jerr := json.Unmarshal(data, &s); jerr != nil {
			return nil, fmt.Errorf("%w: parse strategy (tried YAML and JSON): %v", ErrInvalidConfig, err)
		}
	}

	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes s as YAML.
func Marshal(s *Strategy) ([]byte, error) {
	return yaml.Marshal(s)
}
