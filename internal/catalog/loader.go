package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixture is the on-disk layout of a catalog file.
type Fixture struct {
	Components []Component `yaml:"components" json:"components"`
	Products   []Product   `yaml:"products" json:"products"`
}

// LoadFile reads a catalog from disk. The format is detected by extension:
// .yaml/.yml and .json hold a Fixture, .ndjson holds a document-store export.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".ndjson" {
		c, err := DecodeDocuments(data)
		if err != nil {
			return nil, fmt.Errorf("decoding catalog export %s: %w", path, err)
		}
		return c, nil
	}

	var f Fixture
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (expected .yaml, .yml, .json, or .ndjson)", ext)
	}

	c, err := New(f.Components, f.Products)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
