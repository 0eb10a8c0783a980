// Package scenario loads and runs YAML and JSON scenarios that drive a fresh
// rigcart session through build and cart actions and check the results.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a complete test scenario loaded from a YAML or JSON file.
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	// Now is the RFC3339 instant the session clock starts at.
	Now string `yaml:"now" json:"now"`
	// Catalog is resolved relative to the scenario file.
	Catalog string `yaml:"catalog" json:"catalog"`
	Setup   Setup  `yaml:"setup" json:"setup"`
	Steps   []Step `yaml:"steps" json:"steps"`

	path string
}

// Setup configures the session before the first step.
type Setup struct {
	MemorySlots  int    `yaml:"memory_slots" json:"memory_slots"`
	StorageSlots int    `yaml:"storage_slots" json:"storage_slots"`
	DefaultName  string `yaml:"default_name" json:"default_name"`
}

// Step is a single action/assert pair within a scenario.
type Step struct {
	Name   string `yaml:"name" json:"name"`
	Action string `yaml:"action" json:"action"`
	Args   Args   `yaml:"args" json:"args"`
	// Advance moves the session clock forward before the action runs.
	Advance string `yaml:"advance" json:"advance,omitempty"`
	Assert  Assert `yaml:"assert" json:"assert"`
}

// Args are the action arguments. Only the ones an action needs are read.
type Args struct {
	Category  string `yaml:"category" json:"category,omitempty"`
	Component string `yaml:"component" json:"component,omitempty"`
	Product   string `yaml:"product" json:"product,omitempty"`
	Quantity  int    `yaml:"quantity" json:"quantity,omitempty"`
	Name      string `yaml:"name" json:"name,omitempty"`
	// ID may reference earlier steps with {{saved.<ref>}} or {{build.id}}.
	// Product may use {{build.product}} to address the working build's cart line.
	ID string `yaml:"id" json:"id,omitempty"`
	// Ref labels the id returned by build.save for later steps.
	Ref    string `yaml:"ref" json:"ref,omitempty"`
	Repeat int    `yaml:"repeat" json:"repeat,omitempty"`
}

// Assert defines the expected state after a step. Unset fields are not
// checked.
type Assert struct {
	Outcome       string         `yaml:"outcome" json:"outcome,omitempty"`
	BuildTotal    *int64         `yaml:"build_total" json:"build_total,omitempty"`
	Counts        map[string]int `yaml:"counts" json:"counts,omitempty"`
	Findings      *int           `yaml:"findings" json:"findings,omitempty"`
	Warnings      []string       `yaml:"warnings" json:"warnings,omitempty"`
	Valid         *bool          `yaml:"valid" json:"valid,omitempty"`
	Complete      *bool          `yaml:"complete" json:"complete,omitempty"`
	CartItems     *int           `yaml:"cart_items" json:"cart_items,omitempty"`
	CartTotal     *int64         `yaml:"cart_total" json:"cart_total,omitempty"`
	Quantity      map[string]int `yaml:"quantity" json:"quantity,omitempty"`
	Points        *int64         `yaml:"points" json:"points,omitempty"`
	ExpiredOffers *bool          `yaml:"expired_offers" json:"expired_offers,omitempty"`
}

// Path returns the file the scenario was loaded from.
func (s *Scenario) Path() string { return s.path }

// Start parses Now. An empty value yields the zero time.
func (s *Scenario) Start() (time.Time, error) {
	if s.Now == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("scenario %s: invalid now %q: %w", s.Name, s.Now, err)
	}
	return t.UTC(), nil
}

// CatalogPath resolves Catalog against the scenario's directory.
func (s *Scenario) CatalogPath() string {
	if s.Catalog == "" || filepath.IsAbs(s.Catalog) || s.path == "" {
		return s.Catalog
	}
	return filepath.Join(filepath.Dir(s.path), s.Catalog)
}

// LoadScenario parses a single YAML or JSON scenario file.
// The format is detected by file extension.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var s Scenario
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format %q (expected .json, .yaml, or .yml)", ext)
	}
	s.path = path

	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one step is required", path)
	}
	for i, step := range s.Steps {
		if _, ok := actions[step.Action]; !ok {
			return nil, fmt.Errorf("scenario %s: step %d (%s): unknown action %q", path, i+1, step.Name, step.Action)
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return nil, fmt.Errorf("scenario %s: step %d (%s): invalid advance: %w", path, i+1, step.Name, err)
			}
		}
	}
	if _, err := s.Start(); err != nil {
		return nil, err
	}

	return &s, nil
}

// LoadDir loads all .yaml, .yml, and .json scenario files from a directory.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", dir, err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}

	return scenarios, nil
}

// LoadPath loads a single file or every scenario in a directory.
func LoadPath(path string) ([]*Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	s, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return []*Scenario{s}, nil
}
