// Package catalog models the parts and products the storefront sells. The
// catalog is read-only to the rest of rigcart: it is loaded once from a
// fixture file or a document-store export and then only queried.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Component is an immutable catalog entry that can occupy a build slot.
type Component struct {
	ID        string   `json:"id" yaml:"id"`
	Category  Category `json:"category" yaml:"category"`
	Title     string   `json:"title" yaml:"title"`
	UnitPrice Money    `json:"unit_price" yaml:"unit_price"`
	Stock     int      `json:"stock" yaml:"stock"`
	Spec      Spec     `json:"spec,omitempty" yaml:"spec,omitempty"`
}

// Clone returns a copy that shares no mutable memory with c.
func (c Component) Clone() Component {
	if c.Spec != nil {
		c.Spec = copySpec(c.Spec)
	}
	return c
}

// AsProduct offers the component for standalone purchase. Components carry
// no loyalty offer.
func (c Component) AsProduct() Product {
	return Product{
		ID:        c.ID,
		Title:     c.Title,
		UnitPrice: c.UnitPrice,
		Stock:     c.Stock,
	}
}

type componentWire struct {
	ID        string          `json:"id"`
	Category  Category        `json:"category"`
	Title     string          `json:"title"`
	UnitPrice Money           `json:"unit_price"`
	Stock     int             `json:"stock"`
	Spec      json.RawMessage `json:"spec,omitempty"`
}

// MarshalJSON writes Spec as a plain object next to the category tag.
func (c Component) MarshalJSON() ([]byte, error) {
	w := componentWire{
		ID:        c.ID,
		Category:  c.Category,
		Title:     c.Title,
		UnitPrice: c.UnitPrice,
		Stock:     c.Stock,
	}
	if c.Spec != nil {
		raw, err := json.Marshal(c.Spec)
		if err != nil {
			return nil, err
		}
		w.Spec = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes Spec into the concrete type for the category.
func (c *Component) UnmarshalJSON(data []byte) error {
	var w componentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Component{
		ID:        w.ID,
		Category:  w.Category,
		Title:     w.Title,
		UnitPrice: w.UnitPrice,
		Stock:     w.Stock,
	}
	if len(w.Spec) == 0 || string(w.Spec) == "null" {
		return nil
	}
	spec, err := decodeSpec(w.Category, func(v any) error { return json.Unmarshal(w.Spec, v) })
	if err != nil {
		return fmt.Errorf("component %s: decoding %s spec: %w", w.ID, w.Category, err)
	}
	c.Spec = spec
	return nil
}

// UnmarshalYAML decodes Spec into the concrete type for the category.
func (c *Component) UnmarshalYAML(node *yaml.Node) error {
	var w struct {
		ID        string    `yaml:"id"`
		Category  Category  `yaml:"category"`
		Title     string    `yaml:"title"`
		UnitPrice Money     `yaml:"unit_price"`
		Stock     int       `yaml:"stock"`
		Spec      yaml.Node `yaml:"spec"`
	}
	if err := node.Decode(&w); err != nil {
		return err
	}
	*c = Component{
		ID:        w.ID,
		Category:  w.Category,
		Title:     w.Title,
		UnitPrice: w.UnitPrice,
		Stock:     w.Stock,
	}
	if w.Spec.Kind == 0 {
		return nil
	}
	spec, err := decodeSpec(w.Category, w.Spec.Decode)
	if err != nil {
		return fmt.Errorf("component %s: decoding %s spec: %w", w.ID, w.Category, err)
	}
	c.Spec = spec
	return nil
}

// Product is a purchasable catalog entry, optionally carrying a per-unit
// loyalty-point offer that may expire.
type Product struct {
	ID             string     `json:"id" yaml:"id"`
	Title          string     `json:"title" yaml:"title"`
	UnitPrice      Money      `json:"unit_price" yaml:"unit_price"`
	Stock          int        `json:"stock" yaml:"stock"`
	PointsPerUnit  *int64     `json:"points_per_unit,omitempty" yaml:"points_per_unit,omitempty"`
	PointsExpireAt *time.Time `json:"points_expire_at,omitempty" yaml:"points_expire_at,omitempty"`
}
