package catalog

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when two catalog entries share an identifier.
var ErrDuplicateID = errors.New("duplicate catalog id")

// Source supplies catalog entries. Implementations must never hand out
// memory the caller could use to mutate the catalog.
type Source interface {
	Components(c Category) []Component
	Component(id string) (Component, bool)
	Products() []Product
	Product(id string) (Product, bool)
}

// Catalog is an immutable in-memory Source.
type Catalog struct {
	components  []Component
	products    []Product
	componentIx map[string]int
	productIx   map[string]int
}

var _ Source = (*Catalog)(nil)

// New validates and indexes the given entries.
func New(components []Component, products []Product) (*Catalog, error) {
	c := &Catalog{
		components:  make([]Component, 0, len(components)),
		products:    make([]Product, 0, len(products)),
		componentIx: make(map[string]int, len(components)),
		productIx:   make(map[string]int, len(products)),
	}
	for _, comp := range components {
		if comp.ID == "" {
			return nil, fmt.Errorf("component %q: id is required", comp.Title)
		}
		if !comp.Category.Valid() {
			return nil, fmt.Errorf("component %s: unknown category %q", comp.ID, comp.Category)
		}
		if comp.Spec != nil && comp.Spec.Category() != comp.Category {
			return nil, fmt.Errorf("component %s: %s spec on %s component", comp.ID, comp.Spec.Category(), comp.Category)
		}
		if comp.UnitPrice < 0 {
			return nil, fmt.Errorf("component %s: negative price", comp.ID)
		}
		if _, dup := c.componentIx[comp.ID]; dup {
			return nil, fmt.Errorf("component %s: %w", comp.ID, ErrDuplicateID)
		}
		c.componentIx[comp.ID] = len(c.components)
		c.components = append(c.components, comp.Clone())
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q: id is required", p.Title)
		}
		if p.UnitPrice < 0 {
			return nil, fmt.Errorf("product %s: negative price", p.ID)
		}
		if _, dup := c.productIx[p.ID]; dup {
			return nil, fmt.Errorf("product %s: %w", p.ID, ErrDuplicateID)
		}
		if _, dup := c.componentIx[p.ID]; dup {
			return nil, fmt.Errorf("product %s: %w", p.ID, ErrDuplicateID)
		}
		c.productIx[p.ID] = len(c.products)
		c.products = append(c.products, copyProduct(p))
	}
	return c, nil
}

// Components returns the components of a category in catalog order.
func (c *Catalog) Components(cat Category) []Component {
	var out []Component
	for _, comp := range c.components {
		if comp.Category == cat {
			out = append(out, comp.Clone())
		}
	}
	return out
}

// Component looks up a component by id.
func (c *Catalog) Component(id string) (Component, bool) {
	i, ok := c.componentIx[id]
	if !ok {
		return Component{}, false
	}
	return c.components[i].Clone(), true
}

// Products returns the standalone products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, copyProduct(p))
	}
	return out
}

// Product looks up a purchasable entry by id. Components are purchasable
// too and are returned without a loyalty offer.
func (c *Catalog) Product(id string) (Product, bool) {
	if i, ok := c.productIx[id]; ok {
		return copyProduct(c.products[i]), true
	}
	if comp, ok := c.Component(id); ok {
		return comp.AsProduct(), true
	}
	return Product{}, false
}

func copyProduct(p Product) Product {
	if p.PointsPerUnit != nil {
		v := *p.PointsPerUnit
		p.PointsPerUnit = &v
	}
	if p.PointsExpireAt != nil {
		v := *p.PointsExpireAt
		p.PointsExpireAt = &v
	}
	return p
}
