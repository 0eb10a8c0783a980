package catalog

import (
	"fmt"
	"strings"
)

// Category identifies a slot type in a build.
type Category string

const (
	CPU         Category = "cpu"
	Motherboard Category = "motherboard"
	Memory      Category = "memory"
	Storage     Category = "storage"
	GPU         Category = "gpu"
	PSU         Category = "psu"
	Case        Category = "case"
	Cooler      Category = "cooler"
)

// Categories lists every category in display order.
var Categories = []Category{CPU, Motherboard, Memory, Storage, GPU, PSU, Case, Cooler}

// RequiredCategories must all be occupied for a build to be complete.
var RequiredCategories = []Category{CPU, Motherboard, Memory, Storage, PSU, Case}

// ParseCategory converts a case-insensitive name to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// SlotPolicy maps each category to the maximum number of occupants it may
// hold. A maximum of 1 marks the category as singular.
type SlotPolicy map[Category]int

// DefaultMemorySlots and DefaultStorageSlots are the multi-slot maxima used
// when no configuration overrides them.
const (
	DefaultMemorySlots  = 4
	DefaultStorageSlots = 4
)

// DefaultPolicy returns the stock slot layout: memory and storage are
// multi-slot, everything else singular.
func DefaultPolicy() SlotPolicy {
	p := make(SlotPolicy, len(Categories))
	for _, c := range Categories {
		p[c] = 1
	}
	p[Memory] = DefaultMemorySlots
	p[Storage] = DefaultStorageSlots
	return p
}

// WithMax returns a copy of the policy with the category's maximum replaced.
// Values below 1 are ignored.
func (p SlotPolicy) WithMax(c Category, max int) SlotPolicy {
	out := make(SlotPolicy, len(p))
	for k, v := range p {
		out[k] = v
	}
	if max >= 1 && c.Valid() {
		out[c] = max
	}
	return out
}

// Max returns the category's maximum and whether the category is known.
func (p SlotPolicy) Max(c Category) (int, bool) {
	m, ok := p[c]
	return m, ok
}

// Singular reports whether the category holds at most one occupant.
func (p SlotPolicy) Singular(c Category) bool {
	m, ok := p[c]
	return ok && m == 1
}
