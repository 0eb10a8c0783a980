// Package build implements the product-build configurator: a container that
// owns the build being assembled, enforces slot rules, and keeps price and
// compatibility findings in step with every change.
package build

import (
	"time"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
)

// DefaultName is given to fresh builds when no name is configured.
const DefaultName = "My Custom PC"

// Build is a named configuration of components. Slots maps each occupied
// category to its occupants in insertion order; singular categories hold
// exactly one entry.
type Build struct {
	ID         string                                   `json:"id"`
	Name       string                                   `json:"name"`
	Slots      map[catalog.Category][]catalog.Component `json:"slots"`
	TotalPrice catalog.Money                            `json:"total_price"`
	Valid      bool                                     `json:"valid"`
	CreatedAt  time.Time                                `json:"created_at"`
	UpdatedAt  time.Time                                `json:"updated_at"`
}

// Clone returns a deep copy of b.
func (b Build) Clone() Build {
	out := b
	out.Slots = make(map[catalog.Category][]catalog.Component, len(b.Slots))
	for cat, comps := range b.Slots {
		cp := make([]catalog.Component, len(comps))
		for i, c := range comps {
			cp[i] = c.Clone()
		}
		out.Slots[cat] = cp
	}
	return out
}

// Component returns the first occupant of a category.
func (b Build) Component(c catalog.Category) (catalog.Component, bool) {
	comps := b.Slots[c]
	if len(comps) == 0 {
		return catalog.Component{}, false
	}
	return comps[0], true
}

// Components returns the occupants of a category.
func (b Build) Components(c catalog.Category) []catalog.Component {
	return b.Slots[c]
}

// Count returns the number of occupants of a category.
func (b Build) Count(c catalog.Category) int {
	return len(b.Slots[c])
}

// Empty reports whether no slot is occupied.
func (b Build) Empty() bool {
	for _, comps := range b.Slots {
		if len(comps) > 0 {
			return false
		}
	}
	return true
}

// Missing lists the required categories that have no occupant.
func (b Build) Missing() []catalog.Category {
	var out []catalog.Category
	for _, c := range catalog.RequiredCategories {
		if b.Count(c) == 0 {
			out = append(out, c)
		}
	}
	return out
}
