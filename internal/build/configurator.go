package build

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
	"github.com/wondertwin-ai/rigcart/pkg/store"
)

// Operation names reported in events.
const (
	OpAdd    = "add_component"
	OpRemove = "remove_component"
	OpClear  = "clear_build"
	OpRename = "rename_build"
	OpSave   = "save_build"
	OpLoad   = "load_build"
	OpDelete = "delete_build"
)

// Event describes a completed mutation. Listeners receive it after derived
// state has been recomputed.
type Event struct {
	Op          string
	Category    catalog.Category
	ComponentID string
	BuildID     string
	Outcome     outcome.Outcome
	TotalPrice  catalog.Money
}

// Listener is notified after every mutation, applied or not.
type Listener func(Event)

// Configurator owns the working build and the saved-build collection. It is
// not safe for concurrent use: callers are expected to be the only mutator.
type Configurator struct {
	policy      catalog.SlotPolicy
	checker     *Checker
	defaultName string
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger

	current  Build
	findings []Finding
	saved    *store.Store[Build]

	listeners []Listener
}

// Option configures a Configurator.
type Option func(*Configurator)

// WithPolicy sets the slot policy.
func WithPolicy(p catalog.SlotPolicy) Option {
	return func(c *Configurator) { c.policy = p }
}

// WithChecker replaces the compatibility checker.
func WithChecker(ch *Checker) Option {
	return func(c *Configurator) { c.checker = ch }
}

// WithDefaultName sets the name given to fresh builds.
func WithDefaultName(name string) Option {
	return func(c *Configurator) {
		if name != "" {
			c.defaultName = name
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Configurator) { c.now = now }
}

// WithIDGenerator sets the generator for build and snapshot ids.
func WithIDGenerator(gen func() string) Option {
	return func(c *Configurator) { c.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Configurator) { c.logger = l }
}

// NewConfigurator creates a configurator holding an empty build.
func NewConfigurator(opts ...Option) *Configurator {
	c := &Configurator{
		policy:      catalog.DefaultPolicy(),
		defaultName: DefaultName,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      zap.NewNop(),
		saved:       store.New[Build](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.checker == nil {
		c.checker = NewChecker()
	}
	c.current = c.freshBuild()
	c.recompute()
	return c
}

// Subscribe registers a listener.
func (c *Configurator) Subscribe(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Policy returns the slot policy in use.
func (c *Configurator) Policy() catalog.SlotPolicy {
	return c.policy
}

// AddComponent places a component in its category's slot. Singular slots are
// replaced; multi-slot categories append until full, after which the call is
// ignored and reports CapacityExceeded.
func (c *Configurator) AddComponent(cat catalog.Category, comp catalog.Component) outcome.Outcome {
	res := c.addComponent(cat, comp)
	c.finish(Event{Op: OpAdd, Category: cat, ComponentID: comp.ID, Outcome: res})
	return res
}

func (c *Configurator) addComponent(cat catalog.Category, comp catalog.Component) outcome.Outcome {
	max, known := c.policy.Max(cat)
	if !known {
		return outcome.UnknownCategory
	}
	if comp.Category != cat {
		return outcome.CategoryMismatch
	}
	if max == 1 {
		c.current.Slots[cat] = []catalog.Component{comp.Clone()}
		c.touch()
		return outcome.OK
	}
	if len(c.current.Slots[cat]) >= max {
		return outcome.CapacityExceeded
	}
	c.current.Slots[cat] = append(c.current.Slots[cat], comp.Clone())
	c.touch()
	return outcome.OK
}

// RemoveComponent empties a singular slot or removes the first occupant with
// componentID from a multi-slot category. For singular slots an empty
// componentID clears whatever is there.
func (c *Configurator) RemoveComponent(cat catalog.Category, componentID string) outcome.Outcome {
	res := c.removeComponent(cat, componentID)
	c.finish(Event{Op: OpRemove, Category: cat, ComponentID: componentID, Outcome: res})
	return res
}

func (c *Configurator) removeComponent(cat catalog.Category, componentID string) outcome.Outcome {
	if _, known := c.policy.Max(cat); !known {
		return outcome.UnknownCategory
	}
	comps := c.current.Slots[cat]
	if len(comps) == 0 {
		return outcome.NotFound
	}
	if c.policy.Singular(cat) {
		if componentID != "" && comps[0].ID != componentID {
			return outcome.NotFound
		}
		delete(c.current.Slots, cat)
		c.touch()
		return outcome.OK
	}
	for i, comp := range comps {
		if comp.ID != componentID {
			continue
		}
		rest := make([]catalog.Component, 0, len(comps)-1)
		rest = append(rest, comps[:i]...)
		rest = append(rest, comps[i+1:]...)
		if len(rest) == 0 {
			delete(c.current.Slots, cat)
		} else {
			c.current.Slots[cat] = rest
		}
		c.touch()
		return outcome.OK
	}
	return outcome.NotFound
}

// ClearBuild replaces the working build with an empty, freshly named one.
func (c *Configurator) ClearBuild() {
	c.current = c.freshBuild()
	c.finish(Event{Op: OpClear, Outcome: outcome.OK})
}

// Rename changes the working build's name. Blank names are ignored.
func (c *Configurator) Rename(name string) outcome.Outcome {
	res := outcome.InvalidName
	if name != "" {
		c.current.Name = name
		c.touch()
		res = outcome.OK
	}
	c.finish(Event{Op: OpRename, Outcome: res})
	return res
}

// CanAddComponent reports whether AddComponent would add without replacing:
// false for an occupied singular slot, a full multi-slot category, or an
// unknown category.
func (c *Configurator) CanAddComponent(cat catalog.Category) bool {
	max, known := c.policy.Max(cat)
	if !known {
		return false
	}
	return len(c.current.Slots[cat]) < max
}

// TotalPrice returns the working build's total.
func (c *Configurator) TotalPrice() catalog.Money {
	return c.current.TotalPrice
}

// ComponentCount returns the number of occupants of a category.
func (c *Configurator) ComponentCount(cat catalog.Category) int {
	return c.current.Count(cat)
}

// Current returns a copy of the working build.
func (c *Configurator) Current() Build {
	return c.current.Clone()
}

// Findings returns the compatibility findings for the working build.
func (c *Configurator) Findings() []Finding {
	return append([]Finding(nil), c.findings...)
}

// IsValid reports whether the working build has no error findings.
func (c *Configurator) IsValid() bool {
	return c.current.Valid
}

// IsComplete reports whether every required category is occupied.
func (c *Configurator) IsComplete() bool {
	return len(c.current.Missing()) == 0
}

func (c *Configurator) freshBuild() Build {
	now := c.now().UTC()
	return Build{
		ID:        c.newID(),
		Name:      c.defaultName,
		Slots:     make(map[catalog.Category][]catalog.Component),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Configurator) touch() {
	c.current.UpdatedAt = c.now().UTC()
}

// recompute derives price and validity from scratch.
func (c *Configurator) recompute() {
	c.current.TotalPrice = TotalPrice(c.current.Slots)
	c.findings = c.checker.Check(c.current)
	c.current.Valid = !HasErrors(c.findings)
}

func (c *Configurator) finish(ev Event) {
	c.recompute()
	ev.BuildID = c.current.ID
	ev.TotalPrice = c.current.TotalPrice
	if ev.Outcome.Applied() {
		c.logger.Debug("build mutated",
			zap.String("op", ev.Op),
			zap.String("category", string(ev.Category)),
			zap.String("component_id", ev.ComponentID),
			zap.Int64("total_price", int64(ev.TotalPrice)))
	} else {
		c.logger.Debug("build mutation ignored",
			zap.String("op", ev.Op),
			zap.String("category", string(ev.Category)),
			zap.String("component_id", ev.ComponentID),
			zap.Stringer("outcome", ev.Outcome))
	}
	for _, l := range c.listeners {
		l(ev)
	}
}
