package build

import (
	"github.com/wondertwin-ai/rigcart/internal/outcome"
	"github.com/wondertwin-ai/rigcart/pkg/store"
)

// State is the persisted form of a Configurator.
type State struct {
	CurrentBuild Build   `json:"current_build"`
	SavedBuilds  []Build `json:"saved_builds"`
}

// SaveBuild stores a deep copy of the working build under a new id and
// returns that id. A blank name keeps the working build's name.
func (c *Configurator) SaveBuild(name string) string {
	snap := c.current.Clone()
	snap.ID = c.newID()
	if name != "" {
		snap.Name = name
	}
	now := c.now().UTC()
	snap.CreatedAt = now
	snap.UpdatedAt = now
	c.saved.Set(snap.ID, snap)
	c.finish(Event{Op: OpSave, Outcome: outcome.OK, ComponentID: snap.ID})
	return snap.ID
}

// LoadBuild replaces the working build with a deep copy of a saved one. The
// copy gets its own id so the snapshot is never edited in place.
func (c *Configurator) LoadBuild(id string) outcome.Outcome {
	res := outcome.NotFound
	if snap, ok := c.saved.Get(id); ok {
		c.current = snap.Clone()
		c.current.ID = c.newID()
		c.touch()
		res = outcome.OK
	}
	c.finish(Event{Op: OpLoad, Outcome: res, ComponentID: id})
	return res
}

// DeleteBuild removes a saved build. The working build is untouched.
func (c *Configurator) DeleteBuild(id string) outcome.Outcome {
	res := outcome.NotFound
	if c.saved.Delete(id) {
		res = outcome.OK
	}
	c.finish(Event{Op: OpDelete, Outcome: res, ComponentID: id})
	return res
}

// SavedBuild returns a copy of one saved build.
func (c *Configurator) SavedBuild(id string) (Build, bool) {
	snap, ok := c.saved.Get(id)
	if !ok {
		return Build{}, false
	}
	return snap.Clone(), true
}

// SavedBuilds returns copies of the saved builds in save order.
func (c *Configurator) SavedBuilds() []Build {
	entries := c.saved.Snapshot(Build.Clone)
	out := make([]Build, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Item)
	}
	return out
}

// State returns a deep copy of everything the configurator persists.
func (c *Configurator) State() State {
	return State{
		CurrentBuild: c.current.Clone(),
		SavedBuilds:  c.SavedBuilds(),
	}
}

// Restore replaces the configurator's state. Occupants that break the slot
// policy are dropped and derived fields are recomputed. Listeners are not
// notified.
func (c *Configurator) Restore(st State) {
	c.current = c.sanitize(st.CurrentBuild)
	c.recompute()

	entries := make([]store.Entry[Build], 0, len(st.SavedBuilds))
	for _, b := range st.SavedBuilds {
		b = c.sanitize(b)
		b.TotalPrice = TotalPrice(b.Slots)
		b.Valid = !HasErrors(c.checker.Check(b))
		entries = append(entries, store.Entry[Build]{ID: b.ID, Item: b})
	}
	c.saved.LoadSnapshot(entries)
}

func (c *Configurator) sanitize(b Build) Build {
	out := b.Clone()
	if out.ID == "" {
		out.ID = c.newID()
	}
	if out.Name == "" {
		out.Name = c.defaultName
	}
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	for cat, comps := range out.Slots {
		max, known := c.policy.Max(cat)
		if !known {
			delete(out.Slots, cat)
			continue
		}
		kept := comps[:0]
		for _, comp := range comps {
			if comp.Category == cat && len(kept) < max {
				kept = append(kept, comp)
			}
		}
		if len(kept) == 0 {
			delete(out.Slots, cat)
		} else {
			out.Slots[cat] = kept
		}
	}
	return out
}
