package build

import (
	"fmt"
	"strings"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
)

// Severity grades a compatibility finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is an advisory message about a mismatch between occupied slots.
type Finding struct {
	Rule       string             `json:"rule"`
	Severity   Severity           `json:"severity"`
	Message    string             `json:"message"`
	Categories []catalog.Category `json:"categories"`
}

// Rule inspects a build and returns at most one finding.
type Rule struct {
	Name       string
	Severity   Severity
	Categories []catalog.Category
	Check      func(b Build) (string, bool)
}

// Checker evaluates an ordered rule list. It holds no state between calls.
type Checker struct {
	rules []Rule
}

// NewChecker returns a checker over the given rules, or the default rules
// when none are supplied.
func NewChecker(rules ...Rule) *Checker {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Checker{rules: rules}
}

// Check evaluates every rule once, in declaration order.
func (c *Checker) Check(b Build) []Finding {
	var out []Finding
	for _, r := range c.rules {
		msg, bad := r.Check(b)
		if !bad {
			continue
		}
		out = append(out, Finding{
			Rule:       r.Name,
			Severity:   r.Severity,
			Message:    msg,
			Categories: append([]catalog.Category(nil), r.Categories...),
		})
	}
	return out
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// DefaultRules are the storefront's compatibility checks. All are warnings.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "cpu-socket",
			Severity:   SeverityWarning,
			Categories: []catalog.Category{catalog.CPU, catalog.Motherboard},
			Check:      checkCPUSocket,
		},
		{
			Name:       "memory-type",
			Severity:   SeverityWarning,
			Categories: []catalog.Category{catalog.Memory, catalog.Motherboard},
			Check:      checkMemoryType,
		},
		{
			Name:       "form-factor",
			Severity:   SeverityWarning,
			Categories: []catalog.Category{catalog.Motherboard, catalog.Case},
			Check:      checkFormFactor,
		},
		{
			Name:       "memory-slots",
			Severity:   SeverityWarning,
			Categories: []catalog.Category{catalog.Memory, catalog.Motherboard},
			Check:      checkMemorySlots,
		},
		{
			Name:       "memory-capacity",
			Severity:   SeverityWarning,
			Categories: []catalog.Category{catalog.Memory, catalog.Motherboard},
			Check:      checkMemoryCapacity,
		},
		{
			Name:       "cooler-socket",
			Severity:   SeverityWarning,
			Categories: []catalog.Category{catalog.Cooler, catalog.CPU},
			Check:      checkCoolerSocket,
		},
	}
}

func cpuSpec(b Build) (catalog.CPUSpec, bool) {
	c, ok := b.Component(catalog.CPU)
	if !ok {
		return catalog.CPUSpec{}, false
	}
	s, ok := c.Spec.(catalog.CPUSpec)
	return s, ok
}

func boardSpec(b Build) (catalog.MotherboardSpec, bool) {
	c, ok := b.Component(catalog.Motherboard)
	if !ok {
		return catalog.MotherboardSpec{}, false
	}
	s, ok := c.Spec.(catalog.MotherboardSpec)
	return s, ok
}

func mismatch(a, b string) bool {
	return catalog.Concrete(a) && catalog.Concrete(b) && !strings.EqualFold(a, b)
}

func checkCPUSocket(b Build) (string, bool) {
	cpu, ok := cpuSpec(b)
	if !ok {
		return "", false
	}
	board, ok := boardSpec(b)
	if !ok {
		return "", false
	}
	if !mismatch(cpu.Socket, board.Socket) {
		return "", false
	}
	return fmt.Sprintf("CPU socket %s does not match motherboard socket %s", cpu.Socket, board.Socket), true
}

func checkMemoryType(b Build) (string, bool) {
	board, ok := boardSpec(b)
	if !ok {
		return "", false
	}
	var bad []string
	for _, m := range b.Components(catalog.Memory) {
		spec, ok := m.Spec.(catalog.MemorySpec)
		if ok && mismatch(spec.MemoryType, board.MemoryType) {
			bad = append(bad, fmt.Sprintf("%s (%s)", m.Title, spec.MemoryType))
		}
	}
	if len(bad) == 0 {
		return "", false
	}
	return fmt.Sprintf("motherboard supports %s memory but build has %s", board.MemoryType, strings.Join(bad, ", ")), true
}

func checkFormFactor(b Build) (string, bool) {
	board, ok := boardSpec(b)
	if !ok {
		return "", false
	}
	c, ok := b.Component(catalog.Case)
	if !ok {
		return "", false
	}
	chassis, ok := c.Spec.(catalog.CaseSpec)
	if !ok || !mismatch(board.FormFactor, chassis.FormFactor) {
		return "", false
	}
	return fmt.Sprintf("motherboard form factor %s does not match case form factor %s", board.FormFactor, chassis.FormFactor), true
}

func checkMemorySlots(b Build) (string, bool) {
	board, ok := boardSpec(b)
	if !ok || board.MemorySlots <= 0 {
		return "", false
	}
	n := b.Count(catalog.Memory)
	if n <= board.MemorySlots {
		return "", false
	}
	return fmt.Sprintf("build has %d memory modules but motherboard has %d slots", n, board.MemorySlots), true
}

func checkMemoryCapacity(b Build) (string, bool) {
	board, ok := boardSpec(b)
	if !ok || board.MaxMemoryGB <= 0 {
		return "", false
	}
	total := 0
	for _, m := range b.Components(catalog.Memory) {
		if spec, ok := m.Spec.(catalog.MemorySpec); ok {
			total += spec.CapacityGB
		}
	}
	if total <= board.MaxMemoryGB {
		return "", false
	}
	return fmt.Sprintf("build has %dGB of memory but motherboard supports %dGB", total, board.MaxMemoryGB), true
}

func checkCoolerSocket(b Build) (string, bool) {
	cpu, ok := cpuSpec(b)
	if !ok || !catalog.Concrete(cpu.Socket) {
		return "", false
	}
	c, ok := b.Component(catalog.Cooler)
	if !ok {
		return "", false
	}
	cooler, ok := c.Spec.(catalog.CoolerSpec)
	if !ok || len(cooler.Sockets) == 0 {
		return "", false
	}
	for _, s := range cooler.Sockets {
		if !catalog.Concrete(s) || strings.EqualFold(s, cpu.Socket) {
			return "", false
		}
	}
	return fmt.Sprintf("cooler does not list CPU socket %s (supports %s)", cpu.Socket, strings.Join(cooler.Sockets, ", ")), true
}
