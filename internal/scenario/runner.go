package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wondertwin-ai/rigcart/internal/build"
	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
	"github.com/wondertwin-ai/rigcart/internal/session"
	"github.com/wondertwin-ai/rigcart/pkg/clock"
)

// Actions understood by the runner.
const (
	ActionBuildAdd     = "build.add"
	ActionBuildRemove  = "build.remove"
	ActionBuildClear   = "build.clear"
	ActionBuildRename  = "build.rename"
	ActionBuildSave    = "build.save"
	ActionBuildLoad    = "build.load"
	ActionBuildDelete  = "build.delete"
	ActionCartAdd      = "cart.add"
	ActionCartAddBuild = "cart.add_build"
	ActionCartUpdate   = "cart.update"
	ActionCartRemove   = "cart.remove"
	ActionCartClear    = "cart.clear"
	ActionCheck        = "check"
)

var actions = map[string]struct{}{
	ActionBuildAdd: {}, ActionBuildRemove: {}, ActionBuildClear: {}, ActionBuildRename: {},
	ActionBuildSave: {}, ActionBuildLoad: {}, ActionBuildDelete: {},
	ActionCartAdd: {}, ActionCartAddBuild: {}, ActionCartUpdate: {}, ActionCartRemove: {}, ActionCartClear: {},
	ActionCheck: {},
}

// StepResult records the outcome of a single step.
type StepResult struct {
	Name     string
	Passed   bool
	Duration time.Duration
	Error    string // empty when passed
}

// Result records the outcome of an entire scenario.
type Result struct {
	ScenarioName string
	Passed       bool
	Steps        []StepResult
	Duration     time.Duration
}

// Runner executes scenarios against fresh in-memory sessions.
type Runner struct {
	catalog catalog.Source
	logger  *zap.Logger
}

// NewRunner creates a Runner. cat is used by scenarios that do not name
// their own catalog; it may be nil when every scenario does.
func NewRunner(cat catalog.Source, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{catalog: cat, logger: logger}
}

// run is the per-scenario state shared between steps.
type run struct {
	sess  *session.Session
	clock *clock.Simulated
	saved map[string]string
	last  outcome.Outcome
}

// Run executes a single scenario and returns its result.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	start := time.Now()
	result := &Result{
		ScenarioName: s.Name,
		Passed:       true,
	}

	st, err := r.setup(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	defer st.sess.Close()

	for i := range s.Steps {
		sr := r.runStep(st, &s.Steps[i])
		result.Steps = append(result.Steps, sr)
		if !sr.Passed {
			result.Passed = false
			r.logger.Debug("scenario step failed",
				zap.String("scenario", s.Name),
				zap.String("step", sr.Name),
				zap.String("error", sr.Error))
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) setup(ctx context.Context, s *Scenario) (*run, error) {
	cat := r.catalog
	if p := s.CatalogPath(); p != "" {
		loaded, err := catalog.LoadFile(p)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	if cat == nil {
		return nil, fmt.Errorf("scenario %s: no catalog", s.Name)
	}

	startAt, err := s.Start()
	if err != nil {
		return nil, err
	}
	clk := clock.NewSimulated()
	if !startAt.IsZero() {
		clk = clock.NewSimulatedAt(startAt)
	}

	policy := catalog.DefaultPolicy().
		WithMax(catalog.Memory, s.Setup.MemorySlots).
		WithMax(catalog.Storage, s.Setup.StorageSlots)

	sess, err := session.Open(ctx, session.Options{
		Catalog:     cat,
		Policy:      policy,
		DefaultName: s.Setup.DefaultName,
		Clock:       clk,
		Logger:      r.logger,
	})
	if err != nil {
		return nil, err
	}
	return &run{sess: sess, clock: clk, saved: make(map[string]string)}, nil
}

// runStep executes a single scenario step and returns its result.
func (r *Runner) runStep(st *run, step *Step) StepResult {
	start := time.Now()
	sr := StepResult{Name: step.Name}
	fail := func(format string, args ...any) StepResult {
		sr.Error = fmt.Sprintf(format, args...)
		sr.Duration = time.Since(start)
		return sr
	}

	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fail("invalid advance %q: %v", step.Advance, err)
		}
		st.clock.Advance(d)
	}

	times := step.Args.Repeat
	if times < 1 {
		times = 1
	}
	for i := 0; i < times; i++ {
		res, err := r.apply(st, step)
		if err != nil {
			return fail("%s: %v", step.Action, err)
		}
		st.last = res
	}

	if err := check(st, step.Assert); err != nil {
		return fail("%v", err)
	}

	sr.Passed = true
	sr.Duration = time.Since(start)
	return sr
}

func (r *Runner) apply(st *run, step *Step) (outcome.Outcome, error) {
	s := st.sess
	a := step.Args
	switch step.Action {
	case ActionBuildAdd:
		cat, err := catalog.ParseCategory(a.Category)
		if err != nil {
			return outcome.UnknownCategory, nil
		}
		return s.AddComponent(cat, a.Component), nil
	case ActionBuildRemove:
		cat, err := catalog.ParseCategory(a.Category)
		if err != nil {
			return outcome.UnknownCategory, nil
		}
		return s.Build.RemoveComponent(cat, a.Component), nil
	case ActionBuildClear:
		s.Build.ClearBuild()
		return outcome.OK, nil
	case ActionBuildRename:
		return s.Build.Rename(a.Name), nil
	case ActionBuildSave:
		id := s.Build.SaveBuild(a.Name)
		if a.Ref != "" {
			st.saved[a.Ref] = id
		}
		return outcome.OK, nil
	case ActionBuildLoad, ActionBuildDelete:
		id, err := ExpandTemplates(a.ID, st.refs())
		if err != nil {
			return outcome.NotFound, err
		}
		if step.Action == ActionBuildLoad {
			return s.Build.LoadBuild(id), nil
		}
		return s.Build.DeleteBuild(id), nil
	case ActionCartAdd:
		return s.AddProduct(a.Product), nil
	case ActionCartAddBuild:
		return s.AddBuildToCart(), nil
	case ActionCartUpdate:
		return s.Cart.UpdateQuantity(productRef(st, a.Product), a.Quantity), nil
	case ActionCartRemove:
		return s.Cart.RemoveItem(productRef(st, a.Product)), nil
	case ActionCartClear:
		s.Cart.ClearCart()
		return outcome.OK, nil
	case ActionCheck:
		return st.last, nil
	default:
		return outcome.NotFound, fmt.Errorf("unknown action %q", step.Action)
	}
}

func (st *run) refs() Refs {
	r := Refs{Saved: st.saved, BuildID: st.sess.Build.Current().ID}
	if p, ok := st.sess.BuildProduct(); ok {
		r.BuildProduct = p.ID
	}
	return r
}

// productRef lets cart steps address a build line with {{build.product}}.
func productRef(st *run, id string) string {
	out, err := ExpandTemplates(id, st.refs())
	if err != nil {
		return id
	}
	return out
}

func check(st *run, a Assert) error {
	s := st.sess
	var problems []string
	failf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if a.Outcome != "" && st.last.String() != a.Outcome {
		failf("expected outcome %s, got %s", a.Outcome, st.last)
	}
	if a.BuildTotal != nil && int64(s.Build.TotalPrice()) != *a.BuildTotal {
		failf("expected build total %d, got %d", *a.BuildTotal, s.Build.TotalPrice())
	}
	for name, want := range a.Counts {
		if got := s.Build.ComponentCount(catalog.Category(name)); got != want {
			failf("expected %d %s, got %d", want, name, got)
		}
	}
	findings := s.Build.Findings()
	if a.Findings != nil && len(findings) != *a.Findings {
		failf("expected %d findings, got %d", *a.Findings, len(findings))
	}
	if a.Warnings != nil {
		var rules []string
		for _, f := range findings {
			if f.Severity == build.SeverityWarning {
				rules = append(rules, f.Rule)
			}
		}
		if strings.Join(rules, ",") != strings.Join(a.Warnings, ",") {
			failf("expected warnings [%s], got [%s]", strings.Join(a.Warnings, ", "), strings.Join(rules, ", "))
		}
	}
	if a.Valid != nil && s.Build.IsValid() != *a.Valid {
		failf("expected valid=%t, got %t", *a.Valid, s.Build.IsValid())
	}
	if a.Complete != nil && s.Build.IsComplete() != *a.Complete {
		failf("expected complete=%t, got %t", *a.Complete, s.Build.IsComplete())
	}
	if a.CartItems != nil && s.Cart.TotalItems() != *a.CartItems {
		failf("expected %d cart items, got %d", *a.CartItems, s.Cart.TotalItems())
	}
	if a.CartTotal != nil && int64(s.Cart.TotalPrice()) != *a.CartTotal {
		failf("expected cart total %d, got %d", *a.CartTotal, s.Cart.TotalPrice())
	}
	for id, want := range a.Quantity {
		got := 0
		if line, ok := s.Cart.Item(productRef(st, id)); ok {
			got = line.Quantity
		}
		if got != want {
			failf("expected quantity %d of %s, got %d", want, id, got)
		}
	}
	if a.Points != nil || a.ExpiredOffers != nil {
		pts := s.Points()
		if a.Points != nil && pts.TotalPointsToEarn != *a.Points {
			failf("expected %d points, got %d", *a.Points, pts.TotalPointsToEarn)
		}
		if a.ExpiredOffers != nil && pts.HasExpiredOffers != *a.ExpiredOffers {
			failf("expected expired_offers=%t, got %t", *a.ExpiredOffers, pts.HasExpiredOffers)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
