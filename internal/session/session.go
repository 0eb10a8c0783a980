// Package session wires the configurator, the cart, the catalog and the
// persistence adapter into one unit of work. Every applied mutation is
// written through the adapter before the mutator returns.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wondertwin-ai/rigcart/internal/build"
	"github.com/wondertwin-ai/rigcart/internal/cart"
	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/loyalty"
	"github.com/wondertwin-ai/rigcart/internal/metrics"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
	"github.com/wondertwin-ai/rigcart/internal/persist"
	"github.com/wondertwin-ai/rigcart/pkg/clock"
)

// ErrNoCatalog is returned by Open when no catalog source is supplied.
var ErrNoCatalog = errors.New("session: catalog is required")

// Options configures Open. Only Catalog is required.
type Options struct {
	Catalog     catalog.Source
	Backend     persist.Backend
	BackendName string
	Policy      catalog.SlotPolicy
	DefaultName string
	Clock       clock.Clock
	Timeout     time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Collector
	NewID       func() string
}

// Session is a single-writer view over a build and a cart.
type Session struct {
	Build *build.Configurator
	Cart  *cart.Cart

	catalog     catalog.Source
	adapter     *persist.Adapter
	backendName string
	clock       clock.Clock
	logger      *zap.Logger
	metrics     *metrics.Collector
	degraded    bool
}

// Open rehydrates both containers from the backend and subscribes the
// persisting listeners. Missing or unreadable state starts empty. A nil
// Backend keeps state in memory.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Catalog == nil {
		return nil, ErrNoCatalog
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Backend == nil {
		opts.Backend = persist.NewMemoryBackend()
		if opts.BackendName == "" {
			opts.BackendName = string(persist.KindMemory)
		}
	}

	s := &Session{
		catalog:     opts.Catalog,
		backendName: opts.BackendName,
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		adapter: persist.NewAdapter(opts.Backend,
			persist.WithTimeout(opts.Timeout),
			persist.WithAdapterLogger(opts.Logger)),
	}

	buildOpts := []build.Option{
		build.WithClock(opts.Clock.Now),
		build.WithDefaultName(opts.DefaultName),
		build.WithLogger(opts.Logger.Named("build")),
	}
	if opts.Policy != nil {
		buildOpts = append(buildOpts, build.WithPolicy(opts.Policy))
	}
	if opts.NewID != nil {
		buildOpts = append(buildOpts, build.WithIDGenerator(opts.NewID))
	}
	s.Build = build.NewConfigurator(buildOpts...)
	s.Cart = cart.New(cart.WithClock(opts.Clock.Now), cart.WithLogger(opts.Logger.Named("cart")))

	var bs build.State
	if s.adapter.Load(ctx, persist.KeyBuild, &bs) {
		s.Build.Restore(bs)
	}
	var cs cart.State
	if s.adapter.Load(ctx, persist.KeyCart, &cs) {
		s.Cart.Restore(cs)
	}
	s.checkDegraded()

	s.Build.Subscribe(s.onBuildEvent)
	s.Cart.Subscribe(s.onCartEvent)

	s.logger.Debug("session opened",
		zap.String("backend", s.backendName),
		zap.String("build_id", s.Build.Current().ID),
		zap.Int("cart_lines", s.Cart.Len()))
	return s, nil
}

// Catalog returns the session's catalog source.
func (s *Session) Catalog() catalog.Source { return s.catalog }

// Now reads the session clock.
func (s *Session) Now() time.Time { return s.clock.Now() }

// Degraded reports whether persistence has fallen back to memory.
func (s *Session) Degraded() bool { return s.adapter.Degraded() }

// Close releases the backend.
func (s *Session) Close() error { return s.adapter.Close() }

func (s *Session) onBuildEvent(ev build.Event) {
	if ev.Outcome.Applied() {
		s.adapter.Save(context.Background(), persist.KeyBuild, s.Build.State())
		s.checkDegraded()
	}
	if s.metrics != nil {
		s.metrics.ObserveBuild(ev, len(s.Build.Findings()))
	}
}

func (s *Session) onCartEvent(ev cart.Event) {
	if ev.Outcome.Applied() {
		s.adapter.Save(context.Background(), persist.KeyCart, s.Cart.State())
		s.checkDegraded()
	}
	if s.metrics != nil {
		s.metrics.ObserveCart(ev)
	}
}

func (s *Session) checkDegraded() {
	if s.degraded || !s.adapter.Degraded() {
		return
	}
	s.degraded = true
	if s.metrics != nil {
		s.metrics.RecordDegraded(s.backendName)
	}
}

// AddComponent looks a component up by id and adds it to its category.
func (s *Session) AddComponent(cat catalog.Category, componentID string) outcome.Outcome {
	comp, ok := s.catalog.Component(componentID)
	if !ok {
		return outcome.NotFound
	}
	return s.Build.AddComponent(cat, comp)
}

// AddProduct looks a product up by id and adds one unit to the cart.
func (s *Session) AddProduct(productID string) outcome.Outcome {
	p, ok := s.catalog.Product(productID)
	if !ok {
		return outcome.NotFound
	}
	return s.Cart.AddItem(p)
}

// BuildProduct turns the working build into a purchasable product. Its id
// fingerprints the parts, so an edited build becomes a new cart line. Its
// stock is the number of complete builds the scarcest part allows.
func (s *Session) BuildProduct() (catalog.Product, bool) {
	b := s.Build.Current()
	if b.Empty() {
		return catalog.Product{}, false
	}
	occurrences := make(map[string]int)
	stock := make(map[string]int)
	for _, comps := range b.Slots {
		for _, c := range comps {
			occurrences[c.ID]++
			stock[c.ID] = c.Stock
			if live, ok := s.catalog.Component(c.ID); ok {
				stock[c.ID] = live.Stock
			}
		}
	}
	ceiling := -1
	for id, n := range occurrences {
		if avail := stock[id] / n; ceiling < 0 || avail < ceiling {
			ceiling = avail
		}
	}
	if ceiling < 0 {
		ceiling = 0
	}
	return catalog.Product{
		ID:        buildProductID(b),
		Title:     b.Name,
		UnitPrice: b.TotalPrice,
		Stock:     ceiling,
	}, true
}

// buildProductID is the build id plus a digest of its sorted occupants.
func buildProductID(b build.Build) string {
	parts := make([]string, 0, len(b.Slots))
	for cat, comps := range b.Slots {
		for _, c := range comps {
			parts = append(parts, string(cat)+"="+c.ID)
		}
	}
	sort.Strings(parts)
	digest := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, ";")))
	return b.ID + "-" + digest.String()[:8]
}

// AddBuildToCart adds the working build to the cart as a single line.
func (s *Session) AddBuildToCart() outcome.Outcome {
	p, ok := s.BuildProduct()
	if !ok {
		return outcome.NotFound
	}
	return s.Cart.AddItem(p)
}

// Points summarizes the cart's loyalty points at the session clock's now.
func (s *Session) Points() loyalty.Summary {
	return s.PointsAt(s.clock.Now())
}

// PointsAt summarizes the cart's loyalty points at a given instant.
func (s *Session) PointsAt(at time.Time) loyalty.Summary {
	return loyalty.Summarize(s.Cart.Items(), at)
}

// Checkout is a read-only summary of what the cart would cost and earn.
type Checkout struct {
	Items      []cart.LineItem `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice catalog.Money   `json:"total_price"`
	Points     loyalty.Summary `json:"points"`
	At         time.Time       `json:"at"`
}

// Checkout summarizes the cart. No order is placed and nothing changes.
func (s *Session) Checkout() Checkout {
	now := s.clock.Now()
	items := s.Cart.Items()
	return Checkout{
		Items:      items,
		TotalItems: s.Cart.TotalItems(),
		TotalPrice: s.Cart.TotalPrice(),
		Points:     loyalty.Summarize(items, now),
		At:         now.UTC(),
	}
}
