package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/metrics"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
	"github.com/wondertwin-ai/rigcart/internal/persist"
	"github.com/wondertwin-ai/rigcart/pkg/clock"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	pts := int64(10)
	fanPts := int64(120)
	expired := testNow.Add(-time.Second)
	cat, err := catalog.New(
		[]catalog.Component{
			{ID: "cpu-am5", Category: catalog.CPU, Title: "Ryzen", UnitPrice: 44900, Stock: 12,
				Spec: catalog.CPUSpec{Socket: "AM5"}},
			{ID: "mb-lga", Category: catalog.Motherboard, Title: "Z790", UnitPrice: 18900, Stock: 4,
				Spec: catalog.MotherboardSpec{Socket: "LGA1700", MemoryType: "DDR5", FormFactor: "mATX", MemorySlots: 2, MaxMemoryGB: 96}},
			{ID: "ram-16", Category: catalog.Memory, Title: "16GB DDR5", UnitPrice: 5900, Stock: 3,
				Spec: catalog.MemorySpec{MemoryType: "DDR5", CapacityGB: 16}},
		},
		[]catalog.Product{
			{ID: "paste", Title: "Thermal paste", UnitPrice: 999, Stock: 50, PointsPerUnit: &pts},
			{ID: "fans", Title: "Fan pack", UnitPrice: 4999, Stock: 3, PointsPerUnit: &fanPts, PointsExpireAt: &expired},
		},
	)
	require.NoError(t, err)
	return cat
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}
}

func openTest(t *testing.T, backend persist.Backend, m *metrics.Collector) *Session {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Catalog: testCatalog(t),
		Backend: backend,
		Clock:   clock.Fixed(testNow),
		Metrics: m,
		NewID:   sequentialIDs(),
	})
	require.NoError(t, err)
	return s
}

type brokenBackend struct{}

func (brokenBackend) Load(context.Context, string) ([]byte, error) {
	return nil, persist.ErrNotFound
}

func (brokenBackend) Save(context.Context, string, []byte) error {
	return errors.New("read-only filesystem")
}

func (brokenBackend) Close() error { return nil }

func TestOpenRequiresCatalog(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestMutationsPersistAcrossSessions(t *testing.T) {
	backend := persist.NewMemoryBackend()
	s := openTest(t, backend, nil)

	require.Equal(t, outcome.OK, s.AddComponent(catalog.CPU, "cpu-am5"))
	require.Equal(t, outcome.OK, s.AddComponent(catalog.Memory, "ram-16"))
	savedID := s.Build.SaveBuild("Keep")
	require.Equal(t, outcome.OK, s.AddProduct("paste"))
	require.Equal(t, outcome.OK, s.AddProduct("paste"))
	for _, key := range []string{persist.KeyBuild, persist.KeyCart} {
		_, err := backend.Load(context.Background(), key)
		assert.NoError(t, err, key)
	}

	reopened := openTest(t, backend, nil)
	assert.Equal(t, s.Build.State(), reopened.Build.State())
	assert.Equal(t, s.Cart.State(), reopened.Cart.State())
	assert.Equal(t, catalog.Money(50800), reopened.Build.TotalPrice())
	_, ok := reopened.Build.SavedBuild(savedID)
	assert.True(t, ok)
	line, ok := reopened.Cart.Item("paste")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
}

func TestIgnoredMutationsDoNotWrite(t *testing.T) {
	backend := persist.NewMemoryBackend()
	s := openTest(t, backend, nil)
	assert.Equal(t, outcome.NotFound, s.Build.RemoveComponent(catalog.GPU, "none"))
	assert.Equal(t, outcome.NotFound, s.Cart.RemoveItem("none"))
	for _, key := range []string{persist.KeyBuild, persist.KeyCart} {
		_, err := backend.Load(context.Background(), key)
		assert.ErrorIs(t, err, persist.ErrNotFound, key)
	}
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	s := openTest(t, nil, nil)
	assert.Equal(t, outcome.NotFound, s.AddComponent(catalog.CPU, "cpu-missing"))
	assert.Equal(t, outcome.NotFound, s.AddProduct("missing"))
}

func TestComponentsArePurchasable(t *testing.T) {
	s := openTest(t, nil, nil)
	require.Equal(t, outcome.OK, s.AddProduct("ram-16"))
	line, ok := s.Cart.Item("ram-16")
	require.True(t, ok)
	assert.Equal(t, 3, line.StockCeiling)
	assert.Nil(t, line.PointsPerUnit)
}

func TestPersistenceFailureDegradesQuietly(t *testing.T) {
	m := metrics.NewCollector("")
	s, err := Open(context.Background(), Options{
		Catalog:     testCatalog(t),
		Backend:     brokenBackend{},
		BackendName: "file",
		Clock:       clock.Fixed(testNow),
		Metrics:     m,
	})
	require.NoError(t, err)

	assert.Equal(t, outcome.OK, s.AddComponent(catalog.CPU, "cpu-am5"))
	assert.Equal(t, outcome.OK, s.AddProduct("paste"))
	assert.True(t, s.Degraded())
	assert.Equal(t, catalog.Money(44900), s.Build.TotalPrice())
	assert.Equal(t, 1, s.Cart.TotalItems())

	n, err := testutil.GatherAndCount(m.Registry(), "rigcart_persist_degraded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddBuildToCartUsesScarcestPart(t *testing.T) {
	s := openTest(t, nil, nil)
	assert.Equal(t, outcome.NotFound, s.AddBuildToCart())

	s.AddComponent(catalog.CPU, "cpu-am5")
	s.AddComponent(catalog.Memory, "ram-16")
	s.AddComponent(catalog.Memory, "ram-16")

	p, ok := s.BuildProduct()
	require.True(t, ok)
	// ram-16 has stock 3 and the build uses two.
	assert.Equal(t, 1, p.Stock)
	assert.Equal(t, catalog.Money(44900+2*5900), p.UnitPrice)
	assert.True(t, strings.HasPrefix(p.ID, s.Build.Current().ID+"-"))
	assert.Equal(t, s.Build.Current().Name, p.Title)

	require.Equal(t, outcome.OK, s.AddBuildToCart())
	assert.Equal(t, outcome.StockExceeded, s.AddBuildToCart())
	assert.Equal(t, 1, s.Cart.TotalItems())
}

func TestEditedBuildIsASeparateCartLine(t *testing.T) {
	s := openTest(t, nil, nil)
	require.Equal(t, outcome.OK, s.AddComponent(catalog.CPU, "cpu-am5"))
	first, ok := s.BuildProduct()
	require.True(t, ok)
	require.Equal(t, outcome.OK, s.AddBuildToCart())

	require.Equal(t, outcome.OK, s.AddComponent(catalog.Motherboard, "mb-lga"))
	second, ok := s.BuildProduct()
	require.True(t, ok)
	assert.NotEqual(t, first.ID, second.ID)
	require.Equal(t, outcome.OK, s.AddBuildToCart())

	items := s.Cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ProductID)
	assert.Equal(t, catalog.Money(44900), items[0].UnitPrice)
	assert.Equal(t, 12, items[0].StockCeiling)
	assert.Equal(t, second.ID, items[1].ProductID)
	assert.Equal(t, catalog.Money(44900+18900), items[1].UnitPrice)
	assert.Equal(t, 4, items[1].StockCeiling)
	assert.Equal(t, catalog.Money(44900+44900+18900), s.Cart.TotalPrice())

	// Removing the board restores the first configuration and its line.
	require.Equal(t, outcome.OK, s.Build.RemoveComponent(catalog.Motherboard, ""))
	require.Equal(t, outcome.OK, s.AddBuildToCart())
	line, ok := s.Cart.Item(first.ID)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
}

func TestPointsAndCheckout(t *testing.T) {
	s := openTest(t, nil, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, outcome.OK, s.AddProduct("paste"))
	}
	require.Equal(t, outcome.OK, s.AddProduct("fans"))
	require.Equal(t, outcome.OK, s.AddProduct("fans"))

	pts := s.Points()
	assert.Equal(t, int64(30), pts.TotalPointsToEarn)
	assert.True(t, pts.HasExpiredOffers)
	require.Len(t, pts.Breakdown, 2)
	assert.True(t, pts.Breakdown[1].Expired)

	earlier := s.PointsAt(testNow.Add(-time.Hour))
	assert.Equal(t, int64(30+240), earlier.TotalPointsToEarn)
	assert.False(t, earlier.HasExpiredOffers)

	co := s.Checkout()
	assert.Equal(t, 5, co.TotalItems)
	assert.Equal(t, catalog.Money(3*999+2*4999), co.TotalPrice)
	assert.Equal(t, pts, co.Points)
	assert.Equal(t, testNow, co.At)
	assert.Equal(t, 5, s.Cart.TotalItems())
}

func TestMetricsObserveEvents(t *testing.T) {
	m := metrics.NewCollector("")
	s := openTest(t, nil, m)
	s.AddComponent(catalog.CPU, "cpu-am5")
	s.AddComponent(catalog.Motherboard, "mb-lga")
	s.AddProduct("paste")

	n, err := testutil.GatherAndCount(m.Registry(), "rigcart_build_mutations_total", "rigcart_cart_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var sb strings.Builder
	require.NoError(t, m.WriteText(&sb))
	assert.Contains(t, sb.String(), `rigcart_build_mutations_total{op="add_component",outcome="ok"} 2`)
	assert.Contains(t, sb.String(), "rigcart_build_findings 1")
	assert.Contains(t, sb.String(), "rigcart_cart_items 1")
}
