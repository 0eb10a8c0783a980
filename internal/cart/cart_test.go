package cart

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
)

var addedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCart() *Cart {
	return New(WithClock(func() time.Time { return addedAt }))
}

func product(id string, price catalog.Money, stock int) catalog.Product {
	return catalog.Product{ID: id, Title: id, UnitPrice: price, Stock: stock}
}

func TestAddItemStopsAtStockCeiling(t *testing.T) {
	c := newTestCart()
	a := product("a", 250, 3)
	for i := 0; i < 3; i++ {
		require.Equal(t, outcome.OK, c.AddItem(a))
	}
	line, ok := c.Item("a")
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity)

	assert.Equal(t, outcome.StockExceeded, c.AddItem(a))
	line, _ = c.Item("a")
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, catalog.Money(750), c.TotalPrice())
}

func TestCeilingIsCopiedAtAddTime(t *testing.T) {
	c := newTestCart()
	require.Equal(t, outcome.OK, c.AddItem(product("a", 100, 2)))
	// A later restock upstream does not raise the line's ceiling.
	require.Equal(t, outcome.OK, c.AddItem(product("a", 100, 10)))
	assert.Equal(t, outcome.StockExceeded, c.AddItem(product("a", 100, 10)))

	line, _ := c.Item("a")
	assert.Equal(t, 2, line.StockCeiling)
	assert.Equal(t, addedAt, line.AddedAt)
}

func TestAddOutOfStockProduct(t *testing.T) {
	c := newTestCart()
	assert.Equal(t, outcome.StockExceeded, c.AddItem(product("gone", 100, 0)))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, outcome.NotFound, c.AddItem(product("", 100, 5)))
}

func TestRemoveItem(t *testing.T) {
	c := newTestCart()
	c.AddItem(product("a", 100, 5))
	c.AddItem(product("b", 200, 5))

	assert.Equal(t, outcome.OK, c.RemoveItem("a"))
	assert.Equal(t, outcome.NotFound, c.RemoveItem("a"))
	assert.Equal(t, 1, c.TotalItems())
	assert.Equal(t, catalog.Money(200), c.TotalPrice())
}

func TestUpdateQuantity(t *testing.T) {
	c := newTestCart()
	c.AddItem(product("a", 100, 5))

	assert.Equal(t, outcome.OK, c.UpdateQuantity("a", 4))
	assert.Equal(t, 4, c.TotalItems())

	assert.Equal(t, outcome.StockExceeded, c.UpdateQuantity("a", 6))
	assert.Equal(t, 4, c.TotalItems())

	assert.Equal(t, outcome.NotFound, c.UpdateQuantity("missing", 1))

	assert.Equal(t, outcome.OK, c.UpdateQuantity("a", 0))
	_, ok := c.Item("a")
	assert.False(t, ok)
	assert.Equal(t, outcome.NotFound, c.UpdateQuantity("a", -1))
}

func TestUpdateQuantityNeverExceedsCeiling(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newTestCart()
	products := []catalog.Product{product("a", 100, 3), product("b", 50, 1), product("c", 10, 8)}
	for i := 0; i < 1000; i++ {
		p := products[rng.Intn(len(products))]
		switch rng.Intn(3) {
		case 0:
			c.AddItem(p)
		case 1:
			c.UpdateQuantity(p.ID, rng.Intn(12)-2)
		default:
			c.RemoveItem(p.ID)
		}
		for _, l := range c.Items() {
			require.GreaterOrEqual(t, l.Quantity, 1)
			require.LessOrEqual(t, l.Quantity, l.StockCeiling)
		}
	}
}

func TestItemsKeepInsertionOrder(t *testing.T) {
	c := newTestCart()
	for _, id := range []string{"z", "m", "a"} {
		c.AddItem(product(id, 1, 1))
	}
	var ids []string
	for _, l := range c.Items() {
		ids = append(ids, l.ProductID)
	}
	assert.Equal(t, []string{"z", "m", "a"}, ids)
}

func TestClearCart(t *testing.T) {
	c := newTestCart()
	c.AddItem(product("a", 100, 5))
	c.ClearCart()
	assert.Equal(t, 0, c.TotalItems())
	assert.Empty(t, c.Items())
}

func TestItemsAreCopies(t *testing.T) {
	c := newTestCart()
	pts := int64(10)
	p := product("a", 100, 5)
	p.PointsPerUnit = &pts
	c.AddItem(p)

	pts = 99
	items := c.Items()
	*items[0].PointsPerUnit = 50
	items[0].Quantity = 5

	line, _ := c.Item("a")
	assert.Equal(t, int64(10), *line.PointsPerUnit)
	assert.Equal(t, 1, line.Quantity)
}

func TestSubscribe(t *testing.T) {
	c := newTestCart()
	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })

	c.AddItem(product("a", 100, 1))
	c.AddItem(product("a", 100, 1))
	c.ClearCart()

	require.Len(t, events, 3)
	assert.Equal(t, outcome.OK, events[0].Outcome)
	assert.Equal(t, 1, events[0].Quantity)
	assert.Equal(t, catalog.Money(100), events[0].TotalPrice)
	assert.Equal(t, outcome.StockExceeded, events[1].Outcome)
	assert.Equal(t, OpClear, events[2].Op)
	assert.Equal(t, 0, events[2].TotalItems)
}

func TestStateJSONRoundTrip(t *testing.T) {
	c := newTestCart()
	pts := int64(120)
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	p := product("fans", 4999, 3)
	p.PointsPerUnit = &pts
	p.PointsExpireAt = &expires
	c.AddItem(p)
	c.AddItem(p)
	c.AddItem(product("cables", 5999, 5))

	data, err := json.Marshal(c.State())
	require.NoError(t, err)
	var st State
	require.NoError(t, json.Unmarshal(data, &st))

	restored := newTestCart()
	restored.Restore(st)
	assert.Equal(t, c.State(), restored.State())
	assert.Equal(t, c.TotalPrice(), restored.TotalPrice())
}

func TestRestoreDropsInvalidLines(t *testing.T) {
	c := newTestCart()
	c.Restore(State{Items: []LineItem{
		{ProductID: "ok", UnitPrice: 10, Quantity: 2, StockCeiling: 2},
		{ProductID: "zero", UnitPrice: 10, Quantity: 0, StockCeiling: 2},
		{ProductID: "over", UnitPrice: 10, Quantity: 3, StockCeiling: 2},
		{ProductID: "ok", UnitPrice: 10, Quantity: 1, StockCeiling: 2},
	}})
	require.Equal(t, 1, c.Len())
	line, _ := c.Item("ok")
	assert.Equal(t, 2, line.Quantity)
}
