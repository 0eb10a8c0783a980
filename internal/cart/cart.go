// Package cart holds the purchasable line items of a session. Quantities never
// exceed the stock ceiling recorded when a line was first added.
package cart

import (
	"time"

	"go.uber.org/zap"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
)

// Operation names reported in events.
const (
	OpAdd    = "add_item"
	OpRemove = "remove_item"
	OpUpdate = "update_quantity"
	OpClear  = "clear_cart"
)

// LineItem is one product and its selected quantity. StockCeiling and the
// points fields are copied from the product when the line is created.
type LineItem struct {
	ProductID      string        `json:"product_id"`
	Title          string        `json:"title"`
	UnitPrice      catalog.Money `json:"unit_price"`
	Quantity       int           `json:"quantity"`
	StockCeiling   int           `json:"stock_ceiling"`
	PointsPerUnit  *int64        `json:"points_per_unit,omitempty"`
	PointsExpireAt *time.Time    `json:"points_expire_at,omitempty"`
	AddedAt        time.Time     `json:"added_at"`
}

// Subtotal is UnitPrice × Quantity.
func (l LineItem) Subtotal() catalog.Money {
	return l.UnitPrice * catalog.Money(l.Quantity)
}

func (l LineItem) clone() LineItem {
	if l.PointsPerUnit != nil {
		v := *l.PointsPerUnit
		l.PointsPerUnit = &v
	}
	if l.PointsExpireAt != nil {
		v := *l.PointsExpireAt
		l.PointsExpireAt = &v
	}
	return l
}

// State is the persisted form of a Cart.
type State struct {
	Items []LineItem `json:"items"`
}

// Event describes a completed mutation.
type Event struct {
	Op         string
	ProductID  string
	Quantity   int
	Outcome    outcome.Outcome
	TotalItems int
	TotalPrice catalog.Money
}

// Listener is notified after every mutation, applied or not.
type Listener func(Event)

// Cart is a single-writer container of line items in insertion order.
type Cart struct {
	items     []LineItem
	now       func() time.Time
	logger    *zap.Logger
	listeners []Listener
}

// Option configures a Cart.
type Option func(*Cart)

// WithClock sets the time source stamped on new lines.
func WithClock(now func() time.Time) Option {
	return func(c *Cart) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cart) { c.logger = l }
}

// New returns an empty cart.
func New(opts ...Option) *Cart {
	c := &Cart{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a listener.
func (c *Cart) Subscribe(l Listener) {
	c.listeners = append(c.listeners, l)
}

// AddItem adds one unit of a product. An existing line grows only while it
// is below its stock ceiling; a new line needs at least one unit in stock.
func (c *Cart) AddItem(p catalog.Product) outcome.Outcome {
	res := c.addItem(p)
	c.finish(Event{Op: OpAdd, ProductID: p.ID, Quantity: c.quantity(p.ID), Outcome: res})
	return res
}

func (c *Cart) addItem(p catalog.Product) outcome.Outcome {
	if p.ID == "" {
		return outcome.NotFound
	}
	if i := c.index(p.ID); i >= 0 {
		if c.items[i].Quantity >= c.items[i].StockCeiling {
			return outcome.StockExceeded
		}
		c.items[i].Quantity++
		return outcome.OK
	}
	if p.Stock < 1 {
		return outcome.StockExceeded
	}
	line := LineItem{
		ProductID:      p.ID,
		Title:          p.Title,
		UnitPrice:      p.UnitPrice,
		Quantity:       1,
		StockCeiling:   p.Stock,
		PointsPerUnit:  p.PointsPerUnit,
		PointsExpireAt: p.PointsExpireAt,
		AddedAt:        c.now().UTC(),
	}
	if line.PointsExpireAt != nil {
		at := line.PointsExpireAt.UTC()
		line.PointsExpireAt = &at
	}
	c.items = append(c.items, line.clone())
	return outcome.OK
}

// RemoveItem deletes a line.
func (c *Cart) RemoveItem(productID string) outcome.Outcome {
	res := c.removeItem(productID)
	c.finish(Event{Op: OpRemove, ProductID: productID, Outcome: res})
	return res
}

func (c *Cart) removeItem(productID string) outcome.Outcome {
	i := c.index(productID)
	if i < 0 {
		return outcome.NotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return outcome.OK
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line;
// anything above the stock ceiling is refused rather than clamped.
func (c *Cart) UpdateQuantity(productID string, quantity int) outcome.Outcome {
	var res outcome.Outcome
	switch i := c.index(productID); {
	case quantity <= 0:
		res = c.removeItem(productID)
	case i < 0:
		res = outcome.NotFound
	case quantity > c.items[i].StockCeiling:
		res = outcome.StockExceeded
	default:
		c.items[i].Quantity = quantity
		res = outcome.OK
	}
	c.finish(Event{Op: OpUpdate, ProductID: productID, Quantity: c.quantity(productID), Outcome: res})
	return res
}

// ClearCart removes every line.
func (c *Cart) ClearCart() {
	c.items = nil
	c.finish(Event{Op: OpClear, Outcome: outcome.OK})
}

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.items {
		n += l.Quantity
	}
	return n
}

// TotalPrice is the sum of line subtotals.
func (c *Cart) TotalPrice() catalog.Money {
	var total catalog.Money
	for _, l := range c.items {
		total += l.Subtotal()
	}
	return total
}

// Item returns a copy of one line.
func (c *Cart) Item(productID string) (LineItem, bool) {
	i := c.index(productID)
	if i < 0 {
		return LineItem{}, false
	}
	return c.items[i].clone(), true
}

// Items returns copies of all lines in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, 0, len(c.items))
	for _, l := range c.items {
		out = append(out, l.clone())
	}
	return out
}

// Len is the number of lines.
func (c *Cart) Len() int { return len(c.items) }

// State returns a deep copy of the persisted form.
func (c *Cart) State() State {
	return State{Items: c.Items()}
}

// Restore replaces the cart's lines. Lines with no quantity, a quantity
// above their ceiling, or a repeated product id are dropped. Listeners are
// not notified.
func (c *Cart) Restore(st State) {
	c.items = nil
	seen := make(map[string]bool, len(st.Items))
	for _, l := range st.Items {
		if l.ProductID == "" || seen[l.ProductID] || l.Quantity < 1 || l.Quantity > l.StockCeiling {
			c.logger.Debug("dropping restored cart line",
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Int("stock_ceiling", l.StockCeiling))
			continue
		}
		seen[l.ProductID] = true
		l.AddedAt = l.AddedAt.UTC()
		if l.PointsExpireAt != nil {
			at := l.PointsExpireAt.UTC()
			l.PointsExpireAt = &at
		}
		c.items = append(c.items, l.clone())
	}
}

func (c *Cart) index(productID string) int {
	for i, l := range c.items {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

func (c *Cart) finish(ev Event) {
	ev.TotalItems = c.TotalItems()
	ev.TotalPrice = c.TotalPrice()
	c.logger.Debug("cart mutated",
		zap.String("op", ev.Op),
		zap.String("product_id", ev.ProductID),
		zap.Int("quantity", ev.Quantity),
		zap.Stringer("outcome", ev.Outcome))
	for _, l := range c.listeners {
		l(ev)
	}
}
