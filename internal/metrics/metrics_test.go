package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondertwin-ai/rigcart/internal/build"
	"github.com/wondertwin-ai/rigcart/internal/cart"
	"github.com/wondertwin-ai/rigcart/internal/outcome"
)

func TestObserveBuild(t *testing.T) {
	c := NewCollector("")
	c.ObserveBuild(build.Event{Op: build.OpAdd, Outcome: outcome.OK, TotalPrice: 44900}, 1)
	c.ObserveBuild(build.Event{Op: build.OpAdd, Outcome: outcome.CapacityExceeded, TotalPrice: 44900}, 1)
	c.ObserveBuild(build.Event{Op: build.OpAdd, Outcome: outcome.OK, TotalPrice: 50800}, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.buildMutations.WithLabelValues(build.OpAdd, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.buildMutations.WithLabelValues(build.OpAdd, "capacity_exceeded")))
	assert.Equal(t, 50800.0, testutil.ToFloat64(c.buildPrice))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.buildFindings))
}

func TestObserveCart(t *testing.T) {
	c := NewCollector("shop")
	c.ObserveCart(cart.Event{Op: cart.OpAdd, Outcome: outcome.OK, TotalItems: 3, TotalPrice: 2997})
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cartMutations.WithLabelValues(cart.OpAdd, "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.cartItems))
	assert.Equal(t, 2997.0, testutil.ToFloat64(c.cartPrice))
}

func TestRecordDegraded(t *testing.T) {
	c := NewCollector("")
	c.RecordDegraded("redis")
	c.RecordDegraded("")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.persistFailures.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.persistFailures.WithLabelValues("unknown")))
}

func TestWriteText(t *testing.T) {
	c := NewCollector("")
	c.ObserveCart(cart.Event{Op: cart.OpClear, Outcome: outcome.OK})

	var sb strings.Builder
	require.NoError(t, c.WriteText(&sb))
	out := sb.String()
	assert.Contains(t, out, "# TYPE rigcart_cart_mutations_total counter")
	assert.Contains(t, out, `rigcart_cart_mutations_total{op="clear_cart",outcome="ok"} 1`)
	assert.Contains(t, out, "rigcart_cart_items 0")
}
