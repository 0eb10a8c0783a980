package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Fixed(at)
	assert.True(t, c.Now().Equal(at))
	assert.True(t, c.Now().Equal(c.Now()))
}

func TestSimulatedAtAdvance(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewSimulatedAt(at)
	assert.True(t, c.Now().Equal(at))

	c.Advance(48 * time.Hour)
	assert.True(t, c.Now().Equal(at.Add(48*time.Hour)))

	c.Advance(time.Second)
	assert.True(t, c.Now().Equal(at.Add(48*time.Hour+time.Second)))
}

func TestSimulatedFollowsWallClock(t *testing.T) {
	c := NewSimulated()
	c.Advance(time.Hour)
	now := time.Now()
	got := c.Now()
	assert.WithinDuration(t, now.Add(time.Hour), got, 5*time.Second)
}

func TestSystemClockImplementsClock(t *testing.T) {
	var c Clock = System{}
	assert.WithinDuration(t, time.Now(), c.Now(), 5*time.Second)
}
