package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_ZeroValue(t *testing.T) {
	var c Clock
	assert.Zero(t, c.Press())
	assert.Zero(t, c.Seq())
}

func TestClock_SeqSpansPresses(t *testing.T) {
	var c Clock

	assert.Equal(t, 1, c.StartPress())
	assert.Equal(t, int64(1), c.Stamp())
	assert.Equal(t, int64(2), c.Stamp())

	assert.Equal(t, 2, c.StartPress())
	assert.Equal(t, int64(3), c.Stamp())
	assert.Equal(t, 2, c.Press())
	assert.Equal(t, int64(3), c.Seq())
}

func TestClock_Reset(t *testing.T) {
	var c Clock
	c.StartPress()
	c.Stamp()

	c.Reset()
	assert.Zero(t, c.Press())
	assert.Equal(t, 1, c.StartPress())
	assert.Equal(t, int64(1), c.Stamp())
}

func TestEngine_ClockFollowsPresses(t *testing.T) {
	e := New(mustNetwork(t, counterNetwork()))

	for i := 0; i < 3; i++ {
		_, err := e.Press(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, e.Presses())
	assert.Equal(t, int64(8+6+8), e.clock.Seq())

	e.Reset()
	assert.Zero(t, e.Presses())
	assert.Zero(t, e.clock.Seq())
}
