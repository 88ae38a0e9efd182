package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_IdempotentWithoutTick(t *testing.T) {
	d := New()
	calls := 0
	d.On10ms(func() { calls++ })

	assert.Equal(t, StatusNoop, d.Poll())
	assert.Equal(t, StatusNoop, d.Poll())
	assert.Equal(t, 0, calls)
}

func TestPoll_DrainsOneTick(t *testing.T) {
	d := New()
	calls := 0
	d.On10ms(func() { calls++ })

	d.Tick()
	assert.Equal(t, StatusOK, d.Poll())
	assert.Equal(t, 1, calls)

	// The flag is cleared; polling again is a no-op until the next tick.
	assert.Equal(t, StatusNoop, d.Poll())
	assert.Equal(t, 1, calls)
}

func TestPoll_Cadences(t *testing.T) {
	d := New()
	var n10, n100, n1s int
	d.On10ms(func() { n10++ })
	d.On100ms(func() { n100++ })
	d.On1s(func() { n1s++ })

	// One simulated second of ticks.
	for i := 0; i < 100; i++ {
		d.Tick()
		require.Equal(t, StatusOK, d.Poll())
	}

	assert.Equal(t, 100, n10)
	assert.Equal(t, 10, n100)
	assert.Equal(t, 1, n1s)
}

func TestPoll_CadencePhase(t *testing.T) {
	d := New()
	var n100 int
	d.On100ms(func() { n100++ })

	// The 100 ms handler fires on the 10th tick, not before.
	for i := 0; i < 9; i++ {
		d.Tick()
		d.Poll()
		require.Equal(t, 0, n100, "fired early on tick %d", i+1)
	}
	d.Tick()
	d.Poll()
	assert.Equal(t, 1, n100)
}

func TestPoll_MissedPollsDoNotStackTicks(t *testing.T) {
	d := New()
	calls := 0
	d.On10ms(func() { calls++ })

	// Two ticks before a poll collapse into one pending flag.
	d.Tick()
	d.Tick()
	d.Poll()
	assert.Equal(t, 1, calls)
}

func TestRunOnce_PriorityOrder(t *testing.T) {
	d := New()
	var order []string
	d.On10ms(func() { order = append(order, "tick") })

	d.Register(func() Status {
		order = append(order, "comm")
		return StatusNoop
	})

	d.Tick()
	d.RunOnce()
	assert.Equal(t, []string{"comm", "tick"}, order)
}

func TestRunOnce_AgainRestartsScan(t *testing.T) {
	d := New()
	ticked := false
	d.On10ms(func() { ticked = true })

	pending := 2
	d.Register(func() Status {
		if pending > 0 {
			pending--
			return StatusAgain
		}
		return StatusNoop
	})

	d.Tick()
	d.RunOnce() // consumed by comm handler
	assert.False(t, ticked, "tick poll must wait while comm work is pending")
	d.RunOnce()
	assert.False(t, ticked)
	d.RunOnce()
	assert.True(t, ticked)
}

func TestRun_CancelStops(t *testing.T) {
	d := New()
	calls := 0
	d.On10ms(func() { calls++ })

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, calls, 0, "the ticker goroutine must drive the 10 ms handler")
}
