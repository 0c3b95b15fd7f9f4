package poll_test

import (
	"testing"
	"time"

	"github.com/aretw0/nkas/internal/testutils"
	"github.com/aretw0/nkas/pkg/poll"
	"github.com/stretchr/testify/assert"
)

func TestTimer_NeverStartedIsReached(t *testing.T) {
	timer := poll.NewTimer(time.Hour, 0, testutils.NewFakeClock())
	assert.False(t, timer.Started())
	assert.True(t, timer.Reached())
}

func TestTimer_LimitAndCount(t *testing.T) {
	clk := testutils.NewFakeClock()
	timer := poll.NewTimer(time.Second, 2, clk).Start()

	clk.Advance(2 * time.Second)
	// Elapsed, but only checked once and twice so far.
	assert.False(t, timer.Reached())
	assert.False(t, timer.Reached())
	assert.True(t, timer.Reached())

	timer.Reset()
	assert.False(t, timer.Reached())
	assert.False(t, timer.Reached())
	assert.False(t, timer.Reached(), "count satisfied but limit not elapsed")
	clk.Advance(time.Second)
	assert.True(t, timer.Reached())
}

func TestTimer_StartKeepsRunningTimer(t *testing.T) {
	clk := testutils.NewFakeClock()
	timer := poll.NewTimer(time.Second, 0, clk).Start()
	clk.Advance(500 * time.Millisecond)
	timer.Start()
	assert.Equal(t, 500*time.Millisecond, timer.Elapsed())

	timer.Clear()
	assert.Zero(t, timer.Elapsed())
	assert.True(t, timer.Reached())
}
