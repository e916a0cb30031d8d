package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type switchable struct {
	idle atomic.Bool
}

func (s *switchable) IsActive() bool { return !s.idle.Load() }

func TestCoordinatorPicksCadenceOnRestart(t *testing.T) {
	src := &switchable{}
	c := NewCoordinator(src)
	t.Cleanup(c.StopAll)

	cadence := Cadence{Active: time.Hour, Idle: 2 * time.Hour}
	c.Start(context.Background(), ConcernMessages, cadence, func(context.Context) {})
	c.Start(context.Background(), ConcernTyping, Cadence{Active: time.Minute, Idle: 5 * time.Minute}, func(context.Context) {})

	interval, ok := c.Interval(ConcernMessages)
	require.True(t, ok)
	assert.Equal(t, time.Hour, interval)

	// going idle alone changes nothing until a restart
	src.idle.Store(true)
	interval, _ = c.Interval(ConcernMessages)
	assert.Equal(t, time.Hour, interval)

	c.Restart(ConcernMessages)
	interval, _ = c.Interval(ConcernMessages)
	assert.Equal(t, 2*time.Hour, interval)
	interval, _ = c.Interval(ConcernTyping)
	assert.Equal(t, time.Minute, interval)

	src.idle.Store(false)
	c.RestartAll()
	interval, _ = c.Interval(ConcernMessages)
	assert.Equal(t, time.Hour, interval)
	interval, _ = c.Interval(ConcernTyping)
	assert.Equal(t, time.Minute, interval)
}

func TestCoordinatorKeepsOneTaskPerConcern(t *testing.T) {
	c := NewCoordinator(&switchable{})
	t.Cleanup(c.StopAll)

	var first, second atomic.Int32
	cadence := Cadence{Active: 10 * time.Millisecond, Idle: time.Hour}
	c.Start(context.Background(), ConcernConversations, cadence, func(context.Context) { first.Add(1) })
	require.Eventually(t, func() bool { return first.Load() > 0 }, time.Second, time.Millisecond)

	c.Start(context.Background(), ConcernConversations, cadence, func(context.Context) { second.Add(1) })
	require.Eventually(t, func() bool { return second.Load() > 0 }, time.Second, time.Millisecond)

	stopped := first.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, first.Load(), stopped+1)
}

func TestCoordinatorStop(t *testing.T) {
	c := NewCoordinator(&switchable{})

	var runs atomic.Int32
	c.Start(context.Background(), ConcernTyping, Cadence{Active: 5 * time.Millisecond, Idle: time.Hour}, func(context.Context) { runs.Add(1) })
	require.Eventually(t, func() bool { return runs.Load() > 0 }, time.Second, time.Millisecond)

	c.Stop(ConcernTyping)
	_, ok := c.Interval(ConcernTyping)
	assert.False(t, ok)

	c.StopAll()
	n := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, runs.Load())
}

func TestCoordinatorDropsTaskWhenParentDone(t *testing.T) {
	c := NewCoordinator(&switchable{})
	t.Cleanup(c.StopAll)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx, ConcernMessages, Cadence{Active: time.Hour, Idle: time.Hour}, func(context.Context) {})
	cancel()

	c.RestartAll()
	_, ok := c.Interval(ConcernMessages)
	assert.False(t, ok)
}

func TestCoordinatorRestartLeavesRunningCallbackAlone(t *testing.T) {
	c := NewCoordinator(&switchable{})
	t.Cleanup(c.StopAll)

	entered := make(chan context.Context, 1)
	release := make(chan struct{})
	var once atomic.Bool
	c.Start(context.Background(), ConcernMessages, Cadence{Active: 5 * time.Millisecond, Idle: time.Hour}, func(ctx context.Context) {
		if once.CompareAndSwap(false, true) {
			entered <- ctx
			<-release
		}
	})

	ctx := <-entered
	c.RestartAll()
	assert.NoError(t, ctx.Err())
	close(release)
}
