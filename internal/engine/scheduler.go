package engine

import (
	"context"
	"sync"
	"time"

	"messaging-sync/internal/activity"
)

// Concern names one recurring timer owned by the Coordinator.
type Concern string

const (
	ConcernConversations Concern = "conversations"
	ConcernMessages      Concern = "messages"
	ConcernTyping        Concern = "typing"
)

// Cadence is the pair of intervals a recurring concern runs at.
type Cadence struct {
	Active time.Duration
	Idle   time.Duration
}

func (c Cadence) pick(active bool) time.Duration {
	if active {
		return c.Active
	}
	return c.Idle
}

type task struct {
	parent   context.Context
	cancel   context.CancelFunc
	cadence  Cadence
	interval time.Duration
	fn       func(context.Context)
}

// Coordinator owns every recurring timer. At most one instance per Concern is
// live; the interval is chosen from the activity source when a task (re)starts.
type Coordinator struct {
	activity activity.Source

	mu    sync.Mutex
	tasks map[Concern]*task
	wg    sync.WaitGroup
}

func NewCoordinator(src activity.Source) *Coordinator {
	return &Coordinator{activity: src, tasks: make(map[Concern]*task)}
}

// Start replaces any live instance of concern with a new ticker bound to parent.
func (c *Coordinator) Start(parent context.Context, concern Concern, cadence Cadence, fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if live, ok := c.tasks[concern]; ok {
		live.cancel()
	}
	c.startLocked(concern, &task{parent: parent, cadence: cadence, fn: fn})
}

// Restart re-evaluates the cadence of a live concern.
func (c *Coordinator) Restart(concern Concern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[concern]; ok {
		c.startLocked(concern, t)
	}
}

// RestartAll re-evaluates the cadence of every live concern.
func (c *Coordinator) RestartAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for concern, t := range c.tasks {
		c.startLocked(concern, t)
	}
}

func (c *Coordinator) Stop(concern Concern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[concern]; ok {
		t.cancel()
		delete(c.tasks, concern)
	}
}

// StopAll cancels every task and waits for their goroutines to exit.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	for concern, t := range c.tasks {
		t.cancel()
		delete(c.tasks, concern)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// Interval reports the interval a live concern is running at.
func (c *Coordinator) Interval(concern Concern) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[concern]
	if !ok {
		return 0, false
	}
	return t.interval, true
}

func (c *Coordinator) startLocked(concern Concern, prev *task) {
	if prev.cancel != nil {
		prev.cancel()
	}
	if prev.parent.Err() != nil {
		delete(c.tasks, concern)
		return
	}

	ctx, cancel := context.WithCancel(prev.parent)
	t := &task{
		parent:   prev.parent,
		cancel:   cancel,
		cadence:  prev.cadence,
		interval: prev.cadence.pick(c.activity.IsActive()),
		fn:       prev.fn,
	}
	c.tasks[concern] = t

	c.wg.Add(1)
	go c.run(ctx, t.parent, t.interval, t.fn)
}

// run ticks until ctx is done. Callbacks get parent, so a restart only stops
// future ticks and never aborts a request already in flight.
func (c *Coordinator) run(ctx, parent context.Context, interval time.Duration, fn func(context.Context)) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(parent)
		}
	}
}
