// Package activity classifies the client as active or idle from focus and
// visibility signals forwarded by the UI.
package activity

import (
	"sync"
	"sync/atomic"

	"messaging-sync/internal/observability"
)

// Source is read lazily by timer callbacks when picking a cadence.
type Source interface {
	IsActive() bool
}

// Notifier is a Source that also reports focus gains.
type Notifier interface {
	Source
	Subscribe(fn func()) (unsubscribe func())
}

// Tracker holds the process-wide activity flag. It starts active.
type Tracker struct {
	active atomic.Bool

	mu        sync.Mutex
	nextID    int
	listeners map[int]func()
}

func NewTracker() *Tracker {
	t := &Tracker{listeners: make(map[int]func())}
	t.active.Store(true)
	return t
}

func (t *Tracker) IsActive() bool {
	return t.active.Load()
}

// Focus marks the client active and notifies focus listeners.
func (t *Tracker) Focus() {
	t.set(true)

	t.mu.Lock()
	fns := make([]func(), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (t *Tracker) Blur() {
	t.set(false)
}

// SetVisibility mirrors the page visibility state. It does not count as focus.
func (t *Tracker) SetVisibility(visible bool) {
	t.set(visible)
}

// Subscribe registers fn to run on every Focus.
func (t *Tracker) Subscribe(fn func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Close drops every listener.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.listeners = make(map[int]func())
	t.mu.Unlock()
}

func (t *Tracker) set(active bool) {
	t.active.Store(active)
	observability.SetActive(active)
}
