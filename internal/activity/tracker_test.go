package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartsActive(t *testing.T) {
	assert.True(t, NewTracker().IsActive())
}

func TestTrackerFocusBlurVisibility(t *testing.T) {
	tr := NewTracker()

	tr.Blur()
	assert.False(t, tr.IsActive())

	tr.Focus()
	assert.True(t, tr.IsActive())

	tr.SetVisibility(false)
	assert.False(t, tr.IsActive())

	tr.SetVisibility(true)
	assert.True(t, tr.IsActive())
}

func TestTrackerNotifiesOnFocusOnly(t *testing.T) {
	tr := NewTracker()
	calls := 0
	unsubscribe := tr.Subscribe(func() { calls++ })

	tr.Blur()
	tr.SetVisibility(true)
	require.Equal(t, 0, calls)

	tr.Focus()
	require.Equal(t, 1, calls)

	unsubscribe()
	tr.Focus()
	assert.Equal(t, 1, calls)
}

func TestTrackerCloseDropsListeners(t *testing.T) {
	tr := NewTracker()
	calls := 0
	tr.Subscribe(func() { calls++ })
	tr.Subscribe(func() { calls++ })

	tr.Close()
	tr.Focus()
	assert.Equal(t, 0, calls)
}

var _ Notifier = (*Tracker)(nil)
