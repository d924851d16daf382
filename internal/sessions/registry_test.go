package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackGetDrop(t *testing.T) {
	r := NewRegistry()
	r.Track("item1", "sess1", "src1")

	e, ok := r.Get("item1")
	require.True(t, ok)
	assert.Equal(t, "sess1", e.PlaySessionID)

	r.Drop("item1")
	_, ok = r.Get("item1")
	assert.False(t, ok)
}

func TestAllReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Track("a", "sa", "ma")
	r.Track("b", "sb", "mb")

	all := r.All()
	assert.Len(t, all, 2)
}

func TestIdleSinceUsesCutoff(t *testing.T) {
	r := NewRegistry()
	r.Track("a", "sa", "ma")

	// cutoff in the past: nothing is idle yet.
	assert.Empty(t, r.IdleSince(time.Now().Add(-time.Hour)))

	// cutoff in the future: everything tracked so far reads as idle.
	idle := r.IdleSince(time.Now().Add(time.Hour))
	require.Len(t, idle, 1)
	assert.Equal(t, "a", idle[0].ItemID)
}

func TestGetTouchesActivity(t *testing.T) {
	r := NewRegistry()
	r.Track("a", "sa", "ma")
	before := time.Now().Add(time.Hour)
	assert.NotEmpty(t, r.IdleSince(before))

	e, ok := r.Get("a")
	require.True(t, ok)
	first := e.LastActivity()
	time.Sleep(2 * time.Millisecond)
	r.Get("a")
	assert.True(t, e.LastActivity().After(first), "Get refreshes the entry's last activity")
	assert.NotEmpty(t, r.IdleSince(before), "touching still leaves it idle relative to a future cutoff")
}
