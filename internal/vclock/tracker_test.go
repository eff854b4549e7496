package vclock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/storage"
	"github.com/roach88/weft/internal/testutil"
)

func newTestTracker() *Tracker {
	return NewTracker(storage.NewMemory(), testutil.NewCounterGenerator("ev"))
}

func TestTracker_Tick_FirstSight(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	eventID, clock, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)

	assert.Equal(t, "ev-1", eventID)
	assert.Equal(t, Vector{1}, clock)
}

func TestTracker_Tick_Increments(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	_, _, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)
	_, clock, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)

	assert.Equal(t, Vector{2}, clock)
}

func TestTracker_Tick_SlotPerReplica(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	_, a, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)
	_, b, err := tr.Tick(ctx, "replica-b")
	require.NoError(t, err)

	// First sight assigns slots in order: a=0, b=1.
	assert.Equal(t, Vector{1}, a)
	assert.Equal(t, Vector{0, 1}, b)
}

func TestTracker_Tick_SlotAssignmentPersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	tr1 := NewTracker(store, testutil.NewCounterGenerator("ev"))
	_, _, err := tr1.Tick(ctx, "replica-a")
	require.NoError(t, err)
	_, _, err = tr1.Tick(ctx, "replica-b")
	require.NoError(t, err)

	// A second tracker over the same store agrees on the mapping.
	tr2 := NewTracker(store, testutil.NewCounterGenerator("ev2"))
	_, b, err := tr2.Tick(ctx, "replica-b")
	require.NoError(t, err)
	assert.Equal(t, Vector{0, 2}, b)
}

func TestTracker_Tick_StrictlyMonotonic(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	var prev Vector
	for i := 0; i < 5; i++ {
		_, clock, err := tr.Tick(ctx, "replica-a")
		require.NoError(t, err)
		if prev != nil {
			assert.True(t, Dominates(clock, prev), "tick %d: %v must dominate %v", i, clock, prev)
		}
		prev = clock
	}
}

func TestTracker_Clock_ZeroBeforeFirstTick(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	clock, err := tr.Clock(ctx, "never-ticked")
	require.NoError(t, err)
	assert.Empty(t, clock)
}

func TestTracker_CompareEvents(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	e1, _, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)
	e2, _, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)

	rel, err := tr.CompareEvents(ctx, e1, e2)
	require.NoError(t, err)
	assert.Equal(t, Before, rel)

	rel, err = tr.CompareEvents(ctx, e2, e1)
	require.NoError(t, err)
	assert.Equal(t, After, rel)
}

func TestTracker_CompareEvents_IndependentReplicas(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	ea, _, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)
	eb, _, err := tr.Tick(ctx, "replica-b")
	require.NoError(t, err)

	rel, err := tr.CompareEvents(ctx, ea, eb)
	require.NoError(t, err)
	assert.Equal(t, Concurrent, rel)
}

func TestTracker_CompareEvents_UnknownFailsOpen(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	e1, _, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)

	rel, err := tr.CompareEvents(ctx, "missing", e1)
	require.NoError(t, err)
	assert.Equal(t, Concurrent, rel)

	rel, err = tr.CompareEvents(ctx, e1, "missing")
	require.NoError(t, err)
	assert.Equal(t, Concurrent, rel)
}

func TestTracker_DominatesEvents(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	e1, _, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)
	e2, _, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)

	dom, err := tr.DominatesEvents(ctx, e2, e1)
	require.NoError(t, err)
	assert.True(t, dom)

	dom, err = tr.DominatesEvents(ctx, e1, e2)
	require.NoError(t, err)
	assert.False(t, dom)
}

func TestTracker_DominatesEvents_UnknownFailsOpen(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	dom, err := tr.DominatesEvents(ctx, "missing-a", "missing-b")
	require.NoError(t, err)
	assert.False(t, dom)
}

func TestTracker_Event(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	id, clock, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)

	ev, ok, err := tr.Event(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, ev.ID)
	assert.Equal(t, "replica-a", ev.ReplicaID)
	assert.Equal(t, clock, ev.Clock)

	_, ok, err = tr.Event(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTracker_PruneEvents(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	e1, _, err := tr.Tick(ctx, "replica-a") // [1]
	require.NoError(t, err)
	e2, _, err := tr.Tick(ctx, "replica-a") // [2]
	require.NoError(t, err)
	e3, _, err := tr.Tick(ctx, "replica-a") // [3]
	require.NoError(t, err)

	// Floor [2]: events at or below it can go, [3] must stay.
	deleted, err := tr.PruneEvents(ctx, Vector{2})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for _, gone := range []string{e1, e2} {
		_, ok, err := tr.Event(ctx, gone)
		require.NoError(t, err)
		assert.False(t, ok, "event %s should be pruned", gone)
	}
	_, ok, err := tr.Event(ctx, e3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTracker_SetClock(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	require.NoError(t, tr.SetClock(ctx, "replica-a", Vector{4, 2}))

	clock, err := tr.Clock(ctx, "replica-a")
	require.NoError(t, err)
	assert.Equal(t, Vector{4, 2}, clock)

	// The replica keeps its assigned slot: the next tick lands on slot 0.
	_, ticked, err := tr.Tick(ctx, "replica-a")
	require.NoError(t, err)
	assert.Equal(t, Vector{5, 2}, ticked)
}
