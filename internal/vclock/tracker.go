package vclock

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/weft/internal/storage"
)

// Storage relations owned by the tracker.
const (
	// relationClocks holds each replica's current clock, keyed by replica id.
	relationClocks = "causal-clock"
	// relationRegistry holds the replica -> slot index assignment.
	relationRegistry = "causal-clock-replica"
	// relationEvents holds immutable causal event records, keyed by event id.
	relationEvents = "causal-clock-event"
)

// Event is an immutable causal timestamp produced by Tick.
// Referenced by id for later CompareEvents/DominatesEvents queries and
// never mutated after creation.
type Event struct {
	ID        string
	ReplicaID string
	Clock     Vector
}

// Tracker owns the persistent side of the clock primitive: per-replica
// current clocks, the slot index registry, and the causal event log.
//
// Ticks are serialized by an internal mutex so two concurrent ticks for
// the same replica never observe and increment the same pre-tick value.
// Trackers over different stores are fully independent.
type Tracker struct {
	mu    sync.Mutex
	store storage.Storage
	ids   IDGenerator
}

// NewTracker creates a tracker over the given store.
// A nil generator defaults to UUIDv7.
func NewTracker(store storage.Storage, ids IDGenerator) *Tracker {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Tracker{store: store, ids: ids}
}

// Tick advances the replica's clock by exactly one in its own slot and
// records a causal event stamped with the new clock.
//
// First sight of a replica assigns it the next free slot index; the
// assignment is persisted so all trackers over the store agree on it.
// Returns the new event's id and the new clock.
func (t *Tracker) Tick(ctx context.Context, replicaID string) (string, Vector, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	clock, err := t.loadClock(ctx, replicaID)
	if err != nil {
		return "", nil, err
	}

	index, err := t.slotIndex(ctx, replicaID)
	if err != nil {
		return "", nil, err
	}

	clock = clock.Grow(index + 1)
	clock[index]++

	if err := t.store.Put(ctx, relationClocks, replicaID, storage.Record{
		"replicaId": replicaID,
		"clock":     []int64(clock),
	}); err != nil {
		return "", nil, fmt.Errorf("tick %s: store clock: %w", replicaID, err)
	}

	eventID := t.ids.Generate()
	if err := t.store.Put(ctx, relationEvents, eventID, storage.Record{
		"id":        eventID,
		"replicaId": replicaID,
		"clock":     []int64(clock),
	}); err != nil {
		return "", nil, fmt.Errorf("tick %s: store event: %w", replicaID, err)
	}

	return eventID, clock, nil
}

// Clock returns the replica's current clock, all-zero (nil) if the
// replica has never ticked.
func (t *Tracker) Clock(ctx context.Context, replicaID string) (Vector, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadClock(ctx, replicaID)
}

// SetClock overwrites the replica's current clock. Used when a replica
// adopts a merged clock after ingesting a remote operation, and by fork
// to seed the child with the parent's snapshot.
func (t *Tracker) SetClock(ctx context.Context, replicaID string, clock Vector) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.slotIndex(ctx, replicaID); err != nil {
		return err
	}
	if err := t.store.Put(ctx, relationClocks, replicaID, storage.Record{
		"replicaId": replicaID,
		"clock":     []int64(clock),
	}); err != nil {
		return fmt.Errorf("set clock %s: %w", replicaID, err)
	}
	return nil
}

// Event returns the causal event with the given id.
func (t *Tracker) Event(ctx context.Context, eventID string) (Event, bool, error) {
	rec, ok, err := t.store.Get(ctx, relationEvents, eventID)
	if err != nil {
		return Event{}, false, fmt.Errorf("load event %s: %w", eventID, err)
	}
	if !ok {
		return Event{}, false, nil
	}
	return Event{
		ID:        storage.StringField(rec, "id"),
		ReplicaID: storage.StringField(rec, "replicaId"),
		Clock:     Vector(storage.Int64sField(rec, "clock")),
	}, true, nil
}

// CompareEvents decides the causal relation between two recorded events.
//
// Fails open: if either event is unknown the result is Concurrent, never
// an error. Only a storage failure is returned as an error.
func (t *Tracker) CompareEvents(ctx context.Context, a, b string) (Causality, error) {
	ea, ok, err := t.Event(ctx, a)
	if err != nil {
		return 0, err
	}
	if !ok {
		return Concurrent, nil
	}

	eb, ok, err := t.Event(ctx, b)
	if err != nil {
		return 0, err
	}
	if !ok {
		return Concurrent, nil
	}

	return Compare(ea.Clock, eb.Clock), nil
}

// DominatesEvents reports whether event a strictly causally succeeds
// event b. Fails open: unknown events yield false, never an error.
func (t *Tracker) DominatesEvents(ctx context.Context, a, b string) (bool, error) {
	ea, ok, err := t.Event(ctx, a)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	eb, ok, err := t.Event(ctx, b)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	return Dominates(ea.Clock, eb.Clock), nil
}

// PruneEvents deletes events whose clock the floor dominates or equals.
// The floor should be the minimum clock acknowledged by every known peer;
// events at or below it can no longer win a comparison anyone cares
// about. Returns the number of events deleted.
func (t *Tracker) PruneEvents(ctx context.Context, floor Vector) (int, error) {
	events, err := t.store.Find(ctx, relationEvents, nil)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}

	deleted := 0
	for _, rec := range events {
		clock := Vector(storage.Int64sField(rec, "clock"))
		if !Dominates(floor, clock) && !floor.Equal(clock) {
			continue
		}
		id := storage.StringField(rec, "id")
		if err := t.store.Delete(ctx, relationEvents, id); err != nil {
			return deleted, fmt.Errorf("prune event %s: %w", id, err)
		}
		deleted++
	}
	return deleted, nil
}

// loadClock reads the replica's current clock. Callers hold t.mu.
func (t *Tracker) loadClock(ctx context.Context, replicaID string) (Vector, error) {
	rec, ok, err := t.store.Get(ctx, relationClocks, replicaID)
	if err != nil {
		return nil, fmt.Errorf("load clock %s: %w", replicaID, err)
	}
	if !ok {
		return nil, nil
	}
	return Vector(storage.Int64sField(rec, "clock")), nil
}

// slotIndex resolves the replica's slot, assigning the next free index on
// first sight. Callers hold t.mu.
func (t *Tracker) slotIndex(ctx context.Context, replicaID string) (int, error) {
	rec, ok, err := t.store.Get(ctx, relationRegistry, replicaID)
	if err != nil {
		return 0, fmt.Errorf("slot index %s: %w", replicaID, err)
	}
	if ok {
		return int(storage.Int64Field(rec, "index")), nil
	}

	all, err := t.store.Find(ctx, relationRegistry, nil)
	if err != nil {
		return 0, fmt.Errorf("slot index %s: %w", replicaID, err)
	}
	index := len(all)

	if err := t.store.Put(ctx, relationRegistry, replicaID, storage.Record{
		"replicaId": replicaID,
		"index":     index,
	}); err != nil {
		return 0, fmt.Errorf("slot index %s: %w", replicaID, err)
	}
	return index, nil
}
