package replica

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/weft/internal/storage"
	"github.com/roach88/weft/internal/vclock"
	"github.com/roach88/weft/internal/wire"
)

// Storage relations owned by this package.
const (
	// relationReplicas holds one metadata record per replica (state,
	// pending queue, clock), keyed by replica id. Everything that must
	// persist atomically with the clock lives in this single record.
	relationReplicas = "replica"
	// relationPeers holds the trust set, keyed by "<replica>/<peer>".
	relationPeers = "replica-peer"
	// relationCursors holds per-peer sync cursors, keyed by "<replica>/<peer>".
	relationCursors = "replica-sync"
	// relationForks records fork lineage, keyed by the child replica id.
	relationForks = "replica-fork"
)

// Snapshot is a read-only view of a replica's materialized state.
type Snapshot struct {
	ReplicaID string
	// State is the sequence of applied operation payloads, in application
	// order. Payload semantics are opaque to the core.
	State [][]byte
	Clock vclock.Vector
	// ForkedFrom is the parent replica id, empty for root replicas.
	ForkedFrom string
}

// Cursor records the last exchange with one peer.
type Cursor struct {
	PeerID string
	// LastOp is the payload digest of the last operation received from
	// the peer, empty after a full sync.
	LastOp string
	// Clock is the clock value at the last exchange.
	Clock vclock.Vector
	// Relation is the causal relation of the last received operation's
	// origin clock to this replica's clock at receive time.
	Relation string
}

// Replica is one replica's durable state handle.
//
// The zero durable state is valid: a replica that has never been written
// reads back as empty state, all-zero clock, no peers. State materializes
// in storage on the first mutation.
//
// Thread-safety: all methods serialize on an internal mutex. Distinct
// Replica instances over the same store and id must not be used
// concurrently; one instance owns its id.
type Replica struct {
	mu      sync.Mutex
	store   storage.Storage
	tracker *vclock.Tracker
	ids     vclock.IDGenerator
	id      string
}

// Option configures a Replica.
type Option func(*Replica)

// WithIDGenerator overrides the id generator used for forks.
// The same generator seeds the clock tracker's event ids.
func WithIDGenerator(g vclock.IDGenerator) Option {
	return func(r *Replica) { r.ids = g }
}

// New creates a handle for the replica with the given id over the store.
func New(store storage.Storage, id string, opts ...Option) *Replica {
	r := &Replica{store: store, id: id}
	for _, opt := range opts {
		opt(r)
	}
	if r.ids == nil {
		r.ids = vclock.UUIDv7Generator{}
	}
	r.tracker = vclock.NewTracker(store, r.ids)
	return r
}

// ID returns the replica's identifier.
func (r *Replica) ID() string {
	return r.id
}

// Tracker exposes the replica's clock tracker for historical event
// queries (compare/dominates) and event retention management.
func (r *Replica) Tracker() *vclock.Tracker {
	return r.tracker
}

// LocalUpdate applies a locally-originated operation: ticks this
// replica's clock, appends the stamped operation to the materialized
// state and the pending queue, and persists all of it as one record.
//
// Returns the stamped operation (for the transport collaborator to ship
// to peers) and the new materialized state.
//
// Fails with INVALID_OP if the payload is empty or blank. The pending
// queue only shrinks via Sync.
func (r *Replica) LocalUpdate(ctx context.Context, payload []byte) (wire.Operation, [][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(string(payload)) == "" {
		return wire.Operation{}, nil, &OpError{
			Code:      ErrCodeInvalidOp,
			Message:   "operation payload is empty or malformed",
			ReplicaID: r.id,
		}
	}

	m, err := r.loadMeta(ctx)
	if err != nil {
		return wire.Operation{}, nil, err
	}

	_, clock, err := r.tracker.Tick(ctx, r.id)
	if err != nil {
		return wire.Operation{}, nil, fmt.Errorf("local update: %w", err)
	}

	m.clock = clock
	m.state = append(m.state, encodePayload(payload))
	m.pending = append(m.pending, pendingEntry{
		Payload: encodePayload(payload),
		Clock:   clock,
		Digest:  wire.Digest(payload),
	})

	// Single put: the incremented clock and the appended operation
	// persist as one atomic unit, so a crash cannot divorce them.
	if err := r.putMeta(ctx, m); err != nil {
		return wire.Operation{}, nil, fmt.Errorf("local update: %w", err)
	}

	op := wire.Operation{
		OriginReplicaID: r.id,
		ClockAtOrigin:   clock,
		Payload:         payload,
	}
	return op, decodeState(m.state), nil
}

// ReceiveRemote ingests an operation originated on another replica.
//
// Fails with UNKNOWN_REPLICA unless the origin is in the peer trust set.
// If an operation with the same payload already sits in the pending
// queue, fails with ConflictError carrying both sides; the core never
// auto-resolves. Otherwise the operation applies to the state, this
// replica's clock advances past the origin's stamp, and the peer's sync
// cursor records the exchange.
func (r *Replica) ReceiveRemote(ctx context.Context, op wire.Operation) ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trusted, err := r.isPeer(ctx, op.OriginReplicaID)
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, &OpError{
			Code:      ErrCodeUnknownReplica,
			Message:   fmt.Sprintf("replica %q is not a known peer", op.OriginReplicaID),
			ReplicaID: r.id,
			PeerID:    op.OriginReplicaID,
		}
	}

	m, err := r.loadMeta(ctx)
	if err != nil {
		return nil, err
	}

	digest := wire.Digest(op.Payload)
	for _, p := range m.pending {
		if p.Digest == digest {
			return nil, &ConflictError{
				ReplicaID:    r.id,
				FromReplica:  op.OriginReplicaID,
				RemoteOp:     op.Payload,
				LocalPending: pendingPayloads(m.pending),
			}
		}
	}

	// Causal order of the remote stamp against our pre-receive clock.
	// Advisory only: it is recorded on the cursor, not acted on.
	relation := vclock.Compare(op.ClockAtOrigin, m.clock)

	// Advance our clock past the remote stamp: tick our own slot, then
	// adopt the component-wise maximum with the padded remote clock.
	_, ticked, err := r.tracker.Tick(ctx, r.id)
	if err != nil {
		return nil, fmt.Errorf("receive remote: %w", err)
	}
	width := max(len(ticked), len(op.ClockAtOrigin))
	merged, err := vclock.Merge(ticked.Grow(width), op.ClockAtOrigin.Grow(width))
	if err != nil {
		return nil, fmt.Errorf("receive remote: %w", err)
	}
	if err := r.tracker.SetClock(ctx, r.id, merged); err != nil {
		return nil, fmt.Errorf("receive remote: %w", err)
	}

	m.clock = merged
	m.state = append(m.state, encodePayload(op.Payload))
	if err := r.putMeta(ctx, m); err != nil {
		return nil, fmt.Errorf("receive remote: %w", err)
	}

	if err := r.putCursor(ctx, op.OriginReplicaID, digest, merged, relation); err != nil {
		return nil, fmt.Errorf("receive remote: %w", err)
	}

	return decodeState(m.state), nil
}

// Sync records a completed exchange with a peer: clears the pending
// queue and moves the peer's cursor to the current clock.
//
// The actual payload exchange over a transport happens outside this
// method; Sync is only the post-exchange bookkeeping. A failed or
// cancelled exchange must simply not call Sync, which leaves pending ops
// and the cursor untouched.
//
// Fails with UNREACHABLE if the peer is not in the trust set.
func (r *Replica) Sync(ctx context.Context, peerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trusted, err := r.isPeer(ctx, peerID)
	if err != nil {
		return err
	}
	if !trusted {
		return &OpError{
			Code:      ErrCodeUnreachable,
			Message:   fmt.Sprintf("peer %q is not reachable or not known", peerID),
			ReplicaID: r.id,
			PeerID:    peerID,
		}
	}

	m, err := r.loadMeta(ctx)
	if err != nil {
		return err
	}
	if !m.exists {
		// Nothing exchanged yet; no bookkeeping to update.
		return nil
	}

	m.pending = nil
	if err := r.putMeta(ctx, m); err != nil {
		return fmt.Errorf("sync %s: %w", peerID, err)
	}
	if err := r.putCursor(ctx, peerID, "", m.clock, 0); err != nil {
		return fmt.Errorf("sync %s: %w", peerID, err)
	}
	return nil
}

// Fork creates a new replica from this replica's current state and clock
// snapshot. The child starts with an empty pending queue and an empty
// peer set: forking does not imply trust in either direction. Returns
// the child's id; open it with New to operate on it.
func (r *Replica) Fork(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.loadMeta(ctx)
	if err != nil {
		return "", err
	}

	childID := r.ids.Generate()

	if err := r.store.Put(ctx, relationForks, childID, storage.Record{
		"replicaId":  childID,
		"forkedFrom": r.id,
		"clock":      []int64(m.clock),
	}); err != nil {
		return "", fmt.Errorf("fork: %w", err)
	}

	child := meta{
		id:         childID,
		exists:     true,
		state:      append([]string(nil), m.state...),
		clock:      m.clock.Clone(),
		forkedFrom: r.id,
	}
	if err := r.putMetaFor(ctx, child); err != nil {
		return "", fmt.Errorf("fork: %w", err)
	}

	// Seed the child's clock so its first tick continues from the
	// snapshot instead of restarting at zero.
	if err := r.tracker.SetClock(ctx, childID, m.clock); err != nil {
		return "", fmt.Errorf("fork: %w", err)
	}

	return childID, nil
}

// AddPeer adds a replica to the trust set. Idempotent: added=false means
// the peer was already known, which callers may treat as success.
func (r *Replica) AddPeer(ctx context.Context, peerID string) (added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trusted, err := r.isPeer(ctx, peerID)
	if err != nil {
		return false, err
	}
	if trusted {
		return false, nil
	}

	if err := r.store.Put(ctx, relationPeers, r.peerKey(peerID), storage.Record{
		"replicaId": r.id,
		"peerId":    peerID,
	}); err != nil {
		return false, fmt.Errorf("add peer %s: %w", peerID, err)
	}
	return true, nil
}

// Peers returns the trust set, sorted by peer id.
func (r *Replica) Peers(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.store.Find(ctx, relationPeers, storage.Filter{"replicaId": r.id})
	if err != nil {
		return nil, fmt.Errorf("peers: %w", err)
	}
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, storage.StringField(rec, "peerId"))
	}
	return out, nil
}

// GetState returns a read-only snapshot of the replica. Never mutates.
func (r *Replica) GetState(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.loadMeta(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ReplicaID:  r.id,
		State:      decodeState(m.state),
		Clock:      m.clock,
		ForkedFrom: m.forkedFrom,
	}, nil
}

// PendingOperations returns the locally-originated operations not yet
// acknowledged by a sync, as stamped envelopes ready for transport.
func (r *Replica) PendingOperations(ctx context.Context) ([]wire.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]wire.Operation, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, wire.Operation{
			OriginReplicaID: r.id,
			ClockAtOrigin:   p.Clock,
			Payload:         decodePayload(p.Payload),
		})
	}
	return out, nil
}

// SyncCursor returns the cursor for a peer, if any exchange has been
// recorded.
func (r *Replica) SyncCursor(ctx context.Context, peerID string) (Cursor, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok, err := r.store.Get(ctx, relationCursors, r.peerKey(peerID))
	if err != nil {
		return Cursor{}, false, fmt.Errorf("sync cursor %s: %w", peerID, err)
	}
	if !ok {
		return Cursor{}, false, nil
	}
	return Cursor{
		PeerID:   storage.StringField(rec, "peerId"),
		LastOp:   storage.StringField(rec, "lastOp"),
		Clock:    vclock.Vector(storage.Int64sField(rec, "lastSyncClock")),
		Relation: storage.StringField(rec, "relation"),
	}, true, nil
}

// ----- durable record plumbing -----

// pendingEntry is one queued local operation as stored in the metadata
// record. Payload is base64 so the record stays JSON-clean.
type pendingEntry struct {
	Payload string
	Clock   vclock.Vector
	Digest  string
}

// meta mirrors the replica's single metadata record.
type meta struct {
	id         string
	exists     bool
	state      []string // base64 payloads, application order
	pending    []pendingEntry
	clock      vclock.Vector
	forkedFrom string
}

func (r *Replica) loadMeta(ctx context.Context) (meta, error) {
	rec, ok, err := r.store.Get(ctx, relationReplicas, r.id)
	if err != nil {
		return meta{}, fmt.Errorf("load replica %s: %w", r.id, err)
	}
	m := meta{id: r.id, exists: ok}
	if !ok {
		return m, nil
	}

	m.state = storage.StringsField(rec, "localState")
	m.clock = vclock.Vector(storage.Int64sField(rec, "clock"))
	m.forkedFrom = storage.StringField(rec, "forkedFrom")

	if raw, ok := rec["pendingOps"].([]any); ok {
		for _, e := range raw {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			m.pending = append(m.pending, pendingEntry{
				Payload: storage.StringField(entry, "payload"),
				Clock:   vclock.Vector(storage.Int64sField(entry, "clock")),
				Digest:  storage.StringField(entry, "digest"),
			})
		}
	}
	return m, nil
}

func (r *Replica) putMeta(ctx context.Context, m meta) error {
	m.id = r.id
	return r.putMetaFor(ctx, m)
}

func (r *Replica) putMetaFor(ctx context.Context, m meta) error {
	pending := make([]any, 0, len(m.pending))
	for _, p := range m.pending {
		pending = append(pending, map[string]any{
			"payload": p.Payload,
			"clock":   []int64(p.Clock),
			"digest":  p.Digest,
		})
	}
	rec := storage.Record{
		"replicaId":  m.id,
		"localState": m.state,
		"pendingOps": pending,
		"clock":      []int64(m.clock),
	}
	if m.forkedFrom != "" {
		rec["forkedFrom"] = m.forkedFrom
	}
	return r.store.Put(ctx, relationReplicas, m.id, rec)
}

func (r *Replica) putCursor(ctx context.Context, peerID, lastOp string, clock vclock.Vector, relation vclock.Causality) error {
	rec := storage.Record{
		"replicaId":     r.id,
		"peerId":        peerID,
		"lastOp":        lastOp,
		"lastSyncClock": []int64(clock),
	}
	if relation != 0 {
		rec["relation"] = relation.String()
	}
	return r.store.Put(ctx, relationCursors, r.peerKey(peerID), rec)
}

func (r *Replica) isPeer(ctx context.Context, peerID string) (bool, error) {
	_, ok, err := r.store.Get(ctx, relationPeers, r.peerKey(peerID))
	if err != nil {
		return false, fmt.Errorf("peer lookup %s: %w", peerID, err)
	}
	return ok, nil
}

func (r *Replica) peerKey(peerID string) string {
	return r.id + "/" + peerID
}

func encodePayload(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}

func decodePayload(encoded string) []byte {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Records are written by encodePayload; a decode failure means
		// the store was edited by hand. Surface the raw bytes rather
		// than dropping the entry.
		return []byte(encoded)
	}
	return data
}

func pendingPayloads(pending []pendingEntry) [][]byte {
	out := make([][]byte, 0, len(pending))
	for _, p := range pending {
		out = append(out, decodePayload(p.Payload))
	}
	return out
}

func decodeState(state []string) [][]byte {
	out := make([][]byte, 0, len(state))
	for _, s := range state {
		out = append(out, decodePayload(s))
	}
	return out
}
