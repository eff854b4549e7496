// Package replica implements op-based replica state: the durable side of
// one replica in a causally-ordered replication group.
//
// A Replica owns its operation log, its vector clock, its peer trust set,
// and its per-peer sync cursors, all persisted through the storage
// collaborator. Local mutations tick the clock and queue the stamped
// operation for exchange; remote operations are accepted only from
// explicitly added peers and are checked against the pending queue for
// structural conflicts before they apply.
//
// # Ownership and concurrency
//
// Each Replica is a single-writer object: operations on one instance are
// serialized by a per-instance mutex, and nothing here blocks on another
// replica or on the network. The actual exchange of operations between
// replicas is a transport concern; this package only fixes the
// bookkeeping contract around it (what Sync clears, what cursors record).
//
// # Convergence
//
// Operations apply to local state in the order they are ticked or
// received - no reordering within a replica. Two replicas that ingest the
// same operation set converge only if operation payloads commute and are
// idempotent at the payload level; that is a contract on callers, not
// something this core enforces.
package replica
