// Package vclock implements the vector clock primitive for causal
// (happens-before) ordering across replicas.
//
// Two layers:
//
//   - Vector is the pure algebra: component-wise merge, partial-order
//     comparison, and strict dominance over per-replica counter vectors.
//     Vectors of different lengths compare by zero-padding the shorter
//     one; Merge alone requires equal dimensions, because dimensionality
//     drift must be resolved by the caller (pad to the union of known
//     replicas) rather than papered over inside the merge.
//
//   - Tracker is the stateful layer: it owns the clock records, the
//     replica index registry, and the causal event log, all persisted
//     through the storage collaborator. Tick stamps events; CompareEvents
//     and DominatesEvents answer historical ordering queries and fail
//     open (Concurrent / false) when an event is unknown, since causal
//     ordering is advisory rather than safety-critical.
//
// Slot assignment is first-come: the first replica the tracker observes
// gets index 0, the next index 1, and so on. The assignment is persisted,
// so every tracker over the same store agrees on the mapping.
package vclock
