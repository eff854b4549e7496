// Package storage defines the generic record storage contract the
// replication core persists through.
//
// The core never talks to a database directly. Every durable read or write
// goes through the Storage interface: opaque structured records, addressed
// by (relation, key). Relations are flat namespaces - there are no joins,
// no schemas, and no cross-key transactions. A single Put is the unit of
// atomicity, and the core arranges its records so that anything that must
// persist together lives in one record.
//
// Two implementations ship with this module:
//   - Memory: an in-process map, used by tests and short-lived embedders.
//   - sqlite.Store (subpackage): a durable single-file store.
//
// Record values round-trip through serialization, so readers must not
// assume Go types survive. The *Field helpers in this package coerce the
// common cases (strings, int64 counters, clock vectors) regardless of
// which implementation produced them.
package storage
