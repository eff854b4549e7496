package storage

import (
	"context"
	"encoding/json"
)

// Record is an opaque structured value stored under a (relation, key) pair.
// Values must be JSON-serializable; nested records and arrays are allowed.
type Record map[string]any

// Filter selects records by field equality. A nil or empty filter matches
// every record in the relation. Values are compared after normalization,
// so a filter built from Go values matches records that round-tripped
// through serialization.
type Filter map[string]any

// Storage is the durable key/value collaborator the replication core
// persists through.
//
// Implementations must make each Put atomic: a crash mid-Put leaves either
// the old record or the new one, never a torn record. No atomicity is
// required across keys.
//
// Find results are ordered by key ascending so repeated reads are
// deterministic.
type Storage interface {
	// Get returns the record stored under (relation, key).
	// The second return value reports whether the record exists.
	Get(ctx context.Context, relation, key string) (Record, bool, error)

	// Put stores a record under (relation, key), replacing any existing one.
	Put(ctx context.Context, relation, key string, rec Record) error

	// Delete removes the record under (relation, key).
	// Deleting a missing record is not an error.
	Delete(ctx context.Context, relation, key string) error

	// Find returns all records in the relation matching the filter,
	// ordered by key ascending.
	Find(ctx context.Context, relation string, filter Filter) ([]Record, error)
}

// Matches reports whether a record satisfies a field-equality filter.
// Shared by implementations so filter semantics cannot drift between them.
func Matches(rec Record, filter Filter) bool {
	for field, want := range filter {
		got, ok := rec[field]
		if !ok {
			return false
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

// valueEqual compares two record values, tolerating the type shifts a
// serialization round-trip introduces (int64 vs float64 vs json.Number).
func valueEqual(a, b any) bool {
	if sa, ok := asString(a); ok {
		sb, ok := asString(b)
		return ok && sa == sb
	}
	if na, ok := asInt64(a); ok {
		nb, ok := asInt64(b)
		return ok && na == nb
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ba == bb
	}
	return false
}

// StringField extracts a string field from a record.
// Returns "" if the field is missing or not a string.
func StringField(rec Record, field string) string {
	s, _ := asString(rec[field])
	return s
}

// Int64Field extracts an integer field from a record, coercing from any
// numeric representation the storage layer may have produced.
// Returns 0 if the field is missing or not numeric.
func Int64Field(rec Record, field string) int64 {
	n, _ := asInt64(rec[field])
	return n
}

// Int64sField extracts an integer array field (e.g. a clock vector).
// Returns nil if the field is missing; non-numeric elements read as 0.
func Int64sField(rec Record, field string) []int64 {
	switch v := rec[field].(type) {
	case []int64:
		out := make([]int64, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]int64, len(v))
		for i, e := range v {
			out[i], _ = asInt64(e)
		}
		return out
	default:
		return nil
	}
}

// StringsField extracts a string array field.
// Returns nil if the field is missing; non-string elements are dropped.
func StringsField(rec Record, field string) []string {
	switch v := rec[field].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := asString(e); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
