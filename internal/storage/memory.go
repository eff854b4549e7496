package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Storage implementation backed by maps.
//
// Records round-trip through JSON on both Put and Get so that code tested
// against Memory sees the same value types it would see against a durable
// store. This catches float64/int64 coercion bugs in tests instead of in
// production.
//
// Thread-safety: all methods are safe for concurrent use via an internal
// mutex.
type Memory struct {
	mu        sync.Mutex
	relations map[string]map[string]string // relation -> key -> JSON text
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{relations: make(map[string]map[string]string)}
}

// Get implements Storage.
func (m *Memory) Get(ctx context.Context, relation, key string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.relations[relation]
	if !ok {
		return nil, false, nil
	}
	text, ok := keys[key]
	if !ok {
		return nil, false, nil
	}
	rec, err := DecodeRecord(text)
	if err != nil {
		return nil, false, fmt.Errorf("memory get %s/%s: %w", relation, key, err)
	}
	return rec, true, nil
}

// Put implements Storage.
func (m *Memory) Put(ctx context.Context, relation, key string, rec Record) error {
	text, err := EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("memory put %s/%s: %w", relation, key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.relations[relation]
	if !ok {
		keys = make(map[string]string)
		m.relations[relation] = keys
	}
	keys[key] = text
	return nil
}

// Delete implements Storage.
func (m *Memory) Delete(ctx context.Context, relation, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if keys, ok := m.relations[relation]; ok {
		delete(keys, key)
	}
	return nil
}

// Find implements Storage. Results are ordered by key ascending.
func (m *Memory) Find(ctx context.Context, relation string, filter Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.relations[relation]
	if !ok {
		return nil, nil
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []Record
	for _, k := range sorted {
		rec, err := DecodeRecord(keys[k])
		if err != nil {
			return nil, fmt.Errorf("memory find %s/%s: %w", relation, k, err)
		}
		if Matches(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// EncodeRecord serializes a record to JSON text with HTML escaping disabled,
// matching the conventions of the durable store so both implementations
// produce identical bytes for identical records.
func EncodeRecord(rec Record) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// DecodeRecord parses JSON text into a record. Numbers decode as
// json.Number to avoid float64 precision loss on large counters.
func DecodeRecord(text string) (Record, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
