// Package testutil provides deterministic helpers for tests.
package testutil

import (
	"fmt"
	"sync"
)

// CounterGenerator produces sequential prefixed ids ("event-1",
// "event-2", ...) for deterministic test runs and golden comparisons.
//
// Unlike the production UUIDv7 generator, CounterGenerator can be reset,
// so the same scenario replays with identical ids.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type CounterGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewCounterGenerator creates a generator with the given prefix.
//
// The first call to Generate() returns "<prefix>-1".
func NewCounterGenerator(prefix string) *CounterGenerator {
	return &CounterGenerator{prefix: prefix}
}

// Generate returns the next sequential id.
func (g *CounterGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset resets the counter to 0.
//
// Used for test reuse. After Reset(), the next Generate() returns "<prefix>-1".
func (g *CounterGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// FixedGenerator returns predetermined ids in order.
//
// Panics when all ids are consumed. This is a fail-fast approach to catch
// test misconfiguration (test generated more ids than expected).
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("ev-a", "ev-b")
//	gen.Generate() // "ev-a"
//	gen.Generate() // "ev-b"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
