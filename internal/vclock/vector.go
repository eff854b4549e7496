package vclock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Causality is the outcome of comparing two vector clocks under the
// happens-before partial order.
type Causality int

const (
	// Before means the first clock causally precedes the second.
	Before Causality = iota + 1
	// After means the first clock causally succeeds the second.
	After
	// Concurrent means neither clock dominates the other (this includes
	// equal clocks - two identical timestamps do not order each other).
	Concurrent
)

// String returns the lowercase name of the causality relation.
func (c Causality) String() string {
	switch c {
	case Before:
		return "before"
	case After:
		return "after"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("causality(%d)", int(c))
	}
}

// Vector is a vector clock: one non-negative counter per known replica,
// indexed by the replica's registered slot. A vector's length only grows;
// comparing vectors of different lengths implicitly zero-pads the shorter
// one.
type Vector []int64

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Grow returns a copy of the vector zero-padded to at least n slots.
// If the vector already has n or more slots the copy is unchanged.
func (v Vector) Grow(n int) Vector {
	if len(v) >= n {
		return v.Clone()
	}
	out := make(Vector, n)
	copy(out, v)
	return out
}

// Equal reports whether two vectors are equal slot by slot, zero-padding
// the shorter one. [1, 0] equals [1].
func (v Vector) Equal(o Vector) bool {
	n := max(len(v), len(o))
	for i := 0; i < n; i++ {
		if v.at(i) != o.at(i) {
			return false
		}
	}
	return true
}

// String renders the vector as "[1 2 0]".
func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, n := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatInt(n, 10))
	}
	b.WriteByte(']')
	return b.String()
}

// IncompatibleError reports a Merge between vectors of different
// dimensions. The caller must zero-pad both vectors to the union of known
// replicas (Grow) and retry; Merge never pads on its own.
type IncompatibleError struct {
	LocalLen  int
	RemoteLen int
}

// Error implements the error interface.
func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("clock dimensions differ: local=%d, remote=%d", e.LocalLen, e.RemoteLen)
}

// IsIncompatible returns true if the error is a dimension mismatch.
// Uses errors.As to handle wrapped errors.
func IsIncompatible(err error) bool {
	var ie *IncompatibleError
	return errors.As(err, &ie)
}

// Merge returns the component-wise maximum of two vectors of equal
// dimension. Fails with IncompatibleError on dimension mismatch.
//
// Merge is commutative, associative, and idempotent, and the result
// dominates or equals both inputs.
func Merge(a, b Vector) (Vector, error) {
	if len(a) != len(b) {
		return nil, &IncompatibleError{LocalLen: len(a), RemoteLen: len(b)}
	}
	out := make(Vector, len(a))
	for i := range a {
		out[i] = max(a[i], b[i])
	}
	return out, nil
}

// Compare decides the causal relation between two vectors, zero-padding
// to equal length first. Equal vectors are Concurrent: a timestamp does
// not happen before itself.
func Compare(a, b Vector) Causality {
	n := max(len(a), len(b))

	aLessOrEqual, bLessOrEqual, equal := true, true, true
	for i := 0; i < n; i++ {
		av, bv := a.at(i), b.at(i)
		if av > bv {
			bLessOrEqual = false
			equal = false
		}
		if bv > av {
			aLessOrEqual = false
			equal = false
		}
	}

	switch {
	case equal:
		return Concurrent
	case aLessOrEqual:
		return Before
	case bLessOrEqual:
		return After
	default:
		return Concurrent
	}
}

// Dominates reports whether a strictly causally succeeds b: every slot of
// a is >= the corresponding slot of b and at least one is strictly
// greater. Equal vectors do not dominate each other.
func Dominates(a, b Vector) bool {
	n := max(len(a), len(b))

	strictlyGreater := false
	for i := 0; i < n; i++ {
		av, bv := a.at(i), b.at(i)
		if av < bv {
			return false
		}
		if av > bv {
			strictlyGreater = true
		}
	}
	return strictlyGreater
}

// at reads slot i, treating missing slots as zero.
func (v Vector) at(i int) int64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
