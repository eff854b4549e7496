package vclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ComponentWiseMax(t *testing.T) {
	merged, err := Merge(Vector{3, 1, 2}, Vector{1, 4, 1})
	require.NoError(t, err)
	assert.Equal(t, Vector{3, 4, 2}, merged)
}

func TestMerge_Incompatible(t *testing.T) {
	_, err := Merge(Vector{1, 2}, Vector{1, 2, 3})
	require.Error(t, err)
	assert.True(t, IsIncompatible(err))
	assert.Contains(t, err.Error(), "dimensions differ")

	// Equal dimensions never fail, even at zero length.
	_, err = Merge(Vector{}, Vector{})
	assert.NoError(t, err)
}

func TestMerge_Commutative(t *testing.T) {
	a, b := Vector{3, 0, 7}, Vector{1, 5, 2}

	ab, err := Merge(a, b)
	require.NoError(t, err)
	ba, err := Merge(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestMerge_Associative(t *testing.T) {
	a, b, c := Vector{3, 0, 7}, Vector{1, 5, 2}, Vector{0, 9, 1}

	ab, err := Merge(a, b)
	require.NoError(t, err)
	abc1, err := Merge(ab, c)
	require.NoError(t, err)

	bc, err := Merge(b, c)
	require.NoError(t, err)
	abc2, err := Merge(a, bc)
	require.NoError(t, err)

	assert.Equal(t, abc1, abc2)
}

func TestMerge_Idempotent(t *testing.T) {
	a := Vector{2, 4, 1}
	merged, err := Merge(a, a)
	require.NoError(t, err)
	assert.Equal(t, a, merged)
}

func TestMerge_DominatesOrEqualsBothInputs(t *testing.T) {
	a, b := Vector{3, 0, 7}, Vector{1, 5, 2}
	merged, err := Merge(a, b)
	require.NoError(t, err)

	assert.True(t, Dominates(merged, a) || merged.Equal(a))
	assert.True(t, Dominates(merged, b) || merged.Equal(b))
}

func TestCompare_Before_After(t *testing.T) {
	a, b := Vector{1, 2, 0}, Vector{2, 2, 1}

	assert.Equal(t, Before, Compare(a, b))
	assert.Equal(t, After, Compare(b, a))
}

func TestCompare_Antisymmetric(t *testing.T) {
	pairs := [][2]Vector{
		{{0}, {1}},
		{{1, 1}, {2, 1}},
		{{1}, {1, 1}},
	}
	for _, p := range pairs {
		if Compare(p[0], p[1]) == Before {
			assert.Equal(t, After, Compare(p[1], p[0]), "compare(%v,%v)", p[1], p[0])
		}
	}
}

func TestCompare_EqualClocksAreConcurrent(t *testing.T) {
	assert.Equal(t, Concurrent, Compare(Vector{1, 2}, Vector{1, 2}))
	// Zero-padding: [1] and [1, 0] are the same timestamp.
	assert.Equal(t, Concurrent, Compare(Vector{1}, Vector{1, 0}))
}

func TestCompare_TrueConcurrency(t *testing.T) {
	// Two independent replicas: neither dominates.
	a, b := Vector{1, 0}, Vector{0, 1}
	assert.Equal(t, Concurrent, Compare(a, b))
	assert.Equal(t, Concurrent, Compare(b, a))

	merged, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, Vector{1, 1}, merged)
}

func TestCompare_ZeroPadding(t *testing.T) {
	// [1] vs [1, 1]: shorter side pads to [1, 0], so it is Before.
	assert.Equal(t, Before, Compare(Vector{1}, Vector{1, 1}))
	assert.Equal(t, After, Compare(Vector{1, 1}, Vector{1}))
}

func TestDominates_StrictSuccessor(t *testing.T) {
	assert.True(t, Dominates(Vector{2, 1}, Vector{1, 1}))
	assert.True(t, Dominates(Vector{3}, Vector{2}))
	assert.True(t, Dominates(Vector{1, 1}, Vector{1}))
}

func TestDominates_EqualIsNotDominance(t *testing.T) {
	assert.False(t, Dominates(Vector{1, 2}, Vector{1, 2}))
	assert.False(t, Dominates(Vector{1}, Vector{1, 0}))
	assert.False(t, Dominates(Vector{}, Vector{}))
}

func TestDominates_ConcurrentIsNotDominance(t *testing.T) {
	assert.False(t, Dominates(Vector{1, 0}, Vector{0, 1}))
	assert.False(t, Dominates(Vector{0, 1}, Vector{1, 0}))
}

func TestDominates_ImpliesAfter(t *testing.T) {
	pairs := [][2]Vector{
		{{2, 1}, {1, 1}},
		{{3}, {2}},
		{{1, 1, 1}, {1, 0, 1}},
	}
	for _, p := range pairs {
		require.True(t, Dominates(p[0], p[1]))
		assert.Equal(t, After, Compare(p[0], p[1]), "dominates(%v,%v) must imply After", p[0], p[1])
	}
}

func TestVector_Grow(t *testing.T) {
	v := Vector{1, 2}

	grown := v.Grow(4)
	assert.Equal(t, Vector{1, 2, 0, 0}, grown)

	// Growing to a smaller size copies unchanged.
	same := v.Grow(1)
	assert.Equal(t, Vector{1, 2}, same)

	// Grow returns a copy, never an alias.
	grown[0] = 99
	assert.Equal(t, Vector{1, 2}, v)
}

func TestVector_Equal_ZeroPadded(t *testing.T) {
	assert.True(t, Vector{1, 0}.Equal(Vector{1}))
	assert.True(t, Vector(nil).Equal(Vector{0, 0}))
	assert.False(t, Vector{1}.Equal(Vector{1, 1}))
}

func TestVector_String(t *testing.T) {
	assert.Equal(t, "[1 2 0]", Vector{1, 2, 0}.String())
	assert.Equal(t, "[]", Vector{}.String())
	assert.Equal(t, "[]", Vector(nil).String())
}

func TestCausality_String(t *testing.T) {
	assert.Equal(t, "before", Before.String())
	assert.Equal(t, "after", After.String())
	assert.Equal(t, "concurrent", Concurrent.String())
}
