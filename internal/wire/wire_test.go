package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/vclock"
)

func TestOperation_EncodeDecode(t *testing.T) {
	op := Operation{
		OriginReplicaID: "replica-a",
		ClockAtOrigin:   vclock.Vector{2, 0, 1},
		Payload:         []byte("set x=1"),
	}

	data, err := op.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("not msgpack at all"))
	assert.Error(t, err)
}

func TestDigest_StructuralEquality(t *testing.T) {
	assert.Equal(t, Digest([]byte("set x=1")), Digest([]byte("set x=1")))
	assert.NotEqual(t, Digest([]byte("set x=1")), Digest([]byte("set x=2")))

	// Digest is over payload bytes only; the envelope does not matter.
	a := Operation{OriginReplicaID: "a", ClockAtOrigin: vclock.Vector{1}, Payload: []byte("op")}
	b := Operation{OriginReplicaID: "b", ClockAtOrigin: vclock.Vector{9, 9}, Payload: []byte("op")}
	assert.Equal(t, Digest(a.Payload), Digest(b.Payload))
}
