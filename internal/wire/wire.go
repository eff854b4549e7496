// Package wire defines the operation envelope replicas exchange.
//
// The core does not implement a transport; it only fixes the fields that
// must flow through it: the originating replica, the origin's clock at
// stamp time, and the opaque payload. Envelopes encode with msgpack,
// which is compact and needs no schema agreement beyond this struct.
package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/weft/internal/vclock"
)

// Operation is the unit of replication: one locally-originated mutation,
// stamped with the origin's clock. Payload semantics are opaque to the
// core - it never inspects payload bytes beyond structural equality.
type Operation struct {
	OriginReplicaID string        `msgpack:"origin_replica_id"`
	ClockAtOrigin   vclock.Vector `msgpack:"clock_at_origin"`
	Payload         []byte        `msgpack:"payload_bytes"`
}

// Encode serializes the operation for transport.
func (o Operation) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode operation: %w", err)
	}
	return data, nil
}

// Decode parses an operation envelope.
func Decode(data []byte) (Operation, error) {
	var op Operation
	if err := msgpack.Unmarshal(data, &op); err != nil {
		return Operation{}, fmt.Errorf("decode operation: %w", err)
	}
	return op, nil
}

// Digest returns the content hash of a payload, used for structural
// duplicate detection. Byte equality only - no semantic interpretation.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
