package replica

import (
	"errors"
	"fmt"
)

// OpError represents a declared failure outcome of a replica operation.
//
// These are protocol outcomes, not programming errors:
//   - Invalid op: empty/malformed payload (caller error, not retried)
//   - Unknown replica: sender is not in the peer trust set
//   - Unreachable: sync target is not a known peer
//
// Conflicts carry structured payload data and use ConflictError instead.
type OpError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ReplicaID identifies the replica the operation ran against.
	ReplicaID string

	// PeerID identifies the peer involved (for trust/reachability errors).
	PeerID string
}

// ErrorCode categorizes replica operation failures.
type ErrorCode string

const (
	// ErrCodeInvalidOp indicates an empty or malformed operation payload.
	ErrCodeInvalidOp ErrorCode = "INVALID_OP"

	// ErrCodeUnknownReplica indicates the sending replica is not a trusted peer.
	ErrCodeUnknownReplica ErrorCode = "UNKNOWN_REPLICA"

	// ErrCodeUnreachable indicates the sync target is not a known peer.
	ErrCodeUnreachable ErrorCode = "UNREACHABLE"
)

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.PeerID != "" {
		return fmt.Sprintf("%s: %s (replica=%s, peer=%s)", e.Code, e.Message, e.ReplicaID, e.PeerID)
	}
	return fmt.Sprintf("%s: %s (replica=%s)", e.Code, e.Message, e.ReplicaID)
}

// IsInvalidOp returns true if the error is an invalid-payload error.
// Uses errors.As to handle wrapped errors.
func IsInvalidOp(err error) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Code == ErrCodeInvalidOp
}

// IsUnknownReplica returns true if the error is a peer-trust error.
func IsUnknownReplica(err error) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Code == ErrCodeUnknownReplica
}

// IsUnreachable returns true if the error is a sync-target error.
func IsUnreachable(err error) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Code == ErrCodeUnreachable
}

// ConflictError reports a remote operation whose payload already sits in
// the local pending queue. The core detects conflicts but never resolves
// them: both sides are surfaced so the caller can apply its own policy
// (retry after sync, merge payloads, drop the duplicate).
type ConflictError struct {
	// ReplicaID is the replica that detected the conflict.
	ReplicaID string

	// FromReplica is the peer that sent the conflicting operation.
	FromReplica string

	// RemoteOp is the conflicting remote payload.
	RemoteOp []byte

	// LocalPending is the local pending payload set at detection time.
	LocalPending [][]byte
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("CONFLICT: remote op from %q duplicates a pending local op (replica=%s, pending=%d)",
		e.FromReplica, e.ReplicaID, len(e.LocalPending))
}

// IsConflict returns true if the error is a conflict detection.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsConflict extracts the conflict details from an error chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
