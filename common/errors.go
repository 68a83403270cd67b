// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package common

import "fmt"

// Kind is a machine-stable error classification (SPEC_FULL.md §7). Every
// rejection surfaced to a peer carries one of these plus a human-readable
// reason.
type Kind string

const (
	// Validation
	KindBadCommitment        Kind = "BadCommitment"
	KindBadReveal            Kind = "BadReveal"
	KindOutOfBounds          Kind = "OutOfBounds"
	KindResourceLimitExceeded Kind = "ResourceLimitExceeded"
	KindBadSeed              Kind = "BadSeed"
	KindInvalidFee           Kind = "InvalidFee"
	KindRateLimited          Kind = "RateLimited"
	KindMempoolFull          Kind = "MempoolFull"

	// Protocol
	KindNotSelectedEvaluator   Kind = "NotSelectedEvaluator"
	KindDuplicateVote          Kind = "DuplicateVote"
	KindQuorumTimeout          Kind = "QuorumTimeout"
	KindQuorumDisagreement     Kind = "QuorumDisagreement"
	KindReportDivergesFromMedian Kind = "ReportDivergesFromMedian"

	// Economic
	KindInsufficientBalance   Kind = "InsufficientBalance"
	KindBadNonce              Kind = "BadNonce"
	KindChannelNotFound       Kind = "ChannelNotFound"
	KindChannelNotActive      Kind = "ChannelNotActive"
	KindDisputeNonceNotNewer  Kind = "DisputeNonceNotNewer"
	KindDisputeTotalsMismatch Kind = "DisputeTotalsMismatch"

	// Consensus
	KindCheckpointConflict  Kind = "CheckpointConflict"
	KindReorgBeyondFinality Kind = "ReorgBeyondFinality"
	KindUnknownParent       Kind = "UnknownParent"
	KindInvalidMerkleRoot   Kind = "InvalidMerkleRoot"

	// System
	KindPluginDeadline Kind = "PluginDeadline"
	KindIo             Kind = "Io"
	KindCorruption     Kind = "Corruption"
)

// Error is a typed, machine-stable rejection carrying a human-readable
// reason, used throughout the core instead of ad hoc error strings.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether this error kind demands the node stop advancing
// from its current on-disk state (SPEC_FULL.md §7 policy: only Corruption
// is fatal).
func (e *Error) Fatal() bool { return e.Kind == KindCorruption }

// New creates an Error of the given kind with a formatted reason.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind, recording the cause for
// %w-style unwrapping.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}
