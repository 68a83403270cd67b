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

// Package finality tracks implicit depth-based checkpoints, explicit
// checkpoint votes, and external anchor publication (SPEC_FULL.md §4.L).
package finality

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harveybc/doin-core/common"
	"github.com/harveybc/doin-core/crypto"
)

// Checkpoint is a block this node treats as final and will never reorg
// past.
type Checkpoint struct {
	BlockHash common.Hash
	Index     int64
	Explicit  bool // true if reached by quorum vote rather than depth alone
}

// Anchor is a published external attestation of a checkpoint, recorded for
// audit and cross-chain reference (SPEC_FULL.md §4.L).
type Anchor struct {
	ID         string
	Checkpoint Checkpoint
	Target     string // external system identifier the anchor was published to
	Reference  string // opaque handle returned by the external system

	// ChainStateHash is H(h1:h2:...:hk) over the block hashes this node
	// held immediately behind its tip at publication time, letting a
	// later verifier recompute it from its own view of the chain and
	// confirm the two histories agree (SPEC_FULL.md §4.L).
	ChainStateHash common.Hash
}

// VerifyResult is the tri-state outcome of checking a local chain against
// a previously published anchor (SPEC_FULL.md §4.L).
type VerifyResult string

const (
	// VerifyMatch means the recomputed chain_state_hash equals the
	// anchor's.
	VerifyMatch VerifyResult = "true"
	// VerifyMismatch means the recomputed hash differs: the two nodes'
	// histories diverge somewhere in the anchored range.
	VerifyMismatch VerifyResult = "false"
	// VerifyUnknown means there isn't enough local history to recompute
	// the hash (e.g. the chain hasn't reached the anchored depth yet).
	VerifyUnknown VerifyResult = "unknown"
)

// ChainStateHash computes SPEC_FULL.md §4.L's chain_state_hash over a
// contiguous run of block hashes, ordered oldest to newest: H(h1:h2:...:hk).
func ChainStateHash(recentHashes []common.Hash) common.Hash {
	parts := make([]string, len(recentHashes))
	for i, h := range recentHashes {
		parts[i] = string(h)
	}
	return crypto.Sum256Hex(parts...)
}

// Tracker holds this node's finality state.
type Tracker struct {
	mu          sync.Mutex
	implicitDepth int64
	checkpoints []Checkpoint
	anchors     []Anchor
}

// NewTracker creates a Tracker that treats a block as implicitly final once
// it is implicitDepth blocks behind the current tip.
func NewTracker(implicitDepth int64) *Tracker {
	return &Tracker{implicitDepth: implicitDepth}
}

// ImplicitCheckpoint returns the checkpoint implied by chain depth alone:
// the block implicitDepth behind tipIndex, if the chain is long enough.
func (t *Tracker) ImplicitCheckpoint(tipHash common.Hash, tipIndex int64) (Checkpoint, bool) {
	if tipIndex < t.implicitDepth {
		return Checkpoint{}, false
	}
	return Checkpoint{BlockHash: tipHash, Index: tipIndex - t.implicitDepth, Explicit: false}, true
}

// RecordExplicit commits an explicit, quorum-voted checkpoint. Explicit
// checkpoints may not be superseded by a later implicit checkpoint at a
// lower index (SPEC_FULL.md §4.L consistency invariant).
func (t *Tracker) RecordExplicit(cp Checkpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp.Explicit = true
	if latest, ok := t.latestLocked(); ok && cp.Index < latest.Index {
		return fmt.Errorf("finality: explicit checkpoint at index %d is behind current checkpoint at index %d", cp.Index, latest.Index)
	}
	t.checkpoints = append(t.checkpoints, cp)
	return nil
}

// RecordImplicit commits an implicitly-derived checkpoint if it advances
// past the current latest checkpoint.
func (t *Tracker) RecordImplicit(cp Checkpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if latest, ok := t.latestLocked(); ok && cp.Index <= latest.Index {
		return
	}
	t.checkpoints = append(t.checkpoints, cp)
}

func (t *Tracker) latestLocked() (Checkpoint, bool) {
	if len(t.checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return t.checkpoints[len(t.checkpoints)-1], true
}

// Latest returns the most recent checkpoint this node holds.
func (t *Tracker) Latest() (Checkpoint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latestLocked()
}

// IsFinal reports whether a given block index is at or behind the latest
// checkpoint, meaning it must never be reorganized away.
func (t *Tracker) IsFinal(index int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	latest, ok := t.latestLocked()
	if !ok {
		return false
	}
	return index <= latest.Index
}

// PublishAnchor records a new external anchor for the latest checkpoint,
// assigning it a random anchor ID and stamping it with the chain_state_hash
// over recentHashes (oldest to newest, ending at the checkpointed block)
// so a remote party can later verify their own chain against it
// (SPEC_FULL.md §4.L).
func (t *Tracker) PublishAnchor(target, reference string, recentHashes []common.Hash) (Anchor, error) {
	t.mu.Lock()
	latest, ok := t.latestLocked()
	t.mu.Unlock()
	if !ok {
		return Anchor{}, fmt.Errorf("finality: no checkpoint to anchor yet")
	}

	a := Anchor{
		ID:             uuid.NewString(),
		Checkpoint:     latest,
		Target:         target,
		Reference:      reference,
		ChainStateHash: ChainStateHash(recentHashes),
	}
	t.mu.Lock()
	t.anchors = append(t.anchors, a)
	t.mu.Unlock()
	return a, nil
}

// VerifyChainAgainstAnchor recomputes the chain_state_hash over a local
// view of recentHashes and compares it to anchor's, per SPEC_FULL.md §4.L's
// verify_chain_against_anchor operation. It returns VerifyUnknown rather
// than a hard mismatch when the caller has no local hashes to check against
// (e.g. it hasn't synced that far yet), since that isn't evidence of a
// divergent history.
func VerifyChainAgainstAnchor(anchor Anchor, recentHashes []common.Hash) VerifyResult {
	if len(recentHashes) == 0 {
		return VerifyUnknown
	}
	if ChainStateHash(recentHashes) == anchor.ChainStateHash {
		return VerifyMatch
	}
	return VerifyMismatch
}

// Anchors returns all published anchors.
func (t *Tracker) Anchors() []Anchor {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Anchor, len(t.anchors))
	copy(out, t.anchors)
	return out
}
