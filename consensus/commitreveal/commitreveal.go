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

// Package commitreveal implements hash-commitment of optimae payloads with
// age-bounded reveal and single-reveal enforcement (SPEC_FULL.md §4.B),
// grounded on original_source/src/doin_core/models/commit_reveal.py.
package commitreveal

import (
	"fmt"
	"sync"
	"time"

	"github.com/harveybc/doin-core/common"
	"github.com/harveybc/doin-core/crypto"
)

// Commitment is a pending hash-commitment of an optimae's parameters.
type Commitment struct {
	Hash        common.Hash
	OptimizerID string
	DomainID    string
	CreatedAt   time.Time
	Revealed    bool
}

// Reveal is the opened payload matching a prior commitment.
type Reveal struct {
	CommitmentHash      common.Hash
	OptimizerID         string
	DomainID            string
	OptimaeID           string
	Parameters          map[string]interface{}
	ReportedPerformance float64
	Nonce               string
}

// Tracker holds outstanding commitments in memory, keyed by commitment hash.
type Tracker struct {
	mu            sync.Mutex
	maxCommitAge  time.Duration
	commitments   map[common.Hash]*Commitment
}

// NewTracker creates a Tracker with the given max commitment age.
func NewTracker(maxCommitAge time.Duration) *Tracker {
	return &Tracker{
		maxCommitAge: maxCommitAge,
		commitments:  make(map[common.Hash]*Commitment),
	}
}

// AddCommitment registers a new commitment, rejecting duplicates.
func (t *Tracker) AddCommitment(hash common.Hash, optimizerID, domainID string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.commitments[hash]; exists {
		return fmt.Errorf("commit-reveal: duplicate commitment %s", hash)
	}
	t.commitments[hash] = &Commitment{
		Hash:        hash,
		OptimizerID: optimizerID,
		DomainID:    domainID,
		CreatedAt:   now,
	}
	return nil
}

// ProcessReveal validates a reveal against its commitment per the rules in
// SPEC_FULL.md §4.B: the commitment must exist, not be previously revealed
// or expired, its age must be within maxCommitAge, the recomputed hash must
// match, and the optimizer/domain must match the original commitment.
func (t *Tracker) ProcessReveal(r Reveal, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, exists := t.commitments[r.CommitmentHash]
	if !exists {
		return fmt.Errorf("commit-reveal: commitment %s not found", r.CommitmentHash)
	}
	if c.Revealed {
		return fmt.Errorf("commit-reveal: commitment %s already revealed", r.CommitmentHash)
	}
	age := now.Sub(c.CreatedAt)
	if age > t.maxCommitAge {
		return fmt.Errorf("commit-reveal: commitment %s expired (age %s > max %s)", r.CommitmentHash, age, t.maxCommitAge)
	}
	if c.DomainID != r.DomainID {
		return fmt.Errorf("commit-reveal: domain mismatch for commitment %s", r.CommitmentHash)
	}
	if c.OptimizerID != r.OptimizerID {
		return fmt.Errorf("commit-reveal: optimizer mismatch for commitment %s", r.CommitmentHash)
	}

	canon, err := common.CanonicalJSON(r.Parameters)
	if err != nil {
		return fmt.Errorf("commit-reveal: canonicalize parameters: %w", err)
	}
	recomputed := crypto.Sum256Hex(string(canon), r.Nonce)
	if recomputed != r.CommitmentHash {
		return fmt.Errorf("commit-reveal: hash mismatch for commitment %s", r.CommitmentHash)
	}

	c.Revealed = true
	return nil
}

// CommitmentFor returns the tracked commitment, if any, and whether it was
// found — used by the node's block-assembly path to confirm a commit was
// observed on-chain before its reveal is processed (SPEC_FULL.md §5).
func (t *Tracker) CommitmentFor(hash common.Hash) (Commitment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.commitments[hash]
	if !ok {
		return Commitment{}, false
	}
	return *c, true
}

// Prune removes expired and already-revealed commitments, matching the
// periodic cleanup behavior of original_source/commit_reveal.py
// (SPEC_FULL.md §11.1).
func (t *Tracker) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for hash, c := range t.commitments {
		if c.Revealed || now.Sub(c.CreatedAt) > t.maxCommitAge {
			delete(t.commitments, hash)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked commitments.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.commitments)
}

// ComputeCommitmentHash computes H(canonical_json(parameters) || nonce).
func ComputeCommitmentHash(parameters map[string]interface{}, nonce string) (common.Hash, error) {
	canon, err := common.CanonicalJSON(parameters)
	if err != nil {
		return "", fmt.Errorf("compute commitment hash: %w", err)
	}
	return crypto.Sum256Hex(string(canon), nonce), nil
}
