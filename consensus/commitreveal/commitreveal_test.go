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

package commitreveal

import (
	"testing"
	"time"
)

func TestCommitRevealHappyPath(t *testing.T) {
	tr := NewTracker(time.Hour)
	now := time.Now()

	params := map[string]interface{}{"lr": 0.01}
	hash, err := ComputeCommitmentHash(params, "nonce-1")
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}

	if err := tr.AddCommitment(hash, "optimizer-1", "domain-a", now); err != nil {
		t.Fatalf("add commitment: %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 tracked commitment, got %d", tr.Len())
	}

	r := Reveal{
		CommitmentHash:      hash,
		OptimizerID:         "optimizer-1",
		DomainID:            "domain-a",
		OptimaeID:           "optimae-1",
		Parameters:          params,
		ReportedPerformance: 0.95,
		Nonce:               "nonce-1",
	}
	if err := tr.ProcessReveal(r, now.Add(time.Minute)); err != nil {
		t.Fatalf("process reveal: %v", err)
	}

	c, ok := tr.CommitmentFor(hash)
	if !ok || !c.Revealed {
		t.Fatalf("expected commitment to be marked revealed")
	}
}

func TestCommitRevealRejectsSecondReveal(t *testing.T) {
	tr := NewTracker(time.Hour)
	now := time.Now()

	hash, _ := ComputeCommitmentHash(map[string]interface{}{"lr": 0.01}, "n")
	tr.AddCommitment(hash, "optimizer-1", "domain-a", now)

	r := Reveal{CommitmentHash: hash, OptimizerID: "optimizer-1", DomainID: "domain-a", Parameters: map[string]interface{}{"lr": 0.01}, Nonce: "n"}
	if err := tr.ProcessReveal(r, now); err != nil {
		t.Fatalf("first reveal: %v", err)
	}
	if err := tr.ProcessReveal(r, now); err == nil {
		t.Fatalf("expected error on second reveal of the same commitment")
	}
}

func TestCommitRevealRejectsOptimizerMismatch(t *testing.T) {
	tr := NewTracker(time.Hour)
	now := time.Now()

	hash, _ := ComputeCommitmentHash(map[string]interface{}{"lr": 0.01}, "n")
	tr.AddCommitment(hash, "optimizer-1", "domain-a", now)

	r := Reveal{CommitmentHash: hash, OptimizerID: "someone-else", DomainID: "domain-a", Parameters: map[string]interface{}{"lr": 0.01}, Nonce: "n"}
	if err := tr.ProcessReveal(r, now); err == nil {
		t.Fatalf("expected error revealing a commitment under a different optimizer identity")
	}
}

func TestCommitRevealRejectsExpired(t *testing.T) {
	tr := NewTracker(time.Minute)
	now := time.Now()

	hash, _ := ComputeCommitmentHash(map[string]interface{}{"lr": 0.01}, "n")
	tr.AddCommitment(hash, "optimizer-1", "domain-a", now)

	r := Reveal{CommitmentHash: hash, OptimizerID: "optimizer-1", DomainID: "domain-a", Parameters: map[string]interface{}{"lr": 0.01}, Nonce: "n"}
	if err := tr.ProcessReveal(r, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected error for reveal past max commitment age")
	}
}

func TestCommitRevealRejectsHashMismatch(t *testing.T) {
	tr := NewTracker(time.Hour)
	now := time.Now()

	hash, _ := ComputeCommitmentHash(map[string]interface{}{"lr": 0.01}, "n")
	tr.AddCommitment(hash, "optimizer-1", "domain-a", now)

	r := Reveal{CommitmentHash: hash, OptimizerID: "optimizer-1", DomainID: "domain-a", Parameters: map[string]interface{}{"lr": 0.02}, Nonce: "n"}
	if err := tr.ProcessReveal(r, now); err == nil {
		t.Fatalf("expected hash mismatch error for tampered parameters")
	}
}

func TestPruneRemovesRevealedAndExpired(t *testing.T) {
	tr := NewTracker(time.Minute)
	now := time.Now()

	revealedHash, _ := ComputeCommitmentHash(map[string]interface{}{"a": 1}, "n1")
	expiredHash, _ := ComputeCommitmentHash(map[string]interface{}{"a": 2}, "n2")

	tr.AddCommitment(revealedHash, "p1", "d", now)
	tr.AddCommitment(expiredHash, "p2", "d", now)

	tr.ProcessReveal(Reveal{CommitmentHash: revealedHash, OptimizerID: "p1", DomainID: "d", Parameters: map[string]interface{}{"a": 1}, Nonce: "n1"}, now)

	removed := tr.Prune(now.Add(2 * time.Minute))
	if removed != 2 {
		t.Fatalf("expected 2 commitments pruned, got %d", removed)
	}
	if tr.Len() != 0 {
		t.Fatalf("expected tracker to be empty after prune, got %d remaining", tr.Len())
	}
}
