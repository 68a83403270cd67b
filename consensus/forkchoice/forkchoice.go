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

// Package forkchoice picks the canonical chain tip among competing branches
// by cumulative verified performance increment, with checkpoint consistency
// and deterministic tie-breaking (SPEC_FULL.md §4.K).
package forkchoice

import "github.com/harveybc/doin-core/common"

// Candidate is one competing chain tip under consideration.
type Candidate struct {
	TipHash               common.Hash
	CumulativeWeightedSum float64
	// AcceptedCount is #optimae_accepted transactions across the
	// candidate's chain (SPEC_FULL.md §4.K), not its raw block height.
	AcceptedCount int64
	// RespectsCheckpoints is false if the candidate's history diverges
	// from a checkpoint this node already considers final.
	RespectsCheckpoints bool
}

// Choose returns the canonical candidate among the given set:
//  1. candidates that contradict a known checkpoint are discarded
//  2. the highest cumulative weighted performance sum wins
//  3. ties broken by higher accepted_count
//  4. remaining ties broken by lexicographically smallest tip hash, so
//     every honest node converges on the same tip even in a dead heat
func Choose(candidates []Candidate) (Candidate, bool) {
	var eligible []Candidate
	for _, c := range candidates {
		if c.RespectsCheckpoints {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return Candidate{}, false
	}

	best := eligible[0]
	for _, c := range eligible[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best, true
}

func better(a, b Candidate) bool {
	if a.CumulativeWeightedSum != b.CumulativeWeightedSum {
		return a.CumulativeWeightedSum > b.CumulativeWeightedSum
	}
	if a.AcceptedCount != b.AcceptedCount {
		return a.AcceptedCount > b.AcceptedCount
	}
	return a.TipHash < b.TipHash
}
