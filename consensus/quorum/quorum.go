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

// Package quorum selects a deterministic K-of-N verification committee for
// each submitted optimae, excluding its own optimizer, collects evaluator
// votes, and tallies them into an accept/reject decision by median
// agreement (SPEC_FULL.md §4.F, §4.P).
package quorum

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/harveybc/doin-core/crypto"
)

// SizingParams bounds dynamic quorum sizing by recent network activity and
// the submitting optimizer's reputation (SPEC_FULL.md §4.P).
type SizingParams struct {
	Base                int
	MinSize             int
	MaxSize             int // cap, before the N_active/2 ceiling is applied
	ActivityThresholds  [3]float64 // descending: +3, +2, +1 bonus cutoffs
	ReputationThresholds [2]float64 // descending: -2, -1 discount cutoffs
}

// DefaultSizingParams returns the network's default quorum sizing curve.
func DefaultSizingParams() SizingParams {
	return SizingParams{
		Base:                 3,
		MinSize:              3,
		MaxSize:              15,
		ActivityThresholds:   [3]float64{0.75, 0.50, 0.25},
		ReputationThresholds: [2]float64{0.9, 0.7},
	}
}

// DynamicSize computes K = clamp(base + floor(log2(N_active)) +
// activity_bonus - reputation_discount, min_quorum, max_quorum), where
// max_quorum = max(min_quorum, min(cap, floor(N_active/2))). activityRatio
// and optimizerReputation are both expected in [0, 1]. Returns MinSize
// when activeEvaluators <= 0 (SPEC_FULL.md §4.P).
func DynamicSize(activeEvaluators int, activityRatio, optimizerReputation float64, p SizingParams) int {
	if activeEvaluators <= 0 {
		return p.MinSize
	}

	bonus := 0
	switch {
	case activityRatio >= p.ActivityThresholds[0]:
		bonus = 3
	case activityRatio >= p.ActivityThresholds[1]:
		bonus = 2
	case activityRatio >= p.ActivityThresholds[2]:
		bonus = 1
	}

	discount := 0
	switch {
	case optimizerReputation >= p.ReputationThresholds[0]:
		discount = 2
	case optimizerReputation >= p.ReputationThresholds[1]:
		discount = 1
	}

	k := p.Base + int(math.Floor(math.Log2(float64(activeEvaluators)))) + bonus - discount

	maxQuorum := p.MinSize
	capByHalf := activeEvaluators / 2
	if capByHalf > p.MaxSize {
		capByHalf = p.MaxSize
	}
	if capByHalf > maxQuorum {
		maxQuorum = capByHalf
	}

	if k < p.MinSize {
		k = p.MinSize
	}
	if k > maxQuorum {
		k = maxQuorum
	}
	return k
}

// SelectEvaluators deterministically picks a K-of-N committee from the
// eligible evaluator set, excluding optimizerID. seed = H(chainTipHash :
// optimaeID); each candidate is scored H(seed : candidateID), sorted
// ascending, and the first k are taken — every honest node computes the
// same committee from the same (chainTipHash, optimaeID) pair
// (SPEC_FULL.md §4.F).
func SelectEvaluators(eligible []string, optimizerID, chainTipHash, optimaeID string, k int) []string {
	seed := crypto.Sum256Hex(chainTipHash, optimaeID)

	type scored struct {
		id    string
		score string
	}

	candidates := make([]scored, 0, len(eligible))
	for _, id := range eligible {
		if id == optimizerID {
			continue
		}
		score := crypto.Sum256Hex(string(seed), id)
		candidates = append(candidates, scored{id: id, score: string(score)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].id
	}
	return out
}

// Engine wraps SelectEvaluators with a singleflight group so that
// concurrent requests for the same (chainTipHash, optimaeID) committee —
// e.g. several gossip handlers racing on the same just-revealed optimae —
// collapse into a single selection computation instead of recomputing it
// redundantly.
type Engine struct {
	group singleflight.Group
}

// NewEngine returns a ready-to-use quorum Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// SelectEvaluators is SelectEvaluators, deduplicated across concurrent
// callers sharing the same chainTipHash and optimaeID.
func (e *Engine) SelectEvaluators(eligible []string, optimizerID, chainTipHash, optimaeID string, k int) []string {
	key := strings.Join([]string{chainTipHash, optimaeID, optimizerID, fmt.Sprint(k)}, ":")
	v, _, _ := e.group.Do(key, func() (interface{}, error) {
		return SelectEvaluators(eligible, optimizerID, chainTipHash, optimaeID, k), nil
	})
	return v.([]string)
}

// Vote is one committee member's independently measured performance.
// SyntheticDataHash is informational for audit only, never a consensus
// input: distinct evaluators legitimately produce distinct synthetic data
// from distinct per-evaluator seeds (SPEC_FULL.md §4.F).
type Vote struct {
	EvaluatorID         string
	VerifiedPerformance float64
	SyntheticDataHash   string
}

// Decision is the outcome of tallying a committee's votes against a
// reported performance (SPEC_FULL.md §4.F steps 1-5).
type Decision struct {
	Accepted         bool
	MedianPerformance float64
	Agreements       map[string]bool // evaluator ID -> agreed with median within tolerance
	AgreeFraction    float64
	ReportDivergence float64
	Reason           string // empty when Accepted
	Votes            []Vote
}

// Decide applies SPEC_FULL.md §4.F's acceptance rule to a completed
// committee's votes. Callers must have already confirmed len(votes) >= K
// before calling; Decide itself only handles the "no votes" edge case so
// that reason strings match the spec verbatim.
func Decide(reported float64, votes []Vote, requiredCount int, tolerance, quorumFraction float64) Decision {
	if len(votes) == 0 {
		return Decision{Reason: "no votes"}
	}

	perf := make([]float64, len(votes))
	for i, v := range votes {
		perf[i] = v.VerifiedPerformance
	}
	medianPerf := median(perf)

	agreements := make(map[string]bool, len(votes))
	agreeCount := 0
	denom := math.Max(math.Abs(medianPerf), 1e-10)
	for _, v := range votes {
		divergence := math.Abs(v.VerifiedPerformance-medianPerf) / denom
		agreed := divergence <= tolerance
		agreements[v.EvaluatorID] = agreed
		if agreed {
			agreeCount++
		}
	}

	k := requiredCount
	if k <= 0 {
		k = len(votes)
	}
	agreeFraction := float64(agreeCount) / float64(k)
	reportDivergence := math.Abs(reported-medianPerf) / denom

	accepted := agreeFraction >= quorumFraction && reportDivergence <= tolerance

	d := Decision{
		Accepted:          accepted,
		MedianPerformance: medianPerf,
		Agreements:        agreements,
		AgreeFraction:     agreeFraction,
		ReportDivergence:  reportDivergence,
		Votes:             votes,
	}
	if !accepted {
		if agreeFraction < quorumFraction {
			d.Reason = fmt.Sprintf("quorum disagreement (%.0f%% < %.0f%%)", agreeFraction*100, quorumFraction*100)
		} else {
			d.Reason = fmt.Sprintf("report diverges from median (%.0f%% > %.0f%%)", reportDivergence*100, tolerance*100)
		}
	}
	return d
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Committee tracks in-flight votes for a single optimae's verification
// round: it enforces that only selected evaluators vote, exactly once each,
// and resolves "timeout" when the max-wait deadline passes with too few
// votes.
type Committee struct {
	mu       sync.Mutex
	required map[string]bool // selected evaluator set
	reported float64
	votes    map[string]Vote
}

// NewCommittee creates a Committee for the given reported performance and
// selected evaluator set (SPEC_FULL.md §4.F selection output).
func NewCommittee(reported float64, selected []string) *Committee {
	required := make(map[string]bool, len(selected))
	for _, id := range selected {
		required[id] = true
	}
	return &Committee{
		required: required,
		reported: reported,
		votes:    make(map[string]Vote),
	}
}

// RecordVote admits a vote iff the voter was selected and has not already
// voted (SPEC_FULL.md §4.F vote intake).
func (c *Committee) RecordVote(v Vote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.required[v.EvaluatorID] {
		return fmt.Errorf("quorum: %s is not a selected evaluator for this round", v.EvaluatorID)
	}
	if _, exists := c.votes[v.EvaluatorID]; exists {
		return fmt.Errorf("quorum: evaluator %s already voted", v.EvaluatorID)
	}
	c.votes[v.EvaluatorID] = v
	return nil
}

// Count returns the number of votes recorded so far.
func (c *Committee) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.votes)
}

// Ready reports whether enough votes have arrived to tally a decision.
func (c *Committee) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.votes) >= len(c.required)
}

// Tally computes the committee's decision once enough votes are in, or
// "timeout" if called before that (the engine's timeout sweep calls this
// after max_wait_seconds elapses regardless of vote count).
func (c *Committee) Tally(tolerance, quorumFraction float64) Decision {
	c.mu.Lock()
	votes := make([]Vote, 0, len(c.votes))
	for _, v := range c.votes {
		votes = append(votes, v)
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].EvaluatorID < votes[j].EvaluatorID })
	required := len(c.required)
	reported := c.reported
	c.mu.Unlock()

	if len(votes) < required {
		return Decision{Reason: "timeout"}
	}
	return Decide(reported, votes, required, tolerance, quorumFraction)
}
