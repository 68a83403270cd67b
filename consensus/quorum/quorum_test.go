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

package quorum

import (
	"sync"
	"testing"
)

func TestSelectEvaluatorsExcludesOptimizerAndIsDeterministic(t *testing.T) {
	eligible := []string{"a", "b", "c", "d", "e", "optimizer"}

	s1 := SelectEvaluators(eligible, "optimizer", "tip-hash", "optimae-1", 3)
	s2 := SelectEvaluators(eligible, "optimizer", "tip-hash", "optimae-1", 3)

	if len(s1) != 3 {
		t.Fatalf("expected 3 selected evaluators, got %d", len(s1))
	}
	for _, id := range s1 {
		if id == "optimizer" {
			t.Fatalf("optimizer must never be selected as its own evaluator")
		}
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("selection must be deterministic for identical inputs")
		}
	}
}

func TestSelectEvaluatorsVariesWithChainTip(t *testing.T) {
	eligible := []string{"a", "b", "c", "d", "e", "f", "g"}

	s1 := SelectEvaluators(eligible, "optimizer", "tip-A", "optimae-1", 3)
	s2 := SelectEvaluators(eligible, "optimizer", "tip-B", "optimae-1", 3)

	identical := true
	for i := range s1 {
		if s1[i] != s2[i] {
			identical = false
		}
	}
	if identical {
		t.Fatalf("expected different chain tips to plausibly select different committees")
	}
}

func TestEngineSelectEvaluatorsMatchesFreeFunction(t *testing.T) {
	eligible := []string{"a", "b", "c", "d", "e", "optimizer"}
	want := SelectEvaluators(eligible, "optimizer", "tip-hash", "optimae-1", 3)

	e := NewEngine()
	got := e.SelectEvaluators(eligible, "optimizer", "tip-hash", "optimae-1", 3)
	if len(got) != len(want) {
		t.Fatalf("expected %d selected, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected Engine.SelectEvaluators to match the deterministic free function at index %d: want %s, got %s", i, want[i], got[i])
		}
	}
}

func TestEngineSelectEvaluatorsDedupesConcurrentCallers(t *testing.T) {
	eligible := []string{"a", "b", "c", "d", "e", "f"}
	e := NewEngine()

	var wg sync.WaitGroup
	results := make([][]string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = e.SelectEvaluators(eligible, "optimizer", "tip-hash", "optimae-1", 3)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if len(results[i]) != len(results[0]) {
			t.Fatalf("expected all concurrent callers to get the same committee size")
		}
		for j := range results[0] {
			if results[i][j] != results[0][j] {
				t.Fatalf("expected all concurrent callers requesting the same round to get an identical committee")
			}
		}
	}
}

func TestDynamicSizeClampsToBounds(t *testing.T) {
	p := DefaultSizingParams()

	if got := DynamicSize(0, 0, 0, p); got != p.MinSize {
		t.Fatalf("expected MinSize for zero active evaluators, got %d", got)
	}
	if got := DynamicSize(100, 0, 0, p); got < p.MinSize || got > p.MaxSize {
		t.Fatalf("expected size within [%d, %d], got %d", p.MinSize, p.MaxSize, got)
	}
}

func TestDynamicSizeGrowsWithActivityAndShrinksWithReputation(t *testing.T) {
	p := DefaultSizingParams()

	base := DynamicSize(64, 0, 0, p)
	busy := DynamicSize(64, 0.9, 0, p)
	if busy <= base {
		t.Fatalf("expected high activity to grow the quorum: base=%d busy=%d", base, busy)
	}

	trusted := DynamicSize(64, 0, 0.95, p)
	if trusted >= base {
		t.Fatalf("expected high optimizer reputation to shrink the quorum: base=%d trusted=%d", base, trusted)
	}
}

// TestDecideRejectsDivergentOutlier mirrors SPEC_FULL.md §8 scenario 3: a
// 3-member committee with one wild outlier must reject on quorum
// disagreement, not on report divergence.
func TestDecideRejectsDivergentOutlier(t *testing.T) {
	votes := []Vote{
		{EvaluatorID: "evaluator-1", VerifiedPerformance: -0.50},
		{EvaluatorID: "evaluator-2", VerifiedPerformance: -0.51},
		{EvaluatorID: "evaluator-3", VerifiedPerformance: -10.0},
	}

	d := Decide(-0.50, votes, 3, 0.05, 0.67)
	if d.Accepted {
		t.Fatalf("expected rejection with a divergent outlier")
	}
	if d.Agreements["evaluator-3"] {
		t.Fatalf("expected evaluator-3's vote to be flagged as disagreeing")
	}
	if d.Agreements["evaluator-1"] != true || d.Agreements["evaluator-2"] != true {
		t.Fatalf("expected evaluator-1 and evaluator-2 to agree with the median")
	}
	if d.Reason == "" {
		t.Fatalf("expected a non-empty rejection reason")
	}
	if d.Reason[:len("quorum disagreement")] != "quorum disagreement" {
		t.Fatalf("expected reason to start with %q, got %q", "quorum disagreement", d.Reason)
	}
}

func TestDecideAcceptsWithinTolerance(t *testing.T) {
	votes := []Vote{
		{EvaluatorID: "e1", VerifiedPerformance: 0.90},
		{EvaluatorID: "e2", VerifiedPerformance: 0.91},
		{EvaluatorID: "e3", VerifiedPerformance: 0.905},
	}
	d := Decide(0.90, votes, 3, 0.05, 0.67)
	if !d.Accepted {
		t.Fatalf("expected acceptance, got reason %q", d.Reason)
	}
	if d.MedianPerformance != 0.905 {
		t.Fatalf("expected median 0.905, got %v", d.MedianPerformance)
	}
}

func TestDecideRejectsReportDivergingFromMedian(t *testing.T) {
	votes := []Vote{
		{EvaluatorID: "e1", VerifiedPerformance: 0.50},
		{EvaluatorID: "e2", VerifiedPerformance: 0.51},
		{EvaluatorID: "e3", VerifiedPerformance: 0.505},
	}
	// All evaluators agree tightly with each other, but the optimizer's
	// own reported figure is wildly off from their consensus.
	d := Decide(5.0, votes, 3, 0.05, 0.67)
	if d.Accepted {
		t.Fatalf("expected rejection when the report diverges from the quorum median")
	}
	if d.Reason[:len("report diverges")] != "report diverges" {
		t.Fatalf("expected a report-divergence reason, got %q", d.Reason)
	}
}

func TestDecideNoVotes(t *testing.T) {
	d := Decide(1.0, nil, 3, 0.05, 0.6)
	if d.Reason != "no votes" {
		t.Fatalf("expected reason %q, got %q", "no votes", d.Reason)
	}
}

func TestCommitteeRejectsNonSelectedEvaluator(t *testing.T) {
	c := NewCommittee(0.9, []string{"e1", "e2", "e3"})
	if err := c.RecordVote(Vote{EvaluatorID: "intruder", VerifiedPerformance: 0.9}); err == nil {
		t.Fatalf("expected an error voting from outside the selected set")
	}
}

func TestCommitteeRejectsDuplicateVote(t *testing.T) {
	c := NewCommittee(0.9, []string{"e1", "e2"})
	if err := c.RecordVote(Vote{EvaluatorID: "e1", VerifiedPerformance: 0.9}); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := c.RecordVote(Vote{EvaluatorID: "e1", VerifiedPerformance: 0.1}); err == nil {
		t.Fatalf("expected duplicate vote to be rejected")
	}
}

func TestCommitteeTimesOutWithTooFewVotes(t *testing.T) {
	c := NewCommittee(0.9, []string{"e1", "e2", "e3"})
	c.RecordVote(Vote{EvaluatorID: "e1", VerifiedPerformance: 0.9})

	d := c.Tally(0.05, 0.6)
	if d.Reason != "timeout" {
		t.Fatalf("expected timeout reason with insufficient votes, got %q", d.Reason)
	}
}

func TestCommitteeTallyAcceptsOnceReady(t *testing.T) {
	c := NewCommittee(0.9, []string{"e1", "e2", "e3"})
	c.RecordVote(Vote{EvaluatorID: "e1", VerifiedPerformance: 0.9})
	c.RecordVote(Vote{EvaluatorID: "e2", VerifiedPerformance: 0.91})
	c.RecordVote(Vote{EvaluatorID: "e3", VerifiedPerformance: 0.905})

	if !c.Ready() {
		t.Fatalf("expected committee to be ready with all votes in")
	}
	d := c.Tally(0.05, 0.6)
	if !d.Accepted {
		t.Fatalf("expected acceptance, got reason %q", d.Reason)
	}
}
