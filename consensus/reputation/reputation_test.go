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

package reputation

import (
	"math"
	"testing"
	"time"
)

func TestBadEventsFallFasterThanGoodEventsRecover(t *testing.T) {
	now := time.Unix(0, 0)

	l := NewLedger(DefaultParams())
	l.RecordOptimaeAccepted("peer-1", now)
	afterGood := l.Score("peer-1", now)

	l2 := NewLedger(DefaultParams())
	l2.RecordOptimaeAccepted("peer-1", now)
	l2.RecordOptimaeRejected("peer-1", now)
	afterBoth := l2.Score("peer-1", now)

	if afterBoth >= afterGood {
		t.Fatalf("expected a rejection penalty to outweigh the prior acceptance reward: after-good=%v, after-both=%v", afterGood, afterBoth)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLedger(DefaultParams())
	l.RecordOptimaeRejected("peer-1", now)
	l.RecordOptimaeRejected("peer-1", now)
	l.RecordDoubleSign("peer-1", now)

	if l.Score("peer-1", now) < 0 {
		t.Fatalf("expected score to floor at zero, got %v", l.Score("peer-1", now))
	}
}

// TestDecayLaw is SPEC_FULL.md §8's "Decay law": with no further events,
// reputation at t+delta equals reputation at t times 0.5^(delta/half_life).
func TestDecayLaw(t *testing.T) {
	params := DefaultParams()
	l := NewLedger(params)
	t0 := time.Unix(0, 0)
	l.RecordOptimaeAccepted("peer-1", t0)

	scoreAtT0 := l.Score("peer-1", t0)
	delta := params.HalfLife
	scoreAtTDelta := l.Score("peer-1", t0.Add(delta))

	want := scoreAtT0 * math.Pow(0.5, delta.Seconds()/params.HalfLife.Seconds())
	if math.Abs(scoreAtTDelta-want) > 1e-9 {
		t.Fatalf("expected decayed score %v after one half-life, got %v", want, scoreAtTDelta)
	}
	if math.Abs(scoreAtTDelta-scoreAtT0/2) > 1e-9 {
		t.Fatalf("expected score to halve after exactly one half-life, got %v from %v", scoreAtTDelta, scoreAtT0)
	}
	if scoreAtTDelta < 0 {
		t.Fatalf("decayed score must never go negative, got %v", scoreAtTDelta)
	}
}

func TestReputationFactorBounds(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLedger(DefaultParams())

	if f := l.Factor("unknown-peer", now); f != 0 {
		t.Fatalf("expected zero reputation_factor for an unseen (zero-score) peer, got %v", f)
	}

	l.RecordOptimaeAccepted("peer-1", now)
	f := l.Factor("peer-1", now)
	if f <= 0 || f > 1 {
		t.Fatalf("expected reputation_factor in (0, 1], got %v", f)
	}

	// A very high score should saturate the factor at 1, per the
	// min(1, log(1+rep)/log(11)) formula.
	for i := 0; i < 50; i++ {
		l.RecordOptimaeAccepted("peer-1", now)
	}
	if got := l.Factor("peer-1", now); got != 1.0 {
		t.Fatalf("expected reputation_factor to saturate at 1.0 for high scores, got %v", got)
	}
}

func TestEligibleForConsensus(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLedger(DefaultParams())
	if l.EligibleForConsensus("peer-1", now) {
		t.Fatalf("expected an unseen peer to be ineligible for consensus")
	}
	l.RecordOptimaeAccepted("peer-1", now)
	l.RecordOptimaeAccepted("peer-1", now)
	l.RecordOptimaeAccepted("peer-1", now)
	if !l.EligibleForConsensus("peer-1", now) {
		t.Fatalf("expected a peer above MinForConsensus to be eligible")
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	t0 := time.Unix(0, 0)
	events := []Event{
		{PeerID: "p1", Kind: EventOptimaeAccepted, At: t0},
		{PeerID: "p1", Kind: EventOptimaeRejected, At: t0.Add(time.Hour)},
		{PeerID: "p2", Kind: EventEvalCompleted, At: t0},
		{PeerID: "p2", Kind: EventEvalAgreed, At: t0.Add(time.Minute)},
	}

	l1 := NewLedger(DefaultParams())
	l1.Rebuild(events)
	l2 := NewLedger(DefaultParams())
	l2.Rebuild(events)

	now := t0.Add(2 * time.Hour)
	if l1.Score("p1", now) != l2.Score("p1", now) || l1.Score("p2", now) != l2.Score("p2", now) {
		t.Fatalf("expected replaying the same event history to produce identical scores")
	}
}
