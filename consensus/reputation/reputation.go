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

// Package reputation maintains an asymmetric, time-decaying peer score:
// every event first decays the current score toward zero by its age, then
// adds a reward or subtracts a penalty, with rewards sized smaller than
// penalties so trust falls faster than it recovers (SPEC_FULL.md §4.G).
// State is fully rebuildable by replaying chain history from genesis.
package reputation

import (
	"math"
	"sync"
	"time"
)

// Event kinds and their fixed reward/penalty magnitudes (SPEC_FULL.md §4.G).
const (
	RewardOptimaeAccepted = 1.0
	RewardEvalCompleted   = 0.3
	RewardEvalAgreed      = 0.1
	PenaltyOptimaeRejected = 3.0
	PenaltyEvalDivergent  = 2.0
	PenaltyDoubleSign     = 10.0
)

// Params configures the decay curve and consensus-eligibility floor.
type Params struct {
	HalfLife        time.Duration
	MinForConsensus float64
}

// DefaultParams returns the network's default reputation curve
// (SPEC_FULL.md §4.G: HALF_LIFE=7 days, MIN_FOR_CONSENSUS=2.0).
func DefaultParams() Params {
	return Params{
		HalfLife:        7 * 24 * time.Hour,
		MinForConsensus: 2.0,
	}
}

type peerState struct {
	score    float64
	lastSeen time.Time
}

// Ledger tracks reputation scores for all known peers.
type Ledger struct {
	mu     sync.RWMutex
	params Params
	peers  map[string]*peerState
}

// NewLedger creates an empty reputation ledger.
func NewLedger(params Params) *Ledger {
	return &Ledger{
		params: params,
		peers:  make(map[string]*peerState),
	}
}

// decayed applies the half-life decay to a score given elapsed time,
// per SPEC_FULL.md §4.G: score *= 0.5^(delta_t / half_life).
func (l *Ledger) decayed(score float64, elapsed time.Duration) float64 {
	if elapsed <= 0 || l.params.HalfLife <= 0 {
		return score
	}
	factor := math.Pow(0.5, elapsed.Seconds()/l.params.HalfLife.Seconds())
	return score * factor
}

// Score returns a peer's reputation decayed to now, without recording an
// event. Unseen peers start at 0.
func (l *Ledger) Score(peerID string, now time.Time) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st, ok := l.peers[peerID]
	if !ok {
		return 0
	}
	return l.decayed(st.score, now.Sub(st.lastSeen))
}

// apply decays the peer's score to now, then adds delta (reward positive,
// penalty negative), flooring at zero. Reputation never goes negative and
// never increases while decaying (SPEC_FULL.md §3 invariant).
func (l *Ledger) apply(peerID string, delta float64, now time.Time) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.peers[peerID]
	if !ok {
		st = &peerState{lastSeen: now}
		l.peers[peerID] = st
	}
	decayed := l.decayed(st.score, now.Sub(st.lastSeen))
	next := decayed + delta
	if next < 0 {
		next = 0
	}
	st.score = next
	st.lastSeen = now
	return next
}

// RecordOptimaeAccepted rewards an optimizer whose optimae cleared quorum.
func (l *Ledger) RecordOptimaeAccepted(peerID string, now time.Time) float64 {
	return l.apply(peerID, RewardOptimaeAccepted, now)
}

// RecordOptimaeRejected penalizes an optimizer whose optimae failed quorum.
func (l *Ledger) RecordOptimaeRejected(peerID string, now time.Time) float64 {
	return l.apply(peerID, -PenaltyOptimaeRejected, now)
}

// RecordEvalCompleted rewards an evaluator for completing its assigned
// verification, regardless of which way it voted.
func (l *Ledger) RecordEvalCompleted(peerID string, now time.Time) float64 {
	return l.apply(peerID, RewardEvalCompleted, now)
}

// RecordEvalAgreed gives an additional small reward to an evaluator whose
// vote agreed with the quorum's median.
func (l *Ledger) RecordEvalAgreed(peerID string, now time.Time) float64 {
	return l.apply(peerID, RewardEvalAgreed, now)
}

// RecordEvalDivergent penalizes an evaluator whose vote diverged from the
// quorum's median beyond tolerance.
func (l *Ledger) RecordEvalDivergent(peerID string, now time.Time) float64 {
	return l.apply(peerID, -PenaltyEvalDivergent, now)
}

// RecordDoubleSign penalizes a peer caught signing two conflicting
// messages for the same round.
func (l *Ledger) RecordDoubleSign(peerID string, now time.Time) float64 {
	return l.apply(peerID, -PenaltyDoubleSign, now)
}

// Factor returns the reputation_factor used to scale a peer's effective
// performance increment toward the PoO accumulator (SPEC_FULL.md §4.G):
// min(1, log(1+rep)/log(1+10)), or 0 if rep <= 0.
func (l *Ledger) Factor(peerID string, now time.Time) float64 {
	rep := l.Score(peerID, now)
	if rep <= 0 {
		return 0
	}
	f := math.Log(1+rep) / math.Log(11)
	if f > 1 {
		return 1
	}
	return f
}

// EligibleForConsensus reports whether a peer's current reputation meets
// the network's minimum floor for consensus participation.
func (l *Ledger) EligibleForConsensus(peerID string, now time.Time) bool {
	return l.Score(peerID, now) >= l.params.MinForConsensus
}

// EventKind identifies which Record* method an Event replays.
type EventKind string

const (
	EventOptimaeAccepted EventKind = "optimae_accepted"
	EventOptimaeRejected EventKind = "optimae_rejected"
	EventEvalCompleted   EventKind = "eval_completed"
	EventEvalAgreed      EventKind = "eval_agreed"
	EventEvalDivergent   EventKind = "eval_divergent"
	EventDoubleSign      EventKind = "double_sign"
)

// Event is one reputation-affecting occurrence, as replayed from chain
// history to rebuild the ledger deterministically.
type Event struct {
	PeerID string
	Kind   EventKind
	At     time.Time
}

// Rebuild resets the ledger and replays events in order, reproducing the
// exact state any node would reach independently from the same chain
// history (SPEC_FULL.md §4.G rebuildability invariant).
func (l *Ledger) Rebuild(events []Event) {
	l.mu.Lock()
	l.peers = make(map[string]*peerState)
	l.mu.Unlock()

	for _, e := range events {
		switch e.Kind {
		case EventOptimaeAccepted:
			l.RecordOptimaeAccepted(e.PeerID, e.At)
		case EventOptimaeRejected:
			l.RecordOptimaeRejected(e.PeerID, e.At)
		case EventEvalCompleted:
			l.RecordEvalCompleted(e.PeerID, e.At)
		case EventEvalAgreed:
			l.RecordEvalAgreed(e.PeerID, e.At)
		case EventEvalDivergent:
			l.RecordEvalDivergent(e.PeerID, e.At)
		case EventDoubleSign:
			l.RecordDoubleSign(e.PeerID, e.At)
		}
	}
}

// Snapshot returns a copy of all known peers' current (undecayed-since-
// last-event) scores, keyed by peer ID.
func (l *Ledger) Snapshot() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]float64, len(l.peers))
	for k, v := range l.peers {
		out[k] = v.score
	}
	return out
}
