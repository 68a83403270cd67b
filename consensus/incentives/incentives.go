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

// Package incentives maps the gap between a reported and a quorum-verified
// performance to a reward fraction phi (SPEC_FULL.md §4.E), via a piecewise
// function with a bonus band for honest under-reporting, a tolerance band
// for small measurement noise, a linear penalty band, and outright
// rejection beyond a tolerance-margin ceiling.
package incentives

import "math"

// relEpsilon is the structural epsilon below which a relative gap is
// treated as an exact match (SPEC_FULL.md §9 "1e-10 structural" epsilon).
const relEpsilon = 1e-10

// toleranceGuard widens the penalty band's upper edge so a gap that lands
// on ToleranceMargin up to float rounding is still paid, not rejected.
const toleranceGuard = 1e-9

// Bands configures the per-domain incentive curve (SPEC_FULL.md §4.E).
type Bands struct {
	HigherIsBetter bool

	// ToleranceMargin is the largest positive relative gap (reported
	// better than verified, by the domain's direction) still paid, with
	// phi falling toward MinRewardFraction, rather than rejected.
	ToleranceMargin float64

	// BonusThreshold is the relative gap magnitude, on the side where
	// reported is worse than verified, at which the full bonus
	// multiplier is reached.
	BonusThreshold float64

	// MinRewardFraction is phi at the edge of the penalty band, just
	// before rejection.
	MinRewardFraction float64

	// MaxBonusMultiplier is phi for honest or suspicious under-reporting
	// at or beyond BonusThreshold.
	MaxBonusMultiplier float64
}

// DefaultBands returns the network's default incentive curve
// (SPEC_FULL.md §4.E defaults).
func DefaultBands() Bands {
	return Bands{
		HigherIsBetter:     true,
		ToleranceMargin:    0.10,
		BonusThreshold:     0.05,
		MinRewardFraction:  0.3,
		MaxBonusMultiplier: 1.2,
	}
}

// RewardOutcome is the result of evaluating a reported/verified pair.
type RewardOutcome struct {
	Gap       float64 // rel, the signed relative gap actually used
	Phi       float64
	Rejected  bool
	RejectMsg string
}

// RewardFraction computes phi for a reported/verified performance pair,
// per the piecewise curve in SPEC_FULL.md §4.E:
//
//	gap = reported - verified, if HigherIsBetter, else verified - reported
//	rel = gap / |reported| (or gap, if |reported| < 1e-10)
//
//	rel <= -BonusThreshold        -> phi = MaxBonusMultiplier
//	-BonusThreshold < rel < 0     -> phi interpolates linearly from 1.0 to MaxBonusMultiplier
//	|rel| <= 1e-10                -> phi = 1.0
//	0 < rel <= ToleranceMargin    -> phi decays linearly from 1.0 to MinRewardFraction
//	rel > ToleranceMargin         -> rejected, phi = 0
//
// The ToleranceMargin edge is compared with a 1e-9 guard (toleranceGuard).
func RewardFraction(reported, verified float64, b Bands) RewardOutcome {
	var gap float64
	if b.HigherIsBetter {
		gap = reported - verified
	} else {
		gap = verified - reported
	}

	rel := gap
	if math.Abs(reported) >= relEpsilon {
		rel = gap / math.Abs(reported)
	}

	switch {
	case math.Abs(rel) <= relEpsilon:
		return RewardOutcome{Gap: rel, Phi: 1.0}
	case rel <= -b.BonusThreshold:
		return RewardOutcome{Gap: rel, Phi: b.MaxBonusMultiplier}
	case rel < 0:
		frac := math.Abs(rel) / b.BonusThreshold
		phi := 1.0 + frac*(b.MaxBonusMultiplier-1.0)
		return RewardOutcome{Gap: rel, Phi: phi}
	case rel <= b.ToleranceMargin+toleranceGuard:
		frac := rel / b.ToleranceMargin
		phi := 1.0 - frac*(1.0-b.MinRewardFraction)
		return RewardOutcome{Gap: rel, Phi: phi}
	default:
		return RewardOutcome{Gap: rel, Rejected: true, RejectMsg: "incentives: reported performance diverges from verified performance beyond the tolerance margin"}
	}
}
