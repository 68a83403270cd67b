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

// Package weights computes Verified Utility Weighting (VUW), the per-domain
// weight a domain's verified performance increment contributes to a block's
// weighted performance sum (SPEC_FULL.md §4.H).
package weights

import "github.com/harveybc/doin-core/types"

// Params configures the lookback window and the floors/caps VUW applies to
// raw demand and progress (SPEC_FULL.md §4.H).
type Params struct {
	LookbackBlocks   int64
	DemandSmoothing  float64
	ProgressCap      float64
}

// DefaultParams returns the network's default VUW window and smoothing
// (SPEC_FULL.md §4.H: lookback_blocks=100; demand_smoothing and
// progress_cap are left to the implementation — chosen here as a small
// floor that keeps an idle domain's weight from collapsing to exactly
// zero, and a cap generous enough that no single domain's progress term
// can dominate a block's weighted sum).
func DefaultParams() Params {
	return Params{
		LookbackBlocks:  100,
		DemandSmoothing: 0.01,
		ProgressCap:     5.0,
	}
}

// DomainActivity is one domain's raw activity counters over the lookback
// window, gathered by the caller from recent block bodies.
type DomainActivity struct {
	InferenceTasks  int64
	AbsIncrementSum float64
	AcceptedCount   int64
}

// DemandAndProgress computes a domain's normalized demand and progress
// signals from raw activity counters across all domains in the lookback
// window (SPEC_FULL.md §4.H steps 1-2).
func DemandAndProgress(domainID string, activity map[string]DomainActivity, p Params) (demand, progress float64) {
	var total int64
	for _, a := range activity {
		total += a.InferenceTasks
	}

	this := activity[domainID]
	if total == 0 {
		demand = 1.0 / float64(maxInt(len(activity), 1))
	} else {
		demand = float64(this.InferenceTasks) / float64(total)
	}
	if demand < p.DemandSmoothing {
		demand = p.DemandSmoothing
	}

	if this.AcceptedCount == 0 {
		progress = 0
	} else {
		progress = this.AbsIncrementSum / float64(this.AcceptedCount)
		if progress > p.ProgressCap {
			progress = p.ProgressCap
		}
	}
	return demand, progress
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Inputs are the factors VUW blends for a single domain.
type Inputs struct {
	Domain types.Domain
	// Demand is the domain's normalized share of recent inference-task
	// volume, already clamped to at least DemandSmoothing (SPEC_FULL.md
	// §4.H step 1).
	Demand float64
	// Progress is the domain's mean absolute verified increment per
	// accepted optimae over the lookback window, already capped
	// (SPEC_FULL.md §4.H step 2).
	Progress float64
}

// Compute returns the domain's effective verified-utility weight:
// base_weight * demand * (1 + progress) * verification_strength
// (SPEC_FULL.md §4.H step 3).
func Compute(in Inputs) float64 {
	return in.Domain.BaseWeight * in.Demand * (1 + in.Progress) * in.Domain.VerificationStrength()
}

// WeightedIncrement scales a verified performance increment by the
// domain's VUW, the quantity summed across a block's accepted optimae to
// produce Header.WeightedPerformanceSum.
func WeightedIncrement(performanceIncrement float64, in Inputs) float64 {
	return performanceIncrement * Compute(in)
}
