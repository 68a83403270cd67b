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

// Package bounds validates a submitted optimae's reported performance and
// declared resource usage against domain- and network-wide limits
// (SPEC_FULL.md §4.D), rejecting implausible or abusive submissions before
// they ever reach a verification quorum.
package bounds

import "fmt"

// ResourceLimits caps what a single optimization or evaluation run may
// declare it used. Defaults are recovered from
// original_source/config/resource_limits.py (SPEC_FULL.md §11.4).
type ResourceLimits struct {
	MaxEpochs          int
	MaxBatchSize       int
	MaxTrainingSeconds int
	MaxMemoryMB        int
}

// DefaultResourceLimits returns the network's default resource ceilings.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxEpochs:          1000,
		MaxBatchSize:       4096,
		MaxTrainingSeconds: 3600,
		MaxMemoryMB:        16384,
	}
}

// ResourceUsage is what an optimizer or evaluator declares it consumed.
type ResourceUsage struct {
	Epochs          int
	BatchSize       int
	TrainingSeconds int
	MemoryMB        int
}

// ValidateResourceUsage rejects a declared usage that exceeds any limit.
func ValidateResourceUsage(u ResourceUsage, limits ResourceLimits) error {
	switch {
	case u.Epochs > limits.MaxEpochs:
		return fmt.Errorf("bounds: epochs %d exceeds max %d", u.Epochs, limits.MaxEpochs)
	case u.BatchSize > limits.MaxBatchSize:
		return fmt.Errorf("bounds: batch size %d exceeds max %d", u.BatchSize, limits.MaxBatchSize)
	case u.TrainingSeconds > limits.MaxTrainingSeconds:
		return fmt.Errorf("bounds: training seconds %d exceeds max %d", u.TrainingSeconds, limits.MaxTrainingSeconds)
	case u.MemoryMB > limits.MaxMemoryMB:
		return fmt.Errorf("bounds: memory %dMB exceeds max %dMB", u.MemoryMB, limits.MaxMemoryMB)
	}
	return nil
}

// PerformanceBounds caps the plausible range of a reported metric value for
// a domain, rejecting reports outside the band a domain's metric can
// actually take (SPEC_FULL.md §4.D).
type PerformanceBounds struct {
	Min float64
	Max float64
}

// ValidateReportedPerformance rejects a report outside [Min, Max] or a
// non-finite value.
func ValidateReportedPerformance(reported float64, b PerformanceBounds) error {
	if reported != reported { // NaN
		return fmt.Errorf("bounds: reported performance is NaN")
	}
	if reported < b.Min || reported > b.Max {
		return fmt.Errorf("bounds: reported performance %g outside [%g, %g]", reported, b.Min, b.Max)
	}
	return nil
}

// ValidateImprovement rejects an implausible reported improvement over the
// domain's current best, per the maxImprovementRatio bound: a single
// submission may not claim to improve the incumbent by more than this
// fraction of the incumbent's own magnitude.
func ValidateImprovement(reported, incumbentBest, maxImprovementRatio float64, higherIsBetter bool) error {
	if incumbentBest == 0 {
		return nil
	}
	delta := reported - incumbentBest
	if !higherIsBetter {
		delta = -delta
	}
	if delta <= 0 {
		return nil
	}
	limit := maxImprovementRatio * absf(incumbentBest)
	if delta > limit {
		return fmt.Errorf("bounds: improvement %g exceeds plausible limit %g over incumbent %g", delta, limit, incumbentBest)
	}
	return nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
