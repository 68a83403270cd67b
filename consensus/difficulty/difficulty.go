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

// Package difficulty implements the two-level block-admission threshold
// controller (SPEC_FULL.md §4.I): a slow epoch-boundary retarget toward a
// target block interval, and a fast per-block exponential moving average
// that keeps bounded swings between epoch retargets.
package difficulty

import "math"

// epsilon floors the observed interval used by the EMA and epoch retarget
// so a zero or negative gap never divides by zero (SPEC_FULL.md §4.I step 1).
const epsilon = 1e-6

// Params bounds how aggressively the controller can move the threshold.
type Params struct {
	EpochLength        int64   // blocks per epoch retarget (E)
	TargetIntervalSecs float64 // desired average seconds between blocks (T_target)
	EMAAlpha           float64 // per-block smoothing factor (alpha)
	MaxBlockAdjustment float64 // per-block correction bound, +/- (spec: 0.02)
	MinEpochRatio      float64 // epoch retarget ratio floor (spec: 1/4)
	MaxEpochRatio      float64 // epoch retarget ratio ceiling (spec: 4)
	MinThreshold       float64
	MaxThreshold       float64
}

// DefaultParams returns the network's default controller configuration.
func DefaultParams() Params {
	return Params{
		EpochLength:        100,
		TargetIntervalSecs: 30,
		EMAAlpha:           0.1,
		MaxBlockAdjustment: 0.02,
		MinEpochRatio:      0.25,
		MaxEpochRatio:      4.0,
		MinThreshold:       0.01,
		MaxThreshold:       1000.0,
	}
}

// Controller holds the rolling state needed to retarget the acceptance
// threshold block by block and epoch by epoch.
type Controller struct {
	params    Params
	threshold float64
	ema       float64

	epochElapsed  float64 // accumulated block intervals (seconds) in the current epoch
	blocksInEpoch int64
}

// NewController creates a Controller seeded with an initial threshold.
func NewController(initialThreshold float64, p Params) *Controller {
	return &Controller{
		params:    p,
		threshold: initialThreshold,
		ema:       p.TargetIntervalSecs,
	}
}

// Threshold returns the current acceptance threshold.
func (c *Controller) Threshold() float64 {
	return c.threshold
}

// OnBlock applies SPEC_FULL.md §4.I's per-block control loop to the latest
// observed inter-block interval:
//
//  1. elapsed = max(epsilon, observedIntervalSecs)
//  2. EMA_bt = alpha*elapsed + (1-alpha)*EMA_bt
//  3. correction = clamp(T_target/EMA_bt - 1, +/-MaxBlockAdjustment); T *= (1+correction)
//  4. blocks_in_epoch += 1; once it reaches EpochLength, retarget the epoch
//     using the epoch's actual accumulated elapsed time and reset the
//     epoch counters.
//  5. clamp T to [MinThreshold, MaxThreshold]
//
// The threshold falls (blocks get easier) when blocks are arriving slower
// than target, and rises when they're arriving faster than target.
func (c *Controller) OnBlock(observedIntervalSecs float64) float64 {
	elapsed := math.Max(epsilon, observedIntervalSecs)
	c.ema = c.params.EMAAlpha*elapsed + (1-c.params.EMAAlpha)*c.ema

	correction := clamp(c.params.TargetIntervalSecs/c.ema-1, -c.params.MaxBlockAdjustment, c.params.MaxBlockAdjustment)
	c.threshold *= 1 + correction

	c.epochElapsed += elapsed
	c.blocksInEpoch++
	if c.blocksInEpoch >= c.params.EpochLength {
		c.retargetEpoch()
	}

	c.threshold = clamp(c.threshold, c.params.MinThreshold, c.params.MaxThreshold)
	return c.threshold
}

// retargetEpoch applies SPEC_FULL.md §4.I step 4's epoch-boundary retarget:
// ratio = clamp(E*T_target / actual_epoch_seconds, MinEpochRatio,
// MaxEpochRatio); T *= ratio. The ratio itself is clamped (not ratio-1), so
// a 2x-too-fast epoch doubles the threshold rather than nudging it by 25%.
// Callers must hold no external lock; this only touches Controller state.
func (c *Controller) retargetEpoch() {
	expected := float64(c.params.EpochLength) * c.params.TargetIntervalSecs
	actual := math.Max(epsilon, c.epochElapsed)
	ratio := clamp(expected/actual, c.params.MinEpochRatio, c.params.MaxEpochRatio)
	c.threshold *= ratio

	c.epochElapsed = 0
	c.blocksInEpoch = 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
