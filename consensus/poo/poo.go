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

// Package poo implements the Proof-of-Optimization accumulator: it holds
// accepted-but-unsealed weighted performance increments and fires a block
// trigger once their sum crosses the current acceptance threshold
// (SPEC_FULL.md §4.J), replacing hash-based proof-of-work entirely.
package poo

import "sync"

// Accumulator tracks the running weighted performance sum for the block
// currently being assembled.
type Accumulator struct {
	mu        sync.Mutex
	sum       float64
	increments []Increment
}

// Increment is one accepted optimae's contribution to the accumulator.
type Increment struct {
	OptimaeID       string
	DomainID        string
	WeightedAmount  float64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds in an accepted optimae's weighted performance increment.
func (a *Accumulator) Add(inc Increment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sum += inc.WeightedAmount
	a.increments = append(a.increments, inc)
}

// Sum returns the current accumulated weighted performance sum.
func (a *Accumulator) Sum() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sum
}

// Ready reports whether the accumulator has crossed the given threshold and
// a block may now be sealed.
func (a *Accumulator) Ready(threshold float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sum >= threshold
}

// Drain returns the accumulated increments and resets the accumulator for
// the next block, called once a block has been sealed with this batch.
func (a *Accumulator) Drain() (float64, []Increment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sum := a.sum
	incs := a.increments
	a.sum = 0
	a.increments = nil
	return sum, incs
}

// Len reports how many increments are currently accumulated.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.increments)
}
