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

package poo

import (
	"sync"
	"testing"
)

func TestAddAccumulatesSum(t *testing.T) {
	a := NewAccumulator()
	a.Add(Increment{OptimaeID: "o1", DomainID: "d1", WeightedAmount: 0.4})
	a.Add(Increment{OptimaeID: "o2", DomainID: "d1", WeightedAmount: 0.35})

	if got := a.Sum(); got != 0.75 {
		t.Fatalf("expected sum 0.75, got %v", got)
	}
	if a.Len() != 2 {
		t.Fatalf("expected 2 increments, got %d", a.Len())
	}
}

func TestReadyCrossesThreshold(t *testing.T) {
	a := NewAccumulator()
	if a.Ready(1.0) {
		t.Fatalf("empty accumulator should not be ready")
	}

	a.Add(Increment{OptimaeID: "o1", DomainID: "d1", WeightedAmount: 0.6})
	if a.Ready(1.0) {
		t.Fatalf("accumulator below threshold should not be ready")
	}

	a.Add(Increment{OptimaeID: "o2", DomainID: "d1", WeightedAmount: 0.5})
	if !a.Ready(1.0) {
		t.Fatalf("accumulator at or above threshold should be ready")
	}
}

func TestDrainResetsAccumulator(t *testing.T) {
	a := NewAccumulator()
	a.Add(Increment{OptimaeID: "o1", DomainID: "d1", WeightedAmount: 0.2})
	a.Add(Increment{OptimaeID: "o2", DomainID: "d2", WeightedAmount: 0.3})

	sum, incs := a.Drain()
	if sum != 0.5 {
		t.Fatalf("expected drained sum 0.5, got %v", sum)
	}
	if len(incs) != 2 {
		t.Fatalf("expected 2 drained increments, got %d", len(incs))
	}

	if a.Sum() != 0 || a.Len() != 0 {
		t.Fatalf("expected accumulator reset after drain, got sum=%v len=%d", a.Sum(), a.Len())
	}
}

func TestAddIsConcurrencySafe(t *testing.T) {
	a := NewAccumulator()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Add(Increment{OptimaeID: "o", DomainID: "d", WeightedAmount: 0.01})
		}()
	}
	wg.Wait()

	if a.Len() != 100 {
		t.Fatalf("expected 100 increments after concurrent adds, got %d", a.Len())
	}
	if got := a.Sum(); got < 0.99 || got > 1.01 {
		t.Fatalf("expected sum near 1.0 after concurrent adds, got %v", got)
	}
}
