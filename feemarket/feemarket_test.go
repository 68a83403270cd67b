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

package feemarket

import (
	"testing"
	"time"
)

func TestAdjustBaseFeeRisesAboveTargetAndFallsBelow(t *testing.T) {
	c := NewController(DefaultParams())
	start := c.BaseFee()

	risen := c.AdjustBaseFee(c.params.TargetBlockSize * 2)
	if risen <= start {
		t.Fatalf("expected base fee to rise above target usage, got %v from %v", risen, start)
	}

	fallen := c.AdjustBaseFee(0)
	if fallen >= risen {
		t.Fatalf("expected base fee to fall below target usage, got %v from %v", fallen, risen)
	}
}

func TestValidateFeeRequiresHigherMinimumForOptimaeTx(t *testing.T) {
	c := NewController(DefaultParams())
	base := c.BaseFee()

	if err := c.ValidateFee(base, false); err != nil {
		t.Fatalf("base fee should be accepted for ordinary tx: %v", err)
	}
	if err := c.ValidateFee(base, true); err == nil {
		t.Fatalf("base fee alone should be rejected for optimae tx")
	}
	if err := c.ValidateFee(base*c.params.OptimaeStakeMultiplier, true); err != nil {
		t.Fatalf("stake-multiplied fee should be accepted for optimae tx: %v", err)
	}
}

func TestRateLimitEnforcesWindow(t *testing.T) {
	c := NewController(DefaultParams())
	now := time.Now()

	for i := 0; i < maxOptimaePerWindow; i++ {
		if err := c.CheckRateLimit("peer-1", true, now); err != nil {
			t.Fatalf("unexpected rate limit at attempt %d: %v", i, err)
		}
	}
	if err := c.CheckRateLimit("peer-1", true, now); err == nil {
		t.Fatalf("expected rate limit to trigger after %d optimae submissions", maxOptimaePerWindow)
	}
	if err := c.CheckRateLimit("peer-1", true, now.Add(rateWindow+time.Second)); err != nil {
		t.Fatalf("expected window to reset: %v", err)
	}
}

func TestMempoolEvictsLowestFeeOnOverflow(t *testing.T) {
	p := DefaultParams()
	p.MaxMempoolSize = 2
	c := NewController(p)

	c.Submit(PendingTx{TxID: "a", Fee: 1})
	c.Submit(PendingTx{TxID: "b", Fee: 2})

	if err := c.Submit(PendingTx{TxID: "c", Fee: 1}); err == nil {
		t.Fatalf("expected rejection for fee not strictly above the lowest pending fee")
	}
	if err := c.Submit(PendingTx{TxID: "d", Fee: 3}); err != nil {
		t.Fatalf("expected higher-fee tx to evict the lowest: %v", err)
	}
	if c.MempoolLen() != 2 {
		t.Fatalf("expected mempool size to stay at cap 2, got %d", c.MempoolLen())
	}
}

func TestGetBlockTransactionsOrdersByFeeThenFIFO(t *testing.T) {
	c := NewController(DefaultParams())
	c.Submit(PendingTx{TxID: "low", Fee: 1})
	c.Submit(PendingTx{TxID: "high", Fee: 5})
	c.Submit(PendingTx{TxID: "mid", Fee: 3})

	txs := c.GetBlockTransactions(10)
	if len(txs) != 3 {
		t.Fatalf("expected 3 txs, got %d", len(txs))
	}
	if txs[0].TxID != "high" || txs[1].TxID != "mid" || txs[2].TxID != "low" {
		t.Fatalf("expected fee-descending order, got %v %v %v", txs[0].TxID, txs[1].TxID, txs[2].TxID)
	}
}

func TestResolveStakeBurnsFractionOnRejection(t *testing.T) {
	c := NewController(DefaultParams())
	amount := c.Stake("optimae-1")

	refund := c.ResolveStake("optimae-1", false)
	expectedBurn := amount * c.params.OptimaeBurnFraction
	if refund != amount-expectedBurn {
		t.Fatalf("expected refund %v, got %v", amount-expectedBurn, refund)
	}
	if c.TotalBurned() != expectedBurn {
		t.Fatalf("expected total burned %v, got %v", expectedBurn, c.TotalBurned())
	}
}
