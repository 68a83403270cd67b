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

// Package feemarket implements the EIP-1559-style base fee controller, a
// fee-priority mempool, per-peer rate limiting, and optimae staking/burn
// (SPEC_FULL.md §4.N).
package feemarket

import (
	"container/heap"
	"sync"
	"time"

	"github.com/harveybc/doin-core/common"
)

// Params configures the fee market's behavior.
type Params struct {
	MinBaseFee            float64
	MaxBaseFee            float64
	TargetBlockSize       int
	BaseFeeChangeDenom    float64
	OptimaeStakeMultiplier float64
	OptimaeBurnFraction   float64
	MaxMempoolSize        int
	MaxBlockSize          int
}

// DefaultParams returns the network's default fee market configuration.
func DefaultParams() Params {
	return Params{
		MinBaseFee:             1e-6,
		MaxBaseFee:             1.0,
		TargetBlockSize:        1000,
		BaseFeeChangeDenom:     8,
		OptimaeStakeMultiplier: 10,
		OptimaeBurnFraction:    0.2,
		MaxMempoolSize:         10_000,
		MaxBlockSize:           2000,
	}
}

// Controller owns the base fee, mempool, rate limiter, and staking ledger.
type Controller struct {
	mu           sync.Mutex
	params       Params
	baseFee      float64
	mempool      *priorityQueue
	limiters     map[string]*slidingWindow
	stakes       map[string]float64
	totalBurned  float64
}

// NewController creates a Controller with the base fee seeded at
// Params.MinBaseFee.
func NewController(p Params) *Controller {
	pq := &priorityQueue{}
	heap.Init(pq)
	return &Controller{
		params:   p,
		baseFee:  p.MinBaseFee,
		mempool:  pq,
		limiters: make(map[string]*slidingWindow),
		stakes:   make(map[string]float64),
	}
}

// BaseFee returns the current base fee.
func (c *Controller) BaseFee() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseFee
}

// AdjustBaseFee retargets the base fee after a block with blockTxCount
// transactions, per the symmetric EIP-1559-style rule, clamped to
// [MinBaseFee, MaxBaseFee].
func (c *Controller) AdjustBaseFee(blockTxCount int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := float64(blockTxCount)
	t := float64(c.params.TargetBlockSize)
	if n > t {
		delta := c.baseFee*(n-t)/(t*c.params.BaseFeeChangeDenom) + 1e-8
		c.baseFee += delta
	} else if n < t {
		delta := c.baseFee*(t-n)/(t*c.params.BaseFeeChangeDenom) + 1e-8
		c.baseFee -= delta
	}
	if c.baseFee < c.params.MinBaseFee {
		c.baseFee = c.params.MinBaseFee
	}
	if c.baseFee > c.params.MaxBaseFee {
		c.baseFee = c.params.MaxBaseFee
	}
	return c.baseFee
}

// ValidateFee rejects a fee below the base fee (or below
// base_fee*OptimaeStakeMultiplier for optimae submissions).
func (c *Controller) ValidateFee(fee float64, isOptimaeTx bool) error {
	c.mu.Lock()
	min := c.baseFee
	if isOptimaeTx {
		min *= c.params.OptimaeStakeMultiplier
	}
	c.mu.Unlock()

	if fee < min {
		return common.New(common.KindInvalidFee, "fee %g below required minimum %g", fee, min)
	}
	return nil
}

// PendingTx is a mempool entry.
type PendingTx struct {
	TxID     string
	PeerID   string
	Fee      float64
	IsOptimae bool
	seq      int64 // insertion order, for FIFO tiebreak
}

// slidingWindow enforces a rolling 60s cap on a peer's submitted tx and
// optimae counts.
type slidingWindow struct {
	txTimes      []time.Time
	optimaeTimes []time.Time
}

const (
	rateWindow        = 60 * time.Second
	maxTxPerWindow      = 20
	maxOptimaePerWindow = 5
)

func prune(times []time.Time, now time.Time) []time.Time {
	cut := 0
	for cut < len(times) && now.Sub(times[cut]) > rateWindow {
		cut++
	}
	return times[cut:]
}

// CheckRateLimit enforces the per-peer sliding-window caps, recording the
// attempt if it is allowed.
func (c *Controller) CheckRateLimit(peerID string, isOptimaeTx bool, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.limiters[peerID]
	if !ok {
		w = &slidingWindow{}
		c.limiters[peerID] = w
	}
	w.txTimes = prune(w.txTimes, now)
	w.optimaeTimes = prune(w.optimaeTimes, now)

	if isOptimaeTx {
		if len(w.optimaeTimes) >= maxOptimaePerWindow {
			return common.New(common.KindRateLimited, "peer %s exceeded %d optimae submissions per %s", peerID, maxOptimaePerWindow, rateWindow)
		}
		w.optimaeTimes = append(w.optimaeTimes, now)
		return nil
	}
	if len(w.txTimes) >= maxTxPerWindow {
		return common.New(common.KindRateLimited, "peer %s exceeded %d transactions per %s", peerID, maxTxPerWindow, rateWindow)
	}
	w.txTimes = append(w.txTimes, now)
	return nil
}

var seqCounter int64

// Submit admits a transaction into the mempool, evicting the lowest-fee
// entry on overflow. If the mempool is full and the new tx's fee is not
// strictly higher than the entry it would evict, the submission is
// rejected.
func (c *Controller) Submit(tx PendingTx) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seqCounter++
	tx.seq = seqCounter

	if c.mempool.Len() >= c.params.MaxMempoolSize {
		lowest := (*c.mempool)[0]
		if tx.Fee <= lowest.Fee {
			return common.New(common.KindMempoolFull, "mempool full: fee %g does not exceed lowest pending fee %g", tx.Fee, lowest.Fee)
		}
		heap.Pop(c.mempool)
	}
	heap.Push(c.mempool, tx)
	return nil
}

// GetBlockTransactions returns up to limit highest-fee transactions
// (capped additionally by Params.MaxBlockSize), highest fee first with
// FIFO tiebreak, removing them from the mempool.
func (c *Controller) GetBlockTransactions(limit int) []PendingTx {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit > c.params.MaxBlockSize {
		limit = c.params.MaxBlockSize
	}

	ordered := append([]PendingTx(nil), (*c.mempool)...)
	sortByPriority(ordered)

	if limit > len(ordered) {
		limit = len(ordered)
	}
	selected := ordered[:limit]

	selectedIDs := make(map[string]bool, len(selected))
	for _, tx := range selected {
		selectedIDs[tx.TxID] = true
	}
	remaining := &priorityQueue{}
	heap.Init(remaining)
	for _, tx := range *c.mempool {
		if !selectedIDs[tx.TxID] {
			heap.Push(remaining, tx)
		}
	}
	c.mempool = remaining

	return selected
}

// MempoolLen returns the number of pending transactions.
func (c *Controller) MempoolLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mempool.Len()
}

// Stake records an optimae submission's stake, computed as
// base_fee * OptimaeStakeMultiplier.
func (c *Controller) Stake(optimaeID string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	amount := c.baseFee * c.params.OptimaeStakeMultiplier
	c.stakes[optimaeID] = amount
	return amount
}

// ResolveStake settles a staked optimae: accepted returns the full stake
// for refund, rejected burns OptimaeBurnFraction of it (added to
// TotalBurned) and returns the remainder for refund.
func (c *Controller) ResolveStake(optimaeID string, accepted bool) (refund float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	amount, ok := c.stakes[optimaeID]
	if !ok {
		return 0
	}
	delete(c.stakes, optimaeID)

	if accepted {
		return amount
	}
	burn := amount * c.params.OptimaeBurnFraction
	c.totalBurned += burn
	return amount - burn
}

// TotalBurned returns the cumulative amount burned from rejected optimae
// stakes.
func (c *Controller) TotalBurned() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBurned
}

func sortByPriority(txs []PendingTx) {
	// insertion sort is fine at mempool-page sizes and keeps the
	// fee-desc, seq-asc ordering stable and obvious
	for i := 1; i < len(txs); i++ {
		j := i
		for j > 0 && less(txs[i], txs[j-1]) {
			j--
		}
		if j != i {
			tmp := txs[i]
			copy(txs[j+1:i+1], txs[j:i])
			txs[j] = tmp
		}
	}
}

func less(a, b PendingTx) bool {
	if a.Fee != b.Fee {
		return a.Fee > b.Fee
	}
	return a.seq < b.seq
}

// priorityQueue is a container/heap min-heap on fee (on equal fees the
// latest sequence sits lowest, so it is evicted first), used so eviction
// on mempool overflow is O(log n).
type priorityQueue []PendingTx

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].Fee != pq[j].Fee {
		return pq[i].Fee < pq[j].Fee
	}
	return pq[i].seq > pq[j].seq
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(PendingTx))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
