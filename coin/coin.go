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

// Package coin implements the native coin's halving block reward, the
// role-based reward distribution across generator/optimizer/evaluator
// contributors, and nonce-based account balances (SPEC_FULL.md §4.M).
package coin

import (
	"math"
	"sort"

	"github.com/harveybc/doin-core/common"
)

const (
	InitialBlockReward    = 50.0
	HalvingInterval       = 210_000
	MaxSupply             = 21_000_000.0
	GeneratorFeeFraction  = 0.05
	OptimizerPoolFraction = 0.65
	EvaluatorPoolFraction = 0.30
	MinReward             = 1e-8
	maxHalvings           = 64
)

// BlockReward returns the block subsidy at the given height: 50 / 2^(h /
// 210000), zero once it would fall below MinReward or past 64 halvings.
func BlockReward(height int64) float64 {
	halvings := height / HalvingInterval
	if halvings >= maxHalvings {
		return 0
	}
	reward := InitialBlockReward / math.Pow(2, float64(halvings))
	if reward < MinReward {
		return 0
	}
	return reward
}

// TotalSupplyAt sums the block subsidy across every height from 0 to h
// inclusive, clamped to MaxSupply. The sum is finite because BlockReward
// floors to zero after maxHalvings.
func TotalSupplyAt(h int64) float64 {
	total := 0.0
	for epoch := int64(0); epoch <= h/HalvingInterval && epoch < maxHalvings; epoch++ {
		epochStart := epoch * HalvingInterval
		epochEnd := epochStart + HalvingInterval - 1
		if epochEnd > h {
			epochEnd = h
		}
		blocks := epochEnd - epochStart + 1
		if blocks <= 0 {
			continue
		}
		reward := InitialBlockReward / math.Pow(2, float64(epoch))
		if reward < MinReward {
			continue
		}
		total += reward * float64(blocks)
	}
	if total > MaxSupply {
		return MaxSupply
	}
	return total
}

// ContributorRole tags a block's reward contributors.
type ContributorRole string

const (
	RoleOptimizer ContributorRole = "optimizer"
	RoleEvaluator ContributorRole = "evaluator"
	RoleGenerator ContributorRole = "generator"
)

// Contributor is one participant eligible for a share of a block's reward.
type Contributor struct {
	PeerID string
	Role   ContributorRole

	// Optimizer-only: weighted by EffectiveIncrement * RewardFraction.
	EffectiveIncrement float64
	RewardFraction     float64

	// Evaluator-only: weighted by EvaluationsCompleted, zero if the
	// evaluator disagreed with the quorum's accepted decision.
	EvaluationsCompleted int
	AgreedWithQuorum     bool
}

// Output is one peer's share of a block's reward, in coin units.
type Output struct {
	PeerID string
	Amount float64
}

// Distribute splits a block's reward and fees across its contributors per
// SPEC_FULL.md §4.M: the generator takes its fee fraction plus all tx
// fees, the remaining pool splits 65/30 between optimizer and evaluator
// pools proportional to their respective weights, and any undistributed
// remainder (from rounding or an empty pool) returns to the generator.
// Outputs below MinReward are dropped.
func Distribute(generatorID string, contributors []Contributor, txFees, blockReward float64) []Output {
	generatorShare := blockReward*GeneratorFeeFraction + txFees

	// Pool fractions (0.65 / 0.30) are expressed directly against the
	// full block reward, not against the 0.95 distributable remainder.
	optimizerPoolAmt := blockReward * OptimizerPoolFraction
	evaluatorPoolAmt := blockReward * EvaluatorPoolFraction

	totalOptimizerWeight := 0.0
	totalEvaluatorWeight := 0.0
	for _, c := range contributors {
		switch c.Role {
		case RoleOptimizer:
			totalOptimizerWeight += c.EffectiveIncrement * c.RewardFraction
		case RoleEvaluator:
			if c.AgreedWithQuorum {
				totalEvaluatorWeight += float64(c.EvaluationsCompleted)
			}
		}
	}

	amounts := make(map[string]float64)
	amounts[generatorID] += generatorShare

	distributed := 0.0
	for _, c := range contributors {
		switch c.Role {
		case RoleOptimizer:
			if totalOptimizerWeight <= 0 {
				continue
			}
			w := c.EffectiveIncrement * c.RewardFraction
			share := optimizerPoolAmt * (w / totalOptimizerWeight)
			amounts[c.PeerID] += share
			distributed += share
		case RoleEvaluator:
			if totalEvaluatorWeight <= 0 || !c.AgreedWithQuorum {
				continue
			}
			share := evaluatorPoolAmt * (float64(c.EvaluationsCompleted) / totalEvaluatorWeight)
			amounts[c.PeerID] += share
			distributed += share
		}
	}

	remainder := (optimizerPoolAmt + evaluatorPoolAmt) - distributed
	if remainder > 0 {
		amounts[generatorID] += remainder
	}

	ids := make([]string, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	outputs := make([]Output, 0, len(ids))
	for _, id := range ids {
		amt := amounts[id]
		if amt < MinReward {
			continue
		}
		outputs = append(outputs, Output{PeerID: id, Amount: amt})
	}
	return outputs
}

// Account holds one peer's spendable balance and replay-protection nonce.
type Account struct {
	Balance  float64
	LastNonce int64
}

// Ledger is the nonce-based, UTXO-free balance tracker (SPEC_FULL.md §4.M).
type Ledger struct {
	accounts     map[string]*Account
	totalMinted  float64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[string]*Account)}
}

func (l *Ledger) account(peerID string) *Account {
	a, ok := l.accounts[peerID]
	if !ok {
		a = &Account{}
		l.accounts[peerID] = a
	}
	return a
}

// Balance returns a peer's current balance.
func (l *Ledger) Balance(peerID string) float64 {
	if a, ok := l.accounts[peerID]; ok {
		return a.Balance
	}
	return 0
}

// LastNonce returns the last nonce a peer successfully used.
func (l *Ledger) LastNonce(peerID string) int64 {
	if a, ok := l.accounts[peerID]; ok {
		return a.LastNonce
	}
	return 0
}

// TotalMinted returns the cumulative coinbase-minted supply.
func (l *Ledger) TotalMinted() float64 { return l.totalMinted }

// ApplyCoinbase credits every output and advances total_minted by
// blockReward.
func (l *Ledger) ApplyCoinbase(outputs []Output, blockReward float64) {
	for _, o := range outputs {
		l.account(o.PeerID).Balance += o.Amount
	}
	l.totalMinted += blockReward
}

// Credit adds amount to peerID's balance without touching total_minted or
// the sender-side nonce sequence — used for crediting already-settled
// value that didn't come from a block reward, such as a payment channel's
// cooperative-close or dispute-resolve payouts (SPEC_FULL.md §4.O).
func (l *Ledger) Credit(peerID string, amount float64) {
	l.account(peerID).Balance += amount
}

// ApplyTransfer validates and applies a nonce-protected transfer. It
// requires amount > 0, sufficient balance to cover amount+fee, and the
// next sequential nonce for the sender.
func (l *Ledger) ApplyTransfer(sender, recipient string, amount, fee float64, nonce int64) error {
	if amount <= 0 {
		return common.New(common.KindInvalidFee, "transfer amount must be positive, got %g", amount)
	}
	s := l.account(sender)
	if s.Balance < amount+fee {
		return common.New(common.KindInsufficientBalance, "insufficient balance: %g < %g (amount + fee)", s.Balance, amount+fee)
	}
	if nonce != s.LastNonce+1 {
		return common.New(common.KindBadNonce, "expected nonce %d, got %d", s.LastNonce+1, nonce)
	}

	s.Balance -= amount + fee
	s.LastNonce = nonce
	l.account(recipient).Balance += amount
	return nil
}
