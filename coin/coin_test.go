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

package coin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockRewardHalves(t *testing.T) {
	require.Equal(t, InitialBlockReward, BlockReward(0))
	require.Equal(t, InitialBlockReward/2, BlockReward(HalvingInterval))
	require.Equal(t, InitialBlockReward/4, BlockReward(2*HalvingInterval))
}

func TestBlockRewardZeroAfterManyHalvings(t *testing.T) {
	require.Zero(t, BlockReward(64*HalvingInterval))
}

func TestTotalSupplyAtCapsAtMaxSupply(t *testing.T) {
	require.LessOrEqual(t, TotalSupplyAt(100*HalvingInterval), float64(MaxSupply))
}

func TestDistributeSplitsAcrossRoles(t *testing.T) {
	contributors := []Contributor{
		{PeerID: "opt-1", Role: RoleOptimizer, EffectiveIncrement: 1.0, RewardFraction: 1.0},
		{PeerID: "opt-2", Role: RoleOptimizer, EffectiveIncrement: 1.0, RewardFraction: 1.0},
		{PeerID: "eval-1", Role: RoleEvaluator, EvaluationsCompleted: 2, AgreedWithQuorum: true},
		{PeerID: "eval-2", Role: RoleEvaluator, EvaluationsCompleted: 0, AgreedWithQuorum: false},
	}

	outputs := Distribute("gen-1", contributors, 0.5, 50)

	total := 0.0
	byPeer := map[string]float64{}
	for _, o := range outputs {
		total += o.Amount
		byPeer[o.PeerID] = o.Amount
	}

	require.InDelta(t, 50+0.5, total, 1e-9)
	require.InDelta(t, 50*GeneratorFeeFraction+0.5, byPeer["gen-1"], 1e-9)
	require.InDelta(t, 50*OptimizerPoolFraction/2, byPeer["opt-1"], 1e-9)
	require.InDelta(t, 50*OptimizerPoolFraction/2, byPeer["opt-2"], 1e-9)
	require.InDelta(t, 50*EvaluatorPoolFraction, byPeer["eval-1"], 1e-9)
	require.NotContains(t, byPeer, "eval-2")
}

func TestDistributeWithNoOptimizersReturnsPoolToGenerator(t *testing.T) {
	outputs := Distribute("gen-1", nil, 0, 50)
	require.Len(t, outputs, 1)
	require.Equal(t, "gen-1", outputs[0].PeerID)
	require.InDelta(t, 50.0, outputs[0].Amount, 1e-9)
}

func TestApplyTransferValidatesNonceAndBalance(t *testing.T) {
	l := NewLedger()
	l.ApplyCoinbase([]Output{{PeerID: "alice", Amount: 100}}, 50)

	require.NoError(t, l.ApplyTransfer("alice", "bob", 10, 1, 1))
	require.InDelta(t, 89, l.Balance("alice"), 1e-9)
	require.InDelta(t, 10, l.Balance("bob"), 1e-9)
	require.EqualValues(t, 1, l.LastNonce("alice"))

	require.Error(t, l.ApplyTransfer("alice", "bob", 10, 1, 1))  // stale nonce
	require.Error(t, l.ApplyTransfer("alice", "bob", 1000, 0, 2)) // insufficient balance
	require.Error(t, l.ApplyTransfer("alice", "bob", 0, 0, 2))    // non-positive amount
}
