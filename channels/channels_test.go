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

package channels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenPayCooperativeClose(t *testing.T) {
	m := NewManager(DefaultParams())
	now := time.Now()

	c, err := m.Open("alice", "bob", 10, now)
	require.NoError(t, err)

	require.NoError(t, m.Pay(c.ID, "alice", 4, now))
	require.Error(t, m.Pay(c.ID, "bob", 1, now)) // only sender may pay

	payout, refund, fee, err := m.CooperativeClose(c.ID, now)
	require.NoError(t, err)
	require.InDelta(t, 4*(1-m.params.SettlementFeeFraction), payout, 1e-9)
	require.InDelta(t, 6, refund, 1e-9)
	require.InDelta(t, 4*m.params.SettlementFeeFraction, fee, 1e-9)

	closed, _ := m.Get(c.ID)
	require.Equal(t, StateClosed, closed.State)
}

func TestOpenRejectsOutOfRangeDeposit(t *testing.T) {
	m := NewManager(DefaultParams())
	_, err := m.Open("alice", "bob", m.params.MaxDeposit+1, time.Now())
	require.Error(t, err)
}

func TestDisputeRequiresStrictlyHigherNonce(t *testing.T) {
	m := NewManager(DefaultParams())
	now := time.Now()
	c, _ := m.Open("alice", "bob", 10, now)
	m.Pay(c.ID, "alice", 4, now)

	update := PaymentUpdate{ChannelID: c.ID, Nonce: 2, SenderBalance: 6, ReceiverBalance: 4}
	require.NoError(t, m.Dispute(update, now))

	stale := PaymentUpdate{ChannelID: c.ID, Nonce: 2, SenderBalance: 6, ReceiverBalance: 4}
	require.Error(t, m.Dispute(stale, now))

	superseding := PaymentUpdate{ChannelID: c.ID, Nonce: 3, SenderBalance: 3, ReceiverBalance: 7}
	require.NoError(t, m.Dispute(superseding, now))
}

func TestResolveRequiresDisputeWindowElapsed(t *testing.T) {
	m := NewManager(DefaultParams())
	now := time.Now()
	c, _ := m.Open("alice", "bob", 10, now)

	update := PaymentUpdate{ChannelID: c.ID, Nonce: 1, SenderBalance: 10, ReceiverBalance: 0}
	require.NoError(t, m.Dispute(update, now))

	_, _, _, err := m.Resolve(c.ID, now)
	require.Error(t, err)

	payout, refund, fee, err := m.Resolve(c.ID, now.Add(m.params.DisputePeriod+time.Second))
	require.NoError(t, err)
	require.InDelta(t, 0, payout, 1e-9)
	require.InDelta(t, 10, refund, 1e-9)
	require.InDelta(t, 0, fee, 1e-9)
}

// TestDisputeFlowSettlesWithFee reproduces spec.md §8 scenario 6: open
// alice->bob for 100, pay 10, then bob disputes with a higher-nonce state
// of (40, 60); a stale-nonce resubmission is rejected, and once the
// dispute window elapses Resolve settles using (40, 60) with
// fee = 60 * 0.001.
func TestDisputeFlowSettlesWithFee(t *testing.T) {
	m := NewManager(DefaultParams())
	now := time.Now()

	c, err := m.Open("alice", "bob", 100, now)
	require.NoError(t, err)
	require.NoError(t, m.Pay(c.ID, "alice", 10, now))

	open, _ := m.Get(c.ID)
	require.InDelta(t, 90, open.SenderBalance, 1e-9)
	require.InDelta(t, 10, open.ReceiverBalance, 1e-9)
	require.Equal(t, int64(1), open.Nonce)

	dispute := PaymentUpdate{ChannelID: c.ID, Nonce: 5, SenderBalance: 40, ReceiverBalance: 60}
	require.NoError(t, m.Dispute(dispute, now))

	disputed, _ := m.Get(c.ID)
	require.Equal(t, StateDisputed, disputed.State)

	stale := PaymentUpdate{ChannelID: c.ID, Nonce: 3, SenderBalance: 50, ReceiverBalance: 50}
	require.Error(t, m.Dispute(stale, now))

	_, _, _, err = m.Resolve(c.ID, now.Add(m.params.DisputePeriod-time.Second))
	require.Error(t, err)

	payout, refund, fee, err := m.Resolve(c.ID, now.Add(m.params.DisputePeriod+time.Second))
	require.NoError(t, err)
	require.InDelta(t, 60*m.params.SettlementFeeFraction, fee, 1e-9)
	require.InDelta(t, 60-fee, payout, 1e-9)
	require.InDelta(t, 40, refund, 1e-9)

	closed, _ := m.Get(c.ID)
	require.Equal(t, StateClosed, closed.State)
}

func TestPerPeerChannelCap(t *testing.T) {
	p := DefaultParams()
	p.MaxChannelsPerPeer = 1
	m := NewManager(p)
	now := time.Now()

	_, err := m.Open("alice", "bob", 5, now)
	require.NoError(t, err)

	_, err = m.Open("alice", "carol", 5, now)
	require.Error(t, err)
}
