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

// Package channels implements off-chain payment channels with cooperative
// close and nonce-superseded dispute resolution (SPEC_FULL.md §4.O).
package channels

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harveybc/doin-core/common"
)

// State is a channel's position in its lifecycle.
type State string

const (
	StateOpening  State = "opening"
	StateOpen     State = "open"
	StateClosing  State = "closing"
	StateDisputed State = "disputed"
	StateClosed   State = "closed"
)

// Params bounds channel parameters network-wide.
type Params struct {
	MinDeposit            float64
	MaxDeposit            float64
	DefaultExpiry         time.Duration
	DisputePeriod         time.Duration
	MaxChannelsPerPeer    int
	SettlementFeeFraction float64
}

// DefaultParams returns the network's default channel configuration.
func DefaultParams() Params {
	return Params{
		MinDeposit:            1.0,
		MaxDeposit:             1000.0,
		DefaultExpiry:          30 * 24 * time.Hour,
		DisputePeriod:          24 * time.Hour,
		MaxChannelsPerPeer:     16,
		SettlementFeeFraction:  0.001,
	}
}

// Channel is one sender/receiver payment channel.
type Channel struct {
	ID             string
	Sender         string
	Receiver       string
	Deposit        float64
	SenderBalance  float64
	ReceiverBalance float64
	Nonce          int64
	State          State
	ExpiresAt      time.Time
	DisputedUntil  time.Time
	pendingUpdate  *PaymentUpdate
}

// PaymentUpdate is a signed off-chain state a participant may submit in a
// dispute.
type PaymentUpdate struct {
	ChannelID       string
	Nonce           int64
	SenderBalance   float64
	ReceiverBalance float64
}

// Manager owns all open and historical channels.
type Manager struct {
	mu           sync.Mutex
	params       Params
	channels     map[string]*Channel
	totalLocked  float64
	feesCollected float64
}

// NewManager creates an empty channel manager.
func NewManager(p Params) *Manager {
	return &Manager{params: p, channels: make(map[string]*Channel)}
}

// Open creates a new channel, validating deposit bounds, participant
// distinctness, and the per-peer channel cap.
func (m *Manager) Open(sender, receiver string, deposit float64, now time.Time) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sender == receiver {
		return nil, common.New(common.KindInvalidFee, "channel participants must be distinct")
	}
	if deposit < m.params.MinDeposit || deposit > m.params.MaxDeposit {
		return nil, common.New(common.KindInvalidFee, "deposit %g outside [%g, %g]", deposit, m.params.MinDeposit, m.params.MaxDeposit)
	}
	if m.peerChannelCountLocked(sender) >= m.params.MaxChannelsPerPeer {
		return nil, common.New(common.KindInvalidFee, "peer %s at max channel count %d", sender, m.params.MaxChannelsPerPeer)
	}
	if m.peerChannelCountLocked(receiver) >= m.params.MaxChannelsPerPeer {
		return nil, common.New(common.KindInvalidFee, "peer %s at max channel count %d", receiver, m.params.MaxChannelsPerPeer)
	}

	c := &Channel{
		ID:            uuid.NewString(),
		Sender:        sender,
		Receiver:      receiver,
		Deposit:       deposit,
		SenderBalance: deposit,
		State:         StateOpen,
		ExpiresAt:     now.Add(m.params.DefaultExpiry),
	}
	m.channels[c.ID] = c
	m.totalLocked += deposit
	return c, nil
}

// peerChannelCountLocked counts non-closed channels where peerID is either
// participant (SPEC_FULL.md §11.6). Caller must hold m.mu.
func (m *Manager) peerChannelCountLocked(peerID string) int {
	count := 0
	for _, c := range m.channels {
		if c.State == StateClosed {
			continue
		}
		if c.Sender == peerID || c.Receiver == peerID {
			count++
		}
	}
	return count
}

// Pay applies a sender-initiated payment: debits sender, credits receiver,
// increments the nonce. Only the sender may pay; the channel must be open
// and not expired.
func (m *Manager) Pay(channelID, callerID string, amount float64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[channelID]
	if !ok {
		return common.New(common.KindChannelNotFound, "channel %s not found", channelID)
	}
	if c.State != StateOpen {
		return common.New(common.KindChannelNotActive, "channel %s is %s, not open", channelID, c.State)
	}
	if callerID != c.Sender {
		return common.New(common.KindChannelNotActive, "only the sender may pay on channel %s", channelID)
	}
	if now.After(c.ExpiresAt) {
		return common.New(common.KindChannelNotActive, "channel %s expired at %s", channelID, c.ExpiresAt)
	}
	if amount <= 0 || amount > c.SenderBalance {
		return common.New(common.KindInsufficientBalance, "payment amount %g invalid for sender balance %g", amount, c.SenderBalance)
	}

	c.SenderBalance -= amount
	c.ReceiverBalance += amount
	c.Nonce++
	return nil
}

// CooperativeClose settles and closes a channel at its current balances.
// The receiver pays a settlement fee fraction; the sender's remaining
// balance is refunded whole.
func (m *Manager) CooperativeClose(channelID string, now time.Time) (receiverPayout, senderRefund, fee float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[channelID]
	if !ok {
		return 0, 0, 0, common.New(common.KindChannelNotFound, "channel %s not found", channelID)
	}
	if c.State != StateOpen {
		return 0, 0, 0, common.New(common.KindChannelNotActive, "channel %s is %s, not open", channelID, c.State)
	}

	fee = c.ReceiverBalance * m.params.SettlementFeeFraction
	receiverPayout = c.ReceiverBalance - fee
	senderRefund = c.SenderBalance

	c.State = StateClosed
	m.totalLocked -= c.Deposit
	m.feesCollected += fee
	return receiverPayout, senderRefund, fee, nil
}

// Dispute submits a challenge state with a strictly greater nonce than the
// channel's last observed update, entering (or extending) the dispute
// window. A later dispute with a still-higher nonce supersedes an earlier
// one; a lower-or-equal-nonce dispute is rejected.
func (m *Manager) Dispute(u PaymentUpdate, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[u.ChannelID]
	if !ok {
		return common.New(common.KindChannelNotFound, "channel %s not found", u.ChannelID)
	}
	if c.State != StateOpen && c.State != StateDisputed {
		return common.New(common.KindChannelNotActive, "channel %s is %s, cannot dispute", u.ChannelID, c.State)
	}
	if u.SenderBalance+u.ReceiverBalance != c.Deposit {
		return common.New(common.KindDisputeTotalsMismatch, "disputed balances %g + %g do not sum to deposit %g", u.SenderBalance, u.ReceiverBalance, c.Deposit)
	}
	if c.pendingUpdate != nil && u.Nonce <= c.pendingUpdate.Nonce {
		return common.New(common.KindDisputeNonceNotNewer, "dispute nonce %d does not exceed current disputed nonce %d", u.Nonce, c.pendingUpdate.Nonce)
	}
	if c.pendingUpdate == nil && u.Nonce <= c.Nonce {
		return common.New(common.KindDisputeNonceNotNewer, "dispute nonce %d does not exceed channel nonce %d", u.Nonce, c.Nonce)
	}

	update := u
	c.pendingUpdate = &update
	c.State = StateDisputed
	c.DisputedUntil = now.Add(m.params.DisputePeriod)
	return nil
}

// Resolve settles a disputed channel using its currently pending update,
// once the dispute window has elapsed. Like CooperativeClose, settlement
// takes a fee out of the disputed receiver balance (SPEC_FULL.md §4.O,
// spec.md §8 scenario 6): fee = disputed_receiver_balance *
// SettlementFeeFraction, receiverPayout = disputed_receiver_balance - fee,
// senderRefund = disputed_sender_balance.
func (m *Manager) Resolve(channelID string, now time.Time) (receiverPayout, senderRefund, fee float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[channelID]
	if !ok {
		return 0, 0, 0, common.New(common.KindChannelNotFound, "channel %s not found", channelID)
	}
	if c.State != StateDisputed {
		return 0, 0, 0, common.New(common.KindChannelNotActive, "channel %s is %s, not disputed", channelID, c.State)
	}
	if now.Before(c.DisputedUntil) {
		return 0, 0, 0, common.New(common.KindChannelNotActive, "dispute period for channel %s has not elapsed", channelID)
	}

	c.SenderBalance = c.pendingUpdate.SenderBalance
	c.ReceiverBalance = c.pendingUpdate.ReceiverBalance
	c.Nonce = c.pendingUpdate.Nonce
	c.pendingUpdate = nil

	fee = c.ReceiverBalance * m.params.SettlementFeeFraction
	receiverPayout = c.ReceiverBalance - fee
	senderRefund = c.SenderBalance

	c.State = StateClosed
	m.totalLocked -= c.Deposit
	m.feesCollected += fee
	return receiverPayout, senderRefund, fee, nil
}

// Get returns a copy of a channel's current state.
func (m *Manager) Get(channelID string) (Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[channelID]
	if !ok {
		return Channel{}, false
	}
	return *c, true
}

// SweepExpired closes any open channel past its expiry, returning the
// closed channel IDs (SPEC_FULL.md §5 periodic sweep).
func (m *Manager) SweepExpired(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closed []string
	for id, c := range m.channels {
		if c.State == StateOpen && now.After(c.ExpiresAt) {
			c.State = StateClosed
			m.totalLocked -= c.Deposit
			closed = append(closed, id)
		}
	}
	return closed
}

// TotalLocked returns the sum of deposits in non-closed channels.
func (m *Manager) TotalLocked() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalLocked
}

// FeesCollected returns the cumulative settlement fees collected.
func (m *Manager) FeesCollected() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feesCollected
}
