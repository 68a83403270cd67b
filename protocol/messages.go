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

// Package protocol defines the gossip wire messages exchanged between
// nodes (SPEC_FULL.md §6): every message carries a common envelope, a
// bounded TTL for flooding, and a content hash for dedup.
package protocol

import (
	"github.com/harveybc/doin-core/common"
	"github.com/harveybc/doin-core/crypto"
)

// MsgType enumerates wire message kinds.
type MsgType string

const (
	MsgOptimaeCommit       MsgType = "optimae_commit"
	MsgOptimaeReveal       MsgType = "optimae_reveal"
	MsgOptimaeAnnouncement MsgType = "optimae_announcement"
	MsgTaskCreated         MsgType = "task_created"
	MsgTaskClaimed         MsgType = "task_claimed"
	MsgTaskCompleted       MsgType = "task_completed"
	MsgBlockAnnouncement   MsgType = "block_announcement"
	MsgChainStatus         MsgType = "chain_status"
	MsgBlockRequest        MsgType = "block_request"
	MsgBlockResponse       MsgType = "block_response"
	MsgChampionRequest     MsgType = "champion_request"
	MsgChampionResponse    MsgType = "champion_response"
	MsgPeerDiscovery       MsgType = "peer_discovery"
)

// Envelope is the common header every gossip message carries.
type Envelope struct {
	MsgType   MsgType     `json:"msg_type"`
	SenderID  string      `json:"sender_id"`
	Timestamp int64       `json:"timestamp"`
	TTL       int         `json:"ttl"`
	Payload   interface{} `json:"payload"`
}

// ContentHash returns the message's dedup key: H(canonical_json(envelope)).
// Two nodes relaying the same logical message produce the same hash
// regardless of arrival order, enabling bounded-flood dedup.
func (e Envelope) ContentHash() (common.Hash, error) {
	canon, err := common.CanonicalJSON(e)
	if err != nil {
		return "", err
	}
	return crypto.Sum256Hex(string(canon)), nil
}

// Decremented returns a copy of the envelope with TTL reduced by one,
// ready to relay; the caller should drop the message instead of relaying
// once TTL reaches zero.
func (e Envelope) Decremented() Envelope {
	e.TTL--
	return e
}

// OptimaeCommitPayload is the payload of an optimae_commit message.
type OptimaeCommitPayload struct {
	CommitmentHash string `json:"commitment_hash"`
	DomainID       string `json:"domain_id"`
}

// OptimaeRevealPayload is the payload of an optimae_reveal message.
type OptimaeRevealPayload struct {
	CommitmentHash      string                 `json:"commitment_hash"`
	DomainID            string                 `json:"domain_id"`
	OptimaeID           string                 `json:"optimae_id"`
	Parameters          map[string]interface{} `json:"parameters"`
	ReportedPerformance float64                `json:"reported_performance"`
	Nonce               string                 `json:"nonce"`
}

// OptimaeAnnouncementPayload is the payload of a legacy optimae_announcement
// message, carried with no front-run protection.
type OptimaeAnnouncementPayload struct {
	DomainID                string                 `json:"domain_id"`
	OptimaeID               string                 `json:"optimae_id"`
	Parameters              map[string]interface{} `json:"parameters"`
	ReportedPerformance     float64                `json:"reported_performance"`
	PreviousBestPerformance *float64               `json:"previous_best_performance,omitempty"`
}

// TaskCreatedPayload is the payload of a task_created message.
type TaskCreatedPayload struct {
	TaskID   string `json:"task_id"`
	DomainID string `json:"domain_id"`
}

// TaskClaimedPayload is the payload of a task_claimed message.
type TaskClaimedPayload struct {
	TaskID     string `json:"task_id"`
	AssigneeID string `json:"assignee_id"`
}

// TaskCompletedPayload is the payload of a task_completed message; exactly
// one of VerifiedPerformance or Result is set depending on task kind.
type TaskCompletedPayload struct {
	TaskID              string      `json:"task_id"`
	VerifiedPerformance *float64    `json:"verified_performance,omitempty"`
	Result              interface{} `json:"result,omitempty"`
}

// BlockAnnouncementPayload is the payload of a block_announcement message.
type BlockAnnouncementPayload struct {
	BlockIndex             int64   `json:"block_index"`
	BlockHash              string  `json:"block_hash"`
	PreviousHash           string  `json:"previous_hash"`
	GeneratorID            string  `json:"generator_id"`
	TransactionCount       int     `json:"transaction_count"`
	WeightedPerformanceSum float64 `json:"weighted_performance_sum"`
	Threshold              float64 `json:"threshold"`
}

// ChainStatusPayload advertises a peer's current chain tip for sync.
type ChainStatusPayload struct {
	TipHash   string `json:"tip_hash"`
	TipHeight int64  `json:"tip_height"`
}

// BlockRequestPayload requests a range of blocks for sync.
type BlockRequestPayload struct {
	FromIndex int64 `json:"from_index"`
	ToIndex   int64 `json:"to_index"`
}

// BlockResponsePayload is a batch of serialized block hashes answering a
// block_request; actual block bodies travel out of band via the node's
// block store.
type BlockResponsePayload struct {
	BlockHashes []string `json:"block_hashes"`
}

// ChampionRequestPayload asks a peer for the current best optimae in a
// domain.
type ChampionRequestPayload struct {
	DomainID string `json:"domain_id"`
}

// ChampionResponsePayload answers a champion_request.
type ChampionResponsePayload struct {
	DomainID  string  `json:"domain_id"`
	OptimaeID string  `json:"optimae_id"`
	Score     float64 `json:"score"`
}

// PeerDiscoveryPayload announces a peer's reachable addresses, supported
// domains, and roles.
type PeerDiscoveryPayload struct {
	PeerID    string   `json:"peer_id"`
	Addresses []string `json:"addresses"`
	Domains   []string `json:"domains"`
	Roles     []string `json:"roles"`
}
