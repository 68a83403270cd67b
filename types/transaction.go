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

package types

import (
	"fmt"

	"github.com/harveybc/doin-core/common"
	"github.com/harveybc/doin-core/crypto"
)

// TxType enumerates the on-chain transaction kinds (SPEC_FULL.md §6).
type TxType string

const (
	TxOptimaeAnnounced TxType = "optimae_announced"
	TxOptimaeAccepted  TxType = "optimae_accepted"
	TxOptimaeRejected  TxType = "optimae_rejected"
	TxTaskCreated      TxType = "task_created"
	TxTaskClaimed      TxType = "task_claimed"
	TxTaskCompleted    TxType = "task_completed"
	TxTaskFailed       TxType = "task_failed"
	TxEvaluationServed TxType = "evaluation_served"
	TxDomainRegistered TxType = "domain_registered"
	TxDomainUpdated    TxType = "domain_updated"
	TxCoinbase         TxType = "coinbase"
	TxTransfer         TxType = "transfer"
)

// Transaction is a single on-chain event.
type Transaction struct {
	ID        string                 `json:"id"`
	Type      TxType                 `json:"tx_type"`
	DomainID  string                 `json:"domain_id,omitempty"`
	PeerID    string                 `json:"peer_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
	Fee       float64                `json:"fee,omitempty"`
}

// ComputeID derives the transaction ID: H(tx_type, domain_id, peer_id,
// payload, timestamp), per SPEC_FULL.md §3.
func (tx *Transaction) ComputeID() (common.Hash, error) {
	canon, err := common.CanonicalJSON(tx.Payload)
	if err != nil {
		return "", fmt.Errorf("transaction id: canonicalize payload: %w", err)
	}
	return crypto.Sum256Hex(
		string(tx.Type), tx.DomainID, tx.PeerID, string(canon), fmt.Sprint(tx.Timestamp),
	), nil
}

// Task tracks an evaluation or inference task independent of the optimae
// lifecycle itself (recovered from original_source/models/task.py, see
// SPEC_FULL.md §11.3).
type Task struct {
	ID          string  `json:"id"`
	DomainID    string  `json:"domain_id"`
	OptimaeID   string  `json:"optimae_id,omitempty"`
	AssigneeID  string  `json:"assignee_id,omitempty"`
	State       TaskState `json:"state"`
	Result      interface{} `json:"result,omitempty"`
	FailReason  string  `json:"fail_reason,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	ClaimedAt   int64   `json:"claimed_at,omitempty"`
	CompletedAt int64   `json:"completed_at,omitempty"`
}

// TaskState is the task's position in its own small state machine.
type TaskState string

const (
	TaskCreated   TaskState = "created"
	TaskClaimed   TaskState = "claimed"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Claim transitions a created task to claimed by assignee, returning an
// error if the task is not in the created state.
func (t *Task) Claim(assigneeID string, now int64) error {
	if t.State != TaskCreated {
		return fmt.Errorf("task %s: cannot claim from state %s", t.ID, t.State)
	}
	t.State = TaskClaimed
	t.AssigneeID = assigneeID
	t.ClaimedAt = now
	return nil
}

// Complete transitions a claimed task to completed with its result.
func (t *Task) Complete(result interface{}, now int64) error {
	if t.State != TaskClaimed {
		return fmt.Errorf("task %s: cannot complete from state %s", t.ID, t.State)
	}
	t.State = TaskCompleted
	t.Result = result
	t.CompletedAt = now
	return nil
}

// Fail transitions a created or claimed task to failed, e.g. on plugin deadline
// exceeded (SPEC_FULL.md §5).
func (t *Task) Fail(reason string, now int64) error {
	if t.State != TaskClaimed && t.State != TaskCreated {
		return fmt.Errorf("task %s: cannot fail from state %s", t.ID, t.State)
	}
	t.State = TaskFailed
	t.FailReason = reason
	t.CompletedAt = now
	return nil
}
