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

// Package types holds doin-core's shared data model (SPEC_FULL.md §3):
// domains, optimae, commitments, transactions, blocks, and tasks.
package types

import (
	"fmt"

	"github.com/harveybc/doin-core/common"
	"github.com/harveybc/doin-core/crypto"
)

// Domain is a registered optimization problem.
type Domain struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	MetricName          string  `json:"metric_name"`
	HigherIsBetter      bool    `json:"higher_is_better"`
	BaseWeight          float64 `json:"base_weight"`
	SyntheticDataCapable bool   `json:"synthetic_data_capable"`
}

// VerificationStrength returns the domain's contribution to consensus
// strength: 1.0 if it can generate synthetic verification data, halved
// otherwise (SPEC_FULL.md §3 domain invariant).
func (d Domain) VerificationStrength() float64 {
	if d.SyntheticDataCapable {
		return 1.0
	}
	return 0.5
}

// OptimaeStatus is the lifecycle stage of an Optimae.
type OptimaeStatus string

const (
	StatusCommitted         OptimaeStatus = "committed"
	StatusRevealed          OptimaeStatus = "revealed"
	StatusUnderVerification OptimaeStatus = "under_verification"
	StatusAccepted          OptimaeStatus = "accepted"
	StatusRejected          OptimaeStatus = "rejected"
)

// Optimae is a content-addressed submission of optimized parameters.
type Optimae struct {
	ID                  string                 `json:"id"`
	DomainID             string                 `json:"domain_id"`
	OptimizerID          string                 `json:"optimizer_id"`
	Parameters           map[string]interface{} `json:"parameters"`
	ReportedPerformance  float64                `json:"reported_performance"`
	VerifiedPerformance  *float64               `json:"verified_performance,omitempty"`
	PerformanceIncrement float64                `json:"performance_increment"`
	CreatedAt            int64                  `json:"created_at"` // unix seconds
	Status               OptimaeStatus          `json:"status"`
	Accepted             bool                   `json:"accepted"`
}

// ComputeID derives the optimae ID: H(domain_id, parameters, optimizer_id,
// created_at), per SPEC_FULL.md §3. Two submissions with identical
// parameters for the same domain, optimizer, and creation time collide by
// design — that is the content-addressing contract, not a bug.
func (o Optimae) ComputeID() (common.Hash, error) {
	canon, err := common.CanonicalJSON(o.Parameters)
	if err != nil {
		return "", fmt.Errorf("optimae id: canonicalize parameters: %w", err)
	}
	return crypto.Sum256Hex(
		o.DomainID, string(canon), o.OptimizerID, fmt.Sprint(o.CreatedAt),
	), nil
}
