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

// Package seeds derives the reproducibility seeds described in
// SPEC_FULL.md §4.C: a seed the optimizer can reproduce their own training
// with, a distinct synthetic-data seed per evaluator that the optimizer
// cannot predict in advance, and a per-round evaluation seed.
package seeds

import (
	"encoding/binary"
	"fmt"

	"github.com/harveybc/doin-core/crypto"
)

// derive returns the first 4 bytes of SHA-256(salt-joined parts) as a
// big-endian uint32, the shared derivation rule behind every seed kind.
func derive(parts ...string) uint32 {
	sum := crypto.Sum256Bytes([]byte(joinColon(parts)))
	return binary.BigEndian.Uint32(sum[:4])
}

func joinColon(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ":" + p
	}
	return out
}

// OptimizerSeed derives the seed the optimizer uses (and can independently
// reproduce) to train: H(commit_hash:domain_id:"")[:4] as big-endian u32.
func OptimizerSeed(commitHash, domainID string) uint32 {
	return derive(commitHash, domainID, "")
}

// EvaluatorSeed derives the per-evaluator synthetic-data seed: the same
// derivation salted with "{evaluator_id}:{chain_tip_hash}", unpredictable to
// the optimizer because it depends on both the randomly chosen evaluator set
// and the chain tip at selection time.
func EvaluatorSeed(commitHash, domainID, evaluatorID, chainTipHash string) uint32 {
	salt := fmt.Sprintf("%s:%s", evaluatorID, chainTipHash)
	return derive(commitHash, domainID, salt)
}

// EvaluationSeed derives the weight-init/shuffle seed for an evaluator's own
// training round.
func EvaluationSeed(commitHash, domainID string, round int) uint32 {
	return derive(commitHash, domainID, fmt.Sprint(round))
}

// ValidateDeclaredSeed checks a submission's declared optimizer seed
// against the required derivation, returning an error with the mismatch
// reason if it diverges (SPEC_FULL.md §4.C policy).
func ValidateDeclaredSeed(commitHash, domainID string, declared uint32) error {
	expected := OptimizerSeed(commitHash, domainID)
	if declared != expected {
		return fmt.Errorf("bad seed: declared optimizer seed %d does not match derived seed %d", declared, expected)
	}
	return nil
}
