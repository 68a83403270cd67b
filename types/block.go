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
	"github.com/harveybc/doin-core/common"
	"github.com/harveybc/doin-core/crypto"
)

// GenesisTimestamp is a fixed epoch timestamp so every node produces a
// byte-identical genesis block (SPEC_FULL.md §3).
const GenesisTimestamp int64 = 1700000000

// Header is a block's header fields. hash = H(canonical_json(header)).
type Header struct {
	Index                int64       `json:"index"`
	PreviousHash         common.Hash `json:"previous_hash"`
	Timestamp            int64       `json:"timestamp"`
	MerkleRoot           common.Hash `json:"merkle_root"`
	GeneratorID          string      `json:"generator_id"`
	WeightedPerformanceSum float64   `json:"weighted_performance_sum"`
	Threshold            float64     `json:"threshold"`
}

// Hash computes H(canonical_json(header)).
func (h Header) Hash() (common.Hash, error) {
	canon, err := common.CanonicalJSON(h)
	if err != nil {
		return "", err
	}
	return crypto.Sum256Hex(string(canon)), nil
}

// Block is a sealed header plus its ordered transaction body. Body[0] is
// always the coinbase transaction.
type Block struct {
	Header Header        `json:"header"`
	Body   []Transaction `json:"body"`
	Hash   common.Hash   `json:"hash"`
}

// ComputeMerkleRoot hashes each transaction's ID and folds them with
// crypto.MerkleRoot.
func (b *Block) ComputeMerkleRoot() (common.Hash, error) {
	leaves := make([]common.Hash, 0, len(b.Body))
	for i := range b.Body {
		id, err := b.Body[i].ComputeID()
		if err != nil {
			return "", err
		}
		leaves = append(leaves, id)
	}
	return crypto.MerkleRoot(leaves), nil
}

// Seal finalizes a block's merkle root and hash from its current header and
// body. Callers must have already set Header.Index, PreviousHash,
// Timestamp, GeneratorID, WeightedPerformanceSum, and Threshold.
func (b *Block) Seal() error {
	root, err := b.ComputeMerkleRoot()
	if err != nil {
		return err
	}
	b.Header.MerkleRoot = root
	hash, err := b.Header.Hash()
	if err != nil {
		return err
	}
	b.Hash = hash
	return nil
}

// NewGenesisBlock returns the canonical, byte-identical genesis block.
func NewGenesisBlock(initialThreshold float64) (*Block, error) {
	b := &Block{
		Header: Header{
			Index:        0,
			PreviousHash: common.ZeroHash,
			Timestamp:    GenesisTimestamp,
			GeneratorID:  "genesis",
			Threshold:    initialThreshold,
		},
		Body: nil,
	}
	if err := b.Seal(); err != nil {
		return nil, err
	}
	return b, nil
}
