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

// Package crypto implements doin-core's hashing, Merkle roots, and peer
// identity (component A of the design).
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/harveybc/doin-core/common"
)

// Sum256Hex returns the lower-case hex SHA-256 digest of parts, joined with
// ":" the way commit hashes, optimae IDs, and seeds are derived throughout
// this repository (see SPEC_FULL.md §4.A-C).
func Sum256Hex(parts ...string) common.Hash {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte(":"))
		}
		h.Write([]byte(p))
	}
	return common.Hash(hex.EncodeToString(h.Sum(nil)))
}

// Sum256Bytes returns the raw SHA-256 digest of data.
func Sum256Bytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HexOf returns the lower-case hex encoding of a raw SHA-256 digest.
func HexOf(sum [32]byte) common.Hash {
	return common.Hash(hex.EncodeToString(sum[:]))
}

// MerkleRoot computes the Merkle root over leaves (already-hashed hex
// digests) per SPEC_FULL.md §4.A: empty -> 64 zero hex chars; single leaf ->
// itself; otherwise pairwise hash left to right, duplicating the last leaf
// whenever a level has odd size, repeated until one node remains.
func MerkleRoot(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return common.ZeroHash
	}
	level := make([]common.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]common.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, Sum256Hex(string(level[i]), string(level[i+1])))
		}
		level = next
	}
	return level[0]
}

// Lowercase normalizes a hex string the way all hash comparisons in this
// repository expect it.
func Lowercase(h common.Hash) common.Hash { return common.Hash(strings.ToLower(string(h))) }
