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

// Package common holds the small shared value types used across doin-core:
// hex-encoded hashes and peer identities, and the canonical JSON encoding
// every on-chain hash is computed over.
package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Hash is a lower-case hex-encoded SHA-256 digest, 64 characters wide.
type Hash string

// ZeroHash is the Merkle root of an empty transaction set: 64 zero hex chars.
var ZeroHash = Hash(strings.Repeat("0", 64))

// IsZero reports whether h is the all-zero placeholder hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash || h == ""
}

func (h Hash) String() string { return string(h) }

// PeerID is the first 40 hex characters of SHA-256(DER-encoded public key).
type PeerID string

func (p PeerID) String() string { return string(p) }

// CanonicalJSON encodes v as UTF-8 JSON with sorted object keys and no
// insignificant whitespace, the representation every on-chain hash in this
// repository is computed over. Map keys are sorted lexicographically by
// Go's encoding/json (already the case for map[string]T); struct field
// order is normalized by round-tripping through a generic map so that
// field-declaration order never leaks into the hash.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical json: marshal: %w", err)
	}
	normalized, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical json: normalize: %w", err)
	}
	return normalized, nil
}

// normalize re-marshals arbitrary JSON with object keys sorted, recursively.
func normalize(raw []byte) ([]byte, error) {
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeSorted(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeSorted(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeSorted(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeSorted(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
