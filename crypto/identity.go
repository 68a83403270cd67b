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

package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harveybc/doin-core/common"
)

// pemBlockType matches the standard PKCS8 PEM label so the key file is
// readable by any generic PEM/PKCS8 tool, not just this repository.
const pemBlockType = "PRIVATE KEY"

// Identity is a node's P-256 ECDSA keypair and derived peer ID.
type Identity struct {
	PrivateKey *ecdsa.PrivateKey
	PeerID     common.PeerID
}

// NewIdentity generates a fresh P-256 keypair.
func NewIdentity() (*Identity, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	return identityFromKey(priv)
}

func identityFromKey(priv *ecdsa.PrivateKey) (*Identity, error) {
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	peerID := common.PeerID(hex.EncodeToString(sum[:])[:40])
	return &Identity{PrivateKey: priv, PeerID: peerID}, nil
}

// Sign produces an ECDSA/SHA-256 signature over msg in ASN.1 DER form.
func (id *Identity) Sign(msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	return ecdsa.SignASN1(rand.Reader, id.PrivateKey, digest[:])
}

// Verify checks an ECDSA/SHA-256 signature against the given public key.
func Verify(pub *ecdsa.PublicKey, msg, sig []byte) bool {
	digest := sha256.Sum256(msg)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}

// LoadOrCreateIdentity loads a PKCS8-PEM-encoded identity from path if it
// exists, otherwise generates a new one and persists it with owner-only
// (0o600) permissions, creating parent directories as needed. This is the
// identity persistence behavior specified in SPEC_FULL.md §4.A.
func LoadOrCreateIdentity(path string) (*Identity, error) {
	if _, err := os.Stat(path); err == nil {
		return loadIdentity(path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat identity file: %w", err)
	}

	id, err := NewIdentity()
	if err != nil {
		return nil, err
	}
	if err := saveIdentity(path, id); err != nil {
		return nil, err
	}
	return id, nil
}

func loadIdentity(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("identity file %s: not a PKCS8 PEM block", path)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok || priv.Curve != elliptic.P256() {
		return nil, fmt.Errorf("identity file %s: not a P-256 ECDSA key", path)
	}
	return identityFromKey(priv)
}

func saveIdentity(path string, id *Identity) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create identity directory: %w", err)
		}
	}
	der, err := x509.MarshalPKCS8PrivateKey(id.PrivateKey)
	if err != nil {
		return fmt.Errorf("marshal PKCS8 private key: %w", err)
	}
	block := &pem.Block{Type: pemBlockType, Bytes: der}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return os.Chmod(path, 0o600)
}

// PublicKeyBytes returns the uncompressed SEC1 encoding of the public key,
// useful for wire messages that must carry a peer's public key.
func PublicKeyBytes(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(pub.Curve, pub.X, pub.Y)
}

// PublicKeyFromBytes parses an uncompressed SEC1-encoded P-256 public key.
func PublicKeyFromBytes(b []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(elliptic.P256(), b)
	if x == nil {
		return nil, errors.New("invalid P-256 public key encoding")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}
