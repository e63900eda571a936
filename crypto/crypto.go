// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package crypto provides the ed25519/sha256 primitives the feed
// engine signs and verifies packets with.
//
// Key-pair provisioning for production feeds is an external
// collaborator (see spec §1, out of scope); GenerateKeyPair here is a
// convenience for tests and the cmd/tinylogctl demo tool only.
package crypto

import (
	stded25519 "crypto/ed25519"
	"crypto/sha256"

	"github.com/luxfi/tinylog/ids"
)

// SignatureSize is the length in bytes of an ed25519 signature.
const SignatureSize = stded25519.SignatureSize

// Signature is a detached ed25519 signature.
type Signature [SignatureSize]byte

// GenerateKeyPair returns a fresh ed25519 key pair as (fid, skey).
func GenerateKeyPair() (ids.FID, ids.SKey, error) {
	pub, priv, err := stded25519.GenerateKey(nil)
	if err != nil {
		return ids.FID{}, ids.SKey{}, err
	}
	var fid ids.FID
	var skey ids.SKey
	copy(fid[:], pub)
	// priv is the 64-byte expanded key (seed || pubkey); the seed is
	// what the wire format and the spec call the "signing key".
	copy(skey[:], priv.Seed())
	return fid, skey, nil
}

// Sign signs msg with the ed25519 seed skey, expanding the seed into
// the full private key first.
func Sign(skey ids.SKey, msg []byte) Signature {
	priv := stded25519.NewKeyFromSeed(skey[:])
	sig := stded25519.Sign(priv, msg)
	var out Signature
	copy(out[:], sig)
	return out
}

// Verify reports whether sig is a valid ed25519 signature over msg
// under the public key fid.
func Verify(fid ids.FID, msg []byte, sig Signature) bool {
	return stded25519.Verify(stded25519.PublicKey(fid[:]), msg, sig[:])
}

// Sum256 returns the full sha256 digest of b.
func Sum256(b []byte) [32]byte {
	return sha256.Sum256(b)
}
