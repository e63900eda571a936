// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids defines the fixed-size identifier types shared by the
// wire, store, registry and version packages.
package ids

import (
	"encoding/hex"
	"fmt"
)

// FID is a feed identifier: an ed25519 public key.
type FID [32]byte

// SKey is an ed25519 signing seed.
type SKey [32]byte

// MID is a message identifier: a truncated sha256 digest.
type MID [20]byte

// DMX is a demultiplex tag: a 7-byte sha256 prefix.
type DMX [7]byte

// BlobID is a content address for a blob record.
type BlobID [20]byte

// Empty is the zero-valued FID, used for "no parent".
var Empty FID

// EmptyMID is the zero-valued MID.
var EmptyMID MID

// EmptyBlobID is the zero-valued BlobID, the blob-chain terminator.
var EmptyBlobID BlobID

func (f FID) String() string     { return hex.EncodeToString(f[:]) }
func (m MID) String() string     { return hex.EncodeToString(m[:]) }
func (d DMX) String() string     { return hex.EncodeToString(d[:]) }
func (b BlobID) String() string  { return hex.EncodeToString(b[:]) }
func (k SKey) String() string    { return "skey(redacted)" }

// IsZero reports whether the blob id is the chain terminator.
func (b BlobID) IsZero() bool { return b == EmptyBlobID }

func (f FID) MarshalJSON() ([]byte, error) { return quoteHex(f[:]) }
func (m MID) MarshalJSON() ([]byte, error) { return quoteHex(m[:]) }
func (d DMX) MarshalJSON() ([]byte, error) { return quoteHex(d[:]) }
func (b BlobID) MarshalJSON() ([]byte, error) { return quoteHex(b[:]) }

func (f *FID) UnmarshalJSON(data []byte) error { return unquoteHex(data, f[:]) }
func (m *MID) UnmarshalJSON(data []byte) error { return unquoteHex(data, m[:]) }
func (d *DMX) UnmarshalJSON(data []byte) error { return unquoteHex(data, d[:]) }
func (b *BlobID) UnmarshalJSON(data []byte) error { return unquoteHex(data, b[:]) }

func quoteHex(b []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("%q", hex.EncodeToString(b))), nil
}

func unquoteHex(data []byte, dst []byte) error {
	s, err := unquote(data)
	if err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("ids: invalid hex %q: %w", s, err)
	}
	if len(decoded) != len(dst) {
		return fmt.Errorf("ids: expected %d bytes, got %d", len(dst), len(decoded))
	}
	copy(dst, decoded)
	return nil
}

func unquote(data []byte) (string, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return "", fmt.Errorf("ids: not a JSON string: %s", data)
	}
	return string(data[1 : len(data)-1]), nil
}

// FIDFromHex parses a hex-encoded feed id.
func FIDFromHex(s string) (FID, error) {
	var f FID
	if err := decodeFixed(s, f[:]); err != nil {
		return FID{}, err
	}
	return f, nil
}

// MIDFromHex parses a hex-encoded message id.
func MIDFromHex(s string) (MID, error) {
	var m MID
	if err := decodeFixed(s, m[:]); err != nil {
		return MID{}, err
	}
	return m, nil
}

// BlobIDFromHex parses a hex-encoded blob id.
func BlobIDFromHex(s string) (BlobID, error) {
	var b BlobID
	if err := decodeFixed(s, b[:]); err != nil {
		return BlobID{}, err
	}
	return b, nil
}

func decodeFixed(s string, dst []byte) error {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("ids: invalid hex %q: %w", s, err)
	}
	if len(decoded) != len(dst) {
		return fmt.Errorf("ids: expected %d bytes, got %d", len(dst), len(decoded))
	}
	copy(dst, decoded)
	return nil
}
