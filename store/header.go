// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store implements the per-feed header/log persistence and
// the shared content-addressed blob directory of spec §4.3: indexed
// reads, typed appends, negative-index access, blob-chain reassembly,
// the "next expected" demultiplex tag and "what am I waiting for"
// queries.
package store

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/tinylog/ids"
)

// HeaderSize is the fixed size of a feed header record (spec §3).
const HeaderSize = 128

// Header is the decoded form of a feed's 128-byte header.
type Header struct {
	FID       ids.FID
	ParentFID ids.FID
	ParentSeq uint32
	AnchorSeq uint32
	AnchorMID ids.MID
	FrontSeq  uint32
	FrontMID  ids.MID
}

// Encode serializes h to its 128-byte on-disk layout.
func (h Header) Encode() [HeaderSize]byte {
	var b [HeaderSize]byte
	copy(b[12:44], h.FID[:])
	copy(b[44:76], h.ParentFID[:])
	binary.BigEndian.PutUint32(b[76:80], h.ParentSeq)
	binary.BigEndian.PutUint32(b[80:84], h.AnchorSeq)
	copy(b[84:104], h.AnchorMID[:])
	binary.BigEndian.PutUint32(b[104:108], h.FrontSeq)
	copy(b[108:128], h.FrontMID[:])
	return b
}

// DecodeHeader parses a 128-byte header record.
func DecodeHeader(b [HeaderSize]byte) (Header, error) {
	var h Header
	copy(h.FID[:], b[12:44])
	copy(h.ParentFID[:], b[44:76])
	h.ParentSeq = binary.BigEndian.Uint32(b[76:80])
	h.AnchorSeq = binary.BigEndian.Uint32(b[80:84])
	copy(h.AnchorMID[:], b[84:104])
	h.FrontSeq = binary.BigEndian.Uint32(b[104:108])
	copy(h.FrontMID[:], b[108:128])
	if h.FrontSeq < h.AnchorSeq {
		return Header{}, fmt.Errorf("store: header for %s: front_seq %d < anchor_seq %d", h.FID, h.FrontSeq, h.AnchorSeq)
	}
	return h, nil
}

// HasParent reports whether h names a non-empty parent feed.
func (h Header) HasParent() bool {
	return h.ParentFID != ids.Empty
}
