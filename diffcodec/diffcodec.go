// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package diffcodec implements the wire encoding of update-blob
// payloads (spec §4.5): a leading dependency version followed by a
// sequence of self-delimiting line-level change records, factored out
// of the version package so the varint-based record codec is
// independently testable.
package diffcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/tinylog/wire/varint"
)

// Change record operations.
const (
	OpInsert byte = 'I'
	OpDelete byte = 'D'
)

// ChangeRecord is one line-level edit: insert or delete Text at Line
// (1-indexed).
type ChangeRecord struct {
	Line uint32
	Op   byte
	Text string
}

// EncodeRecord serializes r as
// [ varint: size ][ varint: line_num ][ 1 byte op ][ str_bytes ]
// where size = varint_len(line_num) + 1 + len(str_bytes).
func EncodeRecord(r ChangeRecord) []byte {
	lineVI := varint.Encode(uint64(r.Line))
	size := len(lineVI) + 1 + len(r.Text)
	sizeVI := varint.Encode(uint64(size))

	out := make([]byte, 0, len(sizeVI)+size)
	out = append(out, sizeVI...)
	out = append(out, lineVI...)
	out = append(out, r.Op)
	out = append(out, r.Text...)
	return out
}

// DecodeRecord parses one change record from the front of b, returning
// the record and the number of bytes it occupied.
func DecodeRecord(b []byte) (ChangeRecord, int, error) {
	size, n, err := varint.Decode(b)
	if err != nil {
		return ChangeRecord{}, 0, fmt.Errorf("diffcodec: record size: %w", err)
	}
	total := n + int(size)
	if total > len(b) {
		return ChangeRecord{}, 0, fmt.Errorf("diffcodec: record truncated (need %d, have %d)", total, len(b))
	}
	body := b[n:total]

	line, ln, err := varint.Decode(body)
	if err != nil {
		return ChangeRecord{}, 0, fmt.Errorf("diffcodec: line number: %w", err)
	}
	if ln >= len(body) {
		return ChangeRecord{}, 0, fmt.Errorf("diffcodec: record missing op byte")
	}
	op := body[ln]
	text := string(body[ln+1:])

	return ChangeRecord{Line: uint32(line), Op: op, Text: text}, total, nil
}

// EncodeBlob serializes an update blob's content: a 4-byte
// big-endian dependency version followed by the encoded change
// records, in order.
func EncodeBlob(dep uint32, changes []ChangeRecord) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, dep)
	for _, c := range changes {
		buf = append(buf, EncodeRecord(c)...)
	}
	return buf
}

// DecodeBlob parses an update blob's content.
func DecodeBlob(b []byte) (dep uint32, changes []ChangeRecord, err error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("diffcodec: blob truncated (need 4-byte dependency version)")
	}
	dep = binary.BigEndian.Uint32(b[:4])

	pos := 4
	for pos < len(b) {
		rec, n, err := DecodeRecord(b[pos:])
		if err != nil {
			return 0, nil, err
		}
		changes = append(changes, rec)
		pos += n
	}
	return dep, changes, nil
}
