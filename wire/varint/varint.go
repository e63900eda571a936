// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package varint implements the minimal self-delimiting integer
// encoding used by the blob-chain header and the update change-record
// format (spec §9): values up to 252 encode as a single byte; larger
// values are prefixed with a one-byte marker (0xfd/0xfe/0xff) followed
// by a little-endian 2/4/8-byte value, mirroring the well-known
// CompactSize convention the wire format is built on.
package varint

import (
	"encoding/binary"
	"fmt"
)

const (
	marker16 = 0xfd
	marker32 = 0xfe
	marker64 = 0xff
)

// Encode returns the self-delimiting encoding of v.
func Encode(v uint64) []byte {
	switch {
	case v < marker16:
		return []byte{byte(v)}
	case v <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = marker16
		binary.LittleEndian.PutUint16(buf[1:], uint16(v))
		return buf
	case v <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = marker32
		binary.LittleEndian.PutUint32(buf[1:], uint32(v))
		return buf
	default:
		buf := make([]byte, 9)
		buf[0] = marker64
		binary.LittleEndian.PutUint64(buf[1:], v)
		return buf
	}
}

// Decode reads a self-delimiting integer from the front of b,
// returning its value and the number of bytes it occupied.
func Decode(b []byte) (value uint64, n int, err error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("varint: empty input")
	}

	switch b[0] {
	case marker16:
		if len(b) < 3 {
			return 0, 0, fmt.Errorf("varint: truncated 16-bit value")
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), 3, nil
	case marker32:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("varint: truncated 32-bit value")
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), 5, nil
	case marker64:
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("varint: truncated 64-bit value")
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	default:
		return uint64(b[0]), 1, nil
	}
}
