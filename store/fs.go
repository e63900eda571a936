// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/wire"
)

// FS is the storage trait a Feed is built on, adapted from the
// teacher's database.Reader/Writer split (crypto/database). The
// contract for every mutating method is "fully persists and advances,
// or leaves both unchanged" per the design notes' cooperative-I/O
// section; diskfs and memfs both honor it.
type FS interface {
	// HeaderExists reports whether a header record exists for fid.
	HeaderExists(fid ids.FID) (bool, error)
	// ReadHeader returns the persisted header for fid.
	ReadHeader(fid ids.FID) ([HeaderSize]byte, error)
	// WriteHeader persists (creating or overwriting) the header for fid.
	WriteHeader(fid ids.FID, header [HeaderSize]byte) error

	// LogLength returns the number of packets physically stored for fid.
	LogLength(fid ids.FID) (int64, error)
	// AppendPacket appends a single 128-byte wire packet to fid's log.
	AppendPacket(fid ids.FID, w [wire.PacketSize]byte) error
	// ReadPacket reads the packet at 0-based physical offset idx.
	ReadPacket(fid ids.FID, idx int64) ([wire.PacketSize]byte, error)

	// ReadBlob looks up a blob record by content address.
	ReadBlob(id ids.BlobID) ([wire.BlobSize]byte, bool, error)
	// WriteBlob persists a blob record under its content address.
	WriteBlob(id ids.BlobID, blob [wire.BlobSize]byte) error
}
