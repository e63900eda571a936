// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"fmt"
	"sync"

	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/wire"
)

// MemFS is an in-memory FS, the "trait so tests can substitute
// in-memory storage" the design notes call for.
type MemFS struct {
	mu      sync.Mutex
	headers map[ids.FID][HeaderSize]byte
	logs    map[ids.FID][][wire.PacketSize]byte
	blobs   map[ids.BlobID][wire.BlobSize]byte
}

var _ FS = (*MemFS)(nil)

// NewMemFS returns an empty in-memory store.
func NewMemFS() *MemFS {
	return &MemFS{
		headers: make(map[ids.FID][HeaderSize]byte),
		logs:    make(map[ids.FID][][wire.PacketSize]byte),
		blobs:   make(map[ids.BlobID][wire.BlobSize]byte),
	}
}

func (m *MemFS) HeaderExists(fid ids.FID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.headers[fid]
	return ok, nil
}

func (m *MemFS) ReadHeader(fid ids.FID) ([HeaderSize]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.headers[fid]
	if !ok {
		return [HeaderSize]byte{}, fmt.Errorf("store: no header for %s", fid)
	}
	return h, nil
}

func (m *MemFS) WriteHeader(fid ids.FID, header [HeaderSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[fid] = header
	return nil
}

func (m *MemFS) LogLength(fid ids.FID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.logs[fid])), nil
}

func (m *MemFS) AppendPacket(fid ids.FID, w [wire.PacketSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[fid] = append(m.logs[fid], w)
	return nil
}

func (m *MemFS) ReadPacket(fid ids.FID, idx int64) ([wire.PacketSize]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := m.logs[fid]
	if idx < 0 || idx >= int64(len(log)) {
		return [wire.PacketSize]byte{}, fmt.Errorf("store: packet index %d out of range for %s", idx, fid)
	}
	return log[idx], nil
}

func (m *MemFS) ReadBlob(id ids.BlobID) ([wire.BlobSize]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[id]
	return b, ok, nil
}

func (m *MemFS) WriteBlob(id ids.BlobID, blob [wire.BlobSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = blob
	return nil
}
