// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/wire"
)

// DiskFS is the production FS, laying feeds and blobs out per spec §6:
//
//	_feeds/{fid-hex}.head   128 B header
//	_feeds/{fid-hex}.log    N x 128 B wire packets
//	_blobs/{hh}/{hex[2..]}  128 B blob records, hh = first hex byte of blob_id
type DiskFS struct {
	mu        sync.Mutex
	feedsDir  string
	blobsDir  string
	openFiles map[string]*os.File
}

var _ FS = (*DiskFS)(nil)

// NewDiskFS opens (creating if absent) a disk-backed store rooted at dir.
func NewDiskFS(dir string) (*DiskFS, error) {
	feedsDir := filepath.Join(dir, "_feeds")
	blobsDir := filepath.Join(dir, "_blobs")
	if err := os.MkdirAll(feedsDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", feedsDir, err)
	}
	if err := os.MkdirAll(blobsDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", blobsDir, err)
	}
	return &DiskFS{
		feedsDir:  feedsDir,
		blobsDir:  blobsDir,
		openFiles: make(map[string]*os.File),
	}, nil
}

func (d *DiskFS) headPath(fid ids.FID) string {
	return filepath.Join(d.feedsDir, hex.EncodeToString(fid[:])+".head")
}

func (d *DiskFS) logPath(fid ids.FID) string {
	return filepath.Join(d.feedsDir, hex.EncodeToString(fid[:])+".log")
}

func (d *DiskFS) blobPath(id ids.BlobID) string {
	h := hex.EncodeToString(id[:])
	return filepath.Join(d.blobsDir, h[:2], h[2:])
}

func (d *DiskFS) HeaderExists(fid ids.FID) (bool, error) {
	_, err := os.Stat(d.headPath(fid))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DiskFS) ReadHeader(fid ids.FID) ([HeaderSize]byte, error) {
	var out [HeaderSize]byte
	b, err := os.ReadFile(d.headPath(fid))
	if err != nil {
		return out, fmt.Errorf("store: reading header for %s: %w", fid, err)
	}
	if len(b) != HeaderSize {
		return out, fmt.Errorf("store: header for %s has %d bytes, want %d", fid, len(b), HeaderSize)
	}
	copy(out[:], b)
	return out, nil
}

func (d *DiskFS) WriteHeader(fid ids.FID, header [HeaderSize]byte) error {
	tmp := d.headPath(fid) + ".tmp"
	if err := os.WriteFile(tmp, header[:], 0o644); err != nil {
		return fmt.Errorf("store: writing header for %s: %w", fid, err)
	}
	if err := os.Rename(tmp, d.headPath(fid)); err != nil {
		return fmt.Errorf("store: committing header for %s: %w", fid, err)
	}
	return nil
}

func (d *DiskFS) logFile(fid ids.FID) (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := hex.EncodeToString(fid[:])
	if f, ok := d.openFiles[key]; ok {
		return f, nil
	}
	f, err := os.OpenFile(d.logPath(fid), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: opening log for %s: %w", fid, err)
	}
	d.openFiles[key] = f
	return f, nil
}

func (d *DiskFS) LogLength(fid ids.FID) (int64, error) {
	f, err := d.logFile(fid)
	if err != nil {
		return 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size() / wire.PacketSize, nil
}

func (d *DiskFS) AppendPacket(fid ids.FID, w [wire.PacketSize]byte) error {
	f, err := d.logFile(fid)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if _, err := f.Write(w[:]); err != nil {
		return fmt.Errorf("store: appending packet for %s: %w", fid, err)
	}
	return f.Sync()
}

func (d *DiskFS) ReadPacket(fid ids.FID, idx int64) ([wire.PacketSize]byte, error) {
	var out [wire.PacketSize]byte
	f, err := d.logFile(fid)
	if err != nil {
		return out, err
	}
	n, err := f.ReadAt(out[:], idx*wire.PacketSize)
	if err != nil || n != wire.PacketSize {
		return out, fmt.Errorf("store: reading packet %d for %s: %w", idx, fid, err)
	}
	return out, nil
}

func (d *DiskFS) ReadBlob(id ids.BlobID) ([wire.BlobSize]byte, bool, error) {
	var out [wire.BlobSize]byte
	b, err := os.ReadFile(d.blobPath(id))
	if os.IsNotExist(err) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(b) != wire.BlobSize {
		return out, false, fmt.Errorf("store: blob %s has %d bytes, want %d", id, len(b), wire.BlobSize)
	}
	copy(out[:], b)
	return out, true, nil
}

func (d *DiskFS) WriteBlob(id ids.BlobID, blob [wire.BlobSize]byte) error {
	dir := filepath.Join(d.blobsDir, hex.EncodeToString(id[:])[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: creating blob shard %s: %w", dir, err)
	}
	tmp := d.blobPath(id) + ".tmp"
	if err := os.WriteFile(tmp, blob[:], 0o644); err != nil {
		return fmt.Errorf("store: writing blob %s: %w", id, err)
	}
	return os.Rename(tmp, d.blobPath(id))
}

// Close releases any open log file handles.
func (d *DiskFS) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for _, f := range d.openFiles {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.openFiles = make(map[string]*os.File)
	if len(errs) > 0 {
		return fmt.Errorf("store: closing log files: %v", errs)
	}
	return nil
}
