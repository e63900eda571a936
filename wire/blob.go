// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/tinyerr"
	"github.com/luxfi/tinylog/wire/varint"
)

// BlobSize is the fixed size of a blob record.
const (
	BlobSize        = 128
	blobReservedLen = 8
	blobPayloadLen  = 100
	blobPointerLen  = 20
)

// BlobID returns the content address of a blob record: sha256 of its
// payload and forward pointer, truncated to 20 bytes.
func BlobID(blob [BlobSize]byte) ids.BlobID {
	sum := crypto.Sum256(blob[blobReservedLen:])
	var id ids.BlobID
	copy(id[:], sum[:20])
	return id
}

func newBlob(payload []byte, ptr ids.BlobID) [BlobSize]byte {
	var b [BlobSize]byte
	copy(b[blobReservedLen:blobReservedLen+blobPayloadLen], payload)
	copy(b[blobReservedLen+blobPayloadLen:], ptr[:])
	return b
}

// chain20HeaderCap is the number of content bytes that fit in a
// chain20 packet's payload once vil bytes of varint and the 20-byte
// forward pointer are accounted for.
func chain20HeaderCap(vil int) int {
	return (PayloadSize - blobPointerLen) - vil
}

// BuildChain lays out content as a chain20 packet payload plus zero
// or more 128-byte blob records (spec §4.2). Content of length ≤ 27
// fits entirely in the packet payload and produces no blobs.
func BuildChain(content []byte) (payload [PayloadSize]byte, blobs [][BlobSize]byte) {
	total := len(content)
	vi := varint.Encode(uint64(total))
	vil := len(vi)
	headerCap := chain20HeaderCap(vil)

	copy(payload[:vil], vi)

	if total <= headerCap {
		copy(payload[vil:vil+total], content)
		return payload, nil
	}

	copy(payload[vil:vil+headerCap], content[:headerCap])
	remaining := content[headerCap:]

	numBlobs := (len(remaining) + blobPayloadLen - 1) / blobPayloadLen
	padded := make([]byte, numBlobs*blobPayloadLen)
	copy(padded, remaining)

	blobs = make([][BlobSize]byte, numBlobs)
	var ptr ids.BlobID // zero: terminator
	for i := numBlobs - 1; i >= 0; i-- {
		chunk := padded[i*blobPayloadLen : (i+1)*blobPayloadLen]
		blob := newBlob(chunk, ptr)
		blobs[i] = blob
		ptr = BlobID(blob)
	}

	copy(payload[vil+headerCap:vil+headerCap+blobPointerLen], ptr[:])
	return payload, blobs
}

// BlobLookup resolves a blob by its content address. Implemented by
// the store package against on-disk or in-memory blob storage.
type BlobLookup func(id ids.BlobID) (blob [BlobSize]byte, ok bool)

// ReassembleChain walks a chain20 payload's pointer chain via lookup,
// reconstructing the original content. It returns ErrIncompleteBlob
// whenever a chunk is missing (a lookup miss) or a chunk's content
// address does not match the pointer it was looked up by.
func ReassembleChain(payload [PayloadSize]byte, lookup BlobLookup) ([]byte, error) {
	total, vil, err := varint.Decode(payload[:])
	if err != nil {
		return nil, fmt.Errorf("wire: decoding chain20 length: %w", err)
	}
	headerCap := chain20HeaderCap(vil)

	if int(total) <= headerCap {
		return append([]byte(nil), payload[vil:vil+int(total)]...), nil
	}

	content := make([]byte, total)
	copy(content[:headerCap], payload[vil:vil+headerCap])

	var ptr ids.BlobID
	copy(ptr[:], payload[vil+headerCap:vil+headerCap+blobPointerLen])

	pos := headerCap
	for !ptr.IsZero() {
		blob, ok := lookup(ptr)
		if !ok {
			return nil, fmt.Errorf("wire: blob %s: %w", ptr, tinyerr.ErrIncompleteBlob)
		}

		var next ids.BlobID
		copy(next[:], blob[blobReservedLen+blobPayloadLen:])

		// Re-derive every chunk's content address: a lookup keyed by
		// ptr may still hand back a tampered record, and nothing else
		// in the walk would notice.
		if BlobID(blob) != ptr {
			return nil, fmt.Errorf("wire: blob %s failed integrity check: %w", ptr, tinyerr.ErrIncompleteBlob)
		}

		n := blobPayloadLen
		if remaining := int(total) - pos; remaining < n {
			n = remaining
		}
		copy(content[pos:pos+n], blob[blobReservedLen:blobReservedLen+n])
		pos += n

		ptr = next
	}

	return content, nil
}

// FindMissingBlob walks a chain20 payload's pointer chain via lookup
// and returns the first pointer that cannot be resolved, stopping at
// the first gap rather than reconstructing content. It reports
// (zero, false) when the chain is already fully local.
func FindMissingBlob(payload [PayloadSize]byte, lookup BlobLookup) (ids.BlobID, bool) {
	total, vil, err := varint.Decode(payload[:])
	if err != nil {
		return ids.BlobID{}, false
	}
	headerCap := chain20HeaderCap(vil)
	if int(total) <= headerCap {
		return ids.BlobID{}, false
	}

	var ptr ids.BlobID
	copy(ptr[:], payload[vil+headerCap:vil+headerCap+blobPointerLen])

	for !ptr.IsZero() {
		blob, ok := lookup(ptr)
		if !ok {
			return ptr, true
		}
		var next ids.BlobID
		copy(next[:], blob[blobReservedLen+blobPayloadLen:])
		ptr = next
	}
	return ids.BlobID{}, false
}
