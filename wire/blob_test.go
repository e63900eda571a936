// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/wire"
)

// Tampering with the terminal blob of a chain (the chunk whose forward
// pointer is the zero terminator) must be caught by ReassembleChain,
// not silently accepted.
func TestReassembleChainDetectsTamperedTerminalBlob(t *testing.T) {
	content := bytes.Repeat([]byte{0xCC}, 250)
	payload, blobs := wire.BuildChain(content)
	require.Len(t, blobs, 3)

	store := make(map[ids.BlobID][wire.BlobSize]byte, len(blobs))
	for _, b := range blobs {
		store[wire.BlobID(b)] = b
	}
	lookup := func(id ids.BlobID) ([wire.BlobSize]byte, bool) {
		b, ok := store[id]
		return b, ok
	}

	got, err := wire.ReassembleChain(payload, lookup)
	require.NoError(t, err)
	require.Equal(t, content, got)

	last := blobs[len(blobs)-1]
	tampered := last
	tampered[5] ^= 0xff
	store[wire.BlobID(last)] = tampered

	_, err = wire.ReassembleChain(payload, lookup)
	require.Error(t, err)
}
