// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/store"
	"github.com/luxfi/tinylog/tinyerr"
	"github.com/luxfi/tinylog/wire"
)

// S1 — signed append.
func TestAppendPlain48SignedRoundTrip(t *testing.T) {
	fid, skey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	feed, err := store.Create(fs, fid, ids.Empty, 0)
	require.NoError(t, err)

	payload := append([]byte("hello"), bytes.Repeat([]byte{0}, 43)...)
	require.NoError(t, feed.AppendPlain48(payload, skey))
	require.Equal(t, int64(1), feed.Length())

	w, err := feed.GetWire(1)
	require.NoError(t, err)
	require.Len(t, w, wire.PacketSize)

	got, err := feed.GetPayload(1)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got[:5]))

	var genesisMID ids.MID
	copy(genesisMID[:], fid[:20])
	p, err := wire.DecodeAndVerify(fid, 1, genesisMID, w)
	require.NoError(t, err)
	require.Equal(t, wire.PlainText48, p.Type)
}

// S2 — blob chain.
func TestAppendBlobChain(t *testing.T) {
	fid, skey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	feed, err := store.Create(fs, fid, ids.Empty, 0)
	require.NoError(t, err)

	content := bytes.Repeat([]byte{0xAA}, 250)
	require.NoError(t, feed.AppendBlob(content, skey))

	got, err := feed.GetPayload(1)
	require.NoError(t, err)
	require.Equal(t, content, got)

	typ, err := feed.GetType(1)
	require.NoError(t, err)
	require.Equal(t, wire.Chain20, typ)

	_, waiting := feed.WaitingForBlob()
	require.False(t, waiting)

	_, blobs := wire.BuildChain(content)
	require.Len(t, blobs, 3) // ceil((250-27)/100) = 3
}

// S2 (continued) — tampering a blob chunk breaks reassembly at that step.
func TestTamperedBlobFailsReassembly(t *testing.T) {
	fid, skey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	feed, err := store.Create(fs, fid, ids.Empty, 0)
	require.NoError(t, err)

	content := bytes.Repeat([]byte{0xBB}, 250)
	require.NoError(t, feed.AppendBlob(content, skey))

	_, blobs := wire.BuildChain(content)
	tampered := blobs[1]
	tampered[10] ^= 0xff
	require.NoError(t, fs.WriteBlob(wire.BlobID(blobs[1]), tampered))

	got, err := feed.GetPayload(1)
	require.ErrorIs(t, err, tinyerr.ErrIncompleteBlob) // the middle chunk's content address no longer matches
	require.Nil(t, got)
}

// S3 — want request switches shape around a pending blob.
func TestWantRequestSwitchesOnPendingBlob(t *testing.T) {
	fid, skey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	feed, err := store.Create(fs, fid, ids.Empty, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, feed.AppendPlain48([]byte("x"), skey))
	}

	want := feed.WantRequest()
	require.Len(t, want, 43)
	require.Equal(t, uint32(6), be32(want[39:43]))

	content := bytes.Repeat([]byte{0x01}, 300)
	require.NoError(t, feed.AppendBlob(content, skey))
	wireBytes, err := feed.GetWire(-1)
	require.NoError(t, err)

	// A second feed replays the same plain48 history (deterministic
	// signatures under the same fid/seq/prev_mid/skey), then receives
	// the chain20 packet before any of its blobs arrive.
	fs2 := store.NewMemFS()
	feed2, err := store.Create(fs2, fid, ids.Empty, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, feed2.AppendPlain48([]byte("x"), skey))
	}
	require.True(t, feed2.VerifyAndAppendWire(wireBytes))

	want2 := feed2.WantRequest()
	require.Len(t, want2, 63)

	_, blobs := wire.BuildChain(content)
	missing, waiting := feed2.WaitingForBlob()
	require.True(t, waiting)
	require.Equal(t, wire.BlobID(blobs[0]), missing)
}

// Continuation feed creation ends the predecessor and links the new
// feed's genesis packet to it.
func TestCreateContinuation(t *testing.T) {
	fid, skey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	contnFID, contnSKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	feed, err := store.Create(fs, fid, ids.Empty, 0)
	require.NoError(t, err)
	require.NoError(t, feed.AppendPlain48([]byte("x"), skey))

	contn, err := store.CreateContinuation(fs, contnFID, feed, contnSKey, skey)
	require.NoError(t, err)

	require.True(t, feed.Ended())
	gotContn, ok := feed.Continuation()
	require.True(t, ok)
	require.Equal(t, contnFID, gotContn)

	gotPred, ok := contn.Predecessor()
	require.True(t, ok)
	require.Equal(t, fid, gotPred)
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
