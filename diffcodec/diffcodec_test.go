// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diffcodec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/diffcodec"
)

func TestRecordRoundTrip(t *testing.T) {
	cases := []diffcodec.ChangeRecord{
		{Line: 1, Op: diffcodec.OpInsert, Text: "a"},
		{Line: 250, Op: diffcodec.OpDelete, Text: ""},
		{Line: 70000, Op: diffcodec.OpInsert, Text: "a long line of text to push past the single-byte varint range"},
	}
	for _, c := range cases {
		encoded := diffcodec.EncodeRecord(c)
		got, n, err := diffcodec.DecodeRecord(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), n)
		require.Equal(t, c, got)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	changes := []diffcodec.ChangeRecord{
		{Line: 1, Op: diffcodec.OpInsert, Text: "b"},
		{Line: 2, Op: diffcodec.OpInsert, Text: "c"},
		{Line: 4, Op: diffcodec.OpDelete, Text: "old"},
	}
	blob := diffcodec.EncodeBlob(7, changes)

	dep, got, err := diffcodec.DecodeBlob(blob)
	require.NoError(t, err)
	require.Equal(t, uint32(7), dep)
	require.Equal(t, changes, got)
}

func TestDecodeBlobTruncated(t *testing.T) {
	_, _, err := diffcodec.DecodeBlob([]byte{0, 0, 0})
	require.Error(t, err)
}

func TestEmptyBlobHasNoChanges(t *testing.T) {
	dep, changes, err := diffcodec.DecodeBlob(diffcodec.EncodeBlob(3, nil))
	require.NoError(t, err)
	require.Equal(t, uint32(3), dep)
	require.Empty(t, changes)
}
