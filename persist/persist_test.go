// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package persist_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/persist"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "update_cfg.json")

	snap := persist.Snapshot{
		VCDict: map[string]persist.FileEntry{
			"f.txt": {FileFIDHex: "aa", EmergencyFIDHex: "bb"},
		},
		ApplyQueue:   map[string]uint32{"cc": 3},
		ApplyDict:    map[string]uint32{"f.txt": 2},
		UpdateFIDHex: "dd",
	}
	require.NoError(t, persist.Save(path, snap))

	got, err := persist.Load(path)
	require.NoError(t, err)
	require.Equal(t, snap.VCDict, got.VCDict)
	require.Equal(t, snap.ApplyQueue, got.ApplyQueue)
	require.Equal(t, snap.ApplyDict, got.ApplyDict)
	require.Equal(t, snap.UpdateFIDHex, got.UpdateFIDHex)
}

func TestLoadMissingFileReturnsEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	got, err := persist.Load(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.Empty(t, got.VCDict)
	require.Empty(t, got.ApplyQueue)
	require.Empty(t, got.ApplyDict)
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	_, _, err := persist.Unmarshal([]byte(`{"version": 99}`))
	require.Error(t, err)
}
