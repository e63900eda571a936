// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/registry"
	"github.com/luxfi/tinylog/store"
	"github.com/luxfi/tinylog/version"
)

func newManager(t *testing.T) (*version.Manager, string) {
	t.Helper()
	updateFID, updateSKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	reg := registry.New()
	dir := t.TempDir()

	m, err := version.NewBuilder(fs, reg).WithWorkspace(dir).Build()
	require.NoError(t, err)
	require.NoError(t, m.Bootstrap(updateFID, &updateSKey))
	return m, dir
}

func readTracked(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(b)
}

func TestCreateNewFileSeedsInitialVersion(t *testing.T) {
	m, dir := newManager(t)

	require.NoError(t, m.CreateNewFile("f.txt", "hello"))
	require.Equal(t, "hello", readTracked(t, dir, "f.txt"))

	v, ok := m.AppliedVersion("f.txt")
	require.True(t, ok)
	require.Equal(t, uint32(1), v)
}

func TestUpdateFileThenAddApply(t *testing.T) {
	m, dir := newManager(t)
	require.NoError(t, m.CreateNewFile("f.txt", "hello"))

	require.NoError(t, m.UpdateFile("f.txt", "hello world", 1))
	require.NoError(t, m.AddApply("f.txt", 2))

	require.Equal(t, "hello world", readTracked(t, dir, "f.txt"))
	v, ok := m.AppliedVersion("f.txt")
	require.True(t, ok)
	require.Equal(t, uint32(2), v)
}

// S6 — emergency key rotation supersedes the file feed and keeps
// authoring working against the new one.
func TestEmergencyUpdateFileRotatesKey(t *testing.T) {
	m, dir := newManager(t)
	require.NoError(t, m.CreateNewFile("f.txt", "hello"))

	require.NoError(t, m.EmergencyUpdateFile("f.txt", "compromised-recovery", 1))

	require.Equal(t, "compromised-recovery", readTracked(t, dir, "f.txt"))
	v, ok := m.AppliedVersion("f.txt")
	require.True(t, ok)
	require.Equal(t, uint32(2), v)

	// Authoring continues to work against the newly rotated feed.
	require.NoError(t, m.UpdateFile("f.txt", "compromised-recovery-2", 2))
	require.NoError(t, m.AddApply("f.txt", 3))
	require.Equal(t, "compromised-recovery-2", readTracked(t, dir, "f.txt"))
}

// Property 10 — re-applying the already-applied version is a no-op.
func TestApplyUpdateIsIdempotent(t *testing.T) {
	m, dir := newManager(t)
	require.NoError(t, m.CreateNewFile("f.txt", "hello"))

	require.NoError(t, m.AddApply("f.txt", 1))
	require.Equal(t, "hello", readTracked(t, dir, "f.txt"))
}

// A restarted node reloads update_cfg.json and reopens the feeds it
// names, recovering vc_dict/apply_dict without replaying every packet.
func TestBootstrapRestoresPersistedState(t *testing.T) {
	updateFID, updateSKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	reg := registry.New()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "update_cfg.json")

	m, err := version.NewBuilder(fs, reg).WithWorkspace(dir).WithConfigPath(cfgPath).Build()
	require.NoError(t, err)
	require.NoError(t, m.Bootstrap(updateFID, &updateSKey))
	require.NoError(t, m.CreateNewFile("f.txt", "hello"))
	require.NoError(t, m.UpdateFile("f.txt", "hello world", 1))
	require.NoError(t, m.AddApply("f.txt", 2))
	require.FileExists(t, cfgPath)

	// Simulate a process restart: fresh registry and Manager over the
	// same FS and config path, no in-memory state carried over.
	reg2 := registry.New()
	m2, err := version.NewBuilder(fs, reg2).WithWorkspace(dir).WithConfigPath(cfgPath).Build()
	require.NoError(t, err)
	require.NoError(t, m2.Bootstrap(updateFID, nil))

	v, ok := m2.AppliedVersion("f.txt")
	require.True(t, ok)
	require.Equal(t, uint32(2), v)
}
