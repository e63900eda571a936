// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/diffcodec"
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/store"
	"github.com/luxfi/tinylog/version"
)

// newFileFeed builds a minimal file feed laid out per spec §6
// (ischild-slot filler at seq1, updfile at seq2, mkchild-slot filler
// at seq3, update blobs from seq4), seeding one update blob per
// (dep, old, new) entry, holding the diff from old to new, starting
// at version minVersion.
func newFileFeed(t *testing.T, minVersion uint32, versions []struct {
	dep uint32
	old string
	new string
}) *store.Feed {
	t.Helper()
	fid, skey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	fs := store.NewMemFS()
	feed, err := store.Create(fs, fid, ids.Empty, 0)
	require.NoError(t, err)
	require.NoError(t, feed.AppendPlain48(nil, skey)) // seq1: ischild slot
	require.NoError(t, feed.AppendUpdFile("f.txt", minVersion, skey))
	require.NoError(t, feed.AppendPlain48(nil, skey)) // seq3: mkchild slot

	for _, v := range versions {
		changes := version.GetChanges(v.old, v.new)
		blob := diffcodec.EncodeBlob(v.dep, changes)
		require.NoError(t, feed.AppendBlob(blob, skey))
	}
	return feed
}

// S4 — a strictly linear version chain.
func TestJumpVersionsLinearApply(t *testing.T) {
	feed := newFileFeed(t, 1, []struct {
		dep uint32
		old string
		new string
	}{
		{dep: 0, old: "", new: "a"},
		{dep: 1, old: "a", new: "b\na"},
		{dep: 2, old: "b\na", new: "b\nc\na"},
	})

	changes, err := version.JumpVersions(0, 3, feed)
	require.NoError(t, err)
	got := version.ApplyChanges("", changes)
	require.Equal(t, "b\nc\na", got)
}

// S5 — a branching graph requiring a revert-then-apply path.
func TestJumpVersionsRevertThenApply(t *testing.T) {
	feed := newFileFeed(t, 1, []struct {
		dep uint32
		old string
		new string
	}{
		{dep: 0, old: "", new: "a"},       // v1
		{dep: 1, old: "a", new: "b\na"},   // v2
		{dep: 2, old: "b\na", new: "b\nc\na"}, // v3
		{dep: 1, old: "a", new: "a\nz"},   // v4, branches off v1
	})

	start := version.ApplyChanges("", mustJump(t, feed, 0, 3))
	require.Equal(t, "b\nc\na", start)

	changes, err := version.JumpVersions(3, 4, feed)
	require.NoError(t, err)
	got := version.ApplyChanges(start, changes)
	require.Equal(t, "a\nz", got)
}

// Property 9 — jumping a version to itself is a no-op.
func TestJumpVersionsSameVersionIsNoop(t *testing.T) {
	feed := newFileFeed(t, 1, []struct {
		dep uint32
		old string
		new string
	}{
		{dep: 0, old: "", new: "a"},
	})
	changes, err := version.JumpVersions(1, 1, feed)
	require.NoError(t, err)
	require.Empty(t, changes)
}

// Property 7 — applying a change list and then its reverse round-trips.
func TestChangesReversibility(t *testing.T) {
	changes := version.GetChanges("b\na", "b\nc\na")
	forward := version.ApplyChanges("b\na", changes)
	require.Equal(t, "b\nc\na", forward)
	back := version.ApplyChanges(forward, version.ReverseChanges(changes))
	require.Equal(t, "b\na", back)
}

// ExtractVersionGraph must stop climbing parents once it reaches a
// feed whose seq-2 packet isn't updfile, rather than trying to parse
// it as one. Every real file feed's ultimate parent is the plain
// update feed, laid out exactly this way: createVCFeed appends the
// vc-feed's mkchild at the update feed's own seq 2.
func TestExtractVersionGraphStopsAtNonFileFeedParent(t *testing.T) {
	fs := store.NewMemFS()

	updateFID, updateSKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	updateFeed, err := store.Create(fs, updateFID, ids.Empty, 0)
	require.NoError(t, err)
	require.NoError(t, updateFeed.AppendPlain48(nil, updateSKey)) // seq1: genesis

	vcFID, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, updateFeed.AppendMkChild(vcFID, updateSKey)) // seq2: mkchild, not updfile

	fileFID, fileSKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	fileFeed, err := store.Create(fs, fileFID, updateFID, 3)
	require.NoError(t, err)
	require.NoError(t, fileFeed.AppendPlain48(nil, fileSKey))        // seq1: ischild slot
	require.NoError(t, fileFeed.AppendUpdFile("f.txt", 1, fileSKey)) // seq2: updfile
	require.NoError(t, fileFeed.AppendPlain48(nil, fileSKey))        // seq3: mkchild slot

	changes := version.GetChanges("", "a")
	require.NoError(t, fileFeed.AppendBlob(diffcodec.EncodeBlob(0, changes), fileSKey))

	g, err := version.ExtractVersionGraph(fileFeed)
	require.NoError(t, err)
	require.Contains(t, g.Edges, uint32(1))

	out, err := version.JumpVersions(0, 1, fileFeed)
	require.NoError(t, err)
	require.Equal(t, "a", version.ApplyChanges("", out))
}

func mustJump(t *testing.T, feed *store.Feed, start, end uint32) []diffcodec.ChangeRecord {
	t.Helper()
	changes, err := version.JumpVersions(start, end, feed)
	require.NoError(t, err)
	return changes
}
