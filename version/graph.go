// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import (
	"fmt"

	"github.com/luxfi/tinylog/diffcodec"
	"github.com/luxfi/tinylog/internal/queue"
	"github.com/luxfi/tinylog/store"
	"github.com/luxfi/tinylog/tinyerr"
	"github.com/luxfi/tinylog/wire"
)

// VersionGraph is the undirected adjacency map of spec §4.5: edges
// {v, dependency(v)} for every known version v. Version 0 is the
// implicit root (empty file) and owns no update blob of its own.
type VersionGraph struct {
	Edges  map[uint32][]uint32
	Access map[uint32]*store.Feed // which feed's log holds version v's blob
	DepOf  map[uint32]uint32      // v's recorded dependency_version, for v != 0
}

// fileFeedRange reads a file feed's updfile header (seq 2) to recover
// its base version, and its length to recover how many update blobs
// it has appended (length - 3, for the ischild/updfile/mkchild
// header packets at seq 1-3).
func fileFeedRange(feed *store.Feed) (minv uint32, length int, err error) {
	payload, err := feed.GetPayload(2)
	if err != nil {
		return 0, 0, fmt.Errorf("version: reading updfile for %s: %w", feed.FID(), err)
	}
	var p [wire.PayloadSize]byte
	copy(p[:], payload)
	_, base, err := wire.ParseUpdFilePayload(p)
	if err != nil {
		return 0, 0, err
	}
	length = int(feed.Length()) - 3
	if length < 0 {
		length = 0
	}
	return base, length, nil
}

// ExtractVersionGraph walks feed and its parents (the emergency-
// rotation chain) collecting every version each owns and the
// dependency edges recorded in their update blobs.
func ExtractVersionGraph(feed *store.Feed) (*VersionGraph, error) {
	g := &VersionGraph{
		Edges:  make(map[uint32][]uint32),
		Access: make(map[uint32]*store.Feed),
		DepOf:  make(map[uint32]uint32),
	}

	cur := feed
	for cur != nil {
		// A seq-2 packet that isn't updfile means cur is not a file
		// feed at all (e.g. the walk has climbed past the top of the
		// emergency-rotation chain into the plain update feed); that
		// marks the end of the chain, not a fault, mirroring the
		// original's "get_upd(...) is None -> break".
		typ, err := cur.GetType(2)
		if err != nil || typ != wire.UpdFile {
			break
		}

		minv, length, err := fileFeedRange(cur)
		if err != nil {
			return nil, err
		}
		for i := 0; i < length; i++ {
			v := minv + uint32(i)
			g.Access[v] = cur

			payload, err := cur.GetPayload(int64(4 + i))
			if err != nil {
				return nil, fmt.Errorf("version: reading update blob for version %d: %w", v, err)
			}
			dep, _, err := diffcodec.DecodeBlob(payload)
			if err != nil {
				return nil, fmt.Errorf("version: decoding update blob for version %d: %w", v, err)
			}
			g.DepOf[v] = dep
			g.Edges[v] = append(g.Edges[v], dep)
			g.Edges[dep] = append(g.Edges[dep], v)
		}

		parent, has, err := cur.OpenParent()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		cur = parent
	}
	return g, nil
}

// maxVersion returns the largest version number known to the graph.
func (g *VersionGraph) maxVersion() uint32 {
	var max uint32
	for v := range g.Edges {
		if v > max {
			max = v
		}
	}
	return max
}

// bfsPath returns the shortest path (inclusive of both endpoints)
// between start and end in the graph, by breadth-first search.
func bfsPath(g *VersionGraph, start, end uint32) ([]uint32, error) {
	if start == end {
		return []uint32{start}, nil
	}
	if _, ok := g.Edges[start]; !ok {
		return nil, tinyerr.ErrUnknownVersion
	}

	prev := map[uint32]uint32{start: start}
	q := queue.New()
	q.Push(start)
	found := false
	for !q.IsEmpty() && !found {
		cur, _ := q.Pop()
		for _, next := range g.Edges[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == end {
				found = true
				break
			}
			q.Push(next)
		}
	}
	if _, ok := prev[end]; !ok {
		return nil, tinyerr.ErrUnknownVersion
	}

	var path []uint32
	for v := end; ; v = prev[v] {
		path = append([]uint32{v}, path...)
		if v == start {
			break
		}
	}
	return path, nil
}

// JumpVersions computes the ordered change list that moves a file
// from version start to version end, walking the shortest path in the
// version graph rooted at feed. Each edge along the path is either an
// apply (when the next vertex's recorded dependency is the current
// one) or a revert (when the current vertex's recorded dependency is
// the next one) of that vertex's own change list; a strictly
// increasing path is all applies, a strictly decreasing path all
// reverts, and a mixed path naturally reverts down to the crossover
// before applying back up — without the crossover vertex itself ever
// contributing a change (spec §4.5).
func JumpVersions(start, end uint32, feed *store.Feed) ([]diffcodec.ChangeRecord, error) {
	if start == end {
		return nil, nil
	}

	g, err := ExtractVersionGraph(feed)
	if err != nil {
		return nil, err
	}
	maxV := g.maxVersion()
	if start > maxV || end > maxV {
		return nil, tinyerr.ErrConflict
	}

	path, err := bfsPath(g, start, end)
	if err != nil {
		return nil, err
	}

	var out []diffcodec.ChangeRecord
	for i := 0; i+1 < len(path); i++ {
		cur, next := path[i], path[i+1]
		switch {
		case g.DepOf[next] == cur:
			changes, err := readVersionChanges(g, next)
			if err != nil {
				return nil, err
			}
			out = append(out, changes...)
		case g.DepOf[cur] == next:
			changes, err := readVersionChanges(g, cur)
			if err != nil {
				return nil, err
			}
			out = append(out, ReverseChanges(changes)...)
		default:
			return nil, tinyerr.ErrConflict
		}
	}
	return out, nil
}

func readVersionChanges(g *VersionGraph, v uint32) ([]diffcodec.ChangeRecord, error) {
	if v == 0 {
		return nil, nil
	}
	feed, ok := g.Access[v]
	if !ok {
		return nil, tinyerr.ErrUnknownVersion
	}
	minv, _, err := fileFeedRange(feed)
	if err != nil {
		return nil, err
	}
	idx := int64(4) + int64(v-minv)
	payload, err := feed.GetPayload(idx)
	if err != nil {
		return nil, err
	}
	_, changes, err := diffcodec.DecodeBlob(payload)
	return changes, err
}
