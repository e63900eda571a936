// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import (
	"fmt"
	"sort"

	"github.com/luxfi/tinylog/store"
)

// DebugGraphString renders a version graph as a sorted edge list,
// adapted from the Python source's string_version_graph debug helper.
func DebugGraphString(feed *store.Feed) (string, error) {
	g, err := ExtractVersionGraph(feed)
	if err != nil {
		return "", err
	}

	versions := make([]uint32, 0, len(g.Edges))
	for v := range g.Edges {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })

	out := fmt.Sprintf("version graph rooted at %s (max=%d):\n", feed.FID(), g.maxVersion())
	for _, v := range versions {
		out += fmt.Sprintf("  %d -> dep %d\n", v, g.DepOf[v])
	}
	return out, nil
}

// DebugString renders a summary of m: one header line, then one line
// per tracked file with its currently applied version.
func (m *Manager) DebugString() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.vcDict))
	for name := range m.vcDict {
		names = append(names, name)
	}
	sort.Strings(names)

	out := fmt.Sprintf("update_feed=%s may_update=%v tracked=%d\n", m.updateFID, m.mayUpdate, len(names))
	for _, name := range names {
		entry := m.vcDict[name]
		out += fmt.Sprintf("  %s applied=%d file_fid=%s emergency_fid=%s\n",
			name, m.applyDict[name], entry.FileFID, entry.EmergencyFID)
	}
	return out
}
