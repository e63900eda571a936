// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import (
	"strings"

	"github.com/luxfi/tinylog/diffcodec"
)

// GetChanges computes the line-level change list that turns old into
// newText (spec §4.5): lines are split on "\n"; equal heads advance
// both cursors; when the old head does not reappear anywhere in the
// remaining new lines it is deleted, otherwise the new head is
// inserted and retried against the same old head. Line numbers are
// 1-based and advance only on an equal match or an insert.
func GetChanges(old, newText string) []diffcodec.ChangeRecord {
	oldLines := splitLines(old)
	newLines := splitLines(newText)

	var changes []diffcodec.ChangeRecord
	i, j := 0, 0
	ln := uint32(1)

	for i < len(oldLines) && j < len(newLines) {
		if oldLines[i] == newLines[j] {
			i++
			j++
			ln++
			continue
		}
		if !containsLine(newLines[j:], oldLines[i]) {
			changes = append(changes, diffcodec.ChangeRecord{Line: ln, Op: diffcodec.OpDelete, Text: oldLines[i]})
			i++
			continue
		}
		changes = append(changes, diffcodec.ChangeRecord{Line: ln, Op: diffcodec.OpInsert, Text: newLines[j]})
		j++
		ln++
	}
	for ; i < len(oldLines); i++ {
		changes = append(changes, diffcodec.ChangeRecord{Line: ln, Op: diffcodec.OpDelete, Text: oldLines[i]})
	}
	for ; j < len(newLines); j++ {
		changes = append(changes, diffcodec.ChangeRecord{Line: ln, Op: diffcodec.OpInsert, Text: newLines[j]})
		ln++
	}
	return changes
}

func containsLine(lines []string, target string) bool {
	for _, l := range lines {
		if l == target {
			return true
		}
	}
	return false
}

// ApplyChanges replays changes in order against a 1-indexed line-array
// view of content.
func ApplyChanges(content string, changes []diffcodec.ChangeRecord) string {
	lines := splitLines(content)
	for _, c := range changes {
		idx := int(c.Line) - 1
		switch c.Op {
		case diffcodec.OpInsert:
			if idx < 0 {
				idx = 0
			}
			if idx > len(lines) {
				idx = len(lines)
			}
			lines = append(lines[:idx:idx], append([]string{c.Text}, lines[idx:]...)...)
		case diffcodec.OpDelete:
			if idx >= 0 && idx < len(lines) {
				lines = append(lines[:idx:idx], lines[idx+1:]...)
			}
		}
	}
	return joinLines(lines)
}

// ReverseChanges maps insert<->delete and reverses the order, per
// spec §4.5's reversion rule.
func ReverseChanges(changes []diffcodec.ChangeRecord) []diffcodec.ChangeRecord {
	out := make([]diffcodec.ChangeRecord, len(changes))
	for i, c := range changes {
		op := diffcodec.OpInsert
		if c.Op == diffcodec.OpInsert {
			op = diffcodec.OpDelete
		}
		out[len(changes)-1-i] = diffcodec.ChangeRecord{Line: c.Line, Op: op, Text: c.Text}
	}
	return out
}

// splitLines treats the empty string as zero lines (the implicit
// empty-file root of the version graph), so inserting into a brand
// new file does not leave a stray blank leading line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
