// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package deploy

import "grimm.is/firelet/internal/repo"

// DiffLine reuses repo.DiffLine's (line, kind) shape: the fleet diff and
// the git-history diff are both "what changed" views over ordered line
// lists, and render through the same vocabulary.
type DiffLine = repo.DiffLine

// diffLines computes added = new \ live and removed = live \ new, each
// rendered in the order it appears in its source list. This is a
// set-difference over rule lines, not a positional diff.
func diffLines(live, compiled []string) (added, removed []string) {
	liveSet := make(map[string]bool, len(live))
	for _, l := range live {
		liveSet[l] = true
	}
	compiledSet := make(map[string]bool, len(compiled))
	for _, l := range compiled {
		compiledSet[l] = true
	}

	for _, l := range compiled {
		if !liveSet[l] {
			added = append(added, l)
		}
	}
	for _, l := range live {
		if !compiledSet[l] {
			removed = append(removed, l)
		}
	}
	return added, removed
}

// Render turns a HostReport's added/removed lines into repo.DiffLine's
// add/del/context shape for a caller that wants one diff vocabulary across
// both version history and fleet reconciliation.
func Render(r HostReport) []DiffLine {
	var lines []DiffLine
	lines = append(lines, DiffLine{Line: r.Hostname, Kind: repo.DiffTitle})
	for _, l := range r.Added {
		lines = append(lines, DiffLine{Line: l, Kind: repo.DiffAdd})
	}
	for _, l := range r.Removed {
		lines = append(lines, DiffLine{Line: l, Kind: repo.DiffDel})
	}
	return lines
}
