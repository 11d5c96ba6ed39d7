// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package repo

import (
	"context"
	"strings"
)

// Diff returns commitID's changes against its parent, classified into
// title/add/del/context lines ready for a renderer to style.
func (r *Repository) Diff(ctx context.Context, commitID string) ([]DiffLine, error) {
	out, err := r.git(ctx, "diff", commitID+"^!")
	if err != nil {
		return nil, err
	}

	var lines []DiffLine
	for _, raw := range strings.Split(out, "\n") {
		switch {
		case raw == "":
			continue
		case strings.HasPrefix(raw, "diff --git"), strings.HasPrefix(raw, "index "),
			strings.HasPrefix(raw, "--- "), strings.HasPrefix(raw, "+++ "),
			strings.HasPrefix(raw, "@@"):
			lines = append(lines, DiffLine{Line: raw, Kind: DiffTitle})
		case strings.HasPrefix(raw, "+"):
			lines = append(lines, DiffLine{Line: raw, Kind: DiffAdd})
		case strings.HasPrefix(raw, "-"):
			lines = append(lines, DiffLine{Line: raw, Kind: DiffDel})
		default:
			lines = append(lines, DiffLine{Line: raw, Kind: DiffContext})
		}
	}
	return lines, nil
}
