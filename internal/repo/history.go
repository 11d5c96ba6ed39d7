// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package repo

import (
	"context"
	"strings"
)

const logFieldSep = "\x1f" // unit separator, never appears in commit metadata

// History returns the commit log, newest first, parsed from
// `git log --date=iso`.
func (r *Repository) History(ctx context.Context) ([]Commit, error) {
	out, err := r.git(ctx, "log", "--date=iso", "--pretty=format:%H"+logFieldSep+"%an"+logFieldSep+"%ad"+logFieldSep+"%s")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, logFieldSep, 4)
		if len(fields) != 4 {
			continue
		}
		commits = append(commits, Commit{
			CommitID: fields[0],
			Author:   fields[1],
			Date:     fields[2],
			Message:  fields[3],
		})
	}
	return commits, nil
}
