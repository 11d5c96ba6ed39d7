// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package csvstore implements the on-disk model format: one
// space-separated file per entity kind, with comment/blank lines preserved
// verbatim across rewrites and a missing file treated as an empty table.
package csvstore

import (
	"bufio"
	"os"
	"strings"

	ferrors "grimm.is/firelet/internal/errors"
)

// readRaw splits path into its preserved comment/blank lines and its
// data-row field lists. A missing file is an empty table, not an error, so
// a freshly initialized repository loads cleanly.
func readRaw(path string) (comments []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, ferrors.Wrapf(err, ferrors.KindInternal, "opening %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			comments = append(comments, line)
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, ferrors.Wrapf(err, ferrors.KindInternal, "reading %s", path)
	}
	return comments, rows, nil
}

// writeRaw writes comments verbatim at the top of path, followed by one
// space-joined line per row.
func writeRaw(path string, comments []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return ferrors.Wrapf(err, ferrors.KindInternal, "creating %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range comments {
		if _, err := w.WriteString(c + "\n"); err != nil {
			return ferrors.Wrapf(err, ferrors.KindInternal, "writing %s", path)
		}
	}
	for _, row := range rows {
		if _, err := w.WriteString(strings.Join(row, " ") + "\n"); err != nil {
			return ferrors.Wrapf(err, ferrors.KindInternal, "writing %s", path)
		}
	}
	return w.Flush()
}

// boolField renders a model boolean as the on-disk "1"/"0" encoding.
func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// parseBoolField parses the on-disk "1"/"0" boolean encoding.
func parseBoolField(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, ferrors.Errorf(ferrors.KindBadData, "expected \"1\" or \"0\", got %q", s)
	}
}
