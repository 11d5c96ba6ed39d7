// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package csvstore

import (
	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

// LoadHostGroups reads the "hostgroups" table: name child_name... .
func LoadHostGroups(path string) (*Table[model.HostGroup], error) {
	comments, rawRows, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	t := &Table[model.HostGroup]{comments: comments}
	for n, fields := range rawRows {
		if len(fields) < 1 {
			return nil, ferrors.Errorf(ferrors.KindBadData, "hostgroups: row %d: expected at least a name", n+1)
		}
		t.Rows = append(t.Rows, model.HostGroup{Name: fields[0], Children: append([]string(nil), fields[1:]...)})
	}
	return t, nil
}

// SaveHostGroups writes the "hostgroups" table back to path.
func SaveHostGroups(path string, t *Table[model.HostGroup]) error {
	rows := make([][]string, 0, len(t.Rows))
	for _, g := range t.Rows {
		rows = append(rows, append([]string{g.Name}, g.Children...))
	}
	return writeRaw(path, t.comments, rows)
}
