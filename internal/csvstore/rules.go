// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package csvstore

import (
	"strconv"
	"strings"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

// LoadRules reads the "rules" table: enabled name src src_serv dst
// dst_serv action log_level description.
func LoadRules(path string) (*Table[model.Rule], error) {
	comments, rawRows, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	t := &Table[model.Rule]{comments: comments}
	for n, fields := range rawRows {
		r, err := parseRuleRow(fields)
		if err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindBadData, "rules: row %d", n+1)
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

// SaveRules writes the "rules" table back to path, preserving t's leading
// comment lines.
func SaveRules(path string, t *Table[model.Rule]) error {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, ruleRow(r))
	}
	return writeRaw(path, t.comments, rows)
}

func parseRuleRow(fields []string) (model.Rule, error) {
	if len(fields) < 8 {
		return model.Rule{}, ferrors.Errorf(ferrors.KindBadData, "expected at least 8 fields, got %d", len(fields))
	}
	enabled, err := parseBoolField(fields[0])
	if err != nil {
		return model.Rule{}, err
	}
	logLevel, err := strconv.Atoi(fields[7])
	if err != nil {
		return model.Rule{}, ferrors.Wrapf(err, ferrors.KindBadData, "log_level %q is not an integer", fields[7])
	}
	description := ""
	if len(fields) > 8 {
		description = strings.Trim(strings.Join(fields[8:], " "), `"`)
	}
	return model.Rule{
		Enabled:     enabled,
		Name:        fields[1],
		Src:         fields[2],
		SrcServ:     fields[3],
		Dst:         fields[4],
		DstServ:     fields[5],
		Action:      model.Action(fields[6]),
		LogLevel:    logLevel,
		Description: description,
	}, nil
}

func ruleRow(r model.Rule) []string {
	desc := r.Description
	if desc == "" {
		desc = `""`
	}
	return []string{
		boolField(r.Enabled),
		r.Name,
		r.Src,
		r.SrcServ,
		r.Dst,
		r.DstServ,
		string(r.Action),
		strconv.Itoa(r.LogLevel),
		desc,
	}
}
