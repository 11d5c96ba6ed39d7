// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package csvstore

import (
	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

// LoadServices reads the "services" table: name protocol ports. ports may
// be absent (wildcard protocol, or a protocol with no port concept).
func LoadServices(path string) (*Table[model.Service], error) {
	comments, rawRows, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	t := &Table[model.Service]{comments: comments}
	for n, fields := range rawRows {
		s, err := parseServiceRow(fields)
		if err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindBadData, "services: row %d", n+1)
		}
		t.Rows = append(t.Rows, s)
	}
	return t, nil
}

// SaveServices writes the "services" table back to path.
func SaveServices(path string, t *Table[model.Service]) error {
	rows := make([][]string, 0, len(t.Rows))
	for _, s := range t.Rows {
		rows = append(rows, serviceRow(s))
	}
	return writeRaw(path, t.comments, rows)
}

func parseServiceRow(fields []string) (model.Service, error) {
	if len(fields) < 2 {
		return model.Service{}, ferrors.Errorf(ferrors.KindBadData, "expected at least 2 fields, got %d", len(fields))
	}
	ports := ""
	if len(fields) > 2 {
		ports = fields[2]
	}
	return model.Service{Name: fields[0], Protocol: model.Protocol(fields[1]), Ports: ports}, nil
}

func serviceRow(s model.Service) []string {
	if s.Ports == "" {
		return []string{s.Name, string(s.Protocol)}
	}
	return []string{s.Name, string(s.Protocol), s.Ports}
}
