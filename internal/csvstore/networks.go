// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package csvstore

import (
	"net/netip"
	"strconv"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

// LoadNetworks reads the "networks" table: name ip_addr masklen.
func LoadNetworks(path string) (*Table[model.Network], error) {
	comments, rawRows, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	t := &Table[model.Network]{comments: comments}
	for n, fields := range rawRows {
		nw, err := parseNetworkRow(fields)
		if err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindBadData, "networks: row %d", n+1)
		}
		t.Rows = append(t.Rows, nw)
	}
	return t, nil
}

// SaveNetworks writes the "networks" table back to path. Every row is
// canonicalized again before writing, so what lands on disk is always the
// network address of (ip_addr, masklen).
func SaveNetworks(path string, t *Table[model.Network]) error {
	rows := make([][]string, 0, len(t.Rows))
	for _, n := range t.Rows {
		canonical, err := model.NewNetwork(n.Name, n.IP, n.Masklen)
		if err != nil {
			return err
		}
		rows = append(rows, networkRow(canonical))
	}
	return writeRaw(path, t.comments, rows)
}

func parseNetworkRow(fields []string) (model.Network, error) {
	if len(fields) != 3 {
		return model.Network{}, ferrors.Errorf(ferrors.KindBadData, "expected 3 fields, got %d", len(fields))
	}
	ip, err := netip.ParseAddr(fields[1])
	if err != nil {
		return model.Network{}, ferrors.Wrapf(err, ferrors.KindBadData, "ip_addr %q is not a valid address", fields[1])
	}
	masklen, err := strconv.Atoi(fields[2])
	if err != nil {
		return model.Network{}, ferrors.Wrapf(err, ferrors.KindBadData, "masklen %q is not an integer", fields[2])
	}
	return model.NewNetwork(fields[0], ip, masklen)
}

func networkRow(n model.Network) []string {
	return []string{n.Name, n.IP.String(), strconv.Itoa(n.Masklen)}
}
