// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package csvstore

import (
	"net/netip"
	"strconv"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

// LoadHosts reads the "hosts" table: hostname iface ip_addr masklen
// local_fw network_fw mng routed_network_name... — the trailing routed
// list is variable-length, everything from field index 7 onward.
func LoadHosts(path string) (*Table[model.Host], error) {
	comments, rawRows, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	t := &Table[model.Host]{comments: comments}
	for n, fields := range rawRows {
		h, err := parseHostRow(fields)
		if err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindBadData, "hosts: row %d", n+1)
		}
		t.Rows = append(t.Rows, h)
	}
	return t, nil
}

// SaveHosts writes the "hosts" table back to path, preserving t's leading
// comment lines.
func SaveHosts(path string, t *Table[model.Host]) error {
	rows := make([][]string, 0, len(t.Rows))
	for _, h := range t.Rows {
		rows = append(rows, hostRow(h))
	}
	return writeRaw(path, t.comments, rows)
}

func parseHostRow(fields []string) (model.Host, error) {
	if len(fields) < 7 {
		return model.Host{}, ferrors.Errorf(ferrors.KindBadData, "expected at least 7 fields, got %d", len(fields))
	}
	ip, err := netip.ParseAddr(fields[2])
	if err != nil {
		return model.Host{}, ferrors.Wrapf(err, ferrors.KindBadData, "ip_addr %q is not a valid address", fields[2])
	}
	masklen, err := strconv.Atoi(fields[3])
	if err != nil {
		return model.Host{}, ferrors.Wrapf(err, ferrors.KindBadData, "masklen %q is not an integer", fields[3])
	}
	localFW, err := parseBoolField(fields[4])
	if err != nil {
		return model.Host{}, err
	}
	networkFW, err := parseBoolField(fields[5])
	if err != nil {
		return model.Host{}, err
	}
	mng, err := parseBoolField(fields[6])
	if err != nil {
		return model.Host{}, err
	}
	var routed []string
	if len(fields) > 7 {
		routed = append(routed, fields[7:]...)
	}
	return model.Host{
		Hostname:  fields[0],
		Iface:     fields[1],
		IP:        ip,
		Masklen:   masklen,
		LocalFW:   localFW,
		NetworkFW: networkFW,
		Mng:       mng,
		Routed:    routed,
	}, nil
}

func hostRow(h model.Host) []string {
	row := []string{
		h.Hostname,
		h.Iface,
		h.IP.String(),
		strconv.Itoa(h.Masklen),
		boolField(h.LocalFW),
		boolField(h.NetworkFW),
		boolField(h.Mng),
	}
	return append(row, h.Routed...)
}
