// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"strings"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

// RulesetForAddress is a secondary projection used by the reconciliation
// UI: the lines of (hostname, iface)'s compiled chains whose "-s"/"-d"
// operand mentions that interface's own address. It never feeds the
// deployer's diff, which always operates on the full per-host flattened
// chain list.
func RulesetForAddress(result Result, snap model.Snapshot, hostname, iface string) ([]string, error) {
	var host model.Host
	found := false
	for _, h := range snap.Hosts {
		if h.Hostname == hostname && h.Iface == iface {
			host = h
			found = true
			break
		}
	}
	if !found {
		return nil, ferrors.Errorf(ferrors.KindNotFound, "no host row for %s:%s", hostname, iface)
	}

	ip := host.IP.String()
	// Every emitted line ends in " -j <action>", so an operand is always
	// followed by a space; matching it keeps 1.2.3.1 from matching 1.2.3.10.
	needle := []string{" -s " + ip + " ", " -d " + ip + " "}

	var filtered []string
	for _, line := range result.Flattened(host.Key()) {
		for _, n := range needle {
			if strings.Contains(line, n) {
				filtered = append(filtered, line)
				break
			}
		}
	}
	return filtered, nil
}
