// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fleet

import (
	"fmt"
	"strings"
)

// chainPrefixOrder mirrors compiler.chainOrder's emission order, so a
// parsed live ruleset lines up positionally with a compiled one for diffing.
var chainPrefixOrder = []string{"INPUT", "OUTPUT", "FORWARD"}

// parseIptablesSave extracts the three chains' rules from the
// "-A <chain> <body>" lines of `iptables-save -t filter` output, re-tagging
// each as "<chain> <body>" — the same shape compiler.Result.Flattened
// produces — so a live ruleset is directly comparable to a compiled one.
func parseIptablesSave(output string) []string {
	byChain := make(map[string][]string, len(chainPrefixOrder))
	inFilter := false

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "*filter"):
			inFilter = true
			continue
		case line == "COMMIT":
			inFilter = false
			continue
		}
		if !inFilter || !strings.HasPrefix(line, "-A ") {
			continue
		}
		rest := strings.TrimPrefix(line, "-A ")
		chain, body, ok := strings.Cut(rest, " ")
		if !ok {
			continue
		}
		byChain[chain] = append(byChain[chain], body)
	}

	var out []string
	for _, chain := range chainPrefixOrder {
		for _, body := range byChain[chain] {
			out = append(out, chain+" "+body)
		}
	}
	return out
}

// renderIptablesRestore renders a chain-tagged flattened line list (as
// produced by parseIptablesSave or compiler.Result.Flattened) back into
// iptables-restore input, splitting each line's leading chain name back off
// to rebuild its "-A <chain> <body>" form.
func renderIptablesRestore(taggedLines []string) string {
	var b strings.Builder
	b.WriteString("*filter\n")
	b.WriteString(":INPUT ACCEPT [0:0]\n")
	b.WriteString(":OUTPUT ACCEPT [0:0]\n")
	b.WriteString(":FORWARD ACCEPT [0:0]\n")
	for _, line := range taggedLines {
		chain, body, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "-A %s %s\n", chain, body)
	}
	b.WriteString("COMMIT\n")
	return b.String()
}

// parseIPAddrShow parses `ip -o -4/-6 addr show` output into iface -> CIDR.
// The -o flag guarantees one line per address: fields are
// "<idx>: <iface> <inet|inet6> <addr>/<prefix> ...".
func parseIPAddrShow(output string, v6 bool) map[string]string {
	result := make(map[string]string)
	wantFamily := "inet"
	if v6 {
		wantFamily = "inet6"
	}
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		iface := strings.TrimSuffix(fields[1], ":")
		family := fields[2]
		if family != wantFamily {
			continue
		}
		if _, exists := result[iface]; exists {
			continue // keep the first (primary) address for the interface
		}
		result[iface] = fields[3]
	}
	return result
}

func mergeInterfaceAddrs(v4, v6 map[string]string) map[string]InterfaceAddr {
	merged := make(map[string]InterfaceAddr, len(v4))
	for iface, cidr := range v4 {
		a := merged[iface]
		a.IPv4 = cidr
		merged[iface] = a
	}
	for iface, cidr := range v6 {
		a := merged[iface]
		a.IPv6 = cidr
		merged[iface] = a
	}
	return merged
}
