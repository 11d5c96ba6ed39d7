// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package addr implements the CIDR arithmetic the rule compiler depends on:
// network-address canonicalization, containment, and CIDR string parsing.
// The compiler never manipulates dotted-quad strings directly; every
// comparison goes through this package.
package addr

import (
	"net/netip"

	ferrors "grimm.is/firelet/internal/errors"
)

// NetworkAddress returns the canonical network address of ip masked to the
// given prefix length.
func NetworkAddress(ip netip.Addr, prefix int) (netip.Addr, error) {
	p, err := ip.Prefix(prefix)
	if err != nil {
		return netip.Addr{}, ferrors.Wrapf(err, ferrors.KindBadData, "invalid prefix length %d for %s", prefix, ip)
	}
	return p.Masked().Addr(), nil
}

// ParseCIDR parses a "addr/prefix" string into its address and prefix
// length. A bare address (no "/") is treated as a /32 (or /128 for IPv6).
func ParseCIDR(s string) (netip.Addr, int, error) {
	prefix, err := netip.ParsePrefix(s)
	if err == nil {
		return prefix.Addr(), prefix.Bits(), nil
	}

	ip, err2 := netip.ParseAddr(s)
	if err2 != nil {
		return netip.Addr{}, 0, ferrors.Wrapf(err, ferrors.KindBadData, "malformed CIDR or address %q", s)
	}
	if ip.Is4() {
		return ip, 32, nil
	}
	return ip, 128, nil
}

// ContainsAddr reports whether the network addr/prefix contains ip.
func ContainsAddr(networkAddr netip.Addr, prefix int, ip netip.Addr) bool {
	p, err := networkAddr.Prefix(prefix)
	if err != nil {
		return false
	}
	return p.Contains(ip)
}

// ContainsNetwork reports whether the network (parentAddr/parentPrefix)
// contains the network (childAddr/childPrefix): the child's address masked
// by the parent's prefix equals the parent's address, and the child's
// prefix is at least as specific as the parent's.
func ContainsNetwork(parentAddr netip.Addr, parentPrefix int, childAddr netip.Addr, childPrefix int) bool {
	if childPrefix < parentPrefix {
		return false
	}
	masked, err := childAddr.Prefix(parentPrefix)
	if err != nil {
		return false
	}
	parentMasked, err := parentAddr.Prefix(parentPrefix)
	if err != nil {
		return false
	}
	return masked.Masked().Addr() == parentMasked.Masked().Addr()
}
