// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"net/netip"

	"grimm.is/firelet/internal/addr"
)

// EndpointKind discriminates the three things a rule's src/dst can resolve
// to. Wildcard is a first-class variant, not a sentinel string or a nil
// pointer.
type EndpointKind int

const (
	EndpointHost EndpointKind = iota
	EndpointNetwork
	EndpointWildcard
)

// Endpoint is one concrete side of a rule's expanded cartesian product: a
// Host, a Network, or the Wildcard token.
type Endpoint struct {
	Kind    EndpointKind
	Host    Host
	Network Network
}

// WildcardEndpoint is the singleton "matches anything" endpoint.
var WildcardEndpoint = Endpoint{Kind: EndpointWildcard}

func HostEndpoint(h Host) Endpoint       { return Endpoint{Kind: EndpointHost, Host: h} }
func NetworkEndpoint(n Network) Endpoint { return Endpoint{Kind: EndpointNetwork, Network: n} }

// IsWildcard reports whether e is the Wildcard endpoint.
func (e Endpoint) IsWildcard() bool { return e.Kind == EndpointWildcard }

// addrPrefix returns e's address and prefix length, treating a Host as its
// own /32 (or /128) network so that host and network endpoints compare
// uniformly. ok is false only for Wildcard.
func (e Endpoint) addrPrefix() (ip netip.Addr, prefix int, ok bool) {
	switch e.Kind {
	case EndpointHost:
		if e.Host.IP.Is4() {
			return e.Host.IP, 32, true
		}
		return e.Host.IP, 128, true
	case EndpointNetwork:
		return e.Network.IP, e.Network.Masklen, true
	default:
		return netip.Addr{}, 0, false
	}
}

// CIDR renders e's address/prefix as the "-s"/"-d" operand the compiler
// emits, e.g. "1.2.3.0/24" or a bare address for a /32 host.
func (e Endpoint) CIDR() string {
	ip, prefix, ok := e.addrPrefix()
	if !ok {
		return ""
	}
	full := 32
	if ip.Is6() {
		full = 128
	}
	if prefix == full {
		return ip.String()
	}
	return netip.PrefixFrom(ip, prefix).String()
}

// SameHost reports whether e and o are both concrete Hosts with identical
// addresses — used to detect the self-loop case the compiler must skip.
func (e Endpoint) SameHost(o Endpoint) bool {
	return e.Kind == EndpointHost && o.Kind == EndpointHost && e.Host.IP == o.Host.IP
}

// Contains implements containment uniformly across Host/Host,
// Host/Network, and Network/Network pairs by treating a Host as a /32
// network: container contains contained iff contained's address masked by
// container's prefix equals container's address, and contained's prefix is
// at least as specific. Wildcards on either side match anything.
func Contains(container, contained Endpoint) bool {
	if container.IsWildcard() || contained.IsWildcard() {
		return true
	}
	ca, cp, _ := container.addrPrefix()
	da, dp, _ := contained.addrPrefix()
	return addr.ContainsNetwork(ca, cp, da, dp)
}
