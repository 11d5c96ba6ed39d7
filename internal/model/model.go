// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package model defines the entity types that make up a fleet's declarative
// firewall model: Host, Network, HostGroup, Service, and Rule, plus the
// immutable Snapshot the resolver and compiler operate on.
package model

import (
	"net/netip"
	"strings"

	"grimm.is/firelet/internal/addr"
	ferrors "grimm.is/firelet/internal/errors"
)

// Host is a single (hostname, iface) row: one management or data interface
// of a fleet member.
type Host struct {
	Hostname  string
	Iface     string
	IP        netip.Addr
	Masklen   int
	LocalFW   bool
	NetworkFW bool
	Mng       bool
	Routed    []string // names of Networks this host routes traffic for
}

// Key is the (hostname, iface) identity used by the resolver's
// host_by_hostname_iface index.
func (h Host) Key() string {
	return h.Hostname + ":" + h.Iface
}

// Network is a named, canonicalized CIDR block.
type Network struct {
	Name    string
	IP      netip.Addr // canonical network address
	Masklen int
}

// NewNetwork builds a Network with ip canonicalized to the network address
// of (ip, masklen). Loading and saving the networks table go through here;
// a Network placed directly into a table's rows keeps the address it was
// given until that table is saved.
func NewNetwork(name string, ip netip.Addr, masklen int) (Network, error) {
	canonical, err := addr.NetworkAddress(ip, masklen)
	if err != nil {
		return Network{}, ferrors.Wrapf(err, ferrors.KindBadData, "network %q: invalid address/masklen", name)
	}
	return Network{Name: name, IP: canonical, Masklen: masklen}, nil
}

// HostGroup is a named, possibly nested, set of host-iface/network/group
// children.
type HostGroup struct {
	Name     string
	Children []string
}

// Protocol enumerates the packet-filter protocols a Service may specify.
type Protocol string

const (
	ProtoIP       Protocol = "IP"
	ProtoTCP      Protocol = "TCP"
	ProtoUDP      Protocol = "UDP"
	ProtoOSPF     Protocol = "OSPF"
	ProtoISIS     Protocol = "IS-IS"
	ProtoSCTP     Protocol = "SCTP"
	ProtoAH       Protocol = "AH"
	ProtoESP      Protocol = "ESP"
	ProtoWildcard Protocol = "*"
)

func validProtocol(p Protocol) bool {
	switch p {
	case ProtoIP, ProtoTCP, ProtoUDP, ProtoOSPF, ProtoISIS, ProtoSCTP, ProtoAH, ProtoESP, ProtoWildcard:
		return true
	}
	return false
}

// Service names a protocol and an optional compact port range/list, e.g.
// "80,443,1000:2000".
type Service struct {
	Name     string
	Protocol Protocol
	Ports    string
}

// Action is the terminal verdict a Rule applies.
type Action string

const (
	ActionAccept Action = "ACCEPT"
	ActionDrop   Action = "DROP"
)

// Rule is one ordered entry of the rule list; its position in the owning
// Snapshot.Rules slice is its identity.
type Rule struct {
	Enabled     bool
	Name        string
	Src         string
	SrcServ     string
	Dst         string
	DstServ     string
	Action      Action
	LogLevel    int
	Description string
}

// Snapshot is an immutable value representing the entire model at one
// point in time. The compiler consumes a Snapshot and never mutates it;
// the editor mutates a Store and takes a fresh Snapshot from it on demand.
type Snapshot struct {
	Hosts      []Host
	Networks   []Network
	HostGroups []HostGroup
	Services   []Service
	Rules      []Rule
}

// validc reports whether s contains only printable ASCII excluding the
// characters that collide with packet-filter command syntax or shell
// quoting: double quote, single quote, '<', '>', and backtick.
func validc(s string) bool {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return false
		}
		if strings.ContainsRune(`"'<>`+"`", r) {
			return false
		}
	}
	return true
}

// Validate checks the character-set invariant and basic structural
// constraints for a Host row.
func (h Host) Validate() error {
	if !validc(h.Hostname) || !validc(h.Iface) {
		return ferrors.Errorf(ferrors.KindBadData, "host %q: hostname/iface contain forbidden characters", h.Hostname)
	}
	if h.Masklen < 0 || h.Masklen > 32 {
		return ferrors.Errorf(ferrors.KindBadData, "host %q: masklen %d out of range", h.Key(), h.Masklen)
	}
	for _, r := range h.Routed {
		if !validc(r) {
			return ferrors.Errorf(ferrors.KindBadData, "host %q: routed network name %q contains forbidden characters", h.Key(), r)
		}
	}
	return nil
}

// Validate checks the character-set invariant for a Network row.
func (n Network) Validate() error {
	if !validc(n.Name) {
		return ferrors.Errorf(ferrors.KindBadData, "network %q: name contains forbidden characters", n.Name)
	}
	if n.Masklen < 0 || n.Masklen > 32 {
		return ferrors.Errorf(ferrors.KindBadData, "network %q: masklen %d out of range", n.Name, n.Masklen)
	}
	return nil
}

// Validate checks the character-set invariant for a HostGroup row.
func (g HostGroup) Validate() error {
	if !validc(g.Name) {
		return ferrors.Errorf(ferrors.KindBadData, "hostgroup %q: name contains forbidden characters", g.Name)
	}
	for _, c := range g.Children {
		if !validc(c) {
			return ferrors.Errorf(ferrors.KindBadData, "hostgroup %q: child name %q contains forbidden characters", g.Name, c)
		}
	}
	return nil
}

// Validate checks the character-set invariant and protocol enumeration for
// a Service row.
func (s Service) Validate() error {
	if !validc(s.Name) {
		return ferrors.Errorf(ferrors.KindBadData, "service %q: name contains forbidden characters", s.Name)
	}
	if !validProtocol(s.Protocol) {
		return ferrors.Errorf(ferrors.KindBadRule, "service %q: unknown protocol %q", s.Name, s.Protocol)
	}
	if s.Protocol == ProtoWildcard && s.Ports != "" {
		return ferrors.Errorf(ferrors.KindBadRule, "service %q: wildcard protocol must not specify ports", s.Name)
	}
	return nil
}

// Validate checks the character-set invariant, action enumeration, and
// log-level range for a Rule row.
func (r Rule) Validate() error {
	if !validc(r.Name) || !validc(r.Description) {
		return ferrors.Errorf(ferrors.KindBadRule, "rule %q: name/description contain forbidden characters", r.Name)
	}
	if r.Action != ActionAccept && r.Action != ActionDrop {
		return ferrors.Errorf(ferrors.KindBadRule, "rule %q: action must be ACCEPT or DROP, got %q", r.Name, r.Action)
	}
	if r.LogLevel < 0 || r.LogLevel > 7 {
		return ferrors.Errorf(ferrors.KindBadRule, "rule %q: log_level %d out of range 0..7", r.Name, r.LogLevel)
	}
	return nil
}
