// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package compiler turns an immutable model snapshot into per-host,
// per-chain packet-filter rule lists. It is pure and single-threaded: it
// consumes a model.Snapshot and returns a value, with no shared mutable
// state and no suspension points.
package compiler

import (
	"strconv"
	"strings"

	"grimm.is/firelet/internal/addr"
	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
	"grimm.is/firelet/internal/resolver"
)

// Chain is one of the three packet-filter chains the compiler emits.
type Chain string

const (
	ChainInput   Chain = "INPUT"
	ChainOutput  Chain = "OUTPUT"
	ChainForward Chain = "FORWARD"
)

// Chains in emission order; ByHostname flattens in this order.
var chainOrder = []Chain{ChainInput, ChainOutput, ChainForward}

const statefulAccept = "-m state --state RELATED,ESTABLISHED -j ACCEPT"

// Result is the authoritative compile output: for every Host row
// (identified by its "hostname:iface" key, since network_fw and iface are
// per-row attributes), the ordered line list of each chain.
type Result struct {
	Chains map[string]map[Chain][]string
}

// Flattened concatenates a host row's INPUT, OUTPUT and FORWARD chains in
// that order, each line tagged with its chain name ("INPUT <body>") so a
// fleet client can reconstruct valid iptables-restore input after the lines
// of all three chains have been merged into one list for diffing against
// live state.
func (r Result) Flattened(hostKey string) []string {
	chains, ok := r.Chains[hostKey]
	if !ok {
		return nil
	}
	var out []string
	for _, c := range chainOrder {
		for _, body := range chains[c] {
			out = append(out, string(c)+" "+body)
		}
	}
	return out
}

// ByHostname merges every Host row belonging to hostname into one ruleset,
// the way a fleet client delivers a single kernel ruleset per physical
// machine even when the model splits that machine into several
// (hostname, iface) rows.
func (r Result) ByHostname(snap model.Snapshot, hostname string) []string {
	var out []string
	for _, h := range snap.Hosts {
		if h.Hostname == hostname {
			out = append(out, r.Flattened(h.Key())...)
		}
	}
	return out
}

// Compile runs the rule compiler against snap, producing the per-host,
// per-chain line lists. Any resolution or validation error is fatal to the
// whole operation: compilation never returns a partial result alongside an
// error.
func Compile(snap model.Snapshot) (Result, error) {
	res := resolver.New(snap)
	result := Result{Chains: make(map[string]map[Chain][]string, len(snap.Hosts))}

	for _, h := range snap.Hosts {
		forward := []string{statefulAccept}
		if !h.NetworkFW {
			forward = []string{"-j DROP"}
		}
		result.Chains[h.Key()] = map[Chain][]string{
			ChainInput:   {statefulAccept},
			ChainOutput:  {statefulAccept},
			ChainForward: forward,
		}
	}

	for _, rule := range snap.Rules {
		if !rule.Enabled {
			continue
		}
		if err := expandRule(res, snap, rule, result); err != nil {
			return Result{}, err
		}
	}

	return result, nil
}

func expandRule(res *resolver.Resolver, snap model.Snapshot, rule model.Rule, result Result) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	srcService, err := res.Service(rule.SrcServ)
	if err != nil {
		return ferrors.Attr(err, "rule", rule.Name)
	}
	if err := srcService.Validate(); err != nil {
		return ferrors.Attr(err, "rule", rule.Name)
	}
	dstService, err := res.Service(rule.DstServ)
	if err != nil {
		return ferrors.Attr(err, "rule", rule.Name)
	}
	if err := dstService.Validate(); err != nil {
		return ferrors.Attr(err, "rule", rule.Name)
	}

	sProto, dProto := srcService.Protocol, dstService.Protocol
	if sProto == model.ProtoWildcard {
		sProto = ""
	}
	if dProto == model.ProtoWildcard {
		dProto = ""
	}
	if sProto != "" && dProto != "" && sProto != dProto {
		return ferrors.Errorf(ferrors.KindBadRule, "rule %q: source and destination protocol must match (%s != %s)", rule.Name, sProto, dProto)
	}
	effProto := dProto
	if effProto == "" {
		effProto = sProto
	}

	protoFrag := ""
	if effProto != "" {
		protoFrag = " -p " + strings.ToLower(string(effProto))
	}
	sportFrag := portFragment(srcService.Ports, "--sport")
	dportFrag := portFragment(dstService.Ports, "--dport")

	srcs, err := res.ResolveEndpoint(rule.Src)
	if err != nil {
		return ferrors.Attr(err, "rule", rule.Name)
	}
	dsts, err := res.ResolveEndpoint(rule.Dst)
	if err != nil {
		return ferrors.Attr(err, "rule", rule.Name)
	}

	for _, s := range srcs {
		for _, d := range dsts {
			if s.SameHost(d) {
				continue
			}

			srcFrag := ""
			if !s.IsWildcard() {
				srcFrag = " -s " + s.CIDR()
			}
			dstFrag := ""
			if !d.IsWildcard() {
				dstFrag = " -d " + d.CIDR()
			}
			body := protoFrag + srcFrag + sportFrag + dstFrag + dportFrag

			for _, h := range snap.Hosts {
				hEndpoint := model.HostEndpoint(h)
				chains := result.Chains[h.Key()]

				if d.IsWildcard() || model.Contains(d, hEndpoint) {
					appendLines(chains, ChainInput, body, rule, " -i "+h.Iface)
				}
				if s.IsWildcard() || model.Contains(s, hEndpoint) {
					appendLines(chains, ChainOutput, body, rule, "")
				}
				if h.NetworkFW && forwarded(res, s, d, h) {
					appendLines(chains, ChainForward, body, rule, "")
				}
			}
		}
	}

	return nil
}

// appendLines emits, in order, the optional LOG line followed by the
// action line for one (rule, host, chain) expansion. ifacePrefix is
// non-empty only for INPUT, and only the LOG line carries it. Action lines
// never name an interface, on any chain.
func appendLines(chains map[Chain][]string, chain Chain, body string, rule model.Rule, ifacePrefix string) {
	if rule.LogLevel > 0 {
		logLine := ifacePrefix + body + " -j LOG --log-level " + strconv.Itoa(rule.LogLevel) + " --log-prefix " + rule.Name
		chains[chain] = append(chains[chain], strings.TrimPrefix(logLine, " "))
	}
	actionLine := body + " -j " + string(rule.Action)
	chains[chain] = append(chains[chain], strings.TrimPrefix(actionLine, " "))
}

func portFragment(ports, flag string) string {
	if ports == "" {
		return ""
	}
	multiport := ""
	if strings.Contains(ports, ",") {
		multiport = " -m multiport"
	}
	return multiport + " " + flag + " " + ports
}

// forwarded reports whether traffic from s to d transits host h, i.e.
// belongs on h's FORWARD chain: s originates on h's directly connected
// network or on one of its routed networks, and d lies outside that
// network. Traffic sourced from h itself is output, not transit.
func forwarded(res *resolver.Resolver, s, d model.Endpoint, h model.Host) bool {
	if s.IsWildcard() {
		return true
	}
	if s.Kind == model.EndpointHost && s.Host.IP == h.IP {
		return false
	}

	hostNet, err := addr.NetworkAddress(h.IP, h.Masklen)
	if err != nil {
		return false
	}
	netH := model.NetworkEndpoint(model.Network{IP: hostNet, Masklen: h.Masklen})

	if model.Contains(netH, s) {
		return !model.Contains(netH, d)
	}

	for _, routedName := range h.Routed {
		r, ok := res.NetworkByName(routedName)
		if !ok {
			continue
		}
		rEndpoint := model.NetworkEndpoint(r)
		if model.Contains(rEndpoint, s) && !model.Contains(rEndpoint, d) {
			return true
		}
	}

	return false
}
