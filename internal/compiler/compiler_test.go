// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"net/netip"
	"reflect"
	"strings"
	"testing"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

func mustAddr(s string) netip.Addr {
	a, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// A ping allowed from the internet reaches the webserver's INPUT chain.
// fw.routed is empty, so the internet network (0.0.0.0/0) is neither a
// subnet of fw's own directly connected network nor of any routed network
// fw declares, and the ping is not forwarded through fw.
func TestAcceptPingFromInternet(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "fw", Iface: "eth0", IP: mustAddr("1.2.3.1"), Masklen: 24, LocalFW: true, NetworkFW: true, Mng: true},
			{Hostname: "webserver", Iface: "eth0", IP: mustAddr("1.2.3.10"), Masklen: 24, LocalFW: true, NetworkFW: false, Mng: true},
		},
		Networks: []model.Network{
			{Name: "internet", IP: mustAddr("0.0.0.0"), Masklen: 0},
			{Name: "lan", IP: mustAddr("1.2.3.0"), Masklen: 24},
		},
		Services: []model.Service{
			{Name: "icmp", Protocol: model.ProtoIP, Ports: ""},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "allow_ping", Src: "internet", SrcServ: "*", Dst: "webserver:eth0", DstServ: "icmp", Action: model.ActionAccept, LogLevel: 0},
		},
	}

	result, err := Compile(snap)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	webInput := result.Chains["webserver:eth0"][ChainInput]
	if len(webInput) < 2 || webInput[1] != "-p ip -s 0.0.0.0/0 -d 1.2.3.10 -j ACCEPT" {
		t.Fatalf("webserver INPUT = %v", webInput)
	}

	fwForward := result.Chains["fw:eth0"][ChainForward]
	if !reflect.DeepEqual(fwForward, []string{statefulAccept}) {
		t.Fatalf("fw FORWARD = %v, want only the stateful preamble (internet is not a subnet of fw's directly connected or routed networks)", fwForward)
	}

	webForward := result.Chains["webserver:eth0"][ChainForward]
	if !reflect.DeepEqual(webForward, []string{"-j DROP"}) {
		t.Fatalf("webserver FORWARD = %v, want [-j DROP]", webForward)
	}
}

// TestForwardingViaRoutedNetwork exercises the routed-network branch of
// the forwarding predicate with a topology where it can actually fire: fw
// is directly connected to "lan" and routes a "dmz" network it has no
// interface on, so traffic from dmz to lan leaves the routed network and
// is forwarded.
func TestForwardingViaRoutedNetwork(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "fw", Iface: "eth0", IP: mustAddr("10.0.0.1"), Masklen: 24, NetworkFW: true, Mng: true, Routed: []string{"dmz"}},
		},
		Networks: []model.Network{
			{Name: "lan", IP: mustAddr("10.0.0.0"), Masklen: 24},
			{Name: "dmz", IP: mustAddr("10.0.1.0"), Masklen: 24},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "dmz_to_lan", Src: "dmz", SrcServ: "*", Dst: "lan", DstServ: "*", Action: model.ActionAccept},
		},
	}

	result, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}

	forward := result.Chains["fw:eth0"][ChainForward]
	want := "-s 10.0.1.0/24 -d 10.0.0.0/24 -j ACCEPT"
	found := false
	for _, l := range forward {
		if strings.Contains(l, want) {
			found = true
		}
	}
	if !found {
		t.Fatalf("fw FORWARD = %v, want a line containing %q", forward, want)
	}
}

// A rule whose source is a host group expands to one emission per member,
// in declared order.
func TestGroupFlattening(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "alice", Iface: "eth0", IP: mustAddr("10.0.0.1"), Masklen: 24, Mng: true},
			{Hostname: "bob", Iface: "eth0", IP: mustAddr("10.0.0.2"), Masklen: 24, Mng: true},
			{Hostname: "server", Iface: "eth0", IP: mustAddr("10.0.0.3"), Masklen: 24, Mng: true},
		},
		HostGroups: []model.HostGroup{
			{Name: "admins", Children: []string{"alice:eth0", "bob:eth0"}},
		},
		Services: []model.Service{
			{Name: "ssh", Protocol: model.ProtoTCP, Ports: "22"},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "admin_ssh", Src: "admins", SrcServ: "*", Dst: "server:eth0", DstServ: "ssh", Action: model.ActionAccept},
		},
	}

	result, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}

	serverInput := result.Chains["server:eth0"][ChainInput]
	var acceptLines []string
	for _, l := range serverInput {
		if l != statefulAccept && strings.HasSuffix(l, "-j ACCEPT") {
			acceptLines = append(acceptLines, l)
		}
	}
	if len(acceptLines) != 2 {
		t.Fatalf("expected 2 accept emissions (one per admin), got %v", acceptLines)
	}
	if !strings.Contains(acceptLines[0], "10.0.0.1") || !strings.Contains(acceptLines[1], "10.0.0.2") {
		t.Fatalf("expected declared order alice then bob, got %v", acceptLines)
	}
}

// Conflicting src/dst service protocols reject the rule outright.
func TestProtocolMismatch(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{{Hostname: "h", Iface: "eth0", IP: mustAddr("10.0.0.1"), Mng: true}},
		Services: []model.Service{
			{Name: "tcp_web", Protocol: model.ProtoTCP, Ports: "80"},
			{Name: "udp_dns", Protocol: model.ProtoUDP, Ports: "53"},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "bad", Src: "*", SrcServ: "tcp_web", Dst: "*", DstServ: "udp_dns", Action: model.ActionAccept},
		},
	}

	_, err := Compile(snap)
	if ferrors.GetKind(err) != ferrors.KindBadRule {
		t.Fatalf("expected KindBadRule, got %v", err)
	}
}

// A wildcard drop rule with a log level emits a LOG line before the DROP
// on every chain it lands on.
func TestWildcardLogLevel(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "h1", Iface: "eth0", IP: mustAddr("10.0.0.1"), NetworkFW: true, Mng: true},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "drop_all", Src: "*", SrcServ: "*", Dst: "*", DstServ: "*", Action: model.ActionDrop, LogLevel: 4},
		},
	}

	result, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}
	input := result.Chains["h1:eth0"][ChainInput]
	wantLog := "-j LOG --log-level 4 --log-prefix drop_all"
	wantAction := "-j DROP"
	if len(input) != 3 || !strings.HasSuffix(input[1], wantLog) || input[2] != wantAction {
		t.Fatalf("INPUT = %v", input)
	}
}

// Compiling the same snapshot twice yields identical output.
func TestCompileDeterminism(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{{Hostname: "h", Iface: "eth0", IP: mustAddr("10.0.0.1"), Mng: true}},
		Rules: []model.Rule{{Enabled: true, Name: "r", Src: "*", SrcServ: "*", Dst: "*", DstServ: "*", Action: model.ActionAccept}},
	}

	a, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("Compile is not deterministic")
	}
}

// A rule whose src and dst resolve to the same concrete host emits nothing.
func TestNoSelfLoopRules(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "h1", Iface: "eth0", IP: mustAddr("10.0.0.1"), Mng: true},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "self", Src: "h1:eth0", SrcServ: "*", Dst: "h1:eth0", DstServ: "*", Action: model.ActionAccept},
		},
	}

	result, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}
	for _, lines := range result.Chains["h1:eth0"] {
		for _, l := range lines {
			if strings.Contains(l, "-s 10.0.0.1") && strings.Contains(l, "-d 10.0.0.1") {
				t.Fatalf("self-loop line emitted: %s", l)
			}
		}
	}
}

// A host that is not a network firewall never gets FORWARD emissions
// beyond its preamble.
func TestForwardingGating(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "h1", Iface: "eth0", IP: mustAddr("10.0.0.1"), NetworkFW: false, Mng: true},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "r", Src: "*", SrcServ: "*", Dst: "*", DstServ: "*", Action: model.ActionAccept},
		},
	}

	result, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(result.Chains["h1:eth0"][ChainForward], []string{"-j DROP"}) {
		t.Fatalf("expected FORWARD chain to only have the preamble DROP, got %v", result.Chains["h1:eth0"][ChainForward])
	}
}

// RulesetForAddress keeps only the lines that mention the interface's own
// address, a per-interface slice of the full compile output.
func TestRulesetForAddress(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "webserver", Iface: "eth0", IP: mustAddr("1.2.3.10"), Masklen: 24, Mng: true},
			{Hostname: "db", Iface: "eth0", IP: mustAddr("1.2.3.20"), Masklen: 24, Mng: true},
		},
		Services: []model.Service{
			{Name: "www", Protocol: model.ProtoTCP, Ports: "80,443"},
		},
		Rules: []model.Rule{
			{Enabled: true, Name: "web_in", Src: "*", SrcServ: "*", Dst: "webserver:eth0", DstServ: "www", Action: model.ActionAccept},
		},
	}

	result, err := Compile(snap)
	if err != nil {
		t.Fatal(err)
	}

	lines, err := RulesetForAddress(result, snap, "webserver", "eth0")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one line mentioning webserver's address")
	}
	for _, l := range lines {
		if !strings.Contains(l, "1.2.3.10") {
			t.Fatalf("line does not mention the interface address: %s", l)
		}
	}

	if _, err := RulesetForAddress(result, snap, "webserver", "eth9"); err == nil {
		t.Fatal("expected error for unknown interface")
	}
}
