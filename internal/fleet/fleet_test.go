// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fleet

import (
	"context"
	"reflect"
	"testing"

	ferrors "grimm.is/firelet/internal/errors"
)

func TestSimFleetFetchDeliverApply(t *testing.T) {
	f := NewSimFleet()
	f.SeedInterfaces("fw", map[string]InterfaceAddr{"eth0": {IPv4: "1.2.3.1/24"}})
	f.SeedRuleset("fw", []string{"-m state --state RELATED,ESTABLISHED -j ACCEPT"})

	ctx := context.Background()
	state, err := f.FetchHost(ctx, "fw", []string{"1.2.3.1"})
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if state.Interfaces["eth0"].IPv4 != "1.2.3.1/24" {
		t.Fatalf("unexpected interfaces: %+v", state)
	}

	target := []string{"-p tcp --dport 22 -j ACCEPT"}
	if err := f.DeliverHost(ctx, "fw", target); err != nil {
		t.Fatalf("unexpected deliver error: %v", err)
	}
	if err := f.ApplyHost(ctx, "fw"); err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}

	state, _ = f.FetchHost(ctx, "fw", []string{"1.2.3.1"})
	if !reflect.DeepEqual(state.Ruleset, target) {
		t.Fatalf("expected live ruleset to reflect applied target, got %v", state.Ruleset)
	}
}

func TestSimFleetUnreachable(t *testing.T) {
	f := NewSimFleet()
	f.MarkUnreachable("ghost")

	_, err := f.FetchHost(context.Background(), "ghost", []string{"10.0.0.9"})
	if ferrors.GetKind(err) != ferrors.KindUnreachable {
		t.Fatalf("expected KindUnreachable, got %v", err)
	}
}

func TestSimFleetNoManagementAddress(t *testing.T) {
	f := NewSimFleet()
	_, err := f.FetchHost(context.Background(), "h", nil)
	if ferrors.GetKind(err) != ferrors.KindUnreachable {
		t.Fatalf("expected KindUnreachable for empty address list, got %v", err)
	}
}

func TestParseIptablesSave(t *testing.T) {
	output := `*filter
:INPUT ACCEPT [0:0]
:FORWARD ACCEPT [0:0]
:OUTPUT ACCEPT [0:0]
-A INPUT -m state --state RELATED,ESTABLISHED -j ACCEPT
-A INPUT -p tcp --dport 22 -j ACCEPT
-A OUTPUT -m state --state RELATED,ESTABLISHED -j ACCEPT
-A FORWARD -j DROP
COMMIT
`
	got := parseIptablesSave(output)
	want := []string{
		"INPUT -m state --state RELATED,ESTABLISHED -j ACCEPT",
		"INPUT -p tcp --dport 22 -j ACCEPT",
		"OUTPUT -m state --state RELATED,ESTABLISHED -j ACCEPT",
		"FORWARD -j DROP",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseIptablesSave = %v, want %v", got, want)
	}
}

func TestParseIPAddrShow(t *testing.T) {
	output := "2: eth0    inet 1.2.3.1/24 brd 1.2.3.255 scope global eth0\n" +
		"3: eth1    inet 10.0.0.1/24 brd 10.0.0.255 scope global eth1\n"
	got := parseIPAddrShow(output, false)
	if got["eth0"] != "1.2.3.1/24" || got["eth1"] != "10.0.0.1/24" {
		t.Fatalf("unexpected parse result: %v", got)
	}
}

func TestMergeInterfaceAddrs(t *testing.T) {
	v4 := map[string]string{"eth0": "1.2.3.1/24"}
	v6 := map[string]string{"eth0": "fe80::1/64"}
	merged := mergeInterfaceAddrs(v4, v6)
	if merged["eth0"].IPv4 != "1.2.3.1/24" || merged["eth0"].IPv6 != "fe80::1/64" {
		t.Fatalf("unexpected merge: %+v", merged["eth0"])
	}
}
