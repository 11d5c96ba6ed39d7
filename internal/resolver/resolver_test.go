// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package resolver

import (
	"net/netip"
	"testing"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

func addr(s string) netip.Addr {
	a, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func TestFlattenGroupOfHosts(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "alice", Iface: "eth0", IP: addr("10.0.0.1")},
			{Hostname: "bob", Iface: "eth0", IP: addr("10.0.0.2")},
		},
		HostGroups: []model.HostGroup{
			{Name: "admins", Children: []string{"alice:eth0", "bob:eth0"}},
		},
	}
	r := New(snap)

	endpoints, err := r.Flatten("admins")
	if err != nil {
		t.Fatal(err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(endpoints))
	}
	if endpoints[0].Host.Hostname != "alice" || endpoints[1].Host.Hostname != "bob" {
		t.Fatalf("unexpected order: %+v", endpoints)
	}
}

func TestFlattenDetectsCycle(t *testing.T) {
	snap := model.Snapshot{
		HostGroups: []model.HostGroup{
			{Name: "a", Children: []string{"b"}},
			{Name: "b", Children: []string{"a"}},
		},
	}
	r := New(snap)

	if _, err := r.Flatten("a"); ferrors.GetKind(err) != ferrors.KindBadData {
		t.Fatalf("expected KindBadData for cycle, got %v", err)
	}
}

func TestFlattenNestedGroups(t *testing.T) {
	snap := model.Snapshot{
		Hosts: []model.Host{
			{Hostname: "alice", Iface: "eth0", IP: addr("10.0.0.1")},
		},
		Networks: []model.Network{
			{Name: "lan", IP: addr("10.0.0.0"), Masklen: 24},
		},
		HostGroups: []model.HostGroup{
			{Name: "inner", Children: []string{"alice:eth0"}},
			{Name: "outer", Children: []string{"inner", "lan"}},
		},
	}
	r := New(snap)

	endpoints, err := r.Flatten("outer")
	if err != nil {
		t.Fatal(err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("expected 2 flattened leaves, got %d: %+v", len(endpoints), endpoints)
	}
}

func TestResolveEndpointWildcard(t *testing.T) {
	r := New(model.Snapshot{})
	endpoints, err := r.ResolveEndpoint("*")
	if err != nil {
		t.Fatal(err)
	}
	if len(endpoints) != 1 || !endpoints[0].IsWildcard() {
		t.Fatalf("expected single wildcard endpoint, got %+v", endpoints)
	}
}

func TestResolveEndpointAmbiguous(t *testing.T) {
	snap := model.Snapshot{
		Networks:   []model.Network{{Name: "shared", IP: addr("10.0.0.0"), Masklen: 24}},
		HostGroups: []model.HostGroup{{Name: "shared", Children: nil}},
	}
	r := New(snap)

	if _, err := r.ResolveEndpoint("shared"); ferrors.GetKind(err) != ferrors.KindBadData {
		t.Fatalf("expected ambiguity to be reported as BadData, got %v", err)
	}
}

func TestResolveEndpointUndefined(t *testing.T) {
	r := New(model.Snapshot{})
	if _, err := r.ResolveEndpoint("nope"); ferrors.GetKind(err) != ferrors.KindBadData {
		t.Fatalf("expected KindBadData for undefined name, got %v", err)
	}
}
