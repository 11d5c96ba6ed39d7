// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fleet

import (
	"context"
	"sync"

	ferrors "grimm.is/firelet/internal/errors"
)

func unreachableErr(hostname string) error {
	return ferrors.Errorf(ferrors.KindUnreachable, "host %s is unreachable", hostname)
}

// SimFleet is an in-memory RemoteExec: no network I/O, a map of simulated
// per-host rulesets that apply writes into. It backs `cmd/firelet-ctl
// -sim` and the deployer's test suite.
type SimFleet struct {
	mu sync.Mutex

	// interfaces is seeded by the caller, typically from the model itself,
	// since a simulated host has no live kernel to query.
	interfaces  map[string]map[string]InterfaceAddr
	live        map[string][]string // hostname -> current simulated ruleset
	staged      map[string][]string
	unreachable map[string]bool
}

// NewSimFleet builds an empty simulated fleet; use SeedInterfaces and
// SeedRuleset to establish its starting state before a check()/deploy().
func NewSimFleet() *SimFleet {
	return &SimFleet{
		interfaces:  make(map[string]map[string]InterfaceAddr),
		live:        make(map[string][]string),
		staged:      make(map[string][]string),
		unreachable: make(map[string]bool),
	}
}

// SeedInterfaces sets the addressing reported for hostname on fetch.
func (f *SimFleet) SeedInterfaces(hostname string, ifaces map[string]InterfaceAddr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interfaces[hostname] = ifaces
}

// SeedRuleset sets hostname's simulated live ruleset, as if a prior deploy
// had already applied it.
func (f *SimFleet) SeedRuleset(hostname string, ruleset []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[hostname] = ruleset
}

// MarkUnreachable makes hostname fail fetch regardless of its mgmt address
// list, for exercising the deployer's unreachable-host handling.
func (f *SimFleet) MarkUnreachable(hostname string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable[hostname] = true
}

// FetchHost implements RemoteExec.
func (f *SimFleet) FetchHost(_ context.Context, hostname string, addrs []string) (HostState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unreachable[hostname] || len(addrs) == 0 {
		return HostState{}, unreachableErr(hostname)
	}
	return HostState{
		Ruleset:    append([]string(nil), f.live[hostname]...),
		Interfaces: f.interfaces[hostname],
	}, nil
}

// DeliverHost implements RemoteExec.
func (f *SimFleet) DeliverHost(_ context.Context, hostname string, ruleset []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged[hostname] = append([]string(nil), ruleset...)
	return nil
}

// ApplyHost implements RemoteExec.
func (f *SimFleet) ApplyHost(_ context.Context, hostname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines, ok := f.staged[hostname]
	if !ok {
		return ferrors.Errorf(ferrors.KindApplyFailed, "host %s: nothing staged to apply", hostname)
	}
	f.live[hostname] = lines
	delete(f.staged, hostname)
	return nil
}

func (f *SimFleet) Close() error { return nil }
