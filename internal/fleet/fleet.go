// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fleet implements the RemoteExec capability the deployer consumes:
// fetching live packet-filter state from a fleet of hosts, staging a new
// ruleset on each, and atomically applying it.
package fleet

import "context"

// InterfaceAddr is one interface's live addressing, as reported by a host.
// IPv6 is empty when the interface carries no IPv6 address.
type InterfaceAddr struct {
	IPv4 string
	IPv6 string
}

// HostState is what fetch observed on one host: its live filter-table
// ruleset, flattened in INPUT/OUTPUT/FORWARD order, and its interface
// addressing.
type HostState struct {
	Ruleset    []string
	Interfaces map[string]InterfaceAddr
}

// RemoteExec is the capability the reconciler/deployer depends on. Each
// method operates on a single host; the deployer is the one that fans work
// out across hosts, so a RemoteExec only has to guarantee that a single
// hostname's own FetchHost/DeliverHost/ApplyHost calls never run
// concurrently with each other.
type RemoteExec interface {
	// FetchHost connects to hostname (trying addrs in order until one
	// succeeds) and returns its live state.
	FetchHost(ctx context.Context, hostname string, addrs []string) (HostState, error)

	// DeliverHost stages ruleset on hostname without activating it.
	DeliverHost(ctx context.Context, hostname string, ruleset []string) error

	// ApplyHost atomically activates hostname's staged ruleset.
	ApplyHost(ctx context.Context, hostname string) error

	// Close releases any retained connections.
	Close() error
}
