// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package resolver builds name indexes from a model snapshot and resolves
// the names used by rules and host groups into concrete Host/Network
// endpoints, flattening host groups recursively.
package resolver

import (
	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/model"
)

// Resolver indexes a single immutable model.Snapshot by name.
type Resolver struct {
	snap model.Snapshot

	hostByHostnameIface map[string]model.Host
	hostByHostname      map[string]model.Host
	networkByName       map[string]model.Network
	groupChildrenByName map[string][]string
	serviceByName       map[string]model.Service
}

// New indexes snap's hosts, networks, groups, and services by name.
func New(snap model.Snapshot) *Resolver {
	r := &Resolver{
		snap:                snap,
		hostByHostnameIface: make(map[string]model.Host, len(snap.Hosts)),
		hostByHostname:      make(map[string]model.Host, len(snap.Hosts)),
		networkByName:       make(map[string]model.Network, len(snap.Networks)),
		groupChildrenByName: make(map[string][]string, len(snap.HostGroups)),
		serviceByName:       make(map[string]model.Service, len(snap.Services)),
	}
	for _, h := range snap.Hosts {
		r.hostByHostnameIface[h.Key()] = h
		// hostByHostname keeps an arbitrary interface — first one wins, used
		// only for output grouping, never for endpoint resolution.
		if _, ok := r.hostByHostname[h.Hostname]; !ok {
			r.hostByHostname[h.Hostname] = h
		}
	}
	for _, n := range snap.Networks {
		r.networkByName[n.Name] = n
	}
	for _, g := range snap.HostGroups {
		r.groupChildrenByName[g.Name] = g.Children
	}
	for _, s := range snap.Services {
		r.serviceByName[s.Name] = s
	}
	return r
}

// HostByHostnameIface looks up a Host by its "hostname:iface" key.
func (r *Resolver) HostByHostnameIface(key string) (model.Host, bool) {
	h, ok := r.hostByHostnameIface[key]
	return h, ok
}

// HostByHostname returns an arbitrary interface row for hostname, used only
// for grouping compiled output by host, never for rule endpoint resolution.
func (r *Resolver) HostByHostname(hostname string) (model.Host, bool) {
	h, ok := r.hostByHostname[hostname]
	return h, ok
}

// Hosts returns every host row in the snapshot, in model order.
func (r *Resolver) Hosts() []model.Host { return r.snap.Hosts }

// NetworkByName looks up a Network by name, used by the compiler's
// forwarding predicate to resolve a host's routed network names.
func (r *Resolver) NetworkByName(name string) (model.Network, bool) {
	n, ok := r.networkByName[name]
	return n, ok
}

// Service looks up a named service, returning a wildcard-protocol service
// ("*", empty ports) for the literal "*" service name.
func (r *Resolver) Service(name string) (model.Service, error) {
	if name == "*" {
		return model.Service{Name: "*", Protocol: model.ProtoWildcard, Ports: ""}, nil
	}
	s, ok := r.serviceByName[name]
	if !ok {
		return model.Service{}, ferrors.Errorf(ferrors.KindBadData, "service %q is not defined", name)
	}
	return s, nil
}

type groupColor int

const (
	white groupColor = iota
	gray
	black
)

// Flatten walks a host group's children recursively, resolving each
// terminal name to a Host or Network endpoint. Cycles among groups are
// detected via DFS color-marking and reported as BadData, rather than
// recursing indefinitely.
func (r *Resolver) Flatten(groupName string) ([]model.Endpoint, error) {
	colors := make(map[string]groupColor)
	var walk func(name string) ([]model.Endpoint, error)
	walk = func(name string) ([]model.Endpoint, error) {
		children, isGroup := r.groupChildrenByName[name]
		if !isGroup {
			return nil, ferrors.Errorf(ferrors.KindBadData, "hostgroup %q is not defined", name)
		}

		if colors[name] == gray {
			return nil, ferrors.Errorf(ferrors.KindBadData, "hostgroup %q participates in a cycle", name)
		}
		colors[name] = gray

		var out []model.Endpoint
		for _, child := range children {
			if h, ok := r.hostByHostnameIface[child]; ok {
				out = append(out, model.HostEndpoint(h))
				continue
			}
			if n, ok := r.networkByName[child]; ok {
				out = append(out, model.NetworkEndpoint(n))
				continue
			}
			if _, ok := r.groupChildrenByName[child]; ok {
				sub, err := walk(child)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
				continue
			}
			return nil, ferrors.Errorf(ferrors.KindBadData, "hostgroup %q: child %q does not resolve to a host, network, or group", name, child)
		}

		colors[name] = black
		return out, nil
	}

	return walk(groupName)
}

// ResolveEndpoint resolves a rule's src/dst name to a sequence of
// endpoints. All three namespaces (host-interface, network, hostgroup) are
// checked before returning: a name present in more than one is ambiguous
// and rejected as BadData rather than silently resolved to whichever
// namespace happens to be consulted first.
func (r *Resolver) ResolveEndpoint(name string) ([]model.Endpoint, error) {
	if name == "*" {
		return []model.Endpoint{model.WildcardEndpoint}, nil
	}

	_, isHost := r.hostByHostnameIface[name]
	_, isNetwork := r.networkByName[name]
	_, isGroup := r.groupChildrenByName[name]

	matches := 0
	if isHost {
		matches++
	}
	if isNetwork {
		matches++
	}
	if isGroup {
		matches++
	}
	if matches > 1 {
		return nil, ferrors.Errorf(ferrors.KindBadData, "name %q is ambiguous across namespaces (host/network/hostgroup); rename or prefix it", name)
	}

	switch {
	case isHost:
		return []model.Endpoint{model.HostEndpoint(r.hostByHostnameIface[name])}, nil
	case isNetwork:
		return []model.Endpoint{model.NetworkEndpoint(r.networkByName[name])}, nil
	case isGroup:
		return r.Flatten(name)
	default:
		return nil, ferrors.Errorf(ferrors.KindBadData, "name %q does not resolve to a host, network, or hostgroup", name)
	}
}
