// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package csvstore

import (
	"path/filepath"

	"grimm.is/firelet/internal/model"
)

const (
	rulesFile      = "rules"
	hostsFile      = "hosts"
	hostgroupsFile = "hostgroups"
	servicesFile   = "services"
	networksFile   = "networks"
)

// Store is the in-memory, repository-backed collection of all five entity
// tables. It is the single-writer side of the editor; compilation works
// against an immutable model.Snapshot taken from it, never against the
// Store itself.
type Store struct {
	Dir string

	Rules      *Table[model.Rule]
	Hosts      *Table[model.Host]
	HostGroups *Table[model.HostGroup]
	Services   *Table[model.Service]
	Networks   *Table[model.Network]
}

// Load reads all five CSV tables from dir. A missing file yields an empty
// table rather than an error.
func Load(dir string) (*Store, error) {
	rules, err := LoadRules(filepath.Join(dir, rulesFile))
	if err != nil {
		return nil, err
	}
	hosts, err := LoadHosts(filepath.Join(dir, hostsFile))
	if err != nil {
		return nil, err
	}
	groups, err := LoadHostGroups(filepath.Join(dir, hostgroupsFile))
	if err != nil {
		return nil, err
	}
	services, err := LoadServices(filepath.Join(dir, servicesFile))
	if err != nil {
		return nil, err
	}
	networks, err := LoadNetworks(filepath.Join(dir, networksFile))
	if err != nil {
		return nil, err
	}

	return &Store{
		Dir:        dir,
		Rules:      rules,
		Hosts:      hosts,
		HostGroups: groups,
		Services:   services,
		Networks:   networks,
	}, nil
}

// Save writes all five tables back to s.Dir.
func (s *Store) Save() error {
	if err := SaveRules(filepath.Join(s.Dir, rulesFile), s.Rules); err != nil {
		return err
	}
	if err := SaveHosts(filepath.Join(s.Dir, hostsFile), s.Hosts); err != nil {
		return err
	}
	if err := SaveHostGroups(filepath.Join(s.Dir, hostgroupsFile), s.HostGroups); err != nil {
		return err
	}
	if err := SaveServices(filepath.Join(s.Dir, servicesFile), s.Services); err != nil {
		return err
	}
	if err := SaveNetworks(filepath.Join(s.Dir, networksFile), s.Networks); err != nil {
		return err
	}
	return nil
}

// Snapshot takes an immutable copy of the store's current rows, the value
// the resolver and compiler operate on.
func (s *Store) Snapshot() model.Snapshot {
	return model.Snapshot{
		Hosts:      append([]model.Host(nil), s.Hosts.Rows...),
		Networks:   append([]model.Network(nil), s.Networks.Rows...),
		HostGroups: append([]model.HostGroup(nil), s.HostGroups.Rows...),
		Services:   append([]model.Service(nil), s.Services.Rows...),
		Rules:      append([]model.Rule(nil), s.Rules.Rows...),
	}
}
