// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package deploy

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"grimm.is/firelet/internal/compiler"
	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/fleet"
	"grimm.is/firelet/internal/logging"
	"grimm.is/firelet/internal/model"
	"grimm.is/firelet/internal/repo"
)

// PhaseTimeout bounds a single host's work within one phase; on expiry
// that host fails with Timeout for the current attempt and its peers
// proceed.
const PhaseTimeout = 30 * time.Second

// Deployer wires together the repository guard, compiler, and fleet client
// into the check/deploy orchestration.
type Deployer struct {
	Repo    *repo.Repository
	Fleet   fleet.RemoteExec
	Metrics *Metrics
	log     *logging.Logger

	// FleetHosts, when set, is the full inventory of hostnames known to be
	// in the fleet (e.g. from a manifest). A hostname present here but
	// absent from the model being compiled is logged at Warn and left
	// untouched — only hosts in the model ever get a management address to
	// connect through.
	FleetHosts []string

	// ManifestAddrs seeds management addresses for a hostname that has no
	// mng-flagged row of its own yet — e.g. a freshly bootstrapped host the
	// repository doesn't model in full. A hostname with at least one
	// mng-flagged row always uses that address instead.
	ManifestAddrs map[string][]string
}

// NewDeployer builds a Deployer; metrics may be nil, in which case
// instrumentation is skipped.
func NewDeployer(r *repo.Repository, f fleet.RemoteExec, m *Metrics) *Deployer {
	return &Deployer{Repo: r, Fleet: f, Metrics: m, log: logging.Default().With("component", "deploy")}
}

// Check computes and returns the diff without applying it.
func (d *Deployer) Check(ctx context.Context, snap model.Snapshot) (Result, error) {
	return d.run(ctx, snap, false)
}

// Deploy computes the diff and, when no fatal error is found, applies it in
// two phases (deliver to every host, then apply to every host).
func (d *Deployer) Deploy(ctx context.Context, snap model.Snapshot) (Result, error) {
	return d.run(ctx, snap, true)
}

func (d *Deployer) run(ctx context.Context, snap model.Snapshot, apply bool) (result Result, err error) {
	attemptID := uuid.New().String()
	result = Result{AttemptID: attemptID, Hosts: make(map[string]HostReport)}

	defer func() {
		if d.Metrics == nil {
			return
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		d.Metrics.DeploysTotal.WithLabelValues(status).Inc()
	}()

	if dirty, sErr := d.Repo.SaveNeeded(ctx); sErr != nil {
		return result, ferrors.Attr(sErr, "attempt_id", attemptID)
	} else if dirty {
		return result, ferrors.Attr(ferrors.New(ferrors.KindSaveRequired, "model has unsaved changes"), "attempt_id", attemptID)
	}

	compileStart := time.Now()
	compiled, cErr := compiler.Compile(snap)
	d.observePhase("compile", compileStart)
	if cErr != nil {
		return result, ferrors.Attr(cErr, "attempt_id", attemptID)
	}

	mgmtMap, mErr := buildMgmtMap(snap.Hosts, d.ManifestAddrs)
	if mErr != nil {
		return result, ferrors.Attr(mErr, "attempt_id", attemptID)
	}

	hostnames := distinctHostnames(snap.Hosts)
	d.warnUnmanagedFleetHosts(hostnames)

	states := make(map[string]fleet.HostState, len(hostnames))
	var statesMu sync.Mutex
	fetchStart := time.Now()
	fetchErrs := fanOut(ctx, hostnames, func(hctx context.Context, hostname string) error {
		state, fErr := d.Fleet.FetchHost(hctx, hostname, mgmtMap[hostname])
		if fErr != nil {
			return fErr
		}
		statesMu.Lock()
		states[hostname] = state
		statesMu.Unlock()
		return nil
	})
	d.observePhase("fetch", fetchStart)

	for hostname, fErr := range fetchErrs {
		result.Hosts[hostname] = HostReport{Hostname: hostname, State: StateUnreachable, Err: fErr}
	}

	var mismatchErr error
	for _, hostname := range hostnames {
		if _, failed := fetchErrs[hostname]; failed {
			continue
		}
		state := states[hostname]
		report := HostReport{Hostname: hostname, State: StateFetched}

		if ifaceErr := checkInterfaces(snap, hostname, state); ifaceErr != nil {
			report.State = StateMismatch
			report.Err = ifaceErr
			if mismatchErr == nil {
				mismatchErr = ifaceErr
			}
			result.Hosts[hostname] = report
			continue
		}

		added, removed := diffLines(state.Ruleset, compiled.ByHostname(snap, hostname))
		report.State = StateChecked
		report.Added = added
		report.Removed = removed
		result.Hosts[hostname] = report
	}

	result.UpToDate = allUpToDate(result.Hosts)

	// Interface mismatch is fatal for deploy, but inspectable during check.
	if apply && mismatchErr != nil {
		return result, ferrors.Attr(mismatchErr, "attempt_id", attemptID)
	}
	if !apply || result.UpToDate {
		return result, nil
	}

	target := make(map[string][]string)
	var targetHosts []string
	for hostname, report := range result.Hosts {
		if report.State == StateChecked {
			target[hostname] = compiled.ByHostname(snap, hostname)
			targetHosts = append(targetHosts, hostname)
		}
	}

	deliverStart := time.Now()
	deliverErrs := fanOut(ctx, targetHosts, func(hctx context.Context, hostname string) error {
		return d.Fleet.DeliverHost(hctx, hostname, target[hostname])
	})
	d.observePhase("deliver", deliverStart)
	for _, hostname := range targetHosts {
		report := result.Hosts[hostname]
		if dErr, failed := deliverErrs[hostname]; failed {
			report.State = StateApplyFailed
			report.Err = dErr
		} else {
			report.State = StateDelivered
		}
		result.Hosts[hostname] = report
	}

	var applyHosts []string
	for _, hostname := range targetHosts {
		if result.Hosts[hostname].State == StateDelivered {
			applyHosts = append(applyHosts, hostname)
		}
	}

	applyStart := time.Now()
	applyErrs := fanOut(ctx, applyHosts, func(hctx context.Context, hostname string) error {
		return d.Fleet.ApplyHost(hctx, hostname)
	})
	d.observePhase("apply", applyStart)
	for _, hostname := range applyHosts {
		report := result.Hosts[hostname]
		if aErr, failed := applyErrs[hostname]; failed {
			report.State = StateApplyFailed
			report.Err = aErr
		} else {
			report.State = StateApplied
		}
		result.Hosts[hostname] = report
	}

	return result, nil
}

func (d *Deployer) observePhase(phase string, start time.Time) {
	if d.Metrics != nil {
		d.Metrics.DeployPhaseSeconds.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}

// buildMgmtMap maps every hostname to its management addresses, taken from
// its mng-flagged interface rows. manifestAddrs fills in a hostname that
// has none of its own yet; a hostname with neither fails outright with
// MissingManagement.
func buildMgmtMap(hosts []model.Host, manifestAddrs map[string][]string) (map[string][]string, error) {
	mgmt := make(map[string][]string)
	order := distinctHostnames(hosts)
	for _, h := range hosts {
		if h.Mng {
			mgmt[h.Hostname] = append(mgmt[h.Hostname], h.IP.String())
		}
	}
	for _, hostname := range order {
		if len(mgmt[hostname]) == 0 {
			if addrs := manifestAddrs[hostname]; len(addrs) > 0 {
				mgmt[hostname] = addrs
				continue
			}
			return nil, ferrors.Errorf(ferrors.KindMissingManagement, "host %q has no management-flagged interface", hostname)
		}
	}
	return mgmt, nil
}

// warnUnmanagedFleetHosts logs each hostname in d.FleetHosts that has no
// corresponding row in the model being compiled.
func (d *Deployer) warnUnmanagedFleetHosts(modelHosts []string) {
	if len(d.FleetHosts) == 0 {
		return
	}
	inModel := make(map[string]bool, len(modelHosts))
	for _, h := range modelHosts {
		inModel[h] = true
	}
	for _, hostname := range d.FleetHosts {
		if !inModel[hostname] {
			d.log.Warn(hostname + " present on fleet but not in model")
		}
	}
}

func distinctHostnames(hosts []model.Host) []string {
	var order []string
	seen := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if !seen[h.Hostname] {
			seen[h.Hostname] = true
			order = append(order, h.Hostname)
		}
	}
	return order
}

// checkInterfaces verifies every model row belonging to hostname against
// the fetched live addressing: the row's iface must be present, and its
// configured ip_addr must match either the IPv4 or IPv6 portion reported
// live.
func checkInterfaces(snap model.Snapshot, hostname string, state fleet.HostState) error {
	for _, h := range snap.Hosts {
		if h.Hostname != hostname {
			continue
		}
		live, ok := state.Interfaces[h.Iface]
		if !ok {
			return ferrors.Errorf(ferrors.KindInterfaceMismatch, "host %s: interface %s missing from live addressing", hostname, h.Iface)
		}
		want := h.IP.String()
		gotV4, _, _ := strings.Cut(live.IPv4, "/")
		gotV6, _, _ := strings.Cut(live.IPv6, "/")
		if want != gotV4 && want != gotV6 {
			return ferrors.Attr(ferrors.Attr(ferrors.Errorf(ferrors.KindInterfaceMismatch,
				"host %s interface %s: expected %s, got %s/%s", hostname, h.Iface, want, gotV4, gotV6),
				"expected", want), "got", live)
		}
	}
	return nil
}

func allUpToDate(hosts map[string]HostReport) bool {
	for _, h := range hosts {
		if h.State != StateChecked {
			continue
		}
		if len(h.Added) != 0 || len(h.Removed) != 0 {
			return false
		}
	}
	return true
}

// fanOut runs fn for each item concurrently, each bounded by PhaseTimeout,
// collecting failures under a single mutex. RemoteExec implementations
// only need to serialize a single hostname's own calls against each other;
// fanOut is what actually drives the fleet across hosts.
func fanOut(ctx context.Context, items []string, fn func(ctx context.Context, item string) error) map[string]error {
	errs := make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, PhaseTimeout)
			defer cancel()
			if err := fn(itemCtx, item); err != nil {
				mu.Lock()
				errs[item] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
