// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command firelet-ctl drives a firelet repository from the shell: it
// compiles the current model, reconciles it against the live fleet, and
// applies or inspects changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"grimm.is/firelet/internal/compiler"
	"grimm.is/firelet/internal/csvstore"
	"grimm.is/firelet/internal/deploy"
	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/fleet"
	"grimm.is/firelet/internal/model"
	"grimm.is/firelet/internal/repo"
)

func main() {
	dir := flag.String("dir", ".", "model repository directory")
	manifestPath := flag.String("manifest", "", "path to fleet manifest YAML (management addresses per host)")
	sim := flag.Bool("sim", false, "use the in-memory simulated fleet instead of SSH")
	sshUser := flag.String("ssh-user", "root", "SSH username for live fleet connections")
	sshKeyPath := flag.String("ssh-key", "", "path to an SSH private key for live fleet connections")
	knownHostsPath := flag.String("known-hosts", "", "path to a known_hosts file for SSH host-key verification")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("usage: firelet-ctl [-dir DIR] [-manifest FILE] [-sim] <check|deploy|save|rollback|history|diff> [args]")
	}

	cfg := reconcileConfig{
		manifestPath:   *manifestPath,
		sim:            *sim,
		sshUser:        *sshUser,
		sshKeyPath:     *sshKeyPath,
		knownHostsPath: *knownHostsPath,
	}

	ctx := context.Background()

	switch args[0] {
	case "check":
		runReconcile(ctx, *dir, cfg, false)
	case "deploy":
		runReconcile(ctx, *dir, cfg, true)
	case "save":
		runSave(ctx, *dir, args[1:])
	case "rollback":
		runRollback(ctx, *dir, args[1:])
	case "history":
		runHistory(ctx, *dir)
	case "diff":
		runDiff(ctx, *dir, args[1:])
	default:
		log.Fatalf("unknown command: %s", args[0])
	}
}

func openRepo(ctx context.Context, dir string) *repo.Repository {
	r, err := repo.Open(ctx, dir)
	if err != nil {
		log.Fatalf("opening repository: %v", err)
	}
	return r
}

func runSave(ctx context.Context, dir string, args []string) {
	if len(args) == 0 {
		log.Fatal("usage: firelet-ctl save <message>")
	}
	r := openRepo(ctx, dir)
	if err := r.Save(ctx, args[0]); err != nil {
		log.Fatalf("save failed: %v", err)
	}
}

func runRollback(ctx context.Context, dir string, args []string) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			log.Fatalf("invalid rollback count %q: %v", args[0], err)
		}
		n = v
	}
	r := openRepo(ctx, dir)
	if err := r.Rollback(ctx, n); err != nil {
		log.Fatalf("rollback failed: %v", err)
	}
}

func runHistory(ctx context.Context, dir string) {
	r := openRepo(ctx, dir)
	commits, err := r.History(ctx)
	if err != nil {
		log.Fatalf("history failed: %v", err)
	}
	for _, c := range commits {
		id := c.CommitID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Printf("%s  %s  %s  %s\n", id, c.Date, c.Author, c.Message)
	}
}

func runDiff(ctx context.Context, dir string, args []string) {
	if len(args) == 0 {
		log.Fatal("usage: firelet-ctl diff <commit-id>")
	}
	r := openRepo(ctx, dir)
	lines, err := r.Diff(ctx, args[0])
	if err != nil {
		log.Fatalf("diff failed: %v", err)
	}
	for _, l := range lines {
		fmt.Println(l.Line)
	}
}

// reconcileConfig bundles the flags that shape how runReconcile reaches the
// fleet, so check/deploy don't pass a growing positional argument list.
type reconcileConfig struct {
	manifestPath   string
	sim            bool
	sshUser        string
	sshKeyPath     string
	knownHostsPath string
}

func runReconcile(ctx context.Context, dir string, cfg reconcileConfig, apply bool) {
	r := openRepo(ctx, dir)
	store, err := csvstore.Load(dir)
	if err != nil {
		log.Fatalf("loading model: %v", err)
	}
	snap := store.Snapshot()

	var fleetHosts []string
	manifest := fleet.Manifest{}
	var remote fleet.RemoteExec
	if cfg.sim {
		remote = seedSimFleet(snap)
	} else {
		if cfg.manifestPath != "" {
			manifest, err = fleet.LoadManifest(cfg.manifestPath)
			if err != nil {
				log.Fatalf("loading manifest: %v", err)
			}
			for hostname := range manifest.Hosts {
				fleetHosts = append(fleetHosts, hostname)
			}
		}
		remote = buildSSHFleet(cfg)
	}
	defer remote.Close()

	deployer := deploy.NewDeployer(r, remote, deploy.NewMetrics())
	deployer.FleetHosts = fleetHosts
	deployer.ManifestAddrs = manifest.Hosts

	op := "check"
	var result deploy.Result
	var opErr error
	if apply {
		op = "deploy"
		result, opErr = deployer.Deploy(ctx, snap)
	} else {
		result, opErr = deployer.Check(ctx, snap)
	}

	for hostname, report := range result.Hosts {
		fmt.Printf("%-20s %-12s", hostname, report.State)
		if report.Err != nil {
			fmt.Printf(" error=%v", report.Err)
		}
		fmt.Println()
		for _, l := range deploy.Render(report) {
			fmt.Println(" ", l.Line)
		}
	}

	if opErr != nil {
		if ferrors.GetKind(opErr) == ferrors.KindSaveRequired {
			log.Fatal("model has unsaved changes; run `firelet-ctl save <message>` first")
		}
		log.Fatalf("%s failed: %v", op, opErr)
	}
	if result.UpToDate {
		fmt.Println("fleet is up to date")
	}
}

// buildSSHFleet wires a production fleet.SSHFleet from a private key and a
// known_hosts file. Host-key verification is mandatory; there is no
// insecure fallback.
func buildSSHFleet(cfg reconcileConfig) *fleet.SSHFleet {
	if cfg.sshKeyPath == "" {
		log.Fatal("-ssh-key is required unless -sim is set")
	}
	if cfg.knownHostsPath == "" {
		log.Fatal("-known-hosts is required unless -sim is set")
	}

	keyBytes, err := os.ReadFile(cfg.sshKeyPath)
	if err != nil {
		log.Fatalf("reading ssh key: %v", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		log.Fatalf("parsing ssh key: %v", err)
	}
	hostKeyCallback, err := knownhosts.New(cfg.knownHostsPath)
	if err != nil {
		log.Fatalf("loading known_hosts: %v", err)
	}

	return fleet.NewSSHFleet(cfg.sshUser, []ssh.AuthMethod{ssh.PublicKeys(signer)}, hostKeyCallback)
}

// seedSimFleet builds an in-memory fleet whose addressing and live
// rulesets come from the model itself rather than a kernel: a -sim run
// starts up to date against its own model and shows drift only once the
// model changes.
func seedSimFleet(snap model.Snapshot) *fleet.SimFleet {
	sf := fleet.NewSimFleet()
	ifaces := make(map[string]map[string]fleet.InterfaceAddr)
	for _, h := range snap.Hosts {
		if ifaces[h.Hostname] == nil {
			ifaces[h.Hostname] = make(map[string]fleet.InterfaceAddr)
		}
		if h.IP.Is6() {
			ifaces[h.Hostname][h.Iface] = fleet.InterfaceAddr{IPv6: fmt.Sprintf("%s/%d", h.IP, h.Masklen)}
		} else {
			ifaces[h.Hostname][h.Iface] = fleet.InterfaceAddr{IPv4: fmt.Sprintf("%s/%d", h.IP, h.Masklen)}
		}
	}
	for hostname, m := range ifaces {
		sf.SeedInterfaces(hostname, m)
	}

	if compiled, err := compiler.Compile(snap); err == nil {
		for hostname := range ifaces {
			sf.SeedRuleset(hostname, compiled.ByHostname(snap, hostname))
		}
	}
	return sf
}
