// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fleet

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/logging"
)

// SSHFleet is the production RemoteExec: it drives real hosts over
// golang.org/x/crypto/ssh, one cached client connection per hostname.
type SSHFleet struct {
	Username        string
	Auth            []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	Port            int
	DialTimeout     time.Duration

	log *logging.Logger

	mu       sync.Mutex
	clients  map[string]*ssh.Client
	hostLock map[string]*sync.Mutex
	staged   map[string]string // hostname -> rendered iptables-restore input
}

// NewSSHFleet builds a fleet client. hostKeyCallback is required explicitly
// — firelet never falls back to ssh.InsecureIgnoreHostKey silently.
func NewSSHFleet(username string, auth []ssh.AuthMethod, hostKeyCallback ssh.HostKeyCallback) *SSHFleet {
	return &SSHFleet{
		Username:        username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Port:            22,
		DialTimeout:     10 * time.Second,
		log:             logging.Default().With("component", "fleet.ssh"),
		clients:         make(map[string]*ssh.Client),
		hostLock:        make(map[string]*sync.Mutex),
		staged:          make(map[string]string),
	}
}

func (f *SSHFleet) lockFor(hostname string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.hostLock[hostname]
	if !ok {
		l = &sync.Mutex{}
		f.hostLock[hostname] = l
	}
	return l
}

// clientFor returns a cached connection for hostname, or dials the first
// reachable address in addrs, caching the result for reuse across
// fetch/deliver/apply.
func (f *SSHFleet) clientFor(hostname string, addrs []string) (*ssh.Client, error) {
	f.mu.Lock()
	if c, ok := f.clients[hostname]; ok {
		f.mu.Unlock()
		return c, nil
	}
	f.mu.Unlock()

	cfg := &ssh.ClientConfig{
		User:            f.Username,
		Auth:            f.Auth,
		HostKeyCallback: f.HostKeyCallback,
		Timeout:         f.DialTimeout,
	}

	var lastErr error
	for _, addr := range addrs {
		client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", addr, f.Port), cfg)
		if err != nil {
			lastErr = err
			continue
		}
		f.mu.Lock()
		f.clients[hostname] = client
		f.mu.Unlock()
		return client, nil
	}
	return nil, ferrors.Wrapf(lastErr, ferrors.KindUnreachable, "host %s: no reachable management address among %v", hostname, addrs)
}

func (f *SSHFleet) run(ctx context.Context, client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", ferrors.Wrap(err, ferrors.KindUnreachable, "opening ssh session")
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", ferrors.Wrap(ctx.Err(), ferrors.KindTimeout, "running "+cmd)
	case err := <-done:
		if err != nil {
			return "", ferrors.Wrapf(err, ferrors.KindApplyFailed, "running %q: %s", cmd, stderr.String())
		}
		return stdout.String(), nil
	}
}

// FetchHost implements RemoteExec.
func (f *SSHFleet) FetchHost(ctx context.Context, hostname string, addrs []string) (HostState, error) {
	lock := f.lockFor(hostname)
	lock.Lock()
	defer lock.Unlock()

	client, err := f.clientFor(hostname, addrs)
	if err != nil {
		return HostState{}, err
	}

	iptables, err := f.run(ctx, client, "iptables-save -t filter")
	if err != nil {
		return HostState{}, err
	}
	ipv4, err := f.run(ctx, client, "ip -o -4 addr show")
	if err != nil {
		return HostState{}, err
	}
	ipv6, err := f.run(ctx, client, "ip -o -6 addr show")
	if err != nil {
		return HostState{}, err
	}

	return HostState{
		Ruleset:    parseIptablesSave(iptables),
		Interfaces: mergeInterfaceAddrs(parseIPAddrShow(ipv4, false), parseIPAddrShow(ipv6, true)),
	}, nil
}

const stagingPath = "/var/lib/firelet/staged.rules"

// DeliverHost implements RemoteExec: writes the rendered ruleset to the
// staging path on the host without activating it. The host's live filter
// table is untouched until ApplyHost.
func (f *SSHFleet) DeliverHost(ctx context.Context, hostname string, ruleset []string) error {
	lock := f.lockFor(hostname)
	lock.Lock()
	defer lock.Unlock()

	f.mu.Lock()
	client, haveClient := f.clients[hostname]
	f.mu.Unlock()
	if !haveClient {
		return ferrors.Errorf(ferrors.KindUnreachable, "host %s: no open connection (fetch must run before deliver)", hostname)
	}

	body := renderIptablesRestore(ruleset)
	cmd := fmt.Sprintf("mkdir -p %s && cat > %s <<'FIRELET_EOF'\n%sFIRELET_EOF", filepath.Dir(stagingPath), stagingPath, body)
	if _, err := f.run(ctx, client, cmd); err != nil {
		return err
	}

	f.mu.Lock()
	f.staged[hostname] = body
	f.mu.Unlock()
	return nil
}

// ApplyHost implements RemoteExec: activates the staged ruleset through
// iptables-restore, which swaps the whole filter table in one commit.
func (f *SSHFleet) ApplyHost(ctx context.Context, hostname string) error {
	lock := f.lockFor(hostname)
	lock.Lock()
	defer lock.Unlock()

	f.mu.Lock()
	client, haveClient := f.clients[hostname]
	_, haveStaged := f.staged[hostname]
	f.mu.Unlock()
	if !haveClient {
		return ferrors.Errorf(ferrors.KindApplyFailed, "host %s: no open connection (fetch must run before apply)", hostname)
	}
	if !haveStaged {
		return ferrors.Errorf(ferrors.KindApplyFailed, "host %s: nothing staged to apply", hostname)
	}

	if _, err := f.run(ctx, client, fmt.Sprintf("iptables-restore < %s", stagingPath)); err != nil {
		return ferrors.Wrap(err, ferrors.KindApplyFailed, "iptables-restore failed")
	}
	f.mu.Lock()
	delete(f.staged, hostname)
	f.mu.Unlock()
	return nil
}

// Close tears down every cached connection.
func (f *SSHFleet) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for hostname, client := range f.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = ferrors.Attr(ferrors.Wrap(err, ferrors.KindInternal, "closing ssh client"), "host", hostname)
		}
	}
	f.clients = make(map[string]*ssh.Client)
	return firstErr
}
