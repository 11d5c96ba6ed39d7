// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package repo implements the version-controlled model repository by
// shelling out to the git binary. The contract wants git's actual on-disk
// history and porcelain output, so wrapping the real binary beats
// reimplementing it.
package repo

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ferrors "grimm.is/firelet/internal/errors"
	"grimm.is/firelet/internal/logging"
)

// Status reports whether the repository has uncommitted changes.
type Status struct {
	Dirty bool
}

// Commit is one entry of History, parsed from `git log --date=iso`.
type Commit struct {
	CommitID string
	Author   string
	Date     string
	Message  string
}

// DiffKind classifies one line of a Diff.
type DiffKind int

const (
	DiffTitle DiffKind = iota
	DiffAdd
	DiffDel
	DiffContext
)

// DiffLine is one rendered line of a Diff result.
type DiffLine struct {
	Line string
	Kind DiffKind
}

// Repository is a git-backed version history of a model directory.
type Repository struct {
	Dir string
	log *logging.Logger
}

// Open returns a Repository rooted at dir, bootstrapping a fresh git
// repository (init, add, initial commit) if dir isn't one yet.
func Open(ctx context.Context, dir string) (*Repository, error) {
	r := &Repository{Dir: dir, log: logging.Default().With("component", "repo", "dir", dir)}

	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindInternal, "creating repository directory %s", dir)
		}
		if _, err := r.git(ctx, "init"); err != nil {
			return nil, err
		}
		if _, err := r.git(ctx, "add", "-A"); err != nil {
			return nil, err
		}
		if _, err := r.git(ctx, "commit", "--allow-empty", "-m", "initial import"); err != nil {
			return nil, err
		}
		r.log.Info("bootstrapped new repository")
	}

	return r, nil
}

func (r *Repository) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", ferrors.Attr(ferrors.Wrapf(err, ferrors.KindInternal, "git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String())), "dir", r.Dir)
	}
	return stdout.String(), nil
}

// Status reports whether the working tree has uncommitted changes.
func (r *Repository) Status(ctx context.Context) (Status, error) {
	out, err := r.git(ctx, "status", "--porcelain")
	if err != nil {
		return Status{}, err
	}
	return Status{Dirty: strings.TrimSpace(out) != ""}, nil
}

// SaveNeeded is a convenience wrapper over Status used by the deployer's
// save-gate.
func (r *Repository) SaveNeeded(ctx context.Context) (bool, error) {
	st, err := r.Status(ctx)
	if err != nil {
		return false, err
	}
	return st.Dirty, nil
}

// Save commits the current working tree with message.
func (r *Repository) Save(ctx context.Context, message string) error {
	if _, err := r.git(ctx, "add", "-A"); err != nil {
		return err
	}
	if _, err := r.git(ctx, "commit", "-m", message); err != nil {
		return err
	}
	r.log.Info("saved model", "message", message)
	return nil
}

// ResetToHEAD discards uncommitted changes, restoring the working tree to
// the last commit.
func (r *Repository) ResetToHEAD(ctx context.Context) error {
	_, err := r.git(ctx, "reset", "--hard", "HEAD")
	return err
}

// Rollback moves HEAD back n commits and discards everything after it.
func (r *Repository) Rollback(ctx context.Context, n int) error {
	if n <= 0 {
		return ferrors.Errorf(ferrors.KindValidation, "rollback count must be positive, got %d", n)
	}
	_, err := r.git(ctx, "reset", "--hard", "HEAD~"+strconv.Itoa(n))
	if err != nil {
		return err
	}
	r.log.Info("rolled back", "commits", n)
	return nil
}
