// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package repo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func newTestRepo(t *testing.T) (*Repository, context.Context) {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	ctx := context.Background()

	// Bootstrap needs an identity to commit with; set one locally so the
	// test doesn't depend on the host's global git config.
	t.Setenv("GIT_AUTHOR_NAME", "test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")

	r, err := Open(ctx, dir)
	require.NoError(t, err)
	return r, ctx
}

func TestOpenBootstrapsRepository(t *testing.T) {
	r, ctx := newTestRepo(t)

	st, err := r.Status(ctx)
	require.NoError(t, err)
	require.False(t, st.Dirty, "freshly bootstrapped repo should be clean")

	history, err := r.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "initial import", history[0].Message)
}

func TestSaveAndRollback(t *testing.T) {
	r, ctx := newTestRepo(t)

	path := filepath.Join(r.Dir, "rules")
	require.NoError(t, os.WriteFile(path, []byte("1 r1 a b c d ACCEPT 0\n"), 0o644))
	require.NoError(t, r.Save(ctx, "m1"))

	require.NoError(t, os.WriteFile(path, []byte("1 r1 a b c d DROP 0\n"), 0o644))
	require.NoError(t, r.Save(ctx, "m2"))

	history, err := r.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3) // initial import, m1, m2

	require.NoError(t, r.Rollback(ctx, 1))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "ACCEPT")

	dirty, err := r.SaveNeeded(ctx)
	require.NoError(t, err)
	require.False(t, dirty)
}

func TestDirtyStatus(t *testing.T) {
	r, ctx := newTestRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, "rules"), []byte("1 r1 a b c d ACCEPT 0\n"), 0o644))

	dirty, err := r.SaveNeeded(ctx)
	require.NoError(t, err)
	require.True(t, dirty)
}
