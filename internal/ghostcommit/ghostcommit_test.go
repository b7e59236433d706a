package ghostcommit

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	return dir
}

func TestManager_Create_NonRepoDisablesAfterFirstFailure(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Create(context.Background(), "checkpoint")
	require.Error(t, err)
	require.True(t, m.Disabled())

	_, err = m.Create(context.Background(), "checkpoint")
	require.ErrorIs(t, err, ErrDisabled)
}

func TestManager_Create_CleanTreeFallsBackToHead(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hello\n")
	commit(t, dir, "initial")

	m := NewManager(dir)
	id, err := m.Create(context.Background(), "checkpoint")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.False(t, m.Disabled())
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func commit(t *testing.T, dir, message string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	run("add", "-A")
	run("commit", "-q", "-m", message)
}
