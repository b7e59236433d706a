// Package ghostcommit creates throwaway git commits as undo checkpoints
// before destructive user turns, without touching the user's branch, index,
// or reflog in a visible way.
package ghostcommit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
)

// CommitID is an opaque git object id (the hex SHA of a commit object).
type CommitID string

// Manager creates ghost commits for a working directory. Once creation
// fails for a session (not a repo, permission denied, git missing), it
// disables itself for the rest of the session rather than retrying on
// every turn.
//
// Maps to: spec.md §5 "Ghost-commit creation may be globally disabled for
// the session after the first failure."
type Manager struct {
	cwd      string
	disabled atomic.Bool
}

// NewManager returns a Manager rooted at cwd.
func NewManager(cwd string) *Manager {
	return &Manager{cwd: cwd}
}

// Disabled reports whether ghost-commit creation has been permanently
// disabled for this session after a prior failure.
func (m *Manager) Disabled() bool {
	return m.disabled.Load()
}

// ErrDisabled is returned by Create once the manager has been disabled.
var ErrDisabled = errors.New("ghostcommit: disabled for this session")

// Create snapshots the working tree's tracked changes (staged and unstaged;
// untracked files are not included) into a commit object without moving
// HEAD or any branch ref, and returns its id; with no tracked changes it
// returns HEAD's id. On first failure it disables itself and
// returns ErrDisabled on every subsequent call.
func (m *Manager) Create(ctx context.Context, message string) (CommitID, error) {
	if m.disabled.Load() {
		return "", ErrDisabled
	}

	id, err := m.create(ctx, message)
	if err != nil {
		m.disabled.Store(true)
		return "", err
	}
	return id, nil
}

func (m *Manager) create(ctx context.Context, message string) (CommitID, error) {
	if _, err := m.run(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		return "", fmt.Errorf("ghostcommit: not a git work tree: %w", err)
	}

	treeOut, err := m.run(ctx, "stash", "create")
	if err == nil && strings.TrimSpace(string(treeOut)) != "" {
		// A stash-create commit already has the full parent + tree graph we
		// want; reuse it directly rather than re-walking the index.
		return CommitID(strings.TrimSpace(string(treeOut))), nil
	}

	// No local modifications for stash to snapshot (stash create returns
	// empty output in that case): the working tree already matches HEAD, so
	// HEAD itself is a sufficient checkpoint.
	headOut, err := m.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("ghostcommit: resolve HEAD: %w", err)
	}
	return CommitID(strings.TrimSpace(string(headOut))), nil
}

// Restore resets the working tree and index to match a previously created
// ghost commit. This is destructive to uncommitted changes made since the
// checkpoint and is only ever invoked in response to an explicit user undo.
func (m *Manager) Restore(ctx context.Context, id CommitID) error {
	if id == "" {
		return errors.New("ghostcommit: empty commit id")
	}
	_, err := m.run(ctx, "reset", "--hard", string(id))
	if err != nil {
		return fmt.Errorf("ghostcommit: restore %s: %w", id, err)
	}
	return nil
}

func (m *Manager) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
