//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// LinuxSandbox uses bubblewrap (bwrap) for filesystem sandboxing on Linux.
//
// Maps to: codex-rs/core/src/sandbox/linux.rs
type LinuxSandbox struct{}

// Available returns true if bwrap is available on the system.
func (l *LinuxSandbox) Available() bool {
	_, err := exec.LookPath("bwrap")
	return err == nil
}

// Transform wraps the command with bwrap for filesystem isolation.
func (l *LinuxSandbox) Transform(spec CommandSpec, policy *SandboxPolicy) (*ExecEnv, error) {
	if policy == nil || !policy.IsRestricted() {
		return &ExecEnv{
			Command: append([]string{spec.Program}, spec.Args...),
			Cwd:     spec.Cwd,
		}, nil
	}

	cmd, env, err := buildBwrapCommand(spec, policy)
	if err != nil {
		return nil, err
	}

	return &ExecEnv{
		Command: cmd,
		Cwd:     spec.Cwd,
		Env:     env,
	}, nil
}

// buildBwrapCommand constructs the bwrap command for the given policy.
func buildBwrapCommand(spec CommandSpec, policy *SandboxPolicy) ([]string, map[string]string, error) {
	cmd := []string{"bwrap"}

	switch policy.Mode {
	case ModeReadOnly:
		// Read-only bind of root filesystem
		cmd = append(cmd, "--ro-bind", "/", "/")
		// Writable tmpfs for /tmp and /dev/shm
		cmd = append(cmd, "--tmpfs", "/tmp")
		cmd = append(cmd, "--dev", "/dev")
		cmd = append(cmd, "--proc", "/proc")

	case ModeWorkspaceWrite:
		// Read-only root
		cmd = append(cmd, "--ro-bind", "/", "/")
		cmd = append(cmd, "--tmpfs", "/tmp")
		cmd = append(cmd, "--dev", "/dev")
		cmd = append(cmd, "--proc", "/proc")
		// Writable bind mounts for specified roots
		for _, root := range policy.WritableRoots {
			path := string(root)
			cmd = append(cmd, "--bind", path, path)
			cmd = append(cmd, protectSubpaths(path, policy.ProtectedSubpaths)...)
		}

	default:
		return nil, nil, fmt.Errorf("unsupported sandbox mode: %s", policy.Mode)
	}

	// PID isolation
	cmd = append(cmd, "--unshare-pid")

	// Network isolation: --unshare-net drops the command into its own empty
	// network namespace, with no loopback or external interfaces. The env
	// var alone does not isolate anything; it only lets well-behaved tools
	// detect the restriction and fail fast with a clearer error.
	if !policy.NetworkAccess {
		cmd = append(cmd, "--unshare-net")
	}

	// Set working directory if specified
	if spec.Cwd != "" {
		cmd = append(cmd, "--chdir", spec.Cwd)
	}

	// Add the actual command
	cmd = append(cmd, "--")
	cmd = append(cmd, spec.Program)
	cmd = append(cmd, spec.Args...)

	// Environment variables for network policy
	env := make(map[string]string)
	if !policy.NetworkAccess {
		env["CODEX_SANDBOX_NETWORK_DISABLED"] = "1"
	}

	return cmd, env, nil
}

// protectSubpaths re-applies read-only binds for each protected name found
// directly under a writable root, after that root's own --bind makes it
// writable. Three cases (spec.md §4.2 steps d/e/f):
//   - the subpath exists: --ro-bind it back onto itself.
//   - the subpath is a symlink: --ro-bind /dev/null onto it, defeating a
//     symlink planted to redirect writes at a protected name.
//   - the subpath (or an ancestor under root) doesn't exist yet:
//     --ro-bind /dev/null onto the first missing component, blocking its
//     creation rather than letting the sandboxed process create it.
func protectSubpaths(root string, names []string) []string {
	var args []string
	for _, name := range names {
		path := filepath.Join(root, name)

		info, err := os.Lstat(path)
		switch {
		case err == nil && info.Mode()&os.ModeSymlink != 0:
			args = append(args, "--ro-bind", "/dev/null", path)
		case err == nil:
			args = append(args, "--ro-bind", path, path)
		case os.IsNotExist(err):
			missing := firstMissingComponent(root, path)
			if missing != "" {
				args = append(args, "--ro-bind", "/dev/null", missing)
			}
		}
	}
	return args
}

// firstMissingComponent walks path's ancestors from itself up to (but not
// including) root, returning the highest ancestor that does not exist —
// i.e. the component whose creation must be blocked to prevent the whole
// subpath from coming into existence.
func firstMissingComponent(root, path string) string {
	missing := ""
	for cur := path; cur != root && cur != "." && cur != string(filepath.Separator); cur = filepath.Dir(cur) {
		if _, err := os.Lstat(cur); os.IsNotExist(err) {
			missing = cur
			continue
		}
		break
	}
	return missing
}

// BuildBwrapCommand is exported for testing.
func BuildBwrapCommand(spec CommandSpec, policy *SandboxPolicy) ([]string, map[string]string, error) {
	return buildBwrapCommand(spec, policy)
}
