package execpolicy

import (
	"path/filepath"
	"runtime"
	"strings"
)

// windowsExecutableSuffixes are stripped (case-insensitively) from a
// basename before matching against a HostExecutable name on Windows.
var windowsExecutableSuffixes = []string{".exe", ".cmd", ".bat", ".com"}

// HostExecutable constrains which on-disk absolute paths are accepted as a
// given program basename when resolve_host_executables is enabled
// (spec.md §3, §4.1 step 2, scenario 4).
//
// Maps to: codex-rs/execpolicy/src/lib.rs HostExecutable
type HostExecutable struct {
	Name  string
	Paths []string
}

// AddHostExecutable registers a host_executable() declaration.
func (p *Policy) AddHostExecutable(h HostExecutable) {
	p.hostExecutables[strings.ToLower(h.Name)] = h
}

// basename derives the program name from an absolute argv[0], stripping a
// Windows executable suffix and case-folding (spec.md §4.1 step 2).
func basename(path string) string {
	name := filepath.Base(path)
	if runtime.GOOS == "windows" {
		lower := strings.ToLower(name)
		for _, suffix := range windowsExecutableSuffixes {
			if strings.HasSuffix(lower, suffix) {
				name = name[:len(name)-len(suffix)]
				break
			}
		}
	}
	return strings.ToLower(name)
}

// ResolveHostExecutable resolves an absolute argv[0] to the basename that
// should be used for rule lookup, but only if the path is in that name's
// configured allow-list (or no list is configured for it at all — an
// unconfigured name is trusted). Returns ("", false) when a list exists for
// the derived name and path is not on it.
//
// Maps to: codex-rs/execpolicy/src/lib.rs Policy::resolve_host_executable
func (p *Policy) ResolveHostExecutable(absPath string) (string, bool) {
	if !filepath.IsAbs(absPath) {
		return "", false
	}
	name := basename(absPath)

	host, configured := p.hostExecutables[name]
	if !configured || len(host.Paths) == 0 {
		return name, true
	}

	for _, allowed := range host.Paths {
		if allowed == absPath {
			return name, true
		}
	}
	return "", false
}
