package execpolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Scenario 4 (spec.md §8): host_executable gate. An allow-listed basename
// only resolves from its configured paths; other paths fall back to
// heuristics (no match).
func TestPolicy_ResolveHostExecutable_AllowListGatesPath(t *testing.T) {
	p := NewPolicy()
	p.AddHostExecutable(HostExecutable{Name: "git", Paths: []string{"/usr/bin/git"}})

	name, ok := p.ResolveHostExecutable("/usr/bin/git")
	assert.True(t, ok)
	assert.Equal(t, "git", name)

	_, ok = p.ResolveHostExecutable("/opt/brew/bin/git")
	assert.False(t, ok)
}

func TestPolicy_ResolveHostExecutable_UnconfiguredNameIsTrusted(t *testing.T) {
	p := NewPolicy()
	name, ok := p.ResolveHostExecutable("/usr/bin/whatever")
	assert.True(t, ok)
	assert.Equal(t, "whatever", name)
}

func TestPolicy_ResolveHostExecutable_RejectsRelativePath(t *testing.T) {
	p := NewPolicy()
	_, ok := p.ResolveHostExecutable("git")
	assert.False(t, ok)
}

func TestPolicy_CheckWithOptions_ResolvesHostExecutableOnMiss(t *testing.T) {
	p := NewPolicy()
	p.AddRule(&PrefixRule{
		Pattern:  PrefixPattern{{Kind: PatternSingle, Single: "git"}, {Kind: PatternSingle, Single: "status"}},
		Decision: DecisionAllow,
	})
	p.AddHostExecutable(HostExecutable{Name: "git", Paths: []string{"/usr/bin/git"}})

	eval := p.CheckWithOptions([]string{"/usr/bin/git", "status"}, nil, EvaluateOptions{ResolveHostExecutables: true})
	assert.False(t, eval.UsedFallback)
	assert.Equal(t, "git", eval.ResolvedProgram)
	assert.Equal(t, DecisionAllow, eval.Decision)

	eval2 := p.CheckWithOptions([]string{"/opt/brew/bin/git", "status"}, nil, EvaluateOptions{ResolveHostExecutables: true})
	assert.True(t, eval2.UsedFallback)
}
