package execpolicy

// Evaluation holds the result of evaluating a command against the policy.
//
// Maps to: codex-rs/execpolicy/src/lib.rs Evaluation
type Evaluation struct {
	// Decision is the aggregate decision (highest of all matching rules).
	Decision Decision
	// MatchedRules are the rules that matched the command.
	MatchedRules []Rule
	// Justification is the justification from the highest-decision matched rule.
	Justification string
	// UsedFallback is true if no rules matched and the fallback was used.
	UsedFallback bool
	// ResolvedProgram is set when argv[0] was resolved to an on-disk
	// basename via ResolveHostExecutable before rule lookup (spec.md §4.1
	// step 3).
	ResolvedProgram string
}

// EvaluateOptions controls how Check resolves argv[0] before matching.
type EvaluateOptions struct {
	// ResolveHostExecutables enables step 2 of §4.1: when argv[0] has no
	// direct rule match, try resolving it as an absolute path against the
	// configured HostExecutable allow-lists.
	ResolveHostExecutables bool
}

// Policy holds a set of rules indexed by program name for fast lookup.
//
// Maps to: codex-rs/execpolicy/src/lib.rs Policy
type Policy struct {
	// rulesByProgram maps program name → rules. An empty-string key holds
	// rules whose first token is an alternative set (cannot index by single name).
	rulesByProgram map[string][]Rule

	networkRules    []NetworkRule
	hostExecutables map[string]HostExecutable
}

// NewPolicy creates an empty policy.
func NewPolicy() *Policy {
	return &Policy{
		rulesByProgram:  make(map[string][]Rule),
		hostExecutables: make(map[string]HostExecutable),
	}
}

// AddRule adds a rule to the policy, indexed by program name.
func (p *Policy) AddRule(r Rule) {
	// Try to index by program name
	if pr, ok := r.(*PrefixRule); ok {
		name := pr.Pattern.ProgramName()
		p.rulesByProgram[name] = append(p.rulesByProgram[name], r)
		return
	}
	// Fallback: index under empty key
	p.rulesByProgram[""] = append(p.rulesByProgram[""], r)
}

// Check evaluates a single command against the policy.
// If no rules match, calls fallback to get a default decision.
//
// Maps to: codex-rs/execpolicy/src/lib.rs Policy::check
func (p *Policy) Check(cmd []string, fallback func([]string) Decision) Evaluation {
	return p.CheckWithOptions(cmd, fallback, EvaluateOptions{})
}

// CheckWithOptions is Check with host-executable resolution controlled
// explicitly (spec.md §4.1 step 2, scenario 4).
func (p *Policy) CheckWithOptions(cmd []string, fallback func([]string) Decision, opts EvaluateOptions) Evaluation {
	if len(cmd) == 0 {
		d := DecisionPrompt
		if fallback != nil {
			d = fallback(cmd)
		}
		return Evaluation{Decision: d, UsedFallback: true}
	}

	matched, highestDecision, justification := p.matchRules(cmd[0], cmd)

	var resolvedProgram string
	if len(matched) == 0 && opts.ResolveHostExecutables {
		if resolved, ok := p.ResolveHostExecutable(cmd[0]); ok {
			resolvedProgram = resolved
			resolvedCmd := append([]string{resolved}, cmd[1:]...)
			matched, highestDecision, justification = p.matchRules(resolved, resolvedCmd)
		}
	}

	if len(matched) == 0 {
		// No rules matched — use fallback
		d := DecisionPrompt
		if fallback != nil {
			d = fallback(cmd)
		}
		return Evaluation{Decision: d, UsedFallback: true, ResolvedProgram: resolvedProgram}
	}

	return Evaluation{
		Decision:        highestDecision,
		MatchedRules:    matched,
		Justification:   justification,
		ResolvedProgram: resolvedProgram,
	}
}

func (p *Policy) matchRules(programName string, cmd []string) (matched []Rule, highestDecision Decision, justification string) {
	highestDecision = DecisionAllow

	for _, r := range p.rulesByProgram[programName] {
		if r.Match(cmd) {
			matched = append(matched, r)
			d := r.GetDecision()
			if d > highestDecision {
				highestDecision = d
				justification = r.GetJustification()
			}
		}
	}

	// Check rules with alternative first tokens (indexed under "")
	for _, r := range p.rulesByProgram[""] {
		if r.Match(cmd) {
			matched = append(matched, r)
			d := r.GetDecision()
			if d > highestDecision {
				highestDecision = d
				justification = r.GetJustification()
			}
		}
	}
	return matched, highestDecision, justification
}

// CheckMultiple evaluates multiple commands (e.g., from `bash -c "cmd1 && cmd2"`)
// and returns the aggregate result. The highest decision across all commands wins.
//
// Maps to: codex-rs/execpolicy/src/lib.rs Policy::check_multiple
func (p *Policy) CheckMultiple(cmds [][]string, fallback func([]string) Decision) Evaluation {
	if len(cmds) == 0 {
		d := DecisionPrompt
		if fallback != nil {
			d = fallback(nil)
		}
		return Evaluation{Decision: d, UsedFallback: true}
	}

	aggregate := Evaluation{Decision: DecisionAllow}
	allFallback := true

	for _, cmd := range cmds {
		eval := p.Check(cmd, fallback)
		if !eval.UsedFallback {
			allFallback = false
		}
		if eval.Decision > aggregate.Decision {
			aggregate.Decision = eval.Decision
			aggregate.Justification = eval.Justification
		}
		aggregate.MatchedRules = append(aggregate.MatchedRules, eval.MatchedRules...)
	}

	aggregate.UsedFallback = allFallback
	return aggregate
}

// Merge adds all rules from another policy into this one.
func (p *Policy) Merge(other *Policy) {
	for key, rules := range other.rulesByProgram {
		p.rulesByProgram[key] = append(p.rulesByProgram[key], rules...)
	}
	p.networkRules = append(p.networkRules, other.networkRules...)
	for name, host := range other.hostExecutables {
		p.hostExecutables[name] = host
	}
}
