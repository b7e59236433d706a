package modes

import (
	"fmt"
	"strings"
)

// resolveValue returns the explicit value for name if present and non-nil,
// else the variable's default, matching the original's "explicit or
// default" resolution used by both the variables summary line and the
// template substitution pass.
func resolveValue(vars map[string]*string, def VariableDefinition) (string, bool) {
	if v, ok := vars[def.Name]; ok && v != nil {
		return *v, true
	}
	if def.Default != nil {
		return *def.Default, true
	}
	return "", false
}

// renderOne renders a single enabled mode's scope label, variable summary
// line, and template-substituted body.
//
// Maps to: codex-rs/modes/src/lib.rs render_one
func renderOne(def *Definition, vars map[string]*string) (scope, varsLine, rendered string) {
	scope = def.Scope.String()

	var kvs []string
	for _, v := range def.Variables {
		if val, ok := resolveValue(vars, v); ok {
			kvs = append(kvs, fmt.Sprintf("%s=%s", v.Name, val))
		}
	}
	varsLine = strings.Join(kvs, ", ")

	rendered = def.Body
	for _, v := range def.Variables {
		val, _ := resolveValue(vars, v)
		placeholder := "{{" + v.Name + "}}"
		rendered = strings.ReplaceAll(rendered, placeholder, val)
	}
	return scope, varsLine, rendered
}

// RenderUserInstructions composes the final <user_instructions> payload from
// the base prompt and the enabled modes, in the order given (spec.md §4.7).
//
// Maps to: codex-rs/modes/src/lib.rs render_user_instructions
func RenderUserInstructions(baseUserInstructions string, enabled []EnabledMode, defs []Definition) (string, error) {
	base := strings.TrimSpace(baseUserInstructions)
	if len(enabled) == 0 {
		return fmt.Sprintf("<user_instructions>\n\n%s\n\n</user_instructions>", base), nil
	}

	byID := make(map[string]*Definition, len(defs))
	for i := range defs {
		byID[defs[i].ID] = &defs[i]
	}

	var out strings.Builder
	out.WriteString("<user_instructions>\n\n")
	out.WriteString(base)
	out.WriteString("\n\n<mode_instructions>\n")
	for _, em := range enabled {
		def, ok := byID[em.ID]
		if !ok {
			return "", &ModesError{Kind: ErrUnknownMode, Detail: em.ID}
		}
		display := em.DisplayName
		if display == "" {
			display = def.DisplayOrID()
		}
		scope, varsLine, rendered := renderOne(def, em.Variables)

		fmt.Fprintf(&out, "### Mode: %s\n", display)
		fmt.Fprintf(&out, "- scope: %s\n", scope)
		if varsLine != "" {
			fmt.Fprintf(&out, "- variables: %s\n\n", varsLine)
		} else {
			out.WriteString("\n")
		}
		if strings.TrimSpace(rendered) != "" {
			out.WriteString(rendered)
			out.WriteString("\n\n")
		} else {
			out.WriteString("\n")
		}
	}
	out.WriteString("</mode_instructions>\n\n</user_instructions>")
	return out.String(), nil
}

// NormalizeEquiv normalizes a string for relaxed equivalence comparison:
// CRLF->LF, trailing whitespace trimmed per line, consecutive blank lines
// collapsed to one, trailing blank lines dropped.
//
// Maps to: codex-rs/modes/src/lib.rs normalize_equiv
func NormalizeEquiv(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")

	var out []string
	prevBlank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\f\v")
		isBlank := line == ""
		if isBlank {
			if prevBlank {
				continue
			}
			prevBlank = true
		} else {
			prevBlank = false
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// IsEquivalent reports whether a and b are equal after NormalizeEquiv,
// used to suppress redundant instruction-payload rewrites (spec.md §4.7,
// debounced push).
func IsEquivalent(a, b string) bool {
	return NormalizeEquiv(a) == NormalizeEquiv(b)
}

// EnabledLabels builds a compact "a · b · c" summary of enabled mode ids.
func EnabledLabels(enabled []EnabledMode) string {
	labels := make([]string, 0, len(enabled))
	for _, e := range enabled {
		labels = append(labels, strings.TrimPrefix(e.ID, "/"))
	}
	return strings.Join(labels, " · ")
}

// AppliedMessage builds the standard "Applied N mode(s)" status line.
func AppliedMessage(count int) string {
	return fmt.Sprintf("Applied %d mode(s)", count)
}

// FormatModeSummary formats the persistent-mode status line from a labels
// string, or returns "" when there is nothing enabled.
func FormatModeSummary(labels string) string {
	t := strings.TrimSpace(labels)
	if t == "" {
		return ""
	}
	return "Mode: " + t
}
