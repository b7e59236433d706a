// Package modes implements the layered user_instructions composition
// described in spec.md §4.7 (C7 Modes overlay): base prompt + enabled named
// modes with variable substitution, producing the per-turn instruction
// payload.
//
// Maps to: codex-rs/modes/src/lib.rs
package modes

// Kind distinguishes a mode that stays enabled across turns from one that
// applies to a single turn only.
type Kind string

const (
	KindPersistent Kind = "persistent"
	KindInstant    Kind = "instant"
)

// VarType is the declared type of a mode variable, used for validation.
type VarType string

const (
	VarText   VarType = "text"
	VarEnum   VarType = "enum"
	VarBool   VarType = "bool"
	VarNumber VarType = "number"
	VarPath   VarType = "path"
)

// Scope is where a mode definition was discovered.
type Scope struct {
	Global bool
	// Label identifies the project root when Global is false, e.g. the
	// directory basename that owns the mode's AGENTS-style file tree.
	Label string
}

// String renders the scope the way render_one does in the original
// implementation: "global" or "project:<label>".
func (s Scope) String() string {
	if s.Global {
		return "global"
	}
	return "project:" + s.Label
}

// VariableDefinition declares one substitutable variable in a mode body.
type VariableDefinition struct {
	Name     string
	Type     VarType
	Required bool
	Default  *string
	Enum     []string
	Pattern  string
}

// Definition is a named overlay bundle of extra user instructions with
// variables (spec.md glossary "Mode").
//
// Maps to: codex-rs/modes/src/lib.rs ModeDefinition
type Definition struct {
	// ID is path-derived, e.g. "/a:b:c".
	ID             string
	DisplayName    string
	Kind           Kind
	Variables      []VariableDefinition
	Body           string
	Scope          Scope
	DefaultEnabled bool
}

// DisplayOrID returns DisplayName if set, else the ID with its leading
// slash stripped (render_one's fallback).
func (d *Definition) DisplayOrID() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	if len(d.ID) > 0 && d.ID[0] == '/' {
		return d.ID[1:]
	}
	return d.ID
}

// EnabledMode binds a Definition to a variable-value map. A variable absent
// from Variables (or explicitly set to nil) falls back to its definition's
// default; an explicit empty string clears it (spec.md §4.7).
type EnabledMode struct {
	ID          string
	DisplayName string
	Variables   map[string]*string
}
