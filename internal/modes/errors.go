package modes

import "fmt"

// ModesErrorKind is the stable short-code family for frontmatter/discovery
// failures (distinct from per-variable ValidationError codes).
//
// Maps to: codex-rs/modes/src/lib.rs ModesError
type ModesErrorKind string

const (
	ErrIllegalID    ModesErrorKind = "E1001"
	ErrIo           ModesErrorKind = "E1004"
	ErrFrontmatter  ModesErrorKind = "E2001"
	ErrVarDup       ModesErrorKind = "E2101"
	ErrRegex        ModesErrorKind = "E2201"
	ErrUnknownMode  ModesErrorKind = "E1201"
)

// ModesError is the typed error surface for frontmatter/discovery/render
// failures, carrying a stable short code (spec.md §4.7).
type ModesError struct {
	Kind   ModesErrorKind
	Detail string
}

func (e *ModesError) Error() string { return FormatModesError(e) }

var modesErrorNames = map[ModesErrorKind]string{
	ErrIllegalID:   "IllegalId",
	ErrIo:          "Io",
	ErrFrontmatter: "Frontmatter",
	ErrVarDup:      "VarDup",
	ErrRegex:       "Regex",
	ErrUnknownMode: "UnknownMode",
}

// FormatModesError renders the user-facing "<code> <name>: <detail>" form.
//
// Maps to: codex-rs/modes/src/lib.rs format_modes_error
func FormatModesError(err *ModesError) string {
	return fmt.Sprintf("%s %s: %s", err.Kind, modesErrorNames[err.Kind], err.Detail)
}
