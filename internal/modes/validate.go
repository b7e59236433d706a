package modes

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ValidationErrorCode enumerates the stable variable-validation error codes
// surfaced to CLI/transport callers (spec.md §4.7).
type ValidationErrorCode string

const (
	ErrRequiredMissing ValidationErrorCode = "E3101"
	ErrEnumMismatch    ValidationErrorCode = "E3102"
	ErrBooleanInvalid  ValidationErrorCode = "E3106"
	ErrNumberInvalid   ValidationErrorCode = "E3107"
	ErrPathInvalid     ValidationErrorCode = "E3108"
)

// ValidationError describes one variable that failed validation for one
// enabled mode.
//
// Maps to: codex-rs/modes/src/lib.rs ValidationError
type ValidationError struct {
	Code    ValidationErrorCode
	ModeID  string
	Var     string
	Allowed []string
	Got     string
}

// ValidateVarValue validates a single explicit variable value against its
// definition: enum membership first, then type-specific checks. An empty
// value is always accepted (absence is handled separately by
// ValidateEnabled's required check).
//
// Maps to: codex-rs/modes/src/lib.rs validate_var_value
func ValidateVarValue(modeID string, def VariableDefinition, value string) *ValidationError {
	if len(def.Enum) > 0 && value != "" {
		allowed := false
		for _, opt := range def.Enum {
			if opt == value {
				allowed = true
				break
			}
		}
		if !allowed {
			return &ValidationError{Code: ErrEnumMismatch, ModeID: modeID, Var: def.Name, Allowed: def.Enum, Got: value}
		}
	}

	switch def.Type {
	case VarBool:
		if value != "" {
			s := strings.ToLower(value)
			if s != "true" && s != "false" {
				return &ValidationError{Code: ErrBooleanInvalid, ModeID: modeID, Var: def.Name, Got: value}
			}
		}
	case VarNumber:
		if value != "" {
			s := strings.TrimSpace(value)
			_, errInt := strconv.ParseInt(s, 10, 64)
			_, errFloat := strconv.ParseFloat(s, 64)
			if errInt != nil && errFloat != nil {
				return &ValidationError{Code: ErrNumberInvalid, ModeID: modeID, Var: def.Name, Got: value}
			}
		}
	case VarPath:
		if value != "" {
			bad := false
			for _, r := range value {
				if unicode.IsControl(r) {
					bad = true
					break
				}
			}
			if bad || strings.TrimSpace(value) == "" {
				return &ValidationError{Code: ErrPathInvalid, ModeID: modeID, Var: def.Name, Got: value}
			}
		}
	}
	return nil
}

// ValidateEnabled validates every enabled mode's variables against its
// definition, reporting missing required variables and invalid explicit
// values.
//
// Maps to: codex-rs/modes/src/lib.rs validate_enabled
func ValidateEnabled(defs []Definition, enabled []EnabledMode) []ValidationError {
	byID := make(map[string]*Definition, len(defs))
	for i := range defs {
		byID[defs[i].ID] = &defs[i]
	}

	var errs []ValidationError
	for _, em := range enabled {
		def, ok := byID[em.ID]
		if !ok {
			continue
		}
		for _, v := range def.Variables {
			explicit, hasExplicit := em.Variables[v.Name]
			explicitSet := hasExplicit && explicit != nil
			if v.Required && !explicitSet && v.Default == nil {
				errs = append(errs, ValidationError{Code: ErrRequiredMissing, ModeID: def.ID, Var: v.Name})
			}
			if explicitSet {
				if e := ValidateVarValue(def.ID, v, *explicit); e != nil {
					errs = append(errs, *e)
				}
			}
		}
	}
	return errs
}

// FormatValidationError renders the user-facing short-code message for a
// validation error, or "" for RequiredMissing (aggregated by callers
// instead, matching the original's contract).
//
// Maps to: codex-rs/modes/src/lib.rs format_validation_error
func FormatValidationError(err ValidationError) string {
	switch err.Code {
	case ErrEnumMismatch:
		return fmt.Sprintf("E3102 EnumMismatch: %s=%s (allowed: %s)", err.Var, err.Got, strings.Join(err.Allowed, "|"))
	case ErrBooleanInvalid:
		return fmt.Sprintf("E3106 BooleanInvalid: %s=%s", err.Var, err.Got)
	case ErrNumberInvalid:
		return fmt.Sprintf("E3107 NumberInvalid: %s=%s", err.Var, err.Got)
	case ErrPathInvalid:
		return fmt.Sprintf("E3108 PathInvalid: %s=%s", err.Var, err.Got)
	default:
		return ""
	}
}
