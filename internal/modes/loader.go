package modes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML header of a mode file, delimited by "---" lines.
type frontmatter struct {
	Kind           Kind                  `yaml:"kind"`
	DisplayName    string                `yaml:"display_name"`
	DefaultEnabled bool                  `yaml:"default_enabled"`
	Variables      []variableFrontmatter `yaml:"variables"`
}

type variableFrontmatter struct {
	Name     string   `yaml:"name"`
	Type     VarType  `yaml:"type"`
	Required bool     `yaml:"required"`
	Default  *string  `yaml:"default"`
	Enum     []string `yaml:"enum"`
	Pattern  string   `yaml:"pattern"`
}

// ParseFrontmatter splits a mode file's text into its optional YAML
// frontmatter and body. A file with no "---\n...\n---\n" header is treated
// as pure body, matching the original implementation's permissive parse.
//
// Maps to: codex-rs/modes/src/lib.rs parse_frontmatter
func ParseFrontmatter(text string) (*frontmatter, string, error) {
	const delim = "---\n"
	if !strings.HasPrefix(text, delim) {
		return nil, text, nil
	}
	rest := text[len(delim):]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		return nil, text, nil
	}
	yamlPart := rest[:idx]
	body := rest[idx+len("\n---\n"):]

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(yamlPart), &fm); err != nil {
		return nil, "", &ModesError{Kind: ErrFrontmatter, Detail: err.Error()}
	}
	return &fm, body, nil
}

// idFromRelPath derives a mode id ("/a:b:c") from a relative file path,
// cutting every segment (directories included) at its first '.' and joining
// path components with ':'. Each segment must be alphanumeric/-/_ only.
//
// Maps to: codex-rs/modes/src/lib.rs id_from_rel_path
func idFromRelPath(rel string) (string, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		name := p
		if idx := strings.Index(name, "."); idx >= 0 {
			name = name[:idx]
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return "", &ModesError{Kind: ErrIllegalID, Detail: fmt.Sprintf("empty segment in %q", rel)}
		}
		for _, c := range name {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
				return "", &ModesError{Kind: ErrIllegalID, Detail: fmt.Sprintf("illegal character in %q", rel)}
			}
		}
		segments = append(segments, name)
	}
	return "/" + strings.Join(segments, ":"), nil
}

// Load discovers mode definitions under root (a directory of files, one
// mode per file, arbitrarily nested), assigning the given scope to each. A
// file found under a path whose id already exists overrides the earlier
// one (later write wins), matching the "later write overrides earlier"
// discovery order in the original implementation.
//
// Maps to: codex-rs/modes/src/lib.rs discover_modes
func Load(root string, scope Scope) ([]Definition, error) {
	seen := make(map[string]Definition)
	var paths []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, &ModesError{Kind: ErrIo, Detail: err.Error()}
	}
	sort.Strings(paths)

	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, &ModesError{Kind: ErrIo, Detail: err.Error()}
		}
		id, err := idFromRelPath(rel)
		if err != nil {
			return nil, err
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, &ModesError{Kind: ErrIo, Detail: err.Error()}
		}

		fm, body, err := ParseFrontmatter(string(raw))
		if err != nil {
			return nil, err
		}

		def := Definition{
			ID:    id,
			Kind:  KindPersistent,
			Body:  body,
			Scope: scope,
		}
		if fm != nil {
			def.Kind = fm.Kind
			if def.Kind == "" {
				def.Kind = KindPersistent
			}
			def.DisplayName = fm.DisplayName
			def.DefaultEnabled = fm.DefaultEnabled

			varNames := make(map[string]bool, len(fm.Variables))
			for _, v := range fm.Variables {
				if varNames[v.Name] {
					return nil, &ModesError{Kind: ErrVarDup, Detail: v.Name}
				}
				varNames[v.Name] = true
				def.Variables = append(def.Variables, VariableDefinition{
					Name:     v.Name,
					Type:     v.Type,
					Required: v.Required,
					Default:  v.Default,
					Enum:     v.Enum,
					Pattern:  v.Pattern,
				})
			}
		}

		seen[id] = def // later write overrides earlier
	}

	out := make([]Definition, 0, len(seen))
	for _, def := range seen {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
