package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestIDFromRelPath_AllowsSafeChars(t *testing.T) {
	id, err := idFromRelPath("a/b/c.md")
	require.NoError(t, err)
	assert.Equal(t, "/a:b:c", id)

	_, err = idFromRelPath("a/b/c x.md")
	assert.Error(t, err)
}

func TestRenderUserInstructions_InjectsModeBlock(t *testing.T) {
	def := Definition{
		ID:          "/demo",
		DisplayName: "Demo",
		Kind:        KindPersistent,
		Variables: []VariableDefinition{
			{Name: "who", Default: strp("world")},
		},
		Scope: Scope{Global: false, Label: "app"},
		Body:  "Hello {{who}}",
	}
	enabled := EnabledMode{ID: "/demo", Variables: map[string]*string{"who": nil}}

	out, err := RenderUserInstructions("base", []EnabledMode{enabled}, []Definition{def})
	require.NoError(t, err)
	assert.Contains(t, out, "<mode_instructions>")
	assert.Contains(t, out, "Hello world")
}

func TestNormalizeEquiv_CollapsesCRLFTrailingWSAndBlanks(t *testing.T) {
	a := "line1\r\nline2  \r\n\r\nline3\r\n\r\n\r\n"
	b := "line1\nline2\n\nline3\n"
	assert.Equal(t, "line1\nline2\n\nline3", NormalizeEquiv(a))
	assert.Equal(t, "line1\nline2\n\nline3", NormalizeEquiv(b))
	assert.True(t, IsEquivalent(a, b))
}

func TestFormatModesError_Codes(t *testing.T) {
	assert.Equal(t, "E1001 IllegalId: bad", FormatModesError(&ModesError{Kind: ErrIllegalID, Detail: "bad"}))
	assert.Equal(t, "E1004 Io: nope", FormatModesError(&ModesError{Kind: ErrIo, Detail: "nope"}))
	assert.Equal(t, "E2001 Frontmatter: yaml", FormatModesError(&ModesError{Kind: ErrFrontmatter, Detail: "yaml"}))
	assert.Equal(t, "E2101 VarDup: x", FormatModesError(&ModesError{Kind: ErrVarDup, Detail: "x"}))
	assert.Equal(t, "E2201 Regex: re", FormatModesError(&ModesError{Kind: ErrRegex, Detail: "re"}))
	assert.Equal(t, "E1201 UnknownMode: /m", FormatModesError(&ModesError{Kind: ErrUnknownMode, Detail: "/m"}))
}

func TestLabelsAndSummaryAndAppliedMessage(t *testing.T) {
	a := EnabledMode{ID: "/a"}
	b := EnabledMode{ID: "/b"}
	assert.Equal(t, "a · b", EnabledLabels([]EnabledMode{a, b}))
	assert.Equal(t, "Applied 1 mode(s)", AppliedMessage(1))
	assert.Equal(t, "", FormatModeSummary(""))
	assert.Equal(t, "Mode: a · b", FormatModeSummary("a · b"))
}
