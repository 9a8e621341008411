package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"empty is auto", "", false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"explicit json", ModeJSON, true, ModeJSON},
		{"explicit markdown on terminal", ModeMarkdown, true, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_MarkdownHeaderAndKeyValue(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.Header(2, "Summary")
	r.KeyValue("Steps", "7")

	assert.Equal(t, "## Summary\n\n- **Steps:** 7\n", out.String())
}

func TestRenderer_TextHasNoANSIWhenPiped(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	r.Header(1, "Run")
	r.Success("done")
	r.Error("broken")
	r.StatusLine("runs.csv", "success", "12 rows")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "Run\n")
	assert.Contains(t, out.String(), "✓ done")
	assert.Contains(t, out.String(), "✓ runs.csv 12 rows")
	assert.Contains(t, errOut.String(), "✗ broken")
}

func TestRenderer_Table(t *testing.T) {
	header := []string{"Name", "Flow"}
	rows := [][]string{{"Upper", "1.5"}, {"Lower", "3"}}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table(header, rows)
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "| name | flow |", strings.ToLower(lines[0]))
		assert.Equal(t, "| Upper | 1.5 |", lines[2])
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, true)
		r.Table(header, rows)
		assert.Contains(t, out.String(), "┌")
		assert.Contains(t, out.String(), "Upper")
	})
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(NetworkOutput{Outlets: []string{"Lower"}, TotalReaches: 3}))

	var decoded NetworkOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, []string{"Lower"}, decoded.Outlets)
	assert.Equal(t, 3, decoded.TotalReaches)
}

func TestRenderer_JSONLine(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSONLine(RunEvent{Event: "run_start", RunID: "abc"}))
	require.NoError(t, r.JSONLine(RunEvent{Event: "run_complete", Status: "completed"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"event":"run_start","timestamp":"","run_id":"abc"}`, lines[0])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "- **Key:** value", FormatKeyValue("Key", "value"))
	assert.Equal(t, "none", FormatList(nil))
	assert.Equal(t, "a, b", FormatList([]string{"a", "b"}))
}
