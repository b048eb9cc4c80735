package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
)

func sampleResults() []fileResult {
	return []fileResult{
		{
			Path:    "a.rb",
			Backend: "treesitter",
			Occurrences: []lvar.Occurrence{
				{Name: "x", Line: 1, Column: 0},
				{Name: "x", Line: 2, Column: 5},
			},
			Warnings: []string{"unsupported AST data: 7"},
		},
		{Path: "b.rb", Backend: "treesitter", Error: "syntax error near line 1"},
	}
}

func TestRender_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   []string
	}{
		{
			format: FormatText,
			want: []string{
				"a.rb:1:0: x\n",
				"a.rb:2:5: x\n",
				"a.rb: warning: unsupported AST data: 7\n",
				"b.rb: error: syntax error near line 1\n",
			},
		},
		{format: FormatVim, want: []string{"[[\"x\", 1, 0], [\"x\", 2, 5]]\n[]\n"}},
		{format: FormatTable, want: []string{"File", "Column", "a.rb", "Total: 2 occurrences", "error: syntax error"}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer

		require.NoError(t, render(&buf, tt.format, sampleResults()), tt.format)

		for _, want := range tt.want {
			assert.Contains(t, buf.String(), want, tt.format)
		}
	}
}

func TestRender_Structured(t *testing.T) {
	t.Parallel()

	var jsonBuf, yamlBuf bytes.Buffer

	require.NoError(t, render(&jsonBuf, FormatJSON, sampleResults()))
	require.NoError(t, render(&yamlBuf, FormatYAML, sampleResults()))

	var fromJSON, fromYAML []fileResult

	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &fromJSON))
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))

	assert.Equal(t, sampleResults(), fromJSON)
	assert.Equal(t, sampleResults(), fromYAML)
	assert.NotContains(t, jsonBuf.String(), `"error": ""`)
}

func TestRender_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := render(&bytes.Buffer{}, "jsonl", nil)
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Contains(t, err.Error(), `did you mean "json"?`)

	err = render(&bytes.Buffer{}, "protobuf", nil)
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Contains(t, err.Error(), "want text, json, yaml, table or vim")
}

func TestSanitizeForTerminal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b.rb", sanitizeForTerminal("a\nb.rb"))
	assert.Equal(t, "evil.rb", sanitizeForTerminal("evil\x1b.rb"))
}
