package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rubyhl/internal/mcp"
	"github.com/Sumatoshi-tech/rubyhl/pkg/cache"
	"github.com/Sumatoshi-tech/rubyhl/pkg/config"
	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/sexp"
)

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	require.NotNil(t, srv)

	assert.Equal(t, []string{"ruby_local_variables", "ruby_sexp"}, srv.ListToolNames())
}

func TestServer_Run_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx)
	require.Error(t, err)
}

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) (*mcpsdk.CallToolResult, string) {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return result, text.Text
}

func TestLocalVariables_InMemoryTransport(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	for _, tool := range tools.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	tests := []struct {
		name   string
		args   map[string]any
		expect []lvar.Occurrence
		groups []string
	}{
		{
			name: "parser columns",
			args: map[string]any{"code": "a = 1\nb = a\n"},
			expect: []lvar.Occurrence{
				{Name: "a", Line: 1, Column: 0},
				{Name: "b", Line: 2, Column: 0},
				{Name: "a", Line: 2, Column: 4},
			},
			groups: []string{"a", "b"},
		},
		{
			name: "editor columns",
			args: map[string]any{"code": "x = 1; x\n", "column_base": 1},
			expect: []lvar.Occurrence{
				{Name: "x", Line: 1, Column: 1},
				{Name: "x", Line: 1, Column: 8},
			},
			groups: []string{"x"},
		},
		{
			name:   "no locals",
			args:   map[string]any{"code": "puts 1\n"},
			expect: []lvar.Occurrence{},
			groups: []string{},
		},
	}

	for _, tt := range tests {
		result, text := callTool(t, session, "ruby_local_variables", tt.args)
		require.False(t, result.IsError, "%s: %s", tt.name, text)

		var out mcp.LocalVariablesOutput

		require.NoError(t, json.Unmarshal([]byte(text), &out), tt.name)
		assert.Equal(t, "treesitter", out.Backend, tt.name)
		assert.Equal(t, tt.expect, out.Occurrences, tt.name)

		names := make([]string, 0, len(out.Groups))
		for _, g := range out.Groups {
			names = append(names, g.Name)
		}

		assert.Equal(t, tt.groups, names, tt.name)
	}
}

func TestLocalVariables_InputErrors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "no source", args: map[string]any{}, want: "one of code or path is required"},
		{name: "both sources", args: map[string]any{"code": "a", "path": "/a.rb"}, want: "mutually exclusive"},
		{name: "relative path", args: map[string]any{"path": "a.rb"}, want: "path must be absolute"},
		{name: "bad column base", args: map[string]any{"code": "a", "column_base": 2}, want: "column base must be 0 or 1"},
		{name: "unknown backend", args: map[string]any{"code": "a", "backend": "prism"}, want: "unknown tree backend"},
		{name: "syntax error", args: map[string]any{"code": "def (\n"}, want: "syntax error"},
	}

	for _, tt := range tests {
		result, text := callTool(t, session, "ruby_local_variables", tt.args)
		assert.True(t, result.IsError, tt.name)
		assert.Contains(t, text, tt.want, tt.name)
	}
}

func TestLocalVariables_FromPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "script.rb")
	require.NoError(t, os.WriteFile(path, []byte("def m(v)\n  v\nend\n"), 0o600))

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, text := callTool(t, session, "ruby_local_variables", map[string]any{"path": path})
	require.False(t, result.IsError, text)

	var out mcp.LocalVariablesOutput

	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, []lvar.Occurrence{
		{Name: "v", Line: 1, Column: 6},
		{Name: "v", Line: 2, Column: 2},
	}, out.Occurrences)
}

func TestLocalVariables_ConfiguredDefaults(t *testing.T) {
	t.Parallel()

	extract := config.Default().Extract
	extract.ColumnBase = 1
	extract.ShowWarnings = true

	session := connect(t, mcp.NewServer(mcp.ServerDeps{Extract: &extract}))

	result, text := callTool(t, session, "ruby_local_variables", map[string]any{"code": "y = 2\n"})
	require.False(t, result.IsError, text)

	var out mcp.LocalVariablesOutput

	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, []lvar.Occurrence{{Name: "y", Line: 1, Column: 1}}, out.Occurrences)
	assert.Empty(t, out.Warnings)
}

func TestTree_InMemoryTransport(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, text := callTool(t, session, "ruby_sexp", map[string]any{"code": "a = 1\n"})
	require.False(t, result.IsError, text)

	want := sexp.MustReadString(`[:program, [[:assign, [:var_field, [:@ident, "a", [1, 0]]], [:@int, "1", [1, 4]]]]]`)
	got, err := sexp.ReadString(text)
	require.NoError(t, err)
	assert.True(t, sexp.Equal(want, got), text)

	result, text = callTool(t, session, "ruby_sexp", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "one of code or path is required")
}

func TestLocalVariables_SharedCache(t *testing.T) {
	t.Parallel()

	results := cache.NewLRU(0)
	session := connect(t, mcp.NewServer(mcp.ServerDeps{Cache: results}))

	args := map[string]any{"code": "a = 1\na\n"}

	first, firstText := callTool(t, session, mcp.ToolNameLocalVariables, args)
	require.False(t, first.IsError, firstText)

	second, secondText := callTool(t, session, mcp.ToolNameLocalVariables, args)
	require.False(t, second.IsError, secondText)

	assert.Equal(t, firstText, secondText)

	stats := results.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}
