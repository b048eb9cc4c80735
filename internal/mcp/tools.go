package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/rubyhl/pkg/config"
	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/safeconv"
)

// Tool name constants.
const (
	ToolNameLocalVariables = "ruby_local_variables"
	ToolNameTree           = "ruby_sexp"
)

// MaxCodeInputBytes is the maximum allowed size for inline code or a file (1 MB).
const MaxCodeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	// ErrNoSource indicates neither code nor path was given.
	ErrNoSource = errors.New("one of code or path is required")
	// ErrBothSources indicates code and path were both given.
	ErrBothSources = errors.New("code and path are mutually exclusive")
	// ErrPathNotAbsolute indicates the path is relative.
	ErrPathNotAbsolute = errors.New("path must be absolute")
	// ErrCodeTooLarge indicates the input exceeds MaxCodeInputBytes.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
)

// Input types (auto-generate JSON schemas via struct tags).

// LocalVariablesInput is the input schema for the ruby_local_variables tool.
type LocalVariablesInput struct {
	Code       string `json:"code,omitempty"        jsonschema:"Ruby source code to analyze"`
	Path       string `json:"path,omitempty"        jsonschema:"absolute path of a Ruby file (instead of code)"`
	Backend    string `json:"backend,omitempty"     jsonschema:"tree source: treesitter or ripper (default from config)"`
	ColumnBase *int   `json:"column_base,omitempty" jsonschema:"0 for parser columns or 1 for editor columns"`
}

// TreeInput is the input schema for the ruby_sexp tool.
type TreeInput struct {
	Code    string `json:"code,omitempty"    jsonschema:"Ruby source code to parse"`
	Path    string `json:"path,omitempty"    jsonschema:"absolute path of a Ruby file (instead of code)"`
	Backend string `json:"backend,omitempty" jsonschema:"tree source: treesitter or ripper (default from config)"`
}

// Output types.

// LocalVariablesOutput is the structured result of ruby_local_variables.
type LocalVariablesOutput struct {
	Backend     string            `json:"backend"`
	Occurrences []lvar.Occurrence `json:"occurrences"`
	Groups      []lvar.Group      `json:"groups"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// TreeOutput is the structured result of ruby_sexp.
type TreeOutput struct {
	Backend string `json:"backend"`
	Tree    string `json:"tree"`
}

func (s *Server) handleLocalVariables(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input LocalVariablesInput,
) (*mcpsdk.CallToolResult, LocalVariablesOutput, error) {
	columnBase := s.extract.ColumnBase
	if input.ColumnBase != nil {
		columnBase = *input.ColumnBase
	}

	if columnBase != 0 && columnBase != 1 {
		return errorResult[LocalVariablesOutput](fmt.Errorf("%w: %d", config.ErrInvalidColumnBase, columnBase))
	}

	src, err := readSource(input.Code, input.Path)
	if err != nil {
		return errorResult[LocalVariablesOutput](err)
	}

	b, err := s.backend(input.Backend)
	if err != nil {
		return errorResult[LocalVariablesOutput](err)
	}

	res, err := b.service.Extract(ctx, src)
	if err != nil {
		return errorResult[LocalVariablesOutput](fmt.Errorf("extract: %w", err))
	}

	occs := lvar.Rebase(res.Occurrences, columnBase)

	out := LocalVariablesOutput{
		Backend:     res.Backend,
		Occurrences: occs,
		Groups:      lvar.GroupByName(occs),
	}

	if s.extract.ShowWarnings {
		out.Warnings = res.Warnings
	}

	return jsonResult(out)
}

func (s *Server) handleTree(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input TreeInput,
) (*mcpsdk.CallToolResult, TreeOutput, error) {
	src, err := readSource(input.Code, input.Path)
	if err != nil {
		return errorResult[TreeOutput](err)
	}

	b, err := s.backend(input.Backend)
	if err != nil {
		return errorResult[TreeOutput](err)
	}

	tree, err := b.provider.Tree(ctx, src)
	if err != nil {
		return errorResult[TreeOutput](fmt.Errorf("parse: %w", err))
	}

	out := TreeOutput{Backend: b.provider.Name(), Tree: tree.String()}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out.Tree}},
	}, out, nil
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult[Out any](err error) (*mcpsdk.CallToolResult, Out, error) {
	var zero Out

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, zero, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult[Out any](value Out) (*mcpsdk.CallToolResult, Out, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult[Out](fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, value, nil
}

// readSource returns the inline code or the contents of path.
func readSource(code, path string) ([]byte, error) {
	switch {
	case code != "" && path != "":
		return nil, ErrBothSources
	case code != "":
		if len(code) > MaxCodeInputBytes {
			return nil, fmt.Errorf("%w: %s (max %s)", ErrCodeTooLarge,
				humanize.IBytes(safeconv.MustUint64(len(code))), humanize.IBytes(MaxCodeInputBytes))
		}

		return []byte(code), nil
	case path != "":
		return readFile(path)
	default:
		return nil, ErrNoSource
	}
}

func readFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size() > MaxCodeInputBytes {
		return nil, fmt.Errorf("%w: %s is %s (max %s)", ErrCodeTooLarge, path,
			humanize.IBytes(safeconv.MustUint64(info.Size())), humanize.IBytes(MaxCodeInputBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}
