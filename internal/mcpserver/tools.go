package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"

	"github.com/detrace/detrace/internal/fileproc"
	"github.com/detrace/detrace/internal/output"
	"github.com/detrace/detrace/internal/scanner"
	"github.com/detrace/detrace/pkg/analyzer/strip"
	"github.com/detrace/detrace/pkg/config"
)

// maxReportTokens caps the rendered size of a tool response. Reports
// bigger than this drop per-edit detail so they do not crowd out the
// calling agent's context window.
const maxReportTokens = output.Budget32K

// PathsInput is the base input shared by all tools.
type PathsInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Files or directories to process. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// StripInput configures the strip tools.
type StripInput struct {
	PathsInput
	Module string `json:"module,omitempty" jsonschema:"Module specifier to remove. Defaults to the configured module, usually debug."`
}

// TargetsInput configures target discovery.
type TargetsInput struct {
	PathsInput
}

// Helper functions

func getPaths(input PathsInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input PathsInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return "```\n" + string(out) + "\n```", nil
	default:
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// reportResult renders a strip report, dropping per-edit detail when
// the full payload would exceed the token budget.
func reportResult(rep *strip.Report, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(rep, format)
	if err != nil {
		return nil, nil, err
	}

	if output.EstimateTokens(text) > maxReportTokens {
		for i := range rep.Files {
			rep.Files[i].Edits = nil
		}
		text, err = formatOutput(rep, format)
		if err != nil {
			return nil, nil, err
		}
		text += fmt.Sprintf("\n\nNote: per-edit detail omitted to stay under ~%s tokens; run the CLI for the full report.",
			output.FormatTokenCount(maxReportTokens))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

// newAnalyzer builds a strip analyzer from config plus tool input.
func newAnalyzer(cfg *config.Config, module string) *strip.Analyzer {
	if module == "" {
		module = cfg.Strip.Module
	}
	return strip.New(
		strip.WithTargetModule(module),
		strip.WithMaxFileSize(cfg.Strip.MaxFileSize),
	)
}

// Tool handlers

func handleStripDryRun(ctx context.Context, req *mcp.CallToolRequest, input StripInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.PathsInput)
	format := getFormat(input.PathsInput)

	cfg := config.LoadOrDefault()
	files, err := scanner.New(cfg).ScanPaths(paths)
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no JavaScript or TypeScript files found")
	}

	a := newAnalyzer(cfg, input.Module)
	defer a.Close()

	analysis, err := a.Analyze(ctx, files)
	if err != nil {
		return toolError(err.Error())
	}

	rep := strip.NewReport()
	rep.FromAnalysis(analysis)

	return reportResult(rep, format)
}

func handleStripApply(ctx context.Context, req *mcp.CallToolRequest, input StripInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.PathsInput)
	format := getFormat(input.PathsInput)

	cfg := config.LoadOrDefault()
	files, err := scanner.New(cfg).ScanPaths(paths)
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no JavaScript or TypeScript files found")
	}

	a := newAnalyzer(cfg, input.Module)
	defer a.Close()

	analysis, err := a.Analyze(ctx, files)
	if err != nil {
		return toolError(err.Error())
	}

	changed := analysis.ChangedFiles()
	if len(changed) > 0 {
		outputs := make(map[string][]byte, len(changed))
		targets := make([]string, 0, len(changed))
		for i := range changed {
			outputs[changed[i].Path] = changed[i].Output
			targets = append(targets, changed[i].Path)
		}

		_, werrs := fileproc.ForEachFile(ctx, targets, func(path string) (struct{}, error) {
			return struct{}{}, writeFilePreservingMode(path, outputs[path])
		})
		if werrs != nil && werrs.HasErrors() {
			return toolError("failed to write rewritten files: " + werrs.Error())
		}
	}

	rep := strip.NewReport()
	rep.FromAnalysis(analysis)

	return reportResult(rep, format)
}

func handleScanTargets(ctx context.Context, req *mcp.CallToolRequest, input TargetsInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.PathsInput)
	format := getFormat(input.PathsInput)

	cfg := config.LoadOrDefault()
	sc := scanner.New(cfg)
	files, err := sc.ScanPaths(paths)
	if err != nil {
		return toolError(err.Error())
	}
	sort.Strings(files)

	byLanguage := make(map[string]int)
	for lang, group := range sc.GroupByLanguage(files) {
		byLanguage[string(lang)] = len(group)
	}

	result := struct {
		Files      []string       `json:"files" toon:"files"`
		Total      int            `json:"total" toon:"total"`
		ByLanguage map[string]int `json:"by_language" toon:"by_language"`
	}{
		Files:      files,
		Total:      len(files),
		ByLanguage: byLanguage,
	}

	return toolResult(result, format)
}

// writeFilePreservingMode rewrites a file in place, keeping its mode
// bits when the file already exists.
func writeFilePreservingMode(path string, data []byte) error {
	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	return os.WriteFile(path, data, mode)
}
