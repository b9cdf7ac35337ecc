// Package strip removes every use of a configured instrumentation
// module from JavaScript and TypeScript sources. It seeds taint from
// imports and requires of the target module, propagates it across
// aliasing, destructuring, property extraction and call results until
// nothing new is reachable, classifies each reference, and applies the
// resulting edits in a single pass over the original bytes. Bytes
// outside the edits are never touched, and running the output through
// the analyzer again yields no further edits.
package strip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/detrace/detrace/internal/cache"
	"github.com/detrace/detrace/internal/fileproc"
	"github.com/detrace/detrace/pkg/analyzer"
	"github.com/detrace/detrace/pkg/parser"
	"github.com/detrace/detrace/pkg/scope"
)

// DefaultTargetModule is the module stripped when none is configured.
const DefaultTargetModule = "debug"

// placeholder replaces expressions whose value came from the stripped
// module but whose surrounding syntax must survive.
const placeholder = "undefined"

// Analyzer strips a single target module from source files.
type Analyzer struct {
	parser       *parser.Parser
	targetModule string
	maxFileSize  int64
	cache        *cache.Cache
	onProgress   func()
}

// Compile-time check that Analyzer implements analyzer.FileAnalyzer[*Analysis]
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithTargetModule sets the module specifier to strip. Empty names are
// ignored and the default is kept.
func WithTargetModule(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.targetModule = name
		}
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithCache enables plan caching keyed by content hash.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithProgress registers a callback invoked once per analyzed file.
func WithProgress(fn func()) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// New creates a strip analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser:       parser.New(),
		targetModule: DefaultTargetModule,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TargetModule returns the module specifier being stripped.
func (a *Analyzer) TargetModule() string {
	return a.targetModule
}

// AnalyzeFile strips a single file and returns its result, including
// the rewritten bytes.
func (a *Analyzer) AnalyzeFile(path string) (*FileResult, error) {
	return a.analyzeFile(a.parser, path)
}

// StripSource strips in-memory source without touching the cache.
func (a *Analyzer) StripSource(source []byte, lang parser.Language) (*FileResult, error) {
	res, err := a.parser.Parse(source, lang, "")
	if err != nil {
		return nil, err
	}
	return a.stripResult(res), nil
}

// Analyze strips the given files in parallel and aggregates results.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	analysis := &Analysis{
		TargetModule: a.targetModule,
		Files:        make([]FileResult, 0, len(files)),
		Summary:      NewSummary(),
	}

	if len(files) == 0 {
		return analysis, nil
	}

	results, errs := fileproc.MapFilesWithProgress(ctx, files, func(psr *parser.Parser, path string) (*FileResult, error) {
		if a.maxFileSize > 0 {
			info, err := os.Stat(path)
			if err != nil {
				return nil, err
			}
			if info.Size() > a.maxFileSize {
				return nil, fmt.Errorf("file too large: %d bytes (limit: %d)", info.Size(), a.maxFileSize)
			}
		}
		return a.analyzeFile(psr, path)
	}, a.onProgress)

	// Unreadable, unparseable and oversized files are skipped, not fatal.
	if errs != nil {
		for _, pe := range errs.Errors {
			analysis.Skipped = append(analysis.Skipped, SkippedFile{
				Path:   pe.Path,
				Reason: pe.Err.Error(),
			})
		}
		sort.Slice(analysis.Skipped, func(i, j int) bool {
			return analysis.Skipped[i].Path < analysis.Skipped[j].Path
		})
	}

	for _, fr := range results {
		if fr == nil {
			continue
		}
		analysis.Files = append(analysis.Files, *fr)
		analysis.Summary.AddFile(fr)
	}
	sort.Slice(analysis.Files, func(i, j int) bool {
		return analysis.Files[i].Path < analysis.Files[j].Path
	})
	analysis.Summary.Finalize()

	return analysis, nil
}

// Close releases parser resources.
func (a *Analyzer) Close() {
	a.parser.Close()
}

func (a *Analyzer) analyzeFile(psr *parser.Parser, path string) (*FileResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return nil, fmt.Errorf("unsupported language for file: %s", path)
	}

	var key, hash string
	if a.cache != nil {
		key = fmt.Sprintf("strip:%s:%s", a.targetModule, path)
		hash = cache.HashBytes(source)
		if data, ok := a.cache.GetWithHash(key, hash); ok {
			var cached FileResult
			if err := json.Unmarshal(data, &cached); err == nil {
				// Output is not cached; re-apply the cached edits.
				cached.Output = Apply(source, cached.Edits)
				return &cached, nil
			}
		}
	}

	res, err := psr.Parse(source, lang, path)
	if err != nil {
		return nil, err
	}
	fr := a.stripResult(res)

	if a.cache != nil {
		if data, err := json.Marshal(fr); err == nil {
			a.cache.SetWithHash(key, hash, data)
		}
	}
	return fr, nil
}

// stripResult runs the full pipeline on a parsed file: resolve
// bindings, collect seeds and derivation edges, propagate taint to the
// fixed point, classify every tainted site, then apply the plan.
func (a *Analyzer) stripResult(res *parser.ParseResult) *FileResult {
	root := res.Tree.RootNode()
	table := scope.Resolve(root, res.Source)

	col := newCollector(a.targetModule, table, res.Source)
	col.collect(root)

	taint := NewTaintSet()
	propagate(taint, col.seeds, col.edges)

	plan := newPlan()
	cls := newClassifier(res.Source, table, taint, col, plan)
	for _, stmt := range col.sideEffects {
		detail := "bare require of the stripped module"
		if stmt.Type() == "import_statement" {
			detail = "side-effect import of the stripped module"
		}
		cls.deleteStatement(stmt, detail)
	}
	cls.run()

	edits := plan.Edits()
	output := Apply(res.Source, edits)

	return &FileResult{
		Path:            res.Path,
		Language:        string(res.Language),
		Edits:           edits,
		TaintedBindings: int(taint.Count()),
		BytesBefore:     len(res.Source),
		BytesAfter:      len(output),
		HashBefore:      fmt.Sprintf("%016x", xxhash.Sum64(res.Source)),
		HashAfter:       fmt.Sprintf("%016x", xxhash.Sum64(output)),
		Changed:         !bytes.Equal(res.Source, output),
		Output:          output,
	}
}
