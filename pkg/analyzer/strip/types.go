package strip

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// EditKind identifies the kind of rewrite applied to a source range.
type EditKind string

const (
	// EditDeleteStatement removes a whole statement, including the
	// line it occupied when nothing else shares the line.
	EditDeleteStatement EditKind = "delete_statement"

	// EditRemoveDeclarator removes a single declarator from a
	// declaration that keeps other declarators alive.
	EditRemoveDeclarator EditKind = "remove_declarator"

	// EditReplaceExpression substitutes a neutral placeholder for an
	// expression whose surrounding code survives.
	EditReplaceExpression EditKind = "replace_expression"
)

// String returns the string representation of the edit kind.
func (k EditKind) String() string {
	return string(k)
}

// Edit is a single byte-range rewrite against the original source.
type Edit struct {
	Kind      EditKind `json:"kind" toon:"kind"`
	StartByte uint32   `json:"start_byte" toon:"start_byte"`
	EndByte   uint32   `json:"end_byte" toon:"end_byte"`
	Line      uint32   `json:"line" toon:"line"`
	Text      string   `json:"text,omitempty" toon:"text,omitempty"`
	Detail    string   `json:"detail,omitempty" toon:"detail,omitempty"`
}

// FileResult is the outcome of stripping one file.
type FileResult struct {
	Path            string `json:"path" toon:"path"`
	Language        string `json:"language" toon:"language"`
	Edits           []Edit `json:"edits,omitempty" toon:"edits,omitempty"`
	TaintedBindings int    `json:"tainted_bindings" toon:"tainted_bindings"`
	BytesBefore     int    `json:"bytes_before" toon:"bytes_before"`
	BytesAfter      int    `json:"bytes_after" toon:"bytes_after"`
	HashBefore      string `json:"hash_before" toon:"hash_before"`
	HashAfter       string `json:"hash_after" toon:"hash_after"`
	Changed         bool   `json:"changed" toon:"changed"`

	// Output holds the rewritten source. It is not serialized; reports
	// carry the edit list and fingerprints instead.
	Output []byte `json:"-" toon:"-"`
}

// RemovalRatio returns the fraction of bytes removed from the file.
func (f *FileResult) RemovalRatio() float64 {
	if f.BytesBefore == 0 {
		return 0
	}
	return float64(f.BytesBefore-f.BytesAfter) / float64(f.BytesBefore)
}

// RatioStats summarizes the distribution of per-file removal ratios.
type RatioStats struct {
	Mean   float64 `json:"mean" toon:"mean"`
	StdDev float64 `json:"std_dev" toon:"std_dev"`
	P50    float64 `json:"p50" toon:"p50"`
	P90    float64 `json:"p90" toon:"p90"`
}

// Summary aggregates results across all analyzed files.
type Summary struct {
	TotalFiles          int              `json:"total_files" toon:"total_files"`
	FilesChanged        int              `json:"files_changed" toon:"files_changed"`
	TotalEdits          int              `json:"total_edits" toon:"total_edits"`
	StatementsDeleted   int              `json:"statements_deleted" toon:"statements_deleted"`
	DeclaratorsRemoved  int              `json:"declarators_removed" toon:"declarators_removed"`
	ExpressionsReplaced int              `json:"expressions_replaced" toon:"expressions_replaced"`
	BytesRemoved        int              `json:"bytes_removed" toon:"bytes_removed"`
	ByKind              map[EditKind]int `json:"by_kind,omitempty" toon:"by_kind,omitempty"`
	Ratios              RatioStats       `json:"removal_ratios" toon:"removal_ratios"`

	ratios []float64
}

// NewSummary creates an initialized summary.
func NewSummary() Summary {
	return Summary{
		ByKind: make(map[EditKind]int),
	}
}

// AddFile accumulates one file result into the summary.
func (s *Summary) AddFile(f *FileResult) {
	s.TotalFiles++
	s.TotalEdits += len(f.Edits)
	for _, e := range f.Edits {
		s.ByKind[e.Kind]++
		switch e.Kind {
		case EditDeleteStatement:
			s.StatementsDeleted++
		case EditRemoveDeclarator:
			s.DeclaratorsRemoved++
		case EditReplaceExpression:
			s.ExpressionsReplaced++
		}
	}
	if f.Changed {
		s.FilesChanged++
		s.BytesRemoved += f.BytesBefore - f.BytesAfter
		s.ratios = append(s.ratios, f.RemovalRatio())
	}
}

// Finalize computes the removal-ratio statistics over changed files.
func (s *Summary) Finalize() {
	if len(s.ratios) == 0 {
		return
	}
	sort.Float64s(s.ratios)
	s.Ratios.Mean = stat.Mean(s.ratios, nil)
	s.Ratios.StdDev = stat.StdDev(s.ratios, nil)
	s.Ratios.P50 = stat.Quantile(0.5, stat.Empirical, s.ratios, nil)
	s.Ratios.P90 = stat.Quantile(0.9, stat.Empirical, s.ratios, nil)
}

// SkippedFile records a file that could not be analyzed.
type SkippedFile struct {
	Path   string `json:"path" toon:"path"`
	Reason string `json:"reason" toon:"reason"`
}

// Analysis is the complete result of a strip run.
type Analysis struct {
	TargetModule string        `json:"target_module" toon:"target_module"`
	Files        []FileResult  `json:"files" toon:"files"`
	Skipped      []SkippedFile `json:"skipped,omitempty" toon:"skipped,omitempty"`
	Summary      Summary       `json:"summary" toon:"summary"`
}

// ChangedFiles returns the results that plan at least one edit.
func (a *Analysis) ChangedFiles() []FileResult {
	var out []FileResult
	for _, f := range a.Files {
		if f.Changed {
			out = append(out, f)
		}
	}
	return out
}
