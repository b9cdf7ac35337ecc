package strip

import (
	"sort"
	"time"
)

// FileReport summarizes the rewrites planned for one file.
type FileReport struct {
	Path                string  `json:"path" toon:"path"`
	Language            string  `json:"language" toon:"language"`
	EditCount           int     `json:"edit_count" toon:"edit_count"`
	StatementsDeleted   int     `json:"statements_deleted" toon:"statements_deleted"`
	DeclaratorsRemoved  int     `json:"declarators_removed" toon:"declarators_removed"`
	ExpressionsReplaced int     `json:"expressions_replaced" toon:"expressions_replaced"`
	BytesBefore         int     `json:"bytes_before" toon:"bytes_before"`
	BytesAfter          int     `json:"bytes_after" toon:"bytes_after"`
	BytesRemoved        int     `json:"bytes_removed" toon:"bytes_removed"`
	RemovalRatio        float64 `json:"removal_ratio" toon:"removal_ratio"`
	HashBefore          string  `json:"hash_before" toon:"hash_before"`
	HashAfter           string  `json:"hash_after" toon:"hash_after"`
	Edits               []Edit  `json:"edits" toon:"edits"`
}

// ReportSummary provides aggregate statistics.
type ReportSummary struct {
	TotalFiles          int     `json:"total_files" toon:"total_files"`
	FilesChanged        int     `json:"files_changed" toon:"files_changed"`
	FilesSkipped        int     `json:"files_skipped" toon:"files_skipped"`
	TotalEdits          int     `json:"total_edits" toon:"total_edits"`
	StatementsDeleted   int     `json:"statements_deleted" toon:"statements_deleted"`
	DeclaratorsRemoved  int     `json:"declarators_removed" toon:"declarators_removed"`
	ExpressionsReplaced int     `json:"expressions_replaced" toon:"expressions_replaced"`
	BytesRemoved        int     `json:"bytes_removed" toon:"bytes_removed"`
	MeanRemovalRatio    float64 `json:"mean_removal_ratio" toon:"mean_removal_ratio"`
	StdDevRemovalRatio  float64 `json:"std_dev_removal_ratio" toon:"std_dev_removal_ratio"`
	P50RemovalRatio     float64 `json:"p50_removal_ratio" toon:"p50_removal_ratio"`
	P90RemovalRatio     float64 `json:"p90_removal_ratio" toon:"p90_removal_ratio"`
}

// Report is the output format for a strip run.
type Report struct {
	TargetModule      string        `json:"target_module" toon:"target_module"`
	Summary           ReportSummary `json:"summary" toon:"summary"`
	Files             []FileReport  `json:"files" toon:"files"`
	Skipped           []SkippedFile `json:"skipped,omitempty" toon:"skipped,omitempty"`
	TotalFiles        int           `json:"total_files" toon:"total_files"`
	ChangedFiles      int           `json:"changed_files" toon:"changed_files"`
	AnalysisTimestamp time.Time     `json:"analysis_timestamp,omitempty" toon:"analysis_timestamp,omitempty"`
}

// NewReport creates a new strip report.
func NewReport() *Report {
	return &Report{
		Files: make([]FileReport, 0),
	}
}

// FromAnalysis converts the internal Analysis to report format. Only
// files with at least one edit appear in the file list, ordered by
// removal ratio so the most affected files come first.
func (r *Report) FromAnalysis(analysis *Analysis) {
	r.TargetModule = analysis.TargetModule

	for i := range analysis.Files {
		f := &analysis.Files[i]
		if !f.Changed {
			continue
		}
		fr := FileReport{
			Path:         f.Path,
			Language:     f.Language,
			EditCount:    len(f.Edits),
			BytesBefore:  f.BytesBefore,
			BytesAfter:   f.BytesAfter,
			BytesRemoved: f.BytesBefore - f.BytesAfter,
			RemovalRatio: f.RemovalRatio(),
			HashBefore:   f.HashBefore,
			HashAfter:    f.HashAfter,
			Edits:        f.Edits,
		}
		for _, e := range f.Edits {
			switch e.Kind {
			case EditDeleteStatement:
				fr.StatementsDeleted++
			case EditRemoveDeclarator:
				fr.DeclaratorsRemoved++
			case EditReplaceExpression:
				fr.ExpressionsReplaced++
			}
		}
		r.Files = append(r.Files, fr)
	}

	// Ties break on path so output stays stable across runs.
	sort.Slice(r.Files, func(i, j int) bool {
		if r.Files[i].RemovalRatio != r.Files[j].RemovalRatio {
			return r.Files[i].RemovalRatio > r.Files[j].RemovalRatio
		}
		return r.Files[i].Path < r.Files[j].Path
	})

	r.Skipped = analysis.Skipped
	r.buildSummary(analysis)

	r.TotalFiles = analysis.Summary.TotalFiles
	r.ChangedFiles = len(r.Files)
	r.AnalysisTimestamp = time.Now().UTC()
}

func (r *Report) buildSummary(analysis *Analysis) {
	s := analysis.Summary
	r.Summary.TotalFiles = s.TotalFiles
	r.Summary.FilesChanged = s.FilesChanged
	r.Summary.FilesSkipped = len(analysis.Skipped)
	r.Summary.TotalEdits = s.TotalEdits
	r.Summary.StatementsDeleted = s.StatementsDeleted
	r.Summary.DeclaratorsRemoved = s.DeclaratorsRemoved
	r.Summary.ExpressionsReplaced = s.ExpressionsReplaced
	r.Summary.BytesRemoved = s.BytesRemoved
	r.Summary.MeanRemovalRatio = s.Ratios.Mean
	r.Summary.StdDevRemovalRatio = s.Ratios.StdDev
	r.Summary.P50RemovalRatio = s.Ratios.P50
	r.Summary.P90RemovalRatio = s.Ratios.P90
}
