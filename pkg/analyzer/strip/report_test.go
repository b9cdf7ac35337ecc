package strip

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis() *Analysis {
	a := &Analysis{
		TargetModule: "debug",
		Summary:      NewSummary(),
	}
	files := []FileResult{
		{
			Path:     "src/app.js",
			Language: "javascript",
			Edits: []Edit{
				{Kind: EditDeleteStatement, StartByte: 0, EndByte: 26, Line: 1},
				{Kind: EditDeleteStatement, StartByte: 26, EndByte: 35, Line: 2},
			},
			BytesBefore: 200,
			BytesAfter:  150,
			HashBefore:  "00000000cafe0001",
			HashAfter:   "00000000cafe0002",
			Changed:     true,
		},
		{
			Path:     "src/util.ts",
			Language: "typescript",
			Edits: []Edit{
				{Kind: EditRemoveDeclarator, StartByte: 10, EndByte: 40, Line: 1},
				{Kind: EditReplaceExpression, StartByte: 80, EndByte: 95, Line: 4, Text: "undefined"},
			},
			BytesBefore: 300,
			BytesAfter:  297,
			Changed:     true,
		},
		{
			Path:        "src/clean.js",
			Language:    "javascript",
			BytesBefore: 100,
			BytesAfter:  100,
			Changed:     false,
		},
	}
	for i := range files {
		a.Files = append(a.Files, files[i])
		a.Summary.AddFile(&files[i])
	}
	a.Summary.Finalize()
	return a
}

func TestNewReport(t *testing.T) {
	rep := NewReport()
	require.NotNil(t, rep)
	assert.NotNil(t, rep.Files)
	assert.Empty(t, rep.Files)
}

func TestReportFromAnalysis(t *testing.T) {
	rep := NewReport()
	rep.FromAnalysis(sampleAnalysis())

	assert.Equal(t, "debug", rep.TargetModule)
	assert.Equal(t, 3, rep.TotalFiles)
	assert.Equal(t, 2, rep.ChangedFiles)
	assert.False(t, rep.AnalysisTimestamp.IsZero())

	// Highest removal ratio first.
	require.Len(t, rep.Files, 2)
	assert.Equal(t, "src/app.js", rep.Files[0].Path)
	assert.Equal(t, "src/util.ts", rep.Files[1].Path)

	app := rep.Files[0]
	assert.Equal(t, 2, app.EditCount)
	assert.Equal(t, 2, app.StatementsDeleted)
	assert.Equal(t, 200, app.BytesBefore)
	assert.Equal(t, 150, app.BytesAfter)
	assert.Equal(t, 50, app.BytesRemoved)
	assert.InDelta(t, 0.25, app.RemovalRatio, 1e-9)
	assert.Equal(t, "00000000cafe0001", app.HashBefore)
	assert.Equal(t, "00000000cafe0002", app.HashAfter)

	util := rep.Files[1]
	assert.Equal(t, 1, util.DeclaratorsRemoved)
	assert.Equal(t, 1, util.ExpressionsReplaced)
	assert.Equal(t, 3, util.BytesRemoved)

	assert.Equal(t, 3, rep.Summary.TotalFiles)
	assert.Equal(t, 2, rep.Summary.FilesChanged)
	assert.Equal(t, 4, rep.Summary.TotalEdits)
	assert.Equal(t, 2, rep.Summary.StatementsDeleted)
	assert.Equal(t, 1, rep.Summary.DeclaratorsRemoved)
	assert.Equal(t, 1, rep.Summary.ExpressionsReplaced)
	assert.Equal(t, 53, rep.Summary.BytesRemoved)
	assert.InDelta(t, 0.13, rep.Summary.MeanRemovalRatio, 1e-9)
	assert.InDelta(t, math.Sqrt(0.0288), rep.Summary.StdDevRemovalRatio, 1e-9)
	assert.InDelta(t, 0.01, rep.Summary.P50RemovalRatio, 1e-9)
	assert.InDelta(t, 0.25, rep.Summary.P90RemovalRatio, 1e-9)
}

func TestReportFromAnalysisNoChanges(t *testing.T) {
	a := &Analysis{TargetModule: "debug", Summary: NewSummary()}
	clean := FileResult{Path: "src/clean.js", Language: "javascript", BytesBefore: 100, BytesAfter: 100}
	a.Files = append(a.Files, clean)
	a.Summary.AddFile(&clean)
	a.Summary.Finalize()

	rep := NewReport()
	rep.FromAnalysis(a)

	assert.Equal(t, 1, rep.TotalFiles)
	assert.Equal(t, 0, rep.ChangedFiles)
	assert.Empty(t, rep.Files)
}

func TestReportFromAnalysisSkipped(t *testing.T) {
	a := sampleAnalysis()
	a.Skipped = []SkippedFile{
		{Path: "vendor/big.min.js", Reason: "file too large: 2097152 bytes (limit: 1048576)"},
	}

	rep := NewReport()
	rep.FromAnalysis(a)

	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "vendor/big.min.js", rep.Skipped[0].Path)
	assert.Equal(t, 1, rep.Summary.FilesSkipped)
}

func TestReportSortTieBreak(t *testing.T) {
	a := &Analysis{TargetModule: "debug", Summary: NewSummary()}
	for _, path := range []string{"src/b.js", "src/a.js"} {
		f := FileResult{
			Path:        path,
			Language:    "javascript",
			Edits:       []Edit{{Kind: EditDeleteStatement, EndByte: 10, Line: 1}},
			BytesBefore: 100,
			BytesAfter:  90,
			Changed:     true,
		}
		a.Files = append(a.Files, f)
		a.Summary.AddFile(&f)
	}
	a.Summary.Finalize()

	rep := NewReport()
	rep.FromAnalysis(a)

	require.Len(t, rep.Files, 2)
	assert.Equal(t, "src/a.js", rep.Files[0].Path)
	assert.Equal(t, "src/b.js", rep.Files[1].Path)
}

func TestReportRenderText(t *testing.T) {
	rep := NewReport()
	rep.FromAnalysis(sampleAnalysis())

	var buf bytes.Buffer
	require.NoError(t, rep.RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, `Strip "debug": 2 of 3 files affected`)
	assert.Contains(t, out, "src/app.js")
	assert.Contains(t, out, "(25.0%)")
	assert.Contains(t, out, "Total Edits:     4")
	assert.Contains(t, out, "Bytes Removed:   53")
}

func TestReportRenderTextEmpty(t *testing.T) {
	a := &Analysis{TargetModule: "debug", Summary: NewSummary()}
	a.Summary.Finalize()

	rep := NewReport()
	rep.FromAnalysis(a)

	var buf bytes.Buffer
	require.NoError(t, rep.RenderText(&buf, false))
	assert.Contains(t, buf.String(), `No usage of "debug" found`)
}

func TestReportRenderTextSkipped(t *testing.T) {
	a := sampleAnalysis()
	a.Skipped = []SkippedFile{{Path: "src/broken.js", Reason: "failed to read file"}}

	rep := NewReport()
	rep.FromAnalysis(a)

	var buf bytes.Buffer
	require.NoError(t, rep.RenderText(&buf, false))
	assert.Contains(t, buf.String(), "Skipped 1 files:")
	assert.Contains(t, buf.String(), "src/broken.js: failed to read file")
}

func TestReportRenderMarkdown(t *testing.T) {
	rep := NewReport()
	rep.FromAnalysis(sampleAnalysis())

	var buf bytes.Buffer
	require.NoError(t, rep.RenderMarkdown(&buf))

	out := buf.String()
	assert.Contains(t, out, "## Strip `debug` (2 of 3 files)")
	assert.Contains(t, out, "| File | Edits |")
	assert.Contains(t, out, "| src/app.js | 2 |")
	assert.Contains(t, out, "**Total:** 4 edits, 53 bytes removed across 2 files")
}

func TestReportRenderData(t *testing.T) {
	rep := NewReport()
	rep.FromAnalysis(sampleAnalysis())
	assert.Same(t, rep, rep.RenderData())
}
