package strip

import (
	"fmt"
	"io"
	"strings"
)

// RenderText implements output.Renderable for text output.
func (r *Report) RenderText(w io.Writer, colored bool) error {
	if len(r.Files) == 0 {
		fmt.Fprintf(w, "No usage of %q found (%d files analyzed)\n", r.TargetModule, r.TotalFiles)
		r.renderSkippedText(w)
		return nil
	}

	fmt.Fprintf(w, "Strip %q: %d of %d files affected\n", r.TargetModule, r.ChangedFiles, r.TotalFiles)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	for _, f := range r.Files {
		fmt.Fprintf(w, "%s\n", f.Path)
		fmt.Fprintf(w, "  %d edits (%d statements, %d declarators, %d expressions), %d bytes removed (%.1f%%)\n",
			f.EditCount, f.StatementsDeleted, f.DeclaratorsRemoved, f.ExpressionsReplaced,
			f.BytesRemoved, f.RemovalRatio*100)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Edits:     %d\n", r.Summary.TotalEdits)
	fmt.Fprintf(w, "Bytes Removed:   %d\n", r.Summary.BytesRemoved)
	fmt.Fprintf(w, "Mean Removal:    %.1f%%\n", r.Summary.MeanRemovalRatio*100)
	fmt.Fprintf(w, "P90 Removal:     %.1f%%\n", r.Summary.P90RemovalRatio*100)
	r.renderSkippedText(w)
	fmt.Fprintln(w)
	return nil
}

func (r *Report) renderSkippedText(w io.Writer) {
	if len(r.Skipped) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Skipped %d files:\n", len(r.Skipped))
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "  %s: %s\n", s.Path, s.Reason)
	}
}

// RenderMarkdown implements output.Renderable for markdown output.
func (r *Report) RenderMarkdown(w io.Writer) error {
	if len(r.Files) == 0 {
		fmt.Fprintf(w, "No usage of `%s` found (%d files analyzed)\n", r.TargetModule, r.TotalFiles)
		return nil
	}

	fmt.Fprintf(w, "## Strip `%s` (%d of %d files)\n\n", r.TargetModule, r.ChangedFiles, r.TotalFiles)

	fmt.Fprintln(w, "| File | Edits | Statements | Declarators | Expressions | Bytes | Ratio |")
	fmt.Fprintln(w, "|------|-------|------------|-------------|-------------|-------|-------|")
	for _, f := range r.Files {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %d | %d | %.1f%% |\n",
			f.Path, f.EditCount, f.StatementsDeleted, f.DeclaratorsRemoved,
			f.ExpressionsReplaced, f.BytesRemoved, f.RemovalRatio*100)
	}

	fmt.Fprintf(w, "\n**Total:** %d edits, %d bytes removed across %d files\n",
		r.Summary.TotalEdits, r.Summary.BytesRemoved, r.Summary.FilesChanged)

	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "\n**Skipped:** %d files\n", len(r.Skipped))
	}
	fmt.Fprintln(w)
	return nil
}

// RenderData implements output.Renderable for JSON/TOON output.
func (r *Report) RenderData() any {
	return r
}
