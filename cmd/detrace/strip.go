package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/detrace/detrace/internal/cache"
	"github.com/detrace/detrace/internal/fileproc"
	"github.com/detrace/detrace/internal/output"
	"github.com/detrace/detrace/internal/progress"
	"github.com/detrace/detrace/internal/scanner"
	"github.com/detrace/detrace/pkg/analyzer/strip"
	"github.com/detrace/detrace/pkg/config"
)

func stripCmd() *cli.Command {
	return &cli.Command{
		Name:      "strip",
		Aliases:   []string{"s"},
		Usage:     "Remove target-module usage from JavaScript/TypeScript sources",
		ArgsUsage: "[path...]",
		Description: `Plans the removal of every import, require, alias, and call site of the
target module. By default nothing is written: the planned edits are
reported. Use --write to rewrite files in place, or --stdout to print a
single file's transformed source.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Rewrite files in place",
			},
			&cli.BoolFlag{
				Name:  "stdout",
				Usage: "Print transformed source to stdout (single file only)",
			},
			&cli.StringFlag{
				Name:    "module",
				Aliases: []string{"m"},
				Usage:   "Module specifier to remove (defaults to strip.module from config)",
			},
			&cli.BoolFlag{
				Name:  "fail-on-change",
				Usage: "Exit 2 when any file would change (CI guard)",
			},
		},
		Action: runStripCmd,
	}
}

func runStripCmd(c *cli.Context) error {
	write := c.Bool("write")
	toStdout := c.Bool("stdout")
	if write && toStdout {
		return fmt.Errorf("--write and --stdout are mutually exclusive")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	module := targetModule(c, cfg)

	spin := progress.NewSpinner("Scanning for source files...")
	files, err := scanner.New(cfg).ScanPaths(getPaths(c))
	spin.FinishSuccess()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No JavaScript or TypeScript files found")
		return nil
	}

	if toStdout {
		if len(files) != 1 {
			return fmt.Errorf("--stdout requires exactly one file, got %d", len(files))
		}
		return stripToStdout(files[0], module, cfg)
	}

	label := "Planning edits..."
	if write {
		label = "Stripping files..."
	}
	tracker := progress.NewTracker(label, len(files))

	analyzer := strip.New(
		strip.WithTargetModule(module),
		strip.WithMaxFileSize(cfg.Strip.MaxFileSize),
		strip.WithCache(newCache(cfg, c.Bool("no-cache"))),
		strip.WithProgress(tracker.Tick),
	)
	defer analyzer.Close()

	analysis, err := analyzer.Analyze(c.Context, files)
	tracker.FinishSuccess()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	changed := analysis.ChangedFiles()
	if write && len(changed) > 0 {
		if err := writeChangedFiles(c.Context, changed); err != nil {
			return err
		}
	}

	rep := strip.NewReport()
	rep.FromAnalysis(analysis)

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON || formatter.Format() == output.FormatTOON {
		if err := formatter.Output(rep); err != nil {
			return err
		}
	} else {
		if err := renderStripTables(formatter, rep, write, c.Bool("verbose")); err != nil {
			return err
		}
	}

	if write && len(changed) > 0 {
		color.Green("Rewrote %d files", len(changed))
	}

	if c.Bool("fail-on-change") && rep.ChangedFiles > 0 {
		verb := "would change"
		if write {
			verb = "changed"
		}
		return cli.Exit(fmt.Sprintf("%d files %s", rep.ChangedFiles, verb), 2)
	}
	return nil
}

// stripToStdout rewrites one file and prints the result without
// touching the original.
func stripToStdout(path, module string, cfg *config.Config) error {
	analyzer := strip.New(
		strip.WithTargetModule(module),
		strip.WithMaxFileSize(cfg.Strip.MaxFileSize),
	)
	defer analyzer.Close()

	result, err := analyzer.AnalyzeFile(path)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(result.Output)
	return err
}

// writeChangedFiles applies rewritten sources in place, preserving
// each file's mode bits.
func writeChangedFiles(ctx context.Context, changed []strip.FileResult) error {
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
		return fmt.Errorf("failed to write rewritten files: %s", werrs.Error())
	}
	return nil
}

// renderStripTables prints the text/markdown report: a per-file table,
// optionally a per-edit table, skipped files, and a summary line.
func renderStripTables(formatter *output.Formatter, rep *strip.Report, write, verbose bool) error {
	if rep.ChangedFiles == 0 {
		fmt.Fprintf(formatter.Writer(), "No usage of %q found (%d files analyzed)\n", rep.TargetModule, rep.TotalFiles)
		printSkipped(formatter, rep)
		return nil
	}

	title := "Planned Edits"
	if write {
		title = "Applied Edits"
	}

	var rows [][]string
	for _, f := range rep.Files {
		rows = append(rows, []string{
			f.Path,
			f.Language,
			fmt.Sprintf("%d", f.StatementsDeleted),
			fmt.Sprintf("%d", f.DeclaratorsRemoved),
			fmt.Sprintf("%d", f.ExpressionsReplaced),
			fmt.Sprintf("%d", f.BytesRemoved),
			fmt.Sprintf("%.1f%%", f.RemovalRatio*100),
		})
	}

	table := output.NewTable(
		title,
		[]string{"File", "Lang", "Statements", "Declarators", "Expressions", "Bytes", "Ratio"},
		rows,
		nil,
		nil,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	if verbose {
		var editRows [][]string
		for _, f := range rep.Files {
			for _, e := range f.Edits {
				editRows = append(editRows, []string{
					fmt.Sprintf("%s:%d", f.Path, e.Line),
					output.KindColor(string(e.Kind), string(e.Kind)),
					truncate(e.Text, 60),
				})
			}
		}
		if len(editRows) > 0 {
			editTable := output.NewTable(
				"Edits",
				[]string{"Location", "Kind", "Source"},
				editRows,
				nil,
				nil,
			)
			if err := formatter.Output(editTable); err != nil {
				return err
			}
		}
	}

	printSkipped(formatter, rep)

	fmt.Fprintf(formatter.Writer(), "\nSummary: %d edits across %d of %d files, %d bytes removed (mean %.1f%%, p90 %.1f%%)\n",
		rep.Summary.TotalEdits,
		rep.ChangedFiles,
		rep.TotalFiles,
		rep.Summary.BytesRemoved,
		rep.Summary.MeanRemovalRatio*100,
		rep.Summary.P90RemovalRatio*100)

	return nil
}

func printSkipped(formatter *output.Formatter, rep *strip.Report) {
	if len(rep.Skipped) == 0 {
		return
	}
	formatter.Warning("Skipped %d files:", len(rep.Skipped))
	for _, s := range rep.Skipped {
		fmt.Fprintf(formatter.Writer(), "  %s: %s\n", s.Path, s.Reason)
	}
}

// newCache builds the result cache from config; a disabled cache is
// returned when caching is off or the directory cannot be created.
func newCache(cfg *config.Config, noCache bool) *cache.Cache {
	enabled := cfg.Cache.Enabled && !noCache
	ch, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, enabled)
	if err != nil {
		ch, _ = cache.New("", 0, false)
	}
	return ch
}
