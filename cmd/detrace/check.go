package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/detrace/detrace/internal/output"
	"github.com/detrace/detrace/internal/progress"
	"github.com/detrace/detrace/internal/scanner"
	"github.com/detrace/detrace/pkg/analyzer/strip"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Verify no target-module usage remains",
		ArgsUsage: "[path...]",
		Description: `Runs the same analysis as strip without writing anything. Exits 0 when
the tree is clean and 2 when any file still references the target
module, which makes it usable as a CI gate:

  detrace check src/ || exit 1`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "module",
				Aliases: []string{"m"},
				Usage:   "Module specifier to check for (defaults to strip.module from config)",
			},
		},
		Action: runCheckCmd,
	}
}

func runCheckCmd(c *cli.Context) error {
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

	tracker := progress.NewTracker("Checking files...", len(files))
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

	rep := strip.NewReport()
	rep.FromAnalysis(analysis)

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(rep); err != nil {
		return err
	}

	if rep.ChangedFiles > 0 {
		return cli.Exit(fmt.Sprintf("%d files contain %q usage", rep.ChangedFiles, module), 2)
	}
	return nil
}
