package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"pixpress/internal/batch"
	"pixpress/internal/config"
	"pixpress/internal/history"
	"pixpress/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		destDir     string
		overwrite   bool
		concurrency int
		quality     int
		pngLevel    int
		format      string
	)

	cmd := &cobra.Command{
		Use:   "run [path...]",
		Short: "Optimize the given files and directories",
		Long: `Optimize every supported image under the given paths.

A single dropped file is saved next to it (or into --dest); anything larger
is delivered as a zip archive preserving the dropped folder structure.
With --overwrite, originals are replaced in place and nothing is packaged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("overwrite") {
				cfg.Optimize.Overwrite = overwrite
			}
			if flags.Changed("concurrency") {
				cfg.Optimize.Concurrency = concurrency
			}
			if flags.Changed("quality") {
				cfg.Optimize.JPEGQuality = quality
			}
			if flags.Changed("png-level") {
				cfg.Optimize.PNGLevel = pngLevel
			}
			if flags.Changed("format") {
				cfg.Optimize.TargetFormat = format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			roots := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return fmt.Errorf("resolve path %q: %w", arg, err)
				}
				roots = append(roots, filepath.Clean(expanded))
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			opts := []runner.Option{}
			if destDir != "" {
				expanded, err := config.ExpandPath(destDir)
				if err != nil {
					return fmt.Errorf("resolve destination %q: %w", destDir, err)
				}
				opts = append(opts, runner.WithChooser(&runner.DirChooser{Dir: expanded}))
			}

			if cfg.History.Enabled {
				store, err := history.Open(cfg)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer store.Close()
				opts = append(opts, runner.WithHistory(store))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, runErr := runner.New(cfg, logger, opts...).Execute(runCtx, roots)
			if summary != nil {
				printSummary(cmd, summary)
			}
			if runErr != nil {
				if errors.Is(runErr, runner.ErrAlreadyRunning) {
					return runErr
				}
				return fmt.Errorf("run failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&destDir, "dest", "d", "", "Directory to deliver the result into (default: next to the first path)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace originals in place instead of packaging outputs")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Maximum optimizations in flight")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality (1-100)")
	cmd.Flags().IntVar(&pngLevel, "png-level", -1, "Oxipng optimization level (0-6)")
	cmd.Flags().StringVar(&format, "format", "", "Require outputs in this format (png, jpg)")

	return cmd
}

func printSummary(cmd *cobra.Command, summary *runner.Summary) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(summary.Items))
	for _, item := range summary.Items {
		row := []string{filepath.Base(item.SourcePath), itemStateLabel(item), "-", "-", "-"}
		if item.Outcome != nil {
			row[2] = formatBytes(item.Outcome.OriginalSize)
			row[3] = formatBytes(item.Outcome.NewSize)
			row[4] = formatSavings(item.Outcome.OriginalSize, item.Outcome.SavedBytes)
		}
		if item.State == batch.StateError {
			row[4] = item.Failure
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Result", "Original", "New", "Saved"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		colorize,
	))

	kind := statusOK
	if summary.Failed > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Batch", kind,
		fmt.Sprintf("%s: %d optimized, %d skipped, %d failed in %s",
			summary.Label, summary.Succeeded, summary.Skipped, summary.Failed,
			formatDuration(summary.Duration)), colorize))
	if summary.SavedBytes > 0 {
		fmt.Fprintln(out, renderStatusLine("Saved", statusOK, formatBytes(summary.SavedBytes), colorize))
	}

	switch summary.Disposition {
	case "single", "archive":
		if summary.OutputPath != "" {
			fmt.Fprintln(out, renderStatusLine("Output", statusOK, summary.OutputPath, colorize))
		}
	case "in-place":
		fmt.Fprintln(out, renderStatusLine("Output", statusOK, "originals replaced in place", colorize))
	case "cancelled":
		fmt.Fprintln(out, renderStatusLine("Output", statusWarn, "delivery declined, optimized files left in the work directory", colorize))
	case "empty":
		fmt.Fprintln(out, renderStatusLine("Output", statusInfo, "nothing to deliver", colorize))
	}
}

func itemStateLabel(item *batch.Item) string {
	if item.State == batch.StateDone && item.Outcome != nil && item.Outcome.Skipped {
		return "skipped"
	}
	if item.State == batch.StateDone {
		return "optimized"
	}
	return string(item.State)
}
