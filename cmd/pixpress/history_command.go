package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pixpress/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Review past optimization batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(ctx, cmd, 20)
		},
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryStatsCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(ctx, cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum batches to show (0 for all)")
	return cmd
}

func runHistoryList(ctx *commandContext, cmd *cobra.Command, limit int) error {
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	batches, err := store.ListBatches(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(batches) == 0 {
		fmt.Fprintln(out, "No batches recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(batches))
	for _, rec := range batches {
		rows = append(rows, []string{
			shortID(rec.ID),
			rec.Label,
			rec.FinishedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", rec.Succeeded, rec.TotalItems),
			formatBytes(rec.SavedBytes),
			rec.Disposition,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Batch", "Finished", "Optimized", "Saved", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		shouldColorize(out),
	))
	return nil
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show every file from a recorded batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := findBatch(cmd, store, args[0])
			if err != nil {
				return err
			}
			items, err := store.ItemsForBatch(cmd.Context(), rec.ID)
			if err != nil {
				return fmt.Errorf("load batch items: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", rec.Label, rec.ID)
			fmt.Fprintf(out, "Roots: %s\n", strings.Join(rec.Roots, ", "))
			if rec.OutputPath != "" {
				fmt.Fprintf(out, "Output: %s\n", rec.OutputPath)
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := formatSavings(item.OriginalSize, item.SavedBytes)
				state := item.State
				switch {
				case item.Failure != "":
					detail = item.Failure
				case item.Skipped:
					state = "skipped"
					detail = "already optimal"
				}
				rows = append(rows, []string{
					filepath.Base(item.SourcePath),
					state,
					formatDuration(item.Duration),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Result", "Took", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show lifetime savings totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.TotalStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("load stats: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Batches", statusInfo, fmt.Sprintf("%d", stats.Batches), colorize))
			fmt.Fprintln(out, renderStatusLine("Files", statusInfo, fmt.Sprintf("%d", stats.Items), colorize))
			fmt.Fprintln(out, renderStatusLine("Total saved", statusOK, formatBytes(stats.TotalSavedBytes), colorize))
			return nil
		},
	}
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled in the configuration")
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// findBatch resolves a full or prefix batch id to a single recorded batch.
func findBatch(cmd *cobra.Command, store *history.Store, id string) (history.BatchRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return history.BatchRecord{}, fmt.Errorf("batch id is required")
	}

	batches, err := store.ListBatches(cmd.Context(), 0)
	if err != nil {
		return history.BatchRecord{}, fmt.Errorf("list history: %w", err)
	}
	var matches []history.BatchRecord
	for _, rec := range batches {
		if rec.ID == id {
			return rec, nil
		}
		if strings.HasPrefix(rec.ID, id) {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return history.BatchRecord{}, fmt.Errorf("no batch matches %q", id)
	default:
		return history.BatchRecord{}, fmt.Errorf("batch id %q is ambiguous (%d matches)", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
