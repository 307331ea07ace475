package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docmirror/docmirror/internal/config"
	"github.com/docmirror/docmirror/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past mirror runs from the crawl database",
		Long: `History lists past mirror runs stored in the crawl database.

Each mirror run is saved automatically, so history can answer which pages
kept failing, how a site's page count changed over time, and when a mirror
was last refreshed.

Examples:
  # List all stored runs
  docmirror history

  # List runs for one site
  docmirror history --url https://docs.example.com

  # Show how one page fared across runs
  docmirror history --page https://docs.example.com/guide/intro

  # Dump the full stored report of run 3 as JSON
  docmirror history --run 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("url", "u", "", "Filter runs by root URL")
	cmd.Flags().String("page", "", "Show the outcome history of a single page URL")
	cmd.Flags().Int64("run", 0, "Print the full stored report of a run as JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	rootURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}
	pageURL, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(config.XDGDataDir(), opts)
	if err != nil {
		return fmt.Errorf("no crawl history found (run a mirror first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case runID > 0:
		return printRunReport(ctx, db, runID)
	case pageURL != "":
		return printPageHistory(ctx, db, pageURL, cmd.OutOrStdout())
	default:
		return printRunList(ctx, db, rootURL, cmd.OutOrStdout())
	}
}

// printRunList lists stored runs, newest first.
func printRunList(ctx context.Context, db *database.CrawlDB, rootURL string, out io.Writer) error {
	runs, err := db.ListRuns(ctx, rootURL)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs.")
		return nil
	}

	fmt.Fprintf(out, "%-4s %-40s %-20s %-10s %-8s %s\n",
		"ID", "SITE", "STARTED", "PAGES", "FAILED", "STATUS")
	for _, run := range runs {
		status := "ok"
		if run.Cancelled {
			status = "cancelled"
		}
		fmt.Fprintf(out, "%-4d %-40s %-20s %-10d %-8d %s\n",
			run.ID,
			truncateCell(run.RootURL, 40),
			run.StartedAt.Format(time.DateTime),
			run.PagesSucceeded,
			run.PagesFailed,
			status,
		)
	}
	return nil
}

// printPageHistory shows one URL's outcome across all stored runs.
func printPageHistory(ctx context.Context, db *database.CrawlDB, pageURL string, out io.Writer) error {
	history, err := db.GetPageHistory(ctx, pageURL)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "No stored outcomes for %s\n", pageURL)
		return nil
	}

	fmt.Fprintf(out, "History for %s:\n\n", pageURL)
	for _, h := range history {
		line := fmt.Sprintf("run %d (%s): %s",
			h.RunID, h.StartedAt.Format(time.DateTime), h.Result.Status)
		if h.Result.Reason != "" {
			line += " (" + h.Result.Reason + ")"
		}
		if h.Result.Retries > 0 {
			line += fmt.Sprintf(" after %d retries", h.Result.Retries)
		}
		fmt.Fprintln(out, "  "+line)
	}
	return nil
}

// printRunReport dumps the full stored report of one run as JSON.
func printRunReport(ctx context.Context, db *database.CrawlDB, runID int64) error {
	stored, err := db.GetRunReport(ctx, runID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("run %d not found", runID)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stored)
}

// truncateCell shortens a table cell value to fit its column.
func truncateCell(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
