package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/models"
	"github.com/proofback/proofback-cli/internal/runs"
)

// newRunsCmd creates the 'runs' command group.
func newRunsCmd() *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Validation run operations (list, show, report, stats, delete)",
		Long:  `Commands for inspecting your backup validation runs.`,
	}

	runsCmd.AddCommand(newRunsListCmd())
	runsCmd.AddCommand(newRunsShowCmd())
	runsCmd.AddCommand(newRunsReportCmd())
	runsCmd.AddCommand(newRunsStatsCmd())
	runsCmd.AddCommand(newRunsDeleteCmd())

	return runsCmd
}

// newRunsListCmd creates the 'runs list' command.
func newRunsListCmd() *cobra.Command {
	var (
		page      int
		status    string
		search    string
		dateRange string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your validation runs, newest first",
		Long: `List your validation run history, ten runs per page.

Example:
  proofback-cli runs list
  proofback-cli runs list --status failed --range week
  proofback-cli runs list --search orders --page 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !models.RunStatus(status).Valid() {
				return fmt.Errorf("unknown status %q (use pending, running, passed or failed)", status)
			}
			if dateRange != "" && !models.DateRange(dateRange).Valid() {
				return fmt.Errorf("unknown range %q (use today, week or month)", dateRange)
			}

			client, sess, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := requireAuth(sess); err != nil {
				return err
			}

			tracker := runs.NewTracker(client, nil)
			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			if err := tracker.SetView(ctx, runs.Filter{
				Status:    models.RunStatus(status),
				Search:    search,
				DateRange: models.DateRange(dateRange),
			}, page); err != nil {
				return err
			}

			list := tracker.Runs()
			if len(list) == 0 {
				fmt.Println("No runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILE\tSTATUS\tDURATION\tCREATED")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.OriginalFilename, r.Status,
					formatDuration(r.DurationSeconds),
					r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			w.Flush()

			cur, total := tracker.Page()
			if total > 1 {
				fmt.Printf("\nPage %d of %d\n", cur, total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, passed, failed)")
	cmd.Flags().StringVar(&search, "search", "", "Filter by filename substring")
	cmd.Flags().StringVar(&dateRange, "range", "", "Filter by age (today, week, month)")

	return cmd
}

// newRunsShowCmd creates the 'runs show' command.
func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show full detail for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := requireAuth(sess); err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			run, err := client.GetTestRun(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:        %s\n", run.ID)
			fmt.Printf("File:      %s (%.1f MiB)\n", run.OriginalFilename, float64(run.FileSize)/(1024*1024))
			fmt.Printf("Status:    %s\n", run.Status)
			fmt.Printf("Created:   %s\n", run.CreatedAt.Local().Format(time.RFC1123))
			if run.CompletedAt != nil {
				fmt.Printf("Completed: %s\n", run.CompletedAt.Local().Format(time.RFC1123))
			}
			if run.DurationSeconds != nil {
				fmt.Printf("Duration:  %s\n", formatDuration(run.DurationSeconds))
			}
			if run.DatabaseName != "" {
				fmt.Printf("Database:  %s\n", run.DatabaseName)
			}
			if run.ResultCount != nil {
				fmt.Printf("Checks:    %d\n", *run.ResultCount)
			}
			if run.ErrorMessage != "" {
				fmt.Printf("Error:     %s\n", run.ErrorMessage)
			}
			return nil
		},
	}
}

// newRunsReportCmd creates the 'runs report' command.
func newRunsReportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Download the validation report for a finished run",
		Long: `Download the validation report for a run that has passed or failed.

Example:
  proofback-cli runs report run-123 --format pdf -o report.pdf
  proofback-cli runs report run-123 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf := models.ReportFormat(format)
			if !rf.Valid() {
				return fmt.Errorf("unknown format %q (use json or pdf)", format)
			}

			client, sess, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := requireAuth(sess); err != nil {
				return err
			}

			if output == "" {
				output = args[0] + "-report." + format
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("cannot create %s: %w", output, err)
			}
			defer f.Close()

			tracker := runs.NewTracker(client, nil)
			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			if err := tracker.DownloadReport(ctx, args[0], rf, f); err != nil {
				os.Remove(output)
				return err
			}

			fmt.Printf("Report saved to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Report format (json, pdf)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <run-id>-report.<format>)")

	return cmd
}

// newRunsStatsCmd creates the 'runs stats' command.
func newRunsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show your aggregate pass/fail counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := requireAuth(sess); err != nil {
				return err
			}

			tracker := runs.NewTracker(client, nil)
			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			stats, err := tracker.RefreshStats(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Total:   %d\n", stats.Total)
			fmt.Printf("Passed:  %d\n", stats.Passed)
			fmt.Printf("Failed:  %d\n", stats.Failed)
			fmt.Printf("Pending: %d\n", stats.Pending)
			if stats.Total > 0 {
				settled := stats.Passed + stats.Failed
				if settled > 0 {
					fmt.Printf("Pass rate: %.0f%%\n", 100*float64(stats.Passed)/float64(settled))
				}
			}
			return nil
		},
	}
}

// newRunsDeleteCmd creates the 'runs delete' command.
func newRunsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := requireAuth(sess); err != nil {
				return err
			}

			if !yes {
				ok, err := promptConfirm(fmt.Sprintf("Delete run %s and its report?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted")
					return nil
				}
			}

			ctx, cancel := contextWithTimeout(constants.APIContextTimeout)
			defer cancel()

			if err := client.DeleteTestRun(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Run %s deleted\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// formatDuration renders a run duration for tables; "-" while unfinished.
func formatDuration(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	d := time.Duration(*seconds * float64(time.Second)).Round(100 * time.Millisecond)
	s := d.String()
	// Trim noise like "1m0s" -> "1m", "1h0m" -> "1h"
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
