package main

import (
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect rename history",
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyStatsCmd())

	return cmd
}

func historyListCmd() *cobra.Command {
	var (
		docType   string
		outcome   string
		patternID string
		since     string
		until     string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rename decisions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := service.HistoryFilter{PatternID: patternID}

			var err error
			if filter.Type, err = parseOptionalType(docType); err != nil {
				return err
			}
			if outcome != "" {
				parsed, parseErr := model.ParseOutcome(outcome)
				if parseErr != nil {
					return parseErr
				}
				filter.Outcome = &parsed
			}
			if since != "" {
				day, parseErr := parseDay(since)
				if parseErr != nil {
					return parseErr
				}
				filter.Since = &day
			}
			if until != "" {
				day, parseErr := parseDay(until)
				if parseErr != nil {
					return parseErr
				}
				end := day.Add(24*time.Hour - time.Nanosecond)
				filter.Until = &end
			}

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			var entries []model.HistoryEntry
			for entry, err := range st.ledger.Query(ctx, filter) {
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			slices.Reverse(entries)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "WHEN\tOUTCOME\tTYPE\tORIGINAL\tNEW NAME\tPATTERN")
			_, _ = fmt.Fprintln(w, "────\t───────\t────\t────────\t────────\t───────")
			for _, entry := range entries {
				newName := entry.NewName
				if entry.Outcome == model.OutcomeFailed {
					newName = entry.Reason
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					formatRelativeTime(entry.Timestamp),
					entry.Outcome,
					entry.DocumentType,
					truncateString(entry.OriginalName, 40),
					truncateString(newName, 60),
					entry.PatternID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&docType, "type", "t", "", "only this document type")
	cmd.Flags().StringVarP(&outcome, "outcome", "o", "", "only this outcome (applied, dry_run, failed, skipped_collision)")
	cmd.Flags().StringVarP(&patternID, "pattern", "p", "", "only decisions made with this pattern")
	cmd.Flags().StringVar(&since, "since", "", "on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "on or before this day (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many entries (0 for all)")

	return cmd
}

func historyStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize rename history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := st.ledger.ComputeStats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\nRenamed: %d\n\n", stats.TotalEntries, stats.TotalRenamed)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "OUTCOME\tCOUNT")
			for _, outcome := range model.Outcomes() {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", outcome, stats.CountsByOutcome[outcome])
			}
			_, _ = fmt.Fprintln(w, "\t")
			_, _ = fmt.Fprintln(w, "TYPE\tCOUNT")
			for _, docType := range model.DocumentTypes() {
				if count := stats.CountsByType[docType]; count > 0 {
					_, _ = fmt.Fprintf(w, "%s\t%d\n", docType.DisplayName(), count)
				}
			}
			if count := stats.CountsByType[""]; count > 0 {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", "(unclassified)", count)
			}
			return w.Flush()
		},
	}
}
