package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/subtitler/pkg/cli"
	"mercator-hq/subtitler/pkg/history"
)

var historyFlags struct {
	template string
	status   string
	since    time.Duration
	limit    int
	offset   int
	format   string
	days     int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded template applications",
	Long: `Inspect and prune the application history.

Applications are recorded when history.enabled is set in the configuration.
Each record keeps the run id, template, transcript, status and counters of
one application, not the selected animations.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded applications, newest first",
	Long: `List recorded applications, newest first.

Examples:
  # Last 20 applications
  subtitler history list --limit 20

  # Failed applications of one template in the last day
  subtitler history list --template captions --status failed --since 24h`,
	RunE: runHistoryList,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than the retention period",
	Long: `Delete records older than the retention period.

The period defaults to history.retention.days from the configuration.

Examples:
  subtitler history prune
  subtitler history prune --days 7`,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyListCmd.Flags().StringVar(&historyFlags.template, "template", "", "filter by template id")
	historyListCmd.Flags().StringVar(&historyFlags.status, "status", "", "filter by status: success, partial, failed")
	historyListCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only records started within this duration")
	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", 50, "maximum records to show (0 = all)")
	historyListCmd.Flags().IntVar(&historyFlags.offset, "offset", 0, "records to skip")
	historyListCmd.Flags().StringVarP(&historyFlags.format, "format", "o", "text", "output format: text, table, json, csv")

	historyPruneCmd.Flags().IntVar(&historyFlags.days, "days", 0, "retention period in days (default from config)")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.close()

	q := &history.Query{
		TemplateID: historyFlags.template,
		Status:     historyFlags.status,
		Limit:      historyFlags.limit,
		Offset:     historyFlags.offset,
	}
	if historyFlags.since > 0 {
		since := time.Now().Add(-historyFlags.since)
		q.Since = &since
	}

	records, err := a.history.Query(commandContext(cmd), q)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	return write(cmd.OutOrStdout(), format, cli.HistoryView(records))
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.close()

	days := a.cfg.History.Retention.Days
	if cmd.Flags().Changed("days") {
		days = historyFlags.days
	}
	if days <= 0 {
		return cli.NewConfigError("days", "retention period must be positive")
	}

	pruner := history.NewPruner(a.history, days, a.logger)
	deleted, err := pruner.Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records started before %s\n", deleted, pruner.Cutoff().Format(time.DateTime))
	return nil
}
