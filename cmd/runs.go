package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evfleet/app"
	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/runlog"
)

var (
	runsTarget string
	runsLimit  int
	runsSince  time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Run history commands",
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded simulation runs",
	RunE:  runRunsLs,
}

func init() {
	runsLsCmd.Flags().StringVarP(&runsTarget, "target", "t", "", "only runs of this target")
	runsLsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of most recent runs")
	runsLsCmd.Flags().DurationVar(&runsSince, "since", 0, "only runs newer than this duration")
	runsCmd.AddCommand(runsLsCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsLs(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc *app.Service) error {
		q := runlog.Query{Target: model.Target(runsTarget), Limit: runsLimit}
		if runsSince > 0 {
			q.Start = time.Now().Add(-runsSince)
		}
		recs, err := svc.RunLog.Query(ctx, q)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tRUN\tTARGET\tDURATION\tRESULT")
		for _, r := range recs {
			result := "ok " + formatRatios(r.FinalRatios)
			if r.Failed() {
				result = "error: " + r.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n", r.Timestamp.Format(time.RFC3339), r.RunID, r.Target, r.DurationMS, result)
		}
		return tw.Flush()
	})
}

func formatRatios(ratios map[string]float64) string {
	keys := make([]string, 0, len(ratios))
	for k := range ratios {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.1f%%", k, ratios[k])
	}
	return strings.Join(parts, " ")
}
