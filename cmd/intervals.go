package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evfleet/app"
	"github.com/kilianp07/evfleet/core/model"
)

var intervalsTarget string

var intervalsCmd = &cobra.Command{
	Use:   "intervals",
	Short: "Factor interval commands",
}

var intervalsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the factor intervals of a target",
	RunE:  runIntervalsLs,
}

func init() {
	intervalsLsCmd.Flags().StringVarP(&intervalsTarget, "target", "t", "", "target to list")
	_ = intervalsLsCmd.MarkFlagRequired("target")
	intervalsCmd.AddCommand(intervalsLsCmd)
	rootCmd.AddCommand(intervalsCmd)
}

func runIntervalsLs(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc *app.Service) error {
		sim, err := svc.Manager.Get(model.Target(intervalsTarget))
		if err != nil {
			return err
		}
		ivs, err := sim.Intervals(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCENARIO\tFACTOR\tFROM\tTO\tVALUE_FROM\tVALUE_TO")
		for _, iv := range ivs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%g\t%g\n", iv.Scenario, iv.Factor, iv.YearFrom, iv.YearTo, iv.ValueFrom, iv.ValueTo)
		}
		return tw.Flush()
	})
}
