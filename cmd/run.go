package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evfleet/app"
	"github.com/kilianp07/evfleet/core/model"
)

var (
	runTarget  string
	runPersist bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one target, or every target when --target is empty",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringVarP(&runTarget, "target", "t", "", "target to simulate")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "store the results after the run")
	rootCmd.AddCommand(runCmd)
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc *app.Service) error {
		targets := svc.Manager.Targets()
		if runTarget != "" {
			targets = []model.Target{model.Target(runTarget)}
		} else if err := svc.Manager.RunAll(ctx); err != nil {
			return err
		}
		for _, target := range targets {
			sim, err := svc.Manager.Get(target)
			if err != nil {
				return err
			}
			rs, err := sim.Results()
			if runTarget != "" {
				rs, err = sim.Run(ctx)
			}
			if err != nil {
				return err
			}
			for _, r := range rs.Scenarios {
				ys := r.Table.Years()
				if len(ys) == 0 {
					continue
				}
				end := r.Table[ys[len(ys)-1]]
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%.2f%%\n", target, r.Scenario, ys[len(ys)-1], end[model.ColRatio])
			}
			if runPersist {
				if err := sim.Persist(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
