package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evfleet/app"
	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/pkg/export"
)

var (
	exportTarget string
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the results of a target",
	Long:  "Export the persisted results of a target, simulating it first when nothing is stored.",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportTarget, "target", "t", "", "target to export")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format: csv, plot-csv, json or html")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, stdout when empty")
	_ = exportCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc *app.Service) error {
		sim, err := svc.Manager.Get(model.Target(exportTarget))
		if err != nil {
			return err
		}
		rs, err := sim.Results()
		if errors.Is(err, model.ErrNoResults) {
			rs, err = sim.Run(ctx)
		}
		if err != nil {
			return err
		}
		pts, err := sim.PlotSeries()
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		switch exportFormat {
		case "csv":
			return export.WriteCSV(w, rs.Scenarios)
		case "plot-csv":
			return export.WritePlotCSV(w, pts)
		case "json":
			return export.WriteJSON(w, rs)
		case "html":
			return export.WriteChartHTML(w, sim.Target(), pts)
		default:
			return fmt.Errorf("unknown format %q", exportFormat)
		}
	})
}
