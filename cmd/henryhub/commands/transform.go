package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sartorproj/henryhub/timeseries"
)

type namedSeries struct {
	name   string
	series *timeseries.Series
}

type transformOptions struct {
	in     inputFlags
	outDir string
	period int
}

func newTransformCmd(a *app) *cobra.Command {
	opts := &transformOptions{}

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Write the log, differenced and seasonally differenced series as CSV",
		Example: `  henryhub transform --input data/henry_hub_monthly.csv --out out/series`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, a, opts)
		},
	}

	opts.in.register(cmd)
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory (default <output.dir>/series)")
	cmd.Flags().IntVar(&opts.period, "period", 0, "seasonal period (default from config)")

	return cmd
}

func runTransform(cmd *cobra.Command, a *app, opts *transformOptions) error {
	cfg := a.cfg
	opts.in.apply(cmd, cfg)
	period := cfg.Search.Period
	if cmd.Flags().Changed("period") {
		period = opts.period
	}
	dir := opts.outDir
	if dir == "" {
		dir = filepath.Join(cfg.Output.Dir, "series")
	}

	data, err := a.prepare()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	base := data.Model
	outputs := []namedSeries{
		{"price", data.Price},
		{"model", base},
		{"diff", base.Diff()},
	}
	if period >= 2 {
		sd := base.SeasonalDiff(period)
		outputs = append(outputs, namedSeries{"seasonal_diff", sd}, namedSeries{"seasonal_first_diff", sd.Diff()})
	}

	for _, o := range outputs {
		path := filepath.Join(dir, o.name+".csv")
		if err := timeseries.SaveCSV(o.series, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %4d rows  %s\n", o.name, o.series.Len(), path)
	}
	a.log.WithField("dir", dir).Info("Series written")
	return nil
}
