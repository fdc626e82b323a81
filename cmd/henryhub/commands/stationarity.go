package commands

import (
	"github.com/spf13/cobra"

	"github.com/sartorproj/henryhub/report"
)

type stationarityOptions struct {
	in     inputFlags
	period int
	maxLag int
}

func newStationarityCmd(a *app) *cobra.Command {
	opts := &stationarityOptions{}

	cmd := &cobra.Command{
		Use:   "stationarity",
		Short: "Run ADF and KPSS tests, ndiffs/nsdiffs and correlograms on the training window",
		Example: `  henryhub stationarity --input data/henry_hub_monthly.csv --max-lag 48`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStationarity(cmd, a, opts)
		},
	}

	opts.in.register(cmd)
	cmd.Flags().IntVar(&opts.period, "period", 0, "seasonal period (default from config)")
	cmd.Flags().IntVar(&opts.maxLag, "max-lag", 0, "correlogram lags (default from config)")

	return cmd
}

func runStationarity(cmd *cobra.Command, a *app, opts *stationarityOptions) error {
	cfg := a.cfg
	opts.in.apply(cmd, cfg)
	period, maxLag := cfg.Search.Period, cfg.Diagnostics.MaxLag
	if cmd.Flags().Changed("period") {
		period = opts.period
	}
	if cmd.Flags().Changed("max-lag") {
		maxLag = opts.maxLag
	}

	data, err := a.prepare()
	if err != nil {
		return err
	}

	name := "level"
	if cfg.Transform.Log {
		name = "log"
	}
	series := []namedSeries{{name, data.ModelTrain}, {name + " diff", data.ModelTrain.Diff()}}
	if period >= 2 {
		sd := data.ModelTrain.SeasonalDiff(period)
		series = append(series, namedSeries{name + " seasonal diff", sd}, namedSeries{name + " seasonal+first diff", sd.Diff()})
	}

	var rows []report.StationarityRow
	var corr []report.CorrelogramRow
	for _, s := range series {
		rows = append(rows, report.Stationarity(s.name, s.series, period, 2))
		corr = append(corr, report.Correlogram(s.name, s.series, maxLag))
	}
	return report.PrintStationarity(cmd.OutOrStdout(), rows, corr)
}
