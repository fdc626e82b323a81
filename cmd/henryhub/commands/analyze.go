package commands

import (
	"github.com/spf13/cobra"

	"github.com/sartorproj/henryhub/internal/analysis"
	"github.com/sartorproj/henryhub/report"
)

type analyzeOptions struct {
	in        inputFlags
	search    searchFlags
	top       int
	orders    []string
	horizon   int
	outDir    string
	formats   []string
	noCharts  bool
	printRows int
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full study: explore, search, compare candidates, forecast",
		Long: `Run the complete analysis: stationarity checks and correlograms, the
order search, diagnostics and test-window accuracy for the candidate models,
and a forecast beyond the data from the best model. Reports and charts are
written to the output directory.`,
		Example: `  # Defaults from henryhub.yaml
  henryhub analyze

  # Rank by BIC with a stepwise search and hold out 36 months
  henryhub analyze --method stepwise --criterion bic --test-months 36

  # Add a manual candidate and export a workbook
  henryhub analyze --order "ARIMA(1,1,0)(0,1,1)[12]" --format json,xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, opts)
		},
	}

	opts.in.register(cmd)
	opts.search.register(cmd)
	cmd.Flags().IntVar(&opts.top, "top", 0, "number of searched models kept as candidates")
	cmd.Flags().StringArrayVar(&opts.orders, "order", nil, "extra candidate order, e.g. ARIMA(0,1,1)(0,1,1)[12] (repeatable)")
	cmd.Flags().IntVar(&opts.horizon, "horizon", 0, "months forecast beyond the data")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory")
	cmd.Flags().StringSliceVar(&opts.formats, "format", nil, "report formats (json, yaml, csv, xlsx)")
	cmd.Flags().BoolVar(&opts.noCharts, "no-charts", false, "skip chart rendering")
	cmd.Flags().IntVar(&opts.printRows, "rows", 10, "grid rows printed to the console (0 prints all)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, opts *analyzeOptions) error {
	cfg := a.cfg
	opts.in.apply(cmd, cfg)
	opts.search.apply(cmd, cfg)

	flags := cmd.Flags()
	if flags.Changed("top") {
		cfg.Candidates.Top = opts.top
	}
	if flags.Changed("order") {
		cfg.Candidates.Orders = append(cfg.Candidates.Orders, opts.orders...)
	}
	if flags.Changed("horizon") {
		cfg.Forecast.Horizon = opts.horizon
	}
	if flags.Changed("out") {
		cfg.Output.Dir = opts.outDir
	}
	if flags.Changed("format") {
		cfg.Output.Formats = opts.formats
	}
	if flags.Changed("no-charts") {
		cfg.Output.Charts = !opts.noCharts
	}

	rep, err := analysis.Run(cmd.Context(), cfg, a.log, a.metrics)
	if err != nil {
		return err
	}
	return report.Print(cmd.OutOrStdout(), rep, opts.printRows)
}
