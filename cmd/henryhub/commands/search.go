package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sartorproj/henryhub/autoarima"
	"github.com/sartorproj/henryhub/internal/analysis"
	"github.com/sartorproj/henryhub/internal/config"
	"github.com/sartorproj/henryhub/report"
)

// searchFlags override the search section of the configuration.
type searchFlags struct {
	method    string
	criterion string
	period    int
	maxP      int
	maxQ      int
	maxSP     int
	maxSQ     int
	maxOrder  int
	workers   int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.method, "method", "", "search method (grid, stepwise)")
	cmd.Flags().StringVar(&f.criterion, "criterion", "", "ranking criterion (aic, aicc, bic)")
	cmd.Flags().IntVar(&f.period, "period", 0, "seasonal period (0 for non-seasonal)")
	cmd.Flags().IntVar(&f.maxP, "max-p", 0, "maximum AR order")
	cmd.Flags().IntVar(&f.maxQ, "max-q", 0, "maximum MA order")
	cmd.Flags().IntVar(&f.maxSP, "max-sp", 0, "maximum seasonal AR order")
	cmd.Flags().IntVar(&f.maxSQ, "max-sq", 0, "maximum seasonal MA order")
	cmd.Flags().IntVar(&f.maxOrder, "max-order", 0, "cap on p+q+P+Q (0 for none)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent fits (0 uses all CPUs)")
}

func (f *searchFlags) apply(cmd *cobra.Command, cfg *config.Analysis) {
	flags := cmd.Flags()
	s := &cfg.Search
	if flags.Changed("method") {
		s.Method = f.method
	}
	if flags.Changed("criterion") {
		s.Criterion = f.criterion
	}
	if flags.Changed("period") {
		s.Period = f.period
	}
	if flags.Changed("max-p") {
		s.MaxP = f.maxP
	}
	if flags.Changed("max-q") {
		s.MaxQ = f.maxQ
	}
	if flags.Changed("max-sp") {
		s.MaxSP = f.maxSP
	}
	if flags.Changed("max-sq") {
		s.MaxSQ = f.maxSQ
	}
	if flags.Changed("max-order") {
		s.MaxOrder = f.maxOrder
	}
	if flags.Changed("workers") {
		s.Workers = f.workers
	}
}

type searchOptions struct {
	in     inputFlags
	search searchFlags
	rows   int
}

func newSearchCmd(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search seasonal ARIMA orders on the training window and print the ranking",
		Example: `  # Exhaustive grid over the configured ranges
  henryhub search

  # Stepwise search ranked by AICc
  henryhub search --method stepwise --criterion aicc --rows 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, opts)
		},
	}

	opts.in.register(cmd)
	opts.search.register(cmd)
	cmd.Flags().IntVar(&opts.rows, "rows", 20, "rows printed (0 prints all)")

	return cmd
}

func runSearch(cmd *cobra.Command, a *app, opts *searchOptions) error {
	cfg := a.cfg
	opts.in.apply(cmd, cfg)
	opts.search.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := a.prepare()
	if err != nil {
		return err
	}
	scfg, err := analysis.SearchConfig(cfg.Search)
	if err != nil {
		return err
	}
	scfg.Progress = func(p autoarima.Progress) {
		a.metrics.ObserveFit(p)
	}

	began := time.Now()
	res, err := autoarima.AutoARIMA(cmd.Context(), data.ModelTrain, scfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(began)
	a.metrics.ObserveStage("search", elapsed)
	a.metrics.SetBest(res)
	a.log.WithField("best", res.Best.Order.String()).Info("Search finished")

	if err := report.PrintGrid(cmd.OutOrStdout(), report.SearchSummary(cfg.Search.Method, res, elapsed.Seconds()), report.GridRows(res.Entries), opts.rows); err != nil {
		return err
	}
	return a.flush()
}
