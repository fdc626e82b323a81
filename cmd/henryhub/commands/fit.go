package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sartorproj/henryhub/internal/analysis"
	"github.com/sartorproj/henryhub/report"
	"github.com/sartorproj/henryhub/sarima"
)

type fitOptions struct {
	in       inputFlags
	model    string
	order    string
	seasonal string
	period   int
	horizon  int
}

func newFitCmd(a *app) *cobra.Command {
	opts := &fitOptions{}

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit one seasonal ARIMA order and print its summary, diagnostics and forecasts",
		Example: `  # The airline model
  henryhub fit --order 0,1,1 --seasonal 0,1,1 --period 12

  # Same, in R notation
  henryhub fit --model "ARIMA(0,1,1)(0,1,1)[12]" --horizon 24`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd, a, opts)
		},
	}

	opts.in.register(cmd)
	cmd.Flags().StringVar(&opts.model, "model", "", "order as ARIMA(p,d,q)(P,D,Q)[m]")
	cmd.Flags().StringVar(&opts.order, "order", "0,1,1", "non-seasonal order p,d,q")
	cmd.Flags().StringVar(&opts.seasonal, "seasonal", "0,0,0", "seasonal order P,D,Q")
	cmd.Flags().IntVar(&opts.period, "period", 12, "seasonal period")
	cmd.Flags().IntVar(&opts.horizon, "horizon", 0, "months forecast beyond the data (default from config)")

	return cmd
}

// parseTriple parses "p,d,q".
func parseTriple(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("order %q must have three comma-separated integers", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return out, fmt.Errorf("order %q must have three comma-separated integers", s)
		}
		out[i] = v
	}
	return out, nil
}

func (o *fitOptions) parse() (sarima.Order, error) {
	if o.model != "" {
		return sarima.ParseOrder(o.model)
	}
	ns, err := parseTriple(o.order)
	if err != nil {
		return sarima.Order{}, err
	}
	s, err := parseTriple(o.seasonal)
	if err != nil {
		return sarima.Order{}, err
	}
	order := sarima.Order{P: ns[0], D: ns[1], Q: ns[2], SP: s[0], SD: s[1], SQ: s[2], M: o.period}
	if !order.Seasonal() {
		order.M = 0
	}
	return order, order.Validate()
}

func runFit(cmd *cobra.Command, a *app, opts *fitOptions) error {
	cfg := a.cfg
	opts.in.apply(cmd, cfg)
	if cmd.Flags().Changed("horizon") {
		cfg.Forecast.Horizon = opts.horizon
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	order, err := opts.parse()
	if err != nil {
		return err
	}

	data, err := a.prepare()
	if err != nil {
		return err
	}
	p := analysis.New(cfg, a.log, a.metrics)
	c, err := p.Fit(order, data)
	if err != nil {
		return fmt.Errorf("fit %s: %w", order, err)
	}

	out := cmd.OutOrStdout()
	if err := report.PrintCandidate(out, c); err != nil {
		return err
	}
	if err := report.PrintForecast(out, order.String()+" test window", c.Forecast); err != nil {
		return err
	}
	if cfg.Forecast.Horizon > 0 {
		rows, err := p.Future(order, data)
		if err != nil {
			return fmt.Errorf("forecast %s: %w", order, err)
		}
		if err := report.PrintForecast(out, order.String(), rows); err != nil {
			return err
		}
	}
	return a.flush()
}
