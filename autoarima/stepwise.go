package autoarima

import (
	"context"

	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/stats"
	"github.com/sartorproj/henryhub/timeseries"
)

// Differencing chooses D by seasonal strength and then d by repeated unit
// root tests on the seasonally differenced series, clamped to the
// configured ranges (auto.arima's order of decisions).
func Differencing(series *timeseries.Series, cfg *Config) (d, sd int) {
	work := series
	if cfg.seasonal() && cfg.MaxSD > 0 {
		sd = stats.NSDiffs(series, cfg.M, cfg.MaxSD)
		sd = min(max(sd, cfg.MinSD), cfg.MaxSD)
		for i := 0; i < sd; i++ {
			work = work.SeasonalDiff(cfg.M)
		}
	}
	if cfg.MaxD > 0 {
		d = stats.NDiffs(work, cfg.MaxD, cfg.StationTest)
	}
	d = min(max(d, cfg.MinD), cfg.MaxD)
	return d, sd
}

// Stepwise runs the Hyndman-Khandakar search: fit four starting models,
// then repeatedly move to the best neighbour (p, q, P, Q each ±1, and p,q
// or P,Q together ±1) until no neighbour improves the criterion or
// MaxModels fits have been made. d and D are fixed by Differencing.
func Stepwise(ctx context.Context, series *timeseries.Series, cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, sd := Differencing(series, cfg)
	m := 0
	if cfg.seasonal() {
		m = cfg.M
	}

	budget := cfg.MaxModels
	if budget <= 0 {
		budget = DefaultConfig().MaxModels
	}

	visited := make(map[sarima.Order]bool)
	var entries []Entry
	var failures []Failure

	try := func(candidates []sarima.Order) error {
		var batch []sarima.Order
		for _, o := range candidates {
			o.D, o.SD, o.M = d, sd, m
			if !cfg.seasonal() {
				o.SP, o.SQ, o.SD = 0, 0, 0
			}
			if visited[o] || !cfg.admits(o) || len(visited) >= budget {
				continue
			}
			visited[o] = true
			batch = append(batch, o)
		}
		e, f, err := fitAll(ctx, series, batch, cfg, len(entries)+len(failures), 0)
		entries = append(entries, e...)
		failures = append(failures, f...)
		return err
	}

	starts := []sarima.Order{
		{P: 2, Q: 2, SP: 1, SQ: 1},
		{},
		{P: 1, SP: 1},
		{Q: 1, SQ: 1},
	}
	if err := try(starts); err != nil {
		return newResult(cfg.criterion(), entries, failures), err
	}

	for {
		current := newResult(cfg.criterion(), append([]Entry(nil), entries...), nil)
		if current.Best == nil {
			break
		}
		best := current.Best.Order
		before := current.Best.Criterion

		if err := try(neighbours(best)); err != nil {
			return newResult(cfg.criterion(), entries, failures), err
		}

		after := newResult(cfg.criterion(), append([]Entry(nil), entries...), nil)
		if after.Best.Criterion >= before || len(visited) >= budget {
			break
		}
	}

	res := newResult(cfg.criterion(), entries, failures)
	if res.Best == nil {
		return res, ErrNoModel
	}
	return res, nil
}

func neighbours(o sarima.Order) []sarima.Order {
	var out []sarima.Order
	for _, step := range []int{-1, 1} {
		for _, move := range []func(sarima.Order) sarima.Order{
			func(n sarima.Order) sarima.Order { n.P += step; return n },
			func(n sarima.Order) sarima.Order { n.Q += step; return n },
			func(n sarima.Order) sarima.Order { n.SP += step; return n },
			func(n sarima.Order) sarima.Order { n.SQ += step; return n },
			func(n sarima.Order) sarima.Order { n.P += step; n.Q += step; return n },
			func(n sarima.Order) sarima.Order { n.SP += step; n.SQ += step; return n },
		} {
			out = append(out, move(o))
		}
	}
	return out
}
