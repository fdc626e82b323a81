package autoarima

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/timeseries"
)

// ErrNoModel is returned when no combination could be fitted.
var ErrNoModel = errors.New("no model could be fitted")

// Grid fits every combination of the six nested ranges
// p, d, q, P, D, Q. Fitting errors are recorded as failures; only context
// cancellation stops the search, in which case the partial result is
// returned together with the context error.
func Grid(ctx context.Context, series *timeseries.Series, cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orders := GridOrders(cfg)
	entries, failures, err := fitAll(ctx, series, orders, cfg, 0, len(orders))
	res := newResult(cfg.criterion(), entries, failures)
	if err != nil {
		return res, err
	}
	if res.Best == nil {
		return res, ErrNoModel
	}
	return res, nil
}

// GridOrders enumerates the combinations in nested-loop order.
func GridOrders(cfg *Config) []sarima.Order {
	maxSP, minSD, maxSD, maxSQ := cfg.MaxSP, cfg.MinSD, cfg.MaxSD, cfg.MaxSQ
	m := cfg.M
	if !cfg.seasonal() {
		maxSP, minSD, maxSD, maxSQ, m = 0, 0, 0, 0, 0
	}

	var out []sarima.Order
	for p := 0; p <= cfg.MaxP; p++ {
		for d := cfg.MinD; d <= cfg.MaxD; d++ {
			for q := 0; q <= cfg.MaxQ; q++ {
				for sp := 0; sp <= maxSP; sp++ {
					for sd := minSD; sd <= maxSD; sd++ {
						for sq := 0; sq <= maxSQ; sq++ {
							o := sarima.Order{P: p, D: d, Q: q, SP: sp, SD: sd, SQ: sq, M: m}
							if cfg.admits(o) {
								out = append(out, o)
							}
						}
					}
				}
			}
		}
	}
	return out
}

// fitAll fits orders on a bounded worker pool. done and total feed the
// progress callback.
func fitAll(ctx context.Context, series *timeseries.Series, orders []sarima.Order, cfg *Config, done, total int) ([]Entry, []Failure, error) {
	var (
		mu       sync.Mutex
		entries  []Entry
		failures []Failure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())

	for _, o := range orders {
		o := o
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			began := time.Now()
			model := sarima.NewWithOptions(o, cfg.Model)
			err := model.Fit(series)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, Failure{Order: o, Reason: Classify(err), Err: err})
			} else {
				entries = append(entries, newEntry(model, cfg.criterion()))
			}
			done++
			if cfg.Progress != nil {
				cfg.Progress(Progress{Order: o, Done: done, Total: total, Err: err, Elapsed: time.Since(began)})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return entries, failures, err
	}
	return entries, failures, ctx.Err()
}
