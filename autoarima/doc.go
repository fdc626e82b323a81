// Package autoarima searches seasonal ARIMA orders.
//
// Grid fits every combination of six nested ranges (p, d, q, P, D, Q) on a
// bounded worker pool and ranks the fits by AIC, AICc or BIC. Failed fits
// are kept with a reason instead of aborting the sweep.
//
//	cfg := autoarima.DefaultConfig()
//	cfg.Criterion = autoarima.AICc
//	res, err := autoarima.Grid(ctx, logPrices, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range res.Top(5) {
//	    fmt.Printf("%-28s %10.3f\n", e.Order, e.Criterion)
//	}
//
// Information criteria are only comparable between models fitted to the
// same differenced series, so BestByDiff reports the winner of each (d, D)
// group alongside the overall ranking.
//
// Stepwise implements the Hyndman-Khandakar neighbourhood search used by
// auto.arima, with d and D chosen by unit-root and seasonal-strength tests.
package autoarima
