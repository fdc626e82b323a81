// Package timeseries provides the monthly series type and its loaders.
//
// A Series holds values and, for dated data, one timestamp per value at the
// first instant of the month in UTC. Spot-price files from the EIA are the
// primary input:
//
//	series, err := timeseries.LoadMonthly("Henry_Hub_Natural_Gas_Spot_Price.csv", nil)
//
// LoadMonthly skips the free-text preamble EIA puts above the header,
// sorts the newest-first rows into ascending order and rejects files with
// duplicate or missing months.
//
// # Transformations
//
//	logged, err := series.Log()        // fails on non-positive prices
//	diff := logged.Diff()              // y[t] - y[t-1]
//	sdiff := logged.SeasonalDiff(12)   // y[t] - y[t-12]
//	level := logged.Exp()              // back to $/MMBtu
//
// # Train and test windows
//
//	train, test, err := logged.SplitAt(time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC))
//	train, test, err := logged.SplitLast(24)
package timeseries
