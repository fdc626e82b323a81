// Package henryhub is a seasonal ARIMA toolkit for the monthly Henry Hub
// natural gas spot price.
//
// The study it automates loads the EIA price series, works on log prices,
// sweeps seasonal ARIMA orders over six nested ranges, and compares a few
// candidate models by information criteria, residual diagnostics and
// accuracy on a held-out window.
//
// # Packages
//
//   - timeseries: monthly series, CSV loading, differencing and splits
//   - stats: unit-root tests, correlograms, portmanteau and normality tests, accuracy
//   - sarima: conditional-sum-of-squares SARIMA fitting and forecasting
//   - autoarima: grid and stepwise order search
//   - charts: gonum/plot figures
//   - report: console tables and JSON, YAML, CSV and XLSX exports
//
// The henryhub command in cmd/henryhub runs the whole pipeline:
//
//	henryhub analyze --config configs/henryhub.yaml
//
// Fitting a single model from Go:
//
//	prices, _ := timeseries.LoadMonthly("data/henry_hub_monthly.csv", nil)
//	logged, _ := prices.Log()
//	model := sarima.New(0, 1, 1, 0, 1, 1, 12)
//	if err := model.Fit(logged); err != nil {
//		return err
//	}
//	fc, _ := model.Forecast(12, 80, 95)
//	fc = fc.BackTransform(false)
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package henryhub
