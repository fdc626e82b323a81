// Package stats provides the statistical tests and measures used to choose
// and check seasonal ARIMA models.
//
// # Stationarity
//
//	adf := stats.ADF(series, 0)       // H0: unit root
//	kpss := stats.KPSS(series, "c", 0) // H0: level stationary
//	d := stats.NDiffs(series, 2, "kpss")
//	D := stats.NSDiffs(series, 12, 1)  // seasonal strength >= 0.64
//
// # Correlograms
//
//	acf := stats.ACFWithConfidence(series, 36)
//	pacf := stats.PACFWithConfidence(series, 36)
//
// # Residual diagnostics
//
//	lb := stats.LjungBox(residuals, stats.DefaultLjungBoxLag(n, 12), fitdf)
//	jb := stats.JarqueBera(residuals)
//
// # Forecast accuracy
//
// Accuracy mirrors the test-set measures reported by R's forecast package:
// ME, RMSE, MAE, MPE, MAPE, MASE, RMSSE and the lag-1 autocorrelation of
// the forecast errors.
//
// # Polynomials
//
// PolyRoots finds lag-polynomial roots from the companion matrix; the
// sarima package uses it to reject non-stationary or non-invertible fits.
package stats
