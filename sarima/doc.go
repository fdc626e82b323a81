// Package sarima implements Seasonal ARIMA (SARIMA) models for monthly
// series such as Henry Hub spot prices.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model is
//
//	φ(B)Φ(B^m)(1-B)^d(1-B^m)^D y_t = θ(B)Θ(B^m) ε_t
//
// with a mean term only when d+D = 0. Coefficients are estimated by
// conditional sum of squares (R's method = "CSS"), minimised with gonum's
// Nelder-Mead; standard errors come from a finite-difference Hessian.
//
// # Basic Usage
//
//	// Airline model on log prices
//	model := sarima.New(0, 1, 1, 0, 1, 1, 12)
//	if err := model.Fit(logPrices); err != nil {
//	    log.Fatal(err)
//	}
//
//	fc, _ := model.Forecast(24, 80, 95)
//	prices := fc.BackTransform(false)
//
// # Errors
//
// Fit returns ErrInsufficientData, ErrNonStationaryAR, ErrNonInvertibleMA
// or ErrNotConverged (wrapped with the model order); callers that sweep
// many orders classify failures with errors.Is.
//
// # Diagnostics
//
// Diagnose bundles the Ljung-Box test, Jarque-Bera normality test,
// Durbin-Watson statistic and the inverse AR/MA roots.
package sarima
