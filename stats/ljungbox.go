package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// PortmanteauResult represents the result of a Ljung-Box or Box-Pierce test.
type PortmanteauResult struct {
	Test      string
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// WhiteNoise reports whether the null of no autocorrelation survives at level alpha.
func (r *PortmanteauResult) WhiteNoise(alpha float64) bool {
	return r != nil && r.PValue >= alpha
}

// DefaultLjungBoxLag returns min(2m, n/5) for seasonal data and min(10, n/5)
// otherwise, never less than 1.
func DefaultLjungBoxLag(n, period int) int {
	lag := 10
	if period > 1 {
		lag = 2 * period
	}
	lag = min(lag, n/5)
	return max(lag, 1)
}

// LjungBox performs the Ljung-Box test for autocorrelation in residuals.
// The null hypothesis is that there is no autocorrelation up to lag h.
// fitdf is the number of ARMA coefficients estimated (p + q + P + Q).
func LjungBox(residuals []float64, lags, fitdf int) *PortmanteauResult {
	return portmanteau("Ljung-Box", residuals, lags, fitdf, func(acf []float64, n, lags int) float64 {
		q := 0.0
		for k := 1; k <= lags; k++ {
			q += (acf[k] * acf[k]) / float64(n-k)
		}
		return q * float64(n*(n+2))
	})
}

// BoxPierce performs the Box-Pierce test for autocorrelation.
func BoxPierce(residuals []float64, lags, fitdf int) *PortmanteauResult {
	return portmanteau("Box-Pierce", residuals, lags, fitdf, func(acf []float64, n, lags int) float64 {
		q := 0.0
		for k := 1; k <= lags; k++ {
			q += acf[k] * acf[k]
		}
		return q * float64(n)
	})
}

func portmanteau(name string, residuals []float64, lags, fitdf int, statistic func(acf []float64, n, lags int) float64) *PortmanteauResult {
	n := len(residuals)
	if n < 10 || lags < 1 {
		return nil
	}
	if lags >= n {
		lags = n - 1
	}

	acf := autocorrelation(residuals, lags)
	if acf == nil {
		return nil
	}

	q := statistic(acf, n, lags)

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	return &PortmanteauResult{
		Test:      name,
		Statistic: q,
		PValue:    distuv.ChiSquared{K: float64(dof)}.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatson calculates the Durbin-Watson statistic for first-order
// autocorrelation. Values near 2 indicate none; below 2 positive, above 2 negative.
func DurbinWatson(residuals []float64) (float64, bool) {
	n := len(residuals)
	if n < 2 {
		return 0, false
	}

	numerator := 0.0
	denominator := 0.0

	for i := 1; i < n; i++ {
		diff := residuals[i] - residuals[i-1]
		numerator += diff * diff
	}

	for _, r := range residuals {
		denominator += r * r
	}

	if denominator == 0 {
		return 0, false
	}

	return numerator / denominator, true
}
