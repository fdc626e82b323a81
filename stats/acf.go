package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/henryhub/timeseries"
)

// ACF calculates the Autocorrelation Function for the given series.
// Returns ACF values for lags 0 to maxLag.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	return autocorrelation(series.Values, maxLag)
}

// autocorrelation uses the biased estimator (divisor n) so the sequence is
// positive definite, as R's acf() does.
func autocorrelation(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(values, nil)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}

	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		acf[k] = sum / variance
	}

	return acf
}

// PACF calculates the Partial Autocorrelation Function using the Durbin-Levinson algorithm.
// Returns PACF values for lags 0 to maxLag, with lag 0 fixed at 1.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	acf := ACF(series, maxLag)
	if acf == nil {
		return nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1.0

	phi := make([][]float64, maxLag+1)
	for i := range phi {
		phi[i] = make([]float64, maxLag+1)
	}

	phi[1][1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * acf[k-j]
			den -= phi[k-1][j] * acf[j]
		}

		if den == 0 {
			pacf[k] = 0
			continue
		}

		phi[k][k] = num / den
		pacf[k] = phi[k][k]

		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}
	}

	return pacf
}

// Correlogram holds ACF or PACF values with their 95% bounds.
type Correlogram struct {
	Lags       []int
	Values     []float64
	ConfBounds float64 // ±1.96/sqrt(n)
}

// ACFWithConfidence calculates ACF with confidence bounds.
func ACFWithConfidence(series *timeseries.Series, maxLag int) *Correlogram {
	return newCorrelogram(ACF(series, maxLag), series.Len())
}

// PACFWithConfidence calculates PACF with confidence bounds.
func PACFWithConfidence(series *timeseries.Series, maxLag int) *Correlogram {
	return newCorrelogram(PACF(series, maxLag), series.Len())
}

func newCorrelogram(values []float64, n int) *Correlogram {
	if values == nil {
		return nil
	}
	lags := make([]int, len(values))
	for i := range lags {
		lags[i] = i
	}
	return &Correlogram{
		Lags:       lags,
		Values:     values,
		ConfBounds: 1.96 / math.Sqrt(float64(n)),
	}
}

// SignificantLags returns the lags where ACF/PACF values exceed confidence bounds.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}
