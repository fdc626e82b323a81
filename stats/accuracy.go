package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrLengthMismatch is returned when actual and forecast values differ in length.
var ErrLengthMismatch = errors.New("actual and forecast lengths differ")

// AccuracyResult holds test-set accuracy measures. Percentage errors are in
// percent; MASE and RMSSE are scaled by the in-sample seasonal naive errors.
type AccuracyResult struct {
	ME    float64
	RMSE  float64
	MAE   float64
	MPE   float64
	MAPE  float64
	MASE  float64
	RMSSE float64
	ACF1  float64
	N     int
}

// Accuracy scores forecasts against actual values. train and period are
// used for the MASE/RMSSE scaling (period <= 1 means a naive scaling); pass
// nil train to leave those two measures NaN.
func Accuracy(actual, forecast, train []float64, period int) (*AccuracyResult, error) {
	if len(actual) != len(forecast) {
		return nil, ErrLengthMismatch
	}
	n := len(actual)
	if n == 0 {
		return nil, errors.New("no observations to score")
	}

	errs := make([]float64, n)
	floats.SubTo(errs, actual, forecast)

	res := &AccuracyResult{N: n, MASE: math.NaN(), RMSSE: math.NaN(), ACF1: math.NaN()}

	var sq, abs, pct, absPct float64
	for i, e := range errs {
		sq += e * e
		abs += math.Abs(e)
		p := 100 * e / actual[i]
		pct += p
		absPct += math.Abs(p)
	}
	nf := float64(n)
	res.ME = stat.Mean(errs, nil)
	res.RMSE = math.Sqrt(sq / nf)
	res.MAE = abs / nf
	res.MPE = pct / nf
	res.MAPE = absPct / nf

	if mae, mse, ok := naiveScale(train, period); ok {
		res.MASE = res.MAE / mae
		res.RMSSE = res.RMSE / math.Sqrt(mse)
	}

	if acf := autocorrelation(errs, 1); len(acf) > 1 {
		res.ACF1 = acf[1]
	}

	return res, nil
}

// naiveScale returns the mean absolute and mean squared in-sample error of
// the seasonal naive forecast y[t] = y[t-m].
func naiveScale(train []float64, period int) (mae, mse float64, ok bool) {
	m := max(period, 1)
	if len(train) <= m {
		return 0, 0, false
	}
	count := 0
	for t := m; t < len(train); t++ {
		d := train[t] - train[t-m]
		mae += math.Abs(d)
		mse += d * d
		count++
	}
	mae /= float64(count)
	mse /= float64(count)
	if mae == 0 || mse == 0 {
		return 0, 0, false
	}
	return mae, mse, true
}
