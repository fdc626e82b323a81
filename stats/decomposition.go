package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sartorproj/henryhub/timeseries"
)

// Decomposition holds a classical seasonal decomposition.
// Trend and Residual are NaN where the centred moving average is undefined.
type Decomposition struct {
	Original *timeseries.Series
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
	Type     string // "additive" or "multiplicative"
}

// Decompose performs classical decomposition (R's decompose()): a 2×m
// centred moving average for the trend, per-season means of the detrended
// series for the seasonal figure, and the remainder as residual.
func Decompose(series *timeseries.Series, period int, kind string) *Decomposition {
	n := series.Len()
	if period < 2 || n < 2*period {
		return nil
	}
	multiplicative := kind == "multiplicative"
	if !multiplicative {
		kind = "additive"
	}

	trend := centredMovingAverage(series.Values, period)

	// remove takes a component out in the decomposition's algebra.
	remove := func(y, c float64) float64 {
		if multiplicative {
			if c == 0 {
				return math.NaN()
			}
			return y / c
		}
		return y - c
	}

	figure := make([]float64, period)
	counts := make([]int, period)
	for i, y := range series.Values {
		d := remove(y, trend[i])
		if math.IsNaN(d) {
			continue
		}
		figure[i%period] += d
		counts[i%period]++
	}
	for i := range figure {
		if counts[i] > 0 {
			figure[i] /= float64(counts[i])
		}
	}

	centre := floats.Sum(figure) / float64(period)
	for i := range figure {
		if multiplicative {
			figure[i] /= centre
		} else {
			figure[i] -= centre
		}
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i, y := range series.Values {
		seasonal[i] = figure[i%period]
		residual[i] = remove(remove(y, trend[i]), seasonal[i])
	}

	component := func(values []float64, name string) *timeseries.Series {
		return &timeseries.Series{Timestamps: series.Timestamps, Values: values, Name: name}
	}

	return &Decomposition{
		Original: series,
		Trend:    component(trend, "trend"),
		Seasonal: component(seasonal, "seasonal"),
		Residual: component(residual, "remainder"),
		Period:   period,
		Type:     kind,
	}
}

// centredMovingAverage uses half weights at both ends for even periods.
func centredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		var sum float64
		if period%2 == 0 {
			sum = 0.5*values[i-half] + 0.5*values[i+half] + floats.Sum(values[i-half+1:i+half])
		} else {
			sum = floats.Sum(values[i-half : i+half+1])
		}
		out[i] = sum / float64(period)
	}
	return out
}
