package stats

import (
	"math"
	"math/cmplx"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/henryhub/timeseries"
)

func whiteNoise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func randomWalk(n int, seed int64) []float64 {
	noise := whiteNoise(n, seed)
	out := make([]float64, n)
	for i := range out {
		out[i] = noise[i]
		if i > 0 {
			out[i] += out[i-1]
		}
	}
	return out
}

func seasonalSeries(n, period int, amplitude float64, seed int64) *timeseries.Series {
	noise := whiteNoise(n, seed)
	values := make([]float64, n)
	for i := range values {
		values[i] = 10 + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period)) + 0.2*noise[i]
	}
	return timeseries.NewMonthly(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), values)
}

func TestACF(t *testing.T) {
	s := timeseries.New([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	acf := ACF(s, 3)

	require.Len(t, acf, 4)
	assert.Equal(t, 1.0, acf[0])
	// Biased estimator on a linear trend: 0.7, 0.41212...
	assert.InDelta(t, 0.7, acf[1], 1e-12)
	assert.InDelta(t, 0.412121212, acf[2], 1e-8)

	assert.Nil(t, ACF(timeseries.New([]float64{3, 3, 3}), 2))
}

func TestPACFOfAR1(t *testing.T) {
	noise := whiteNoise(2000, 3)
	values := make([]float64, len(noise))
	for i := 1; i < len(values); i++ {
		values[i] = 0.6*values[i-1] + noise[i]
	}

	pacf := PACF(timeseries.New(values), 5)
	require.Len(t, pacf, 6)
	assert.InDelta(t, 0.6, pacf[1], 0.05)
	for k := 2; k <= 5; k++ {
		assert.InDelta(t, 0, pacf[k], 0.08, "lag %d", k)
	}
}

func TestCorrelogramBounds(t *testing.T) {
	s := timeseries.New(whiteNoise(400, 1))
	c := ACFWithConfidence(s, 24)

	require.NotNil(t, c)
	assert.InDelta(t, 1.96/20, c.ConfBounds, 1e-12)
	assert.Len(t, c.Lags, 25)
	assert.LessOrEqual(t, len(SignificantLags(c.Values, c.ConfBounds)), 6)
}

func TestLjungBox(t *testing.T) {
	t.Run("white noise", func(t *testing.T) {
		lb := LjungBox(whiteNoise(300, 11), 24, 0)
		require.NotNil(t, lb)
		assert.Equal(t, 24, lb.DOF)
		assert.True(t, lb.WhiteNoise(0.01), "p=%f", lb.PValue)
	})

	t.Run("autocorrelated", func(t *testing.T) {
		lb := LjungBox(randomWalk(300, 11), 24, 2)
		require.NotNil(t, lb)
		assert.Equal(t, 22, lb.DOF)
		assert.Less(t, lb.PValue, 1e-6)
		assert.False(t, lb.WhiteNoise(0.05))
	})

	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, LjungBox([]float64{1, 2, 3}, 2, 0))
	})
}

func TestBoxPierceBelowLjungBox(t *testing.T) {
	res := randomWalk(120, 5)
	bp := BoxPierce(res, 10, 0)
	lb := LjungBox(res, 10, 0)

	require.NotNil(t, bp)
	require.NotNil(t, lb)
	assert.Less(t, bp.Statistic, lb.Statistic)
}

func TestDefaultLjungBoxLag(t *testing.T) {
	assert.Equal(t, 24, DefaultLjungBoxLag(200, 12))
	assert.Equal(t, 10, DefaultLjungBoxLag(200, 1))
	assert.Equal(t, 6, DefaultLjungBoxLag(30, 12))
	assert.Equal(t, 1, DefaultLjungBoxLag(3, 12))
}

func TestDurbinWatson(t *testing.T) {
	dw, ok := DurbinWatson(whiteNoise(1000, 2))
	require.True(t, ok)
	assert.InDelta(t, 2, dw, 0.2)

	_, ok = DurbinWatson([]float64{0, 0, 0})
	assert.False(t, ok)
}

func TestJarqueBera(t *testing.T) {
	jb := JarqueBera(whiteNoise(500, 9))
	require.NotNil(t, jb)
	assert.Greater(t, jb.PValue, 0.01)

	skewed := make([]float64, 500)
	for i, v := range whiteNoise(500, 9) {
		skewed[i] = math.Exp(v)
	}
	jb = JarqueBera(skewed)
	require.NotNil(t, jb)
	assert.Less(t, jb.PValue, 1e-6)
	assert.Greater(t, jb.Skewness, 1.0)
}

func TestADFAndKPSS(t *testing.T) {
	stationary := timeseries.New(whiteNoise(200, 4))
	walk := timeseries.New(randomWalk(200, 4))

	adf := ADF(stationary, 0)
	require.NotNil(t, adf)
	assert.True(t, adf.IsStationary, "ADF stat %f", adf.Statistic)

	adf = ADF(walk, 0)
	require.NotNil(t, adf)
	assert.False(t, adf.IsStationary, "ADF stat %f", adf.Statistic)

	kpss := KPSS(stationary, "c", 0)
	require.NotNil(t, kpss)
	assert.True(t, kpss.IsStationary)

	kpss = KPSS(walk, "c", 0)
	require.NotNil(t, kpss)
	assert.False(t, kpss.IsStationary)
}

func TestNDiffs(t *testing.T) {
	assert.Equal(t, 0, NDiffs(timeseries.New(whiteNoise(200, 8)), 2, "kpss"))
	assert.Equal(t, 1, NDiffs(timeseries.New(randomWalk(200, 8)), 2, "kpss"))
}

func TestNSDiffs(t *testing.T) {
	assert.Equal(t, 1, NSDiffs(seasonalSeries(144, 12, 3, 1), 12, 1))
	assert.Equal(t, 0, NSDiffs(timeseries.New(whiteNoise(144, 1)), 12, 1))
	assert.Equal(t, 0, NSDiffs(timeseries.New(whiteNoise(20, 1)), 12, 1))
}

func TestDecomposeAdditive(t *testing.T) {
	s := seasonalSeries(96, 12, 3, 2)
	d := Decompose(s, 12, "additive")

	require.NotNil(t, d)
	assert.Equal(t, "additive", d.Type)
	assert.True(t, math.IsNaN(d.Trend.Values[0]))
	assert.InDelta(t, 10, d.Trend.Values[48], 0.2)

	sum := 0.0
	for _, v := range d.Seasonal.Values[:12] {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-9)
	assert.InDelta(t, 3, d.Seasonal.Values[3], 0.3)
	assert.Greater(t, SeasonalStrength(s, 12), 0.9)

	assert.Nil(t, Decompose(timeseries.New(make([]float64, 10)), 12, "additive"))
}

func TestCalculateIC(t *testing.T) {
	ic := CalculateIC(-100, 50, 3)

	assert.InDelta(t, 206, ic.AIC, 1e-12)
	assert.InDelta(t, 206+24.0/46.0, ic.AICc, 1e-12)
	assert.InDelta(t, 200+3*math.Log(50), ic.BIC, 1e-12)
	assert.True(t, math.IsInf(CalculateIC(-1, 3, 3).AICc, 1))
}

func TestAccuracy(t *testing.T) {
	actual := []float64{10, 12, 8}
	forecast := []float64{9, 13, 8}
	train := []float64{1, 2, 4, 7}

	acc, err := Accuracy(actual, forecast, train, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0, acc.ME, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), acc.RMSE, 1e-12)
	assert.InDelta(t, 2.0/3.0, acc.MAE, 1e-12)
	assert.InDelta(t, (10.0-100.0/12.0)/3, acc.MPE, 1e-12)
	assert.InDelta(t, (10.0+100.0/12.0)/3, acc.MAPE, 1e-12)
	// naive in-sample MAE = (1+2+3)/3 = 2, MSE = 14/3
	assert.InDelta(t, (2.0/3.0)/2, acc.MASE, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0)/math.Sqrt(14.0/3.0), acc.RMSSE, 1e-12)
	assert.Equal(t, 3, acc.N)

	_, err = Accuracy([]float64{1}, []float64{1, 2}, nil, 12)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	acc, err = Accuracy(actual, forecast, nil, 12)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(acc.MASE))
}

func TestPolyMul(t *testing.T) {
	// (1 - 0.5B)(1 - 0.8B^12)
	sar := make([]float64, 13)
	sar[0], sar[12] = 1, -0.8
	got := PolyMul([]float64{1, -0.5}, sar)

	require.Len(t, got, 14)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, -0.5, got[1])
	assert.InDelta(t, -0.8, got[12], 1e-12)
	assert.InDelta(t, 0.4, got[13], 1e-12)
	assert.Nil(t, PolyMul(nil, sar))
}

func TestPolyRoots(t *testing.T) {
	// 1 - 3B + 2B^2 = (1-B)(1-2B): roots 1 and 0.5
	roots := PolyRoots([]float64{1, -3, 2})
	require.Len(t, roots, 2)

	mods := []float64{cmplx.Abs(roots[0]), cmplx.Abs(roots[1])}
	sort.Float64s(mods)
	assert.InDelta(t, 0.5, mods[0], 1e-9)
	assert.InDelta(t, 1, mods[1], 1e-9)

	assert.Nil(t, PolyRoots([]float64{1, 0, 0}))
	assert.False(t, AllOutsideUnitCircle([]float64{1, -3, 2}, 0))
	assert.True(t, AllOutsideUnitCircle([]float64{1, -0.5}, 0))
	assert.True(t, AllOutsideUnitCircle([]float64{1}, 0))

	inv := InverseRoots([]float64{1, -0.5})
	require.Len(t, inv, 1)
	assert.InDelta(t, 0.5, real(inv[0]), 1e-9)
}
