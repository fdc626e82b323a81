package sarima

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/henryhub/stats"
)

// DefaultLevels are the interval coverages R's forecast() reports.
var DefaultLevels = []float64{0.80, 0.95}

// Forecast holds point forecasts and prediction intervals on the scale of
// the fitted series.
type Forecast struct {
	Mean       []float64
	SE         []float64 // standard error of each step
	Levels     []float64 // coverages, as fractions
	Lower      map[float64][]float64
	Upper      map[float64][]float64
	Timestamps []time.Time // nil when the fitted series has no monthly index
}

// Horizon returns the number of forecast steps.
func (f *Forecast) Horizon() int {
	return len(f.Mean)
}

// Forecast produces h-step forecasts on the original (undifferenced) scale.
// The recursion runs on the integrated AR polynomial
// φ(B)Φ(B^m)(1-B)^d(1-B^m)^D with future innovations set to zero, and
// interval widths come from the ψ-weights of the same model:
// Var_h = σ² Σ_{j<h} ψ_j². Levels may be given as fractions (0.95) or
// percentages (95); they default to 80% and 95%.
func (m *Model) Forecast(h int, levels ...float64) (*Forecast, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if h < 1 {
		return nil, errors.New("forecast horizon must be at least 1")
	}
	if len(levels) == 0 {
		levels = DefaultLevels
	}
	norm := make([]float64, 0, len(levels))
	for _, l := range levels {
		if l > 1 {
			l /= 100
		}
		if l <= 0 || l >= 1 {
			return nil, fmt.Errorf("interval level %g out of range", l)
		}
		norm = append(norm, l)
	}
	sort.Float64s(norm)

	x := m.params()
	c := &css{order: m.Order, w: m.diffData, mean: m.HasMean, cond: m.Order.P + m.Order.SP*m.Order.M}
	arStat, ma := c.expanded(x)
	ar := stats.PolyMul(arStat, m.differencingPoly())

	y := m.data.Values
	e := m.Residuals()
	n := len(y)
	mu := 0.0
	if m.HasMean {
		mu = m.Mean
	}

	ext := make([]float64, n+h)
	copy(ext, y)
	for t := n; t < n+h; t++ {
		z := 0.0
		for i := 1; i < len(ar); i++ {
			if t-i < 0 {
				break
			}
			z -= ar[i] * (ext[t-i] - mu)
		}
		for j := 1; j < len(ma); j++ {
			if t-j < n && t-j >= 0 {
				z += ma[j] * e[t-j]
			}
		}
		ext[t] = mu + z
	}

	psi := psiWeights(ar, ma, h)
	fc := &Forecast{
		Mean:       ext[n:],
		SE:         make([]float64, h),
		Levels:     norm,
		Lower:      make(map[float64][]float64, len(norm)),
		Upper:      make(map[float64][]float64, len(norm)),
		Timestamps: m.data.ExtendMonthly(h),
	}
	cum := 0.0
	for i := 0; i < h; i++ {
		cum += psi[i] * psi[i]
		fc.SE[i] = math.Sqrt(m.Variance * cum)
	}

	for _, l := range norm {
		z := distuv.UnitNormal.Quantile(0.5 + l/2)
		lo := make([]float64, h)
		hi := make([]float64, h)
		for i := range lo {
			lo[i] = fc.Mean[i] - z*fc.SE[i]
			hi[i] = fc.Mean[i] + z*fc.SE[i]
		}
		fc.Lower[l] = lo
		fc.Upper[l] = hi
	}
	return fc, nil
}

// Predict returns the point forecasts only.
func (m *Model) Predict(steps int) ([]float64, error) {
	fc, err := m.Forecast(steps)
	if err != nil {
		return nil, err
	}
	return fc.Mean, nil
}

// BackTransform maps a forecast of a log series back to the original
// scale. Intervals are exponentiated; with biasAdjust the point forecast is
// the mean exp(μ)(1 + σ²_h/2) instead of the median exp(μ).
func (f *Forecast) BackTransform(biasAdjust bool) *Forecast {
	out := &Forecast{
		Mean:       make([]float64, len(f.Mean)),
		SE:         append([]float64(nil), f.SE...),
		Levels:     append([]float64(nil), f.Levels...),
		Lower:      make(map[float64][]float64, len(f.Lower)),
		Upper:      make(map[float64][]float64, len(f.Upper)),
		Timestamps: f.Timestamps,
	}
	for i, v := range f.Mean {
		out.Mean[i] = math.Exp(v)
		if biasAdjust {
			out.Mean[i] *= 1 + f.SE[i]*f.SE[i]/2
		}
	}
	expAll := func(v []float64) []float64 {
		r := make([]float64, len(v))
		for i := range v {
			r[i] = math.Exp(v[i])
		}
		return r
	}
	for l, v := range f.Lower {
		out.Lower[l] = expAll(v)
	}
	for l, v := range f.Upper {
		out.Upper[l] = expAll(v)
	}
	return out
}

// differencingPoly returns (1-B)^d (1-B^m)^D.
func (m *Model) differencingPoly() []float64 {
	p := []float64{1}
	for i := 0; i < m.Order.D; i++ {
		p = stats.PolyMul(p, []float64{1, -1})
	}
	if m.Order.SD > 0 {
		seasonal := make([]float64, m.Order.M+1)
		seasonal[0], seasonal[m.Order.M] = 1, -1
		for i := 0; i < m.Order.SD; i++ {
			p = stats.PolyMul(p, seasonal)
		}
	}
	return p
}

// psiWeights returns the first h coefficients of θ(B)/A(B), where A is the
// AR polynomial in ascending powers with A[0] = 1.
func psiWeights(ar, ma []float64, h int) []float64 {
	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i <= j && i < len(ar); i++ {
			v -= ar[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// params packs the fitted coefficients in optimiser order.
func (m *Model) params() []float64 {
	x := make([]float64, 0, m.Order.NumCoeffs()+1)
	x = append(x, m.ARCoeffs...)
	x = append(x, m.MACoeffs...)
	x = append(x, m.SARCoeffs...)
	x = append(x, m.SMACoeffs...)
	if m.HasMean {
		x = append(x, m.Mean)
	}
	return x
}
