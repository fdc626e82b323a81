package sarima

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/sartorproj/henryhub/stats"
)

// Coefficient is one estimated parameter with its standard error.
type Coefficient struct {
	Name   string
	Value  float64
	StdErr float64
}

// TStat returns Value / StdErr, or NaN when the error is unavailable.
func (c Coefficient) TStat() float64 {
	if c.StdErr == 0 || math.IsNaN(c.StdErr) {
		return math.NaN()
	}
	return c.Value / c.StdErr
}

// Roots holds the inverse roots of the multiplicative AR and MA
// polynomials. All must lie inside the unit circle for a stationary,
// invertible model.
type Roots struct {
	AR []complex128
	MA []complex128
}

// MaxModulus returns the largest inverse-root modulus of each part.
func (r Roots) MaxModulus() (ar, ma float64) {
	for _, z := range r.AR {
		ar = math.Max(ar, cmplx.Abs(z))
	}
	for _, z := range r.MA {
		ma = math.Max(ma, cmplx.Abs(z))
	}
	return ar, ma
}

// Diagnostics are the residual checks of forecast's checkresiduals().
type Diagnostics struct {
	LjungBox     *stats.PortmanteauResult
	JarqueBera   *stats.JarqueBeraResult
	DurbinWatson float64
	Roots        Roots
}

// Summary represents a model summary.
type Summary struct {
	Order        Order
	Coefficients []Coefficient
	Variance     float64
	LogLik       float64
	AIC          float64
	AICc         float64
	BIC          float64
	NObs         int
	NUsed        int
	Diagnostics  *Diagnostics
}

// Roots returns the inverse AR and MA roots of φ(B)Φ(B^m) and θ(B)Θ(B^m).
func (m *Model) Roots() (Roots, error) {
	if !m.fitted {
		return Roots{}, ErrNotFitted
	}
	c := &css{order: m.Order, mean: m.HasMean}
	ar, ma := c.expanded(m.params())
	return Roots{AR: stats.InverseRoots(ar), MA: stats.InverseRoots(ma)}, nil
}

// Coefficients returns the estimates named as R prints them:
// ar1.., ma1.., sar1.., sma1.., mean.
func (m *Model) Coefficients() []Coefficient {
	if !m.fitted {
		return nil
	}
	var out []Coefficient
	add := func(prefix string, vals []float64) {
		for i, v := range vals {
			out = append(out, Coefficient{Name: fmt.Sprintf("%s%d", prefix, i+1), Value: v})
		}
	}
	add("ar", m.ARCoeffs)
	add("ma", m.MACoeffs)
	add("sar", m.SARCoeffs)
	add("sma", m.SMACoeffs)
	if m.HasMean {
		out = append(out, Coefficient{Name: "mean", Value: m.Mean})
	}
	for i := range out {
		out[i].StdErr = math.NaN()
		if i < len(m.StdErrors) {
			out[i].StdErr = m.StdErrors[i]
		}
	}
	return out
}

// Diagnose runs the residual checks on the residuals that enter the sum of
// squares. The Ljung-Box lag follows DefaultLjungBoxLag with p+q+P+Q
// degrees of freedom removed.
func (m *Model) Diagnose() (*Diagnostics, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	res := m.UsedResiduals()
	roots, err := m.Roots()
	if err != nil {
		return nil, err
	}

	d := &Diagnostics{
		LjungBox:     stats.LjungBox(res, stats.DefaultLjungBoxLag(len(res), m.Order.M), m.Order.NumCoeffs()),
		JarqueBera:   stats.JarqueBera(res),
		DurbinWatson: math.NaN(),
		Roots:        roots,
	}
	if dw, ok := stats.DurbinWatson(res); ok {
		d.DurbinWatson = dw
	}
	return d, nil
}

// Summary returns a summary of the fitted model, or nil before Fit.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}
	diag, _ := m.Diagnose()
	return &Summary{
		Order:        m.Order,
		Coefficients: m.Coefficients(),
		Variance:     m.Variance,
		LogLik:       m.LogLik,
		AIC:          m.AIC,
		AICc:         m.AICc,
		BIC:          m.BIC,
		NObs:         m.data.Len(),
		NUsed:        m.NUsed,
		Diagnostics:  diag,
	}
}
