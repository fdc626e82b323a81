package sarima

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/henryhub/stats"
)

// penalty is returned by the objective outside the stationary and
// invertible region, so Nelder-Mead rejects those vertices.
const penalty = 1e10

// css is the conditional sum of squares problem on the differenced series.
// Parameters are packed as ar(p), ma(q), sar(P), sma(Q), mean.
type css struct {
	order Order
	w     []float64
	mean  bool
	cond  int // p + P·m observations used only as lags
}

type term struct {
	lag  int
	coef float64
}

func (c *css) numParams() int {
	n := c.order.NumCoeffs()
	if c.mean {
		n++
	}
	return n
}

func (c *css) unpack(x []float64) (ar, ma, sar, sma []float64, mu float64) {
	o := c.order
	take := func(k int) []float64 {
		out := make([]float64, k)
		copy(out, x[:k])
		x = x[k:]
		return out
	}
	ar = take(o.P)
	ma = take(o.Q)
	sar = take(o.SP)
	sma = take(o.SQ)
	if c.mean {
		mu = x[0]
	}
	return ar, ma, sar, sma, mu
}

// factors returns the four lag polynomials, each in its own variable:
// φ(B) = 1 - φ1B - ..., Φ(L) = 1 - Φ1L - ... with L = B^m, θ(B) = 1 + θ1B + ...
func (c *css) factors(x []float64) (ar, sar, ma, sma []float64) {
	arc, mac, sarc, smac, _ := c.unpack(x)
	return lagPoly(arc, -1), lagPoly(sarc, -1), lagPoly(mac, 1), lagPoly(smac, 1)
}

func lagPoly(coeffs []float64, sign float64) []float64 {
	p := make([]float64, len(coeffs)+1)
	p[0] = 1
	for i, v := range coeffs {
		p[i+1] = sign * v
	}
	return p
}

// seasonalPoly expands a polynomial in L = B^m into one in B.
func seasonalPoly(p []float64, m int) []float64 {
	if len(p) == 1 {
		return []float64{1}
	}
	out := make([]float64, (len(p)-1)*m+1)
	for i, v := range p {
		out[i*m] = v
	}
	return out
}

// expanded returns the multiplicative AR polynomial φ(B)Φ(B^m) and MA
// polynomial θ(B)Θ(B^m).
func (c *css) expanded(x []float64) (ar, ma []float64) {
	arF, sarF, maF, smaF := c.factors(x)
	ar = stats.PolyMul(arF, seasonalPoly(sarF, c.order.M))
	ma = stats.PolyMul(maF, seasonalPoly(smaF, c.order.M))
	return ar, ma
}

func sparse(p []float64) []term {
	var out []term
	for lag := 1; lag < len(p); lag++ {
		if p[lag] != 0 {
			out = append(out, term{lag: lag, coef: p[lag]})
		}
	}
	return out
}

// residuals computes e_t = φΦ(B)(w_t - μ) - Σ θΘ_j e_{t-j} for t >= cond,
// with e_t = 0 before the conditioning offset.
func (c *css) residuals(x []float64) ([]float64, float64) {
	ar, ma := c.expanded(x)
	_, _, _, _, mu := c.unpack(x)
	arTerms, maTerms := sparse(ar), sparse(ma)

	n := len(c.w)
	e := make([]float64, n)
	sse := 0.0
	for t := c.cond; t < n; t++ {
		v := c.w[t] - mu
		for _, a := range arTerms {
			v += a.coef * (c.w[t-a.lag] - mu)
		}
		for _, b := range maTerms {
			if t-b.lag < 0 {
				break
			}
			v -= b.coef * e[t-b.lag]
		}
		e[t] = v
		sse += v * v
	}
	return e, sse
}

// concentrated is half the log of the residual variance; its minimiser
// is the CSS estimate.
func (c *css) concentrated(x []float64) float64 {
	_, sse := c.residuals(x)
	nUsed := float64(len(c.w) - c.cond)
	return 0.5 * math.Log(math.Max(sse/nUsed, math.SmallestNonzeroFloat64))
}

func (c *css) objective(x []float64) float64 {
	ar, sar, ma, sma := c.factors(x)
	if !stats.AllOutsideUnitCircle(ar, 0) || !stats.AllOutsideUnitCircle(sar, 0) ||
		!stats.AllOutsideUnitCircle(ma, 0) || !stats.AllOutsideUnitCircle(sma, 0) {
		return penalty
	}
	v := c.concentrated(x)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return penalty
	}
	return v
}

// start returns Yule-Walker values for the AR parts, zero MA terms and the
// sample mean.
func (c *css) start() []float64 {
	o := c.order
	x := make([]float64, 0, c.numParams())

	maxLag := max(o.P, o.SP*o.M)
	acf := autocorr(c.w, maxLag)

	x = append(x, yuleWalker(acf, o.P, 1)...)
	x = append(x, make([]float64, o.Q)...)
	x = append(x, yuleWalker(acf, o.SP, o.M)...)
	x = append(x, make([]float64, o.SQ)...)
	if c.mean {
		x = append(x, stat.Mean(c.w, nil))
	}
	return x
}

// stdErrors inverts n·H, the Hessian of the concentrated objective scaled
// by the number of residuals, as R's arima does for CSS.
func (c *css) stdErrors(x []float64, nUsed int) []float64 {
	k := len(x)
	se := make([]float64, k)
	for i := range se {
		se[i] = math.NaN()
	}
	if k == 0 {
		return se
	}

	h := mat.NewSymDense(k, nil)
	fd.Hessian(h, c.concentrated, x, nil)
	h.ScaleSym(float64(nUsed), h)

	var cov mat.Dense
	if err := cov.Inverse(h); err != nil {
		return se
	}
	for i := 0; i < k; i++ {
		if v := cov.At(i, i); v > 0 {
			se[i] = math.Sqrt(v)
		}
	}
	return se
}

// autocorr returns the sample autocorrelations up to maxLag, or zeros when
// the series is constant.
func autocorr(w []float64, maxLag int) []float64 {
	out := make([]float64, maxLag+1)
	out[0] = 1
	if maxLag == 0 || len(w) < 2 {
		return out
	}
	mu := stat.Mean(w, nil)
	var denom float64
	for _, v := range w {
		denom += (v - mu) * (v - mu)
	}
	if denom == 0 {
		return out
	}
	for k := 1; k <= maxLag && k < len(w); k++ {
		var s float64
		for t := k; t < len(w); t++ {
			s += (w[t] - mu) * (w[t-k] - mu)
		}
		out[k] = s / denom
	}
	return out
}

// yuleWalker solves the Toeplitz system for an AR(order) on lags that are
// multiples of step. A singular system yields zeros.
func yuleWalker(acf []float64, order, step int) []float64 {
	phi := make([]float64, order)
	if order == 0 {
		return phi
	}
	rho := func(k int) float64 {
		if k < 0 {
			k = -k
		}
		if k*step >= len(acf) {
			return 0
		}
		return acf[k*step]
	}

	r := mat.NewDense(order, order, nil)
	b := mat.NewVecDense(order, nil)
	for i := 0; i < order; i++ {
		for j := 0; j < order; j++ {
			r.Set(i, j, rho(i-j))
		}
		b.SetVec(i, rho(i+1))
	}

	var sol mat.VecDense
	if err := sol.SolveVec(r, b); err != nil {
		return phi
	}
	for i := range phi {
		phi[i] = sol.AtVec(i)
	}
	// Shrink towards zero so the starting simplex sits inside the stationary region.
	for !stats.AllOutsideUnitCircle(lagPoly(phi, -1), 0.01) {
		for i := range phi {
			phi[i] *= 0.5
		}
	}
	return phi
}
