package sarima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/sartorproj/henryhub/stats"
	"github.com/sartorproj/henryhub/timeseries"
)

var (
	// ErrInvalidOrder is returned for negative orders or a seasonal order without a period.
	ErrInvalidOrder = errors.New("invalid model order")
	// ErrInsufficientData is returned when too few observations remain after
	// differencing and conditioning to estimate the coefficients.
	ErrInsufficientData = errors.New("insufficient data points for the specified order")
	// ErrNonStationaryAR is returned when the fitted AR part has a root on or inside the unit circle.
	ErrNonStationaryAR = errors.New("non-stationary AR part")
	// ErrNonInvertibleMA is returned when the fitted MA part has a root on or inside the unit circle.
	ErrNonInvertibleMA = errors.New("non-invertible MA part")
	// ErrNotConverged is returned when the optimiser fails to reach a usable minimum.
	ErrNotConverged = errors.New("optimisation did not converge")
	// ErrNotFitted is returned by methods that need a fitted model.
	ErrNotFitted = errors.New("model must be fitted first")
)

// Options control estimation.
type Options struct {
	// IncludeMean estimates a mean when the model has no differencing (d+D=0).
	// It is ignored for differenced models.
	IncludeMean bool
	// MaxIter caps Nelder-Mead iterations.
	MaxIter int
	// Tolerance is the absolute change in the objective below which the
	// optimiser is considered converged.
	Tolerance float64
	// RootMargin rejects fits whose AR or MA roots have modulus <= 1+RootMargin.
	RootMargin float64
}

// DefaultOptions mirrors R's Arima defaults for CSS estimation.
func DefaultOptions() Options {
	return Options{
		IncludeMean: true,
		MaxIter:     2000,
		Tolerance:   1e-8,
		RootMargin:  1e-3,
	}
}

// Model represents a SARIMA model estimated by conditional sum of squares.
type Model struct {
	Order     Order
	Options   Options
	ARCoeffs  []float64 // Non-seasonal AR coefficients φ
	MACoeffs  []float64 // Non-seasonal MA coefficients θ
	SARCoeffs []float64 // Seasonal AR coefficients Φ
	SMACoeffs []float64 // Seasonal MA coefficients Θ
	Mean      float64
	HasMean   bool
	Variance  float64 // σ² = SSE / NUsed
	LogLik    float64
	AIC       float64
	AICc      float64
	BIC       float64
	NUsed     int // observations entering the sum of squares

	// StdErrors follow the coefficient order ar, ma, sar, sma, mean.
	StdErrors []float64

	Iterations int
	FuncEvals  int

	fitted    bool
	data      *timeseries.Series
	diffData  []float64
	residuals []float64 // on the differenced scale, zero before the conditioning offset
}

// New creates a new SARIMA model with the specified order and default options.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return NewWithOptions(Order{P: p, D: d, Q: q, SP: sp, SD: sd, SQ: sq, M: m}, DefaultOptions())
}

// NewWithOptions creates a model with explicit options. Zero MaxIter and
// Tolerance fall back to the defaults.
func NewWithOptions(order Order, opts Options) *Model {
	def := DefaultOptions()
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.RootMargin < 0 {
		opts.RootMargin = 0
	}
	return &Model{Order: order, Options: opts}
}

// Fitted reports whether Fit has succeeded.
func (m *Model) Fitted() bool {
	return m.fitted
}

// Data returns the series the model was fitted to.
func (m *Model) Data() *timeseries.Series {
	return m.data
}

// Fit differences the series (d regular, then D seasonal differences) and
// estimates the ARMA coefficients by minimising the conditional sum of
// squares with Nelder-Mead.
func (m *Model) Fit(series *timeseries.Series) error {
	m.fitted = false
	if err := m.Order.Validate(); err != nil {
		return err
	}

	o := m.Order
	w := series.DiffOrder(o.D)
	for i := 0; i < o.SD; i++ {
		w = w.SeasonalDiff(o.M)
	}

	c := &css{
		order: o,
		w:     w.Values,
		mean:  m.Options.IncludeMean && o.D+o.SD == 0,
	}
	c.cond = o.P + o.SP*o.M
	nUsed := len(c.w) - c.cond
	k := c.numParams() + 1
	if nUsed <= k+1 {
		return fmt.Errorf("%w: %s needs more than %d usable observations, have %d",
			ErrInsufficientData, o, k+1, max(nUsed, 0))
	}
	if floats.HasNaN(c.w) {
		return fmt.Errorf("%w: series contains NaN", ErrInsufficientData)
	}

	x, err := m.optimize(c)
	if err != nil {
		return fmt.Errorf("%s: %w", o, err)
	}

	arPoly, sarPoly, maPoly, smaPoly := c.factors(x)
	if !stats.AllOutsideUnitCircle(arPoly, m.Options.RootMargin) || !stats.AllOutsideUnitCircle(sarPoly, m.Options.RootMargin) {
		return fmt.Errorf("%s: %w", o, ErrNonStationaryAR)
	}
	if !stats.AllOutsideUnitCircle(maPoly, m.Options.RootMargin) || !stats.AllOutsideUnitCircle(smaPoly, m.Options.RootMargin) {
		return fmt.Errorf("%s: %w", o, ErrNonInvertibleMA)
	}

	residuals, sse := c.residuals(x)
	sigma2 := sse / float64(nUsed)
	if sigma2 <= 0 || math.IsNaN(sigma2) || math.IsInf(sigma2, 0) {
		return fmt.Errorf("%s: %w: residual variance %g", o, ErrNotConverged, sigma2)
	}

	m.ARCoeffs, m.MACoeffs, m.SARCoeffs, m.SMACoeffs, m.Mean = c.unpack(x)
	m.HasMean = c.mean
	m.data = series
	m.diffData = c.w
	m.residuals = residuals
	m.NUsed = nUsed
	m.Variance = sigma2

	nu := float64(nUsed)
	m.LogLik = -0.5 * nu * (math.Log(2*math.Pi*sigma2) + 1)
	ic := stats.CalculateIC(m.LogLik, nUsed, k)
	m.AIC, m.AICc, m.BIC = ic.AIC, ic.AICc, ic.BIC

	m.StdErrors = c.stdErrors(x, nUsed)
	m.fitted = true
	return nil
}

// optimize minimises the CSS objective. Models without free coefficients
// are evaluated directly.
func (m *Model) optimize(c *css) ([]float64, error) {
	x0 := c.start()
	if len(x0) == 0 {
		return x0, nil
	}

	problem := optimize.Problem{Func: c.objective}
	settings := &optimize.Settings{
		MajorIterations: m.Options.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   m.Options.Tolerance,
			Iterations: 50 * len(x0),
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConverged, err)
	}
	m.Iterations = result.Stats.MajorIterations
	m.FuncEvals = result.Stats.FuncEvaluations

	if result.Status == optimize.IterationLimit {
		return nil, fmt.Errorf("%w: iteration limit %d reached", ErrNotConverged, m.Options.MaxIter)
	}
	if result.F >= penalty || math.IsNaN(result.F) {
		return nil, fmt.Errorf("%w: no admissible parameters found", ErrNotConverged)
	}
	return result.X, nil
}

// Residuals returns the residuals aligned with the fitted series. The first
// d+D·m observations (lost to differencing) and the conditioning values
// are zero.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	offset := m.data.Len() - len(m.diffData)
	out := make([]float64, m.data.Len())
	copy(out[offset:], m.residuals)
	return out
}

// UsedResiduals returns the NUsed residuals that enter the sum of squares.
func (m *Model) UsedResiduals() []float64 {
	if !m.fitted {
		return nil
	}
	out := make([]float64, m.NUsed)
	copy(out, m.residuals[len(m.residuals)-m.NUsed:])
	return out
}

// FittedValues returns the one-step fitted values y - e on the scale of
// the fitted series.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	res := m.Residuals()
	out := make([]float64, len(res))
	floats.SubTo(out, m.data.Values, res)
	return out
}
