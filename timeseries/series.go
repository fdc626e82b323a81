// Package timeseries provides the monthly time series type used throughout the analysis.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNonPositive is returned when a log transform meets a value <= 0.
	ErrNonPositive = errors.New("series contains non-positive values")
	// ErrLengthMismatch is returned when timestamps and values disagree in length.
	ErrLengthMismatch = errors.New("timestamps and values must have the same length")
	// ErrEmpty is returned by operations that need at least one observation.
	ErrEmpty = errors.New("series is empty")
)

// Series represents a time series with timestamps and values.
// Timestamps may be nil for an unindexed series.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates an unindexed series from values.
func New(values []float64) *Series {
	return &Series{Values: values}
}

// NewMonthly creates a series whose i-th value belongs to the month start+i.
func NewMonthly(start time.Time, values []float64) *Series {
	start = MonthStart(start)
	timestamps := make([]time.Time, len(values))
	for i := range values {
		timestamps[i] = start.AddDate(0, i, 0)
	}
	return &Series{Timestamps: timestamps, Values: values}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, ErrLengthMismatch
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// MonthStart truncates t to the first instant of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Indexed reports whether every value carries a timestamp.
func (s *Series) Indexed() bool {
	return len(s.Values) > 0 && len(s.Timestamps) == len(s.Values)
}

// Start returns the first timestamp, or the zero time for an unindexed series.
func (s *Series) Start() time.Time {
	if !s.Indexed() {
		return time.Time{}
	}
	return s.Timestamps[0]
}

// End returns the last timestamp, or the zero time for an unindexed series.
func (s *Series) End() time.Time {
	if !s.Indexed() {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	return s.LagDiff(1, "_diff")
}

// DiffOrder applies the first difference d times.
func (s *Series) DiffOrder(d int) *Series {
	out := s
	for i := 0; i < d; i++ {
		out = out.Diff()
	}
	return out
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.LagDiff(m, "_sdiff")
}

// LagDiff returns y[t] - y[t-k], dropping the first k observations.
// The suffix is appended to the series name.
func (s *Series) LagDiff(k int, suffix string) *Series {
	if k <= 0 || len(s.Values) <= k {
		return &Series{Values: []float64{}, Name: s.Name + suffix}
	}

	result := make([]float64, len(s.Values)-k)
	for i := k; i < len(s.Values); i++ {
		result[i-k] = s.Values[i] - s.Values[i-k]
	}

	var timestamps []time.Time
	if s.Indexed() {
		timestamps = make([]time.Time, len(result))
		copy(timestamps, s.Timestamps[k:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + suffix,
	}
}

// Lag returns the series shifted by k, aligned to the timestamps of t >= k.
func (s *Series) Lag(k int) *Series {
	if k <= 0 || k >= len(s.Values) {
		return &Series{Values: []float64{}}
	}

	result := make([]float64, len(s.Values)-k)
	copy(result, s.Values[:len(s.Values)-k])

	var timestamps []time.Time
	if s.Indexed() {
		timestamps = make([]time.Time, len(result))
		copy(timestamps, s.Timestamps[k:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + "_lag",
	}
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Name: s.Name}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	var timestamps []time.Time
	if s.Indexed() {
		timestamps = make([]time.Time, len(values))
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Window returns the observations whose timestamps fall in [from, to].
// A zero bound is open.
func (s *Series) Window(from, to time.Time) (*Series, error) {
	if !s.Indexed() {
		return nil, errors.New("window requires an indexed series")
	}
	start, end := 0, len(s.Values)
	if !from.IsZero() {
		for start < end && s.Timestamps[start].Before(from) {
			start++
		}
	}
	if !to.IsZero() {
		for end > start && s.Timestamps[end-1].After(to) {
			end--
		}
	}
	if start >= end {
		return nil, fmt.Errorf("window %s..%s: %w", fmtMonth(from), fmtMonth(to), ErrEmpty)
	}
	return s.Slice(start, end), nil
}

// SplitAt splits an indexed series into observations up to and including
// trainEnd and the observations after it.
func (s *Series) SplitAt(trainEnd time.Time) (train, test *Series, err error) {
	if !s.Indexed() {
		return nil, nil, errors.New("split by date requires an indexed series")
	}
	cut := 0
	for cut < len(s.Timestamps) && !s.Timestamps[cut].After(trainEnd) {
		cut++
	}
	if cut == 0 || cut == len(s.Values) {
		return nil, nil, fmt.Errorf("split at %s leaves an empty side: %w", fmtMonth(trainEnd), ErrEmpty)
	}
	return s.Slice(0, cut), s.Slice(cut, len(s.Values)), nil
}

// SplitLast holds out the last h observations as the test window.
func (s *Series) SplitLast(h int) (train, test *Series, err error) {
	if h <= 0 || h >= len(s.Values) {
		return nil, nil, fmt.Errorf("test window of %d observations out of range for %d: %w", h, len(s.Values), ErrEmpty)
	}
	cut := len(s.Values) - h
	return s.Slice(0, cut), s.Slice(cut, len(s.Values)), nil
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	var timestamps []time.Time
	if s.Timestamps != nil {
		timestamps = make([]time.Time, len(s.Timestamps))
		copy(timestamps, s.Timestamps)
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Log applies the natural logarithm. Prices must be strictly positive.
func (s *Series) Log() (*Series, error) {
	result := make([]float64, len(s.Values))
	for i, v := range s.Values {
		if v <= 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("value %g at position %d: %w", v, i, ErrNonPositive)
		}
		result[i] = math.Log(v)
	}

	out := s.Copy()
	out.Values = result
	out.Name = s.Name + "_log"
	return out, nil
}

// Exp applies the exponential, undoing Log.
func (s *Series) Exp() *Series {
	out := s.Copy()
	for i, v := range out.Values {
		out.Values[i] = math.Exp(v)
	}
	return out
}

// ExtendMonthly returns the n monthly timestamps following the end of s.
func (s *Series) ExtendMonthly(n int) []time.Time {
	if !s.Indexed() || n <= 0 {
		return nil
	}
	last := s.End()
	out := make([]time.Time, n)
	for i := range out {
		out[i] = last.AddDate(0, i+1, 0)
	}
	return out
}

func fmtMonth(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format("2006-01")
}
