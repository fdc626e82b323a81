package autoarima

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sartorproj/henryhub/sarima"
)

// Entry is one successfully fitted combination.
type Entry struct {
	Order     sarima.Order
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	Variance  float64
	Criterion float64
	Model     *sarima.Model
}

// Failure records a combination that could not be fitted.
type Failure struct {
	Order  sarima.Order
	Reason string
	Err    error
}

// Failure reasons, usable as metric labels.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonNonStationary    = "non_stationary_ar"
	ReasonNonInvertible    = "non_invertible_ma"
	ReasonNotConverged     = "not_converged"
	ReasonOther            = "other"
)

// Classify maps a fitting error to a failure reason.
func Classify(err error) string {
	switch {
	case errors.Is(err, sarima.ErrInsufficientData):
		return ReasonInsufficientData
	case errors.Is(err, sarima.ErrNonStationaryAR):
		return ReasonNonStationary
	case errors.Is(err, sarima.ErrNonInvertibleMA):
		return ReasonNonInvertible
	case errors.Is(err, sarima.ErrNotConverged):
		return ReasonNotConverged
	default:
		return ReasonOther
	}
}

// DiffKey identifies a differencing group (d, D).
type DiffKey struct {
	D  int
	SD int
}

func (k DiffKey) String() string {
	return fmt.Sprintf("d=%d,D=%d", k.D, k.SD)
}

// ParseDiffKey parses "d,D", e.g. "1,1".
func ParseDiffKey(s string) (DiffKey, error) {
	ds, sds, ok := strings.Cut(s, ",")
	d, err1 := strconv.Atoi(strings.TrimSpace(ds))
	sd, err2 := strconv.Atoi(strings.TrimSpace(sds))
	if !ok || err1 != nil || err2 != nil || d < 0 || sd < 0 {
		return DiffKey{}, fmt.Errorf("differencing group %q must look like d,D", s)
	}
	return DiffKey{D: d, SD: sd}, nil
}

// Key returns the differencing group of the entry.
func (e Entry) Key() DiffKey {
	return DiffKey{D: e.Order.D, SD: e.Order.SD}
}

// Result holds a ranked search.
type Result struct {
	Criterion Criterion
	Entries   []Entry // best first
	Failures  []Failure
	Best      *Entry
	// BestByDiff holds the best entry per (d, D), ordered by d then D.
	// Criteria are only comparable within one group.
	BestByDiff []Entry
	Evaluated  int
}

func newEntry(m *sarima.Model, c Criterion) Entry {
	return Entry{
		Order:     m.Order,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		Variance:  m.Variance,
		Criterion: c.Of(m),
		Model:     m,
	}
}

func newResult(c Criterion, entries []Entry, failures []Failure) *Result {
	rank(entries)
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Order.String() < failures[j].Order.String()
	})

	r := &Result{
		Criterion: c,
		Entries:   entries,
		Failures:  failures,
		Evaluated: len(entries) + len(failures),
	}
	if len(entries) > 0 {
		r.Best = &r.Entries[0]
	}

	seen := make(map[DiffKey]bool)
	for _, e := range entries {
		k := e.Key()
		if !seen[k] {
			seen[k] = true
			r.BestByDiff = append(r.BestByDiff, e)
		}
	}
	sort.SliceStable(r.BestByDiff, func(i, j int) bool {
		a, b := r.BestByDiff[i].Order, r.BestByDiff[j].Order
		if a.D != b.D {
			return a.D < b.D
		}
		return a.SD < b.SD
	})
	return r
}

// rank sorts by criterion, then by order string so ties are deterministic.
// NaN criteria sort last.
func rank(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		an, bn := math.IsNaN(a.Criterion), math.IsNaN(b.Criterion)
		if an != bn {
			return bn
		}
		if a.Criterion != b.Criterion && !an {
			return a.Criterion < b.Criterion
		}
		return a.Order.String() < b.Order.String()
	})
}

// MostDifferenced returns the fitted group with the largest d+D, taking
// the larger D on ties. ok is false when nothing was fitted.
func (r *Result) MostDifferenced() (k DiffKey, ok bool) {
	for _, e := range r.BestByDiff {
		c := e.Key()
		if !ok || c.D+c.SD > k.D+k.SD || (c.D+c.SD == k.D+k.SD && c.SD > k.SD) {
			k, ok = c, true
		}
	}
	return k, ok
}

// Within returns the ranking restricted to one differencing group. Failures
// and the evaluated count are those of the whole search.
func (r *Result) Within(k DiffKey) *Result {
	var entries []Entry
	for _, e := range r.Entries {
		if e.Key() == k {
			entries = append(entries, e)
		}
	}
	sub := newResult(r.Criterion, entries, r.Failures)
	sub.Evaluated = r.Evaluated
	return sub
}

// Top returns the n best entries.
func (r *Result) Top(n int) []Entry {
	if n > len(r.Entries) || n < 0 {
		n = len(r.Entries)
	}
	return r.Entries[:n]
}

// Lookup returns the entry for an order.
func (r *Result) Lookup(o sarima.Order) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Order == o {
			return e, true
		}
	}
	return Entry{}, false
}

// FailureCounts tallies failures by reason.
func (r *Result) FailureCounts() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Failures {
		out[f.Reason]++
	}
	return out
}

// Predict generates forecasts using the best model.
func (r *Result) Predict(steps int) ([]float64, error) {
	if r.Best == nil {
		return nil, ErrNoModel
	}
	return r.Best.Model.Predict(steps)
}

// Residuals returns the residuals of the best model.
func (r *Result) Residuals() []float64 {
	if r.Best == nil {
		return nil
	}
	return r.Best.Model.Residuals()
}
