// Package report holds the structured result of an analysis run and writes
// it as console tables, JSON, YAML, CSV and an Excel workbook.
package report

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var nan = math.NaN()

// Float is a float64 that encodes NaN and ±Inf as null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// MarshalYAML implements yaml.Marshaler.
func (f Float) MarshalYAML() (interface{}, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, nil
	}
	return v, nil
}

// Valid reports whether f is finite.
func (f Float) Valid() bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID        string            `json:"run_id" yaml:"run_id"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
	Series       SeriesInfo        `json:"series" yaml:"series"`
	Stationarity []StationarityRow `json:"stationarity" yaml:"stationarity"`
	Correlograms []CorrelogramRow  `json:"correlograms" yaml:"correlograms"`
	Search       SearchInfo        `json:"search" yaml:"search"`
	Grid         []GridRow         `json:"grid" yaml:"grid"`
	BestByDiff   []GridRow         `json:"best_by_differencing" yaml:"best_by_differencing"`
	Candidates   []Candidate       `json:"candidates" yaml:"candidates"`

	// Forecast is the out-of-sample forecast of ForecastModel refitted on
	// the full series.
	Forecast      []ForecastRow `json:"forecast,omitempty" yaml:"forecast,omitempty"`
	ForecastModel string        `json:"forecast_model,omitempty" yaml:"forecast_model,omitempty"`
	// ForecastWarning flags a forecast model refitted with a root on the
	// unit circle; ForecastError is set when no forecast could be made.
	ForecastWarning string   `json:"forecast_warning,omitempty" yaml:"forecast_warning,omitempty"`
	ForecastError   string   `json:"forecast_error,omitempty" yaml:"forecast_error,omitempty"`
	Charts          []string `json:"charts,omitempty" yaml:"charts,omitempty"`
}

// New returns an empty report stamped with a fresh run ID.
func New(now time.Time) *Report {
	return &Report{RunID: uuid.New().String(), CreatedAt: now.UTC()}
}

// SeriesInfo describes the analysed series and its split.
type SeriesInfo struct {
	Name     string `json:"name" yaml:"name"`
	Source   string `json:"source" yaml:"source"`
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	N        int    `json:"n" yaml:"n"`
	NTrain   int    `json:"n_train" yaml:"n_train"`
	NTest    int    `json:"n_test" yaml:"n_test"`
	TrainEnd string `json:"train_end" yaml:"train_end"`
	Log      bool   `json:"log" yaml:"log"`
	Min      Float  `json:"min" yaml:"min"`
	Max      Float  `json:"max" yaml:"max"`
	Mean     Float  `json:"mean" yaml:"mean"`
}

// StationarityRow summarises the unit-root tests of one transformed series.
type StationarityRow struct {
	Series           string `json:"series" yaml:"series"`
	N                int    `json:"n" yaml:"n"`
	ADFStatistic     Float  `json:"adf_statistic" yaml:"adf_statistic"`
	ADFPValue        Float  `json:"adf_p_value" yaml:"adf_p_value"`
	KPSSStatistic    Float  `json:"kpss_statistic" yaml:"kpss_statistic"`
	KPSSPValue       Float  `json:"kpss_p_value" yaml:"kpss_p_value"`
	NDiffs           int    `json:"ndiffs" yaml:"ndiffs"`
	NSDiffs          int    `json:"nsdiffs" yaml:"nsdiffs"`
	SeasonalStrength Float  `json:"seasonal_strength" yaml:"seasonal_strength"`
}

// CorrelogramRow lists the lags whose ACF and PACF leave the ±bound band.
type CorrelogramRow struct {
	Series          string `json:"series" yaml:"series"`
	MaxLag          int    `json:"max_lag" yaml:"max_lag"`
	Bound           Float  `json:"bound" yaml:"bound"`
	ACFSignificant  []int  `json:"acf_significant" yaml:"acf_significant"`
	PACFSignificant []int  `json:"pacf_significant" yaml:"pacf_significant"`
}

// SearchInfo summarises the order search.
type SearchInfo struct {
	Method        string         `json:"method" yaml:"method"`
	Criterion     string         `json:"criterion" yaml:"criterion"`
	Evaluated     int            `json:"evaluated" yaml:"evaluated"`
	Fitted        int            `json:"fitted" yaml:"fitted"`
	Failed        int            `json:"failed" yaml:"failed"`
	FailureCounts map[string]int `json:"failure_counts,omitempty" yaml:"failure_counts,omitempty"`
	Seconds       Float          `json:"seconds" yaml:"seconds"`
	// RankGroup is the differencing group candidates were drawn from, or
	// "all" for one ranking across groups.
	RankGroup string `json:"rank_group,omitempty" yaml:"rank_group,omitempty"`
}

// GridRow is one ranked search entry.
type GridRow struct {
	Rank     int    `json:"rank" yaml:"rank"`
	Order    string `json:"order" yaml:"order"`
	P        int    `json:"p" yaml:"p"`
	D        int    `json:"d" yaml:"d"`
	Q        int    `json:"q" yaml:"q"`
	SP       int    `json:"sp" yaml:"sp"`
	SD       int    `json:"sd" yaml:"sd"`
	SQ       int    `json:"sq" yaml:"sq"`
	M        int    `json:"m" yaml:"m"`
	AIC      Float  `json:"aic" yaml:"aic"`
	AICc     Float  `json:"aicc" yaml:"aicc"`
	BIC      Float  `json:"bic" yaml:"bic"`
	LogLik   Float  `json:"loglik" yaml:"loglik"`
	Variance Float  `json:"sigma2" yaml:"sigma2"`
}

// Candidate is one shortlisted model with its diagnostics and test-window
// accuracy. Error is set when the model could not be refitted.
type Candidate struct {
	Order        string           `json:"order" yaml:"order"`
	Source       string           `json:"source" yaml:"source"`
	Error        string           `json:"error,omitempty" yaml:"error,omitempty"`
	Coefficients []CoefficientRow `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	AIC          Float            `json:"aic" yaml:"aic"`
	AICc         Float            `json:"aicc" yaml:"aicc"`
	BIC          Float            `json:"bic" yaml:"bic"`
	LogLik       Float            `json:"loglik" yaml:"loglik"`
	Variance     Float            `json:"sigma2" yaml:"sigma2"`
	NUsed        int              `json:"n_used" yaml:"n_used"`
	LjungBox     *TestRow         `json:"ljung_box,omitempty" yaml:"ljung_box,omitempty"`
	JarqueBera   *TestRow         `json:"jarque_bera,omitempty" yaml:"jarque_bera,omitempty"`
	DurbinWatson Float            `json:"durbin_watson" yaml:"durbin_watson"`
	MaxARRoot    Float            `json:"max_ar_inverse_root" yaml:"max_ar_inverse_root"`
	MaxMARoot    Float            `json:"max_ma_inverse_root" yaml:"max_ma_inverse_root"`
	Accuracy     *AccuracyRow     `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
	Forecast     []ForecastRow    `json:"test_forecast,omitempty" yaml:"test_forecast,omitempty"`
}

// CoefficientRow is one estimate.
type CoefficientRow struct {
	Name   string `json:"name" yaml:"name"`
	Value  Float  `json:"value" yaml:"value"`
	StdErr Float  `json:"std_err" yaml:"std_err"`
	TStat  Float  `json:"t_stat" yaml:"t_stat"`
}

// TestRow is a hypothesis test outcome.
type TestRow struct {
	Statistic Float `json:"statistic" yaml:"statistic"`
	PValue    Float `json:"p_value" yaml:"p_value"`
	Lags      int   `json:"lags,omitempty" yaml:"lags,omitempty"`
	DOF       int   `json:"dof,omitempty" yaml:"dof,omitempty"`
	Passed    bool  `json:"passed" yaml:"passed"`
}

// AccuracyRow holds forecast accuracy on the price scale.
type AccuracyRow struct {
	ME    Float `json:"me" yaml:"me"`
	RMSE  Float `json:"rmse" yaml:"rmse"`
	MAE   Float `json:"mae" yaml:"mae"`
	MPE   Float `json:"mpe" yaml:"mpe"`
	MAPE  Float `json:"mape" yaml:"mape"`
	MASE  Float `json:"mase" yaml:"mase"`
	RMSSE Float `json:"rmsse" yaml:"rmsse"`
	ACF1  Float `json:"acf1" yaml:"acf1"`
	N     int   `json:"n" yaml:"n"`
}

// ForecastRow is one forecast step. Actual is NaN beyond the data.
type ForecastRow struct {
	Step      int        `json:"step" yaml:"step"`
	Month     string     `json:"month,omitempty" yaml:"month,omitempty"`
	Mean      Float      `json:"mean" yaml:"mean"`
	Actual    Float      `json:"actual" yaml:"actual"`
	Intervals []Interval `json:"intervals" yaml:"intervals"`
}

// Interval is a prediction interval at a coverage level (fraction).
type Interval struct {
	Level Float `json:"level" yaml:"level"`
	Lower Float `json:"lower" yaml:"lower"`
	Upper Float `json:"upper" yaml:"upper"`
}
