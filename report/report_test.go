package report

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/henryhub/autoarima"
	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/stats"
	"github.com/sartorproj/henryhub/timeseries"
)

func ar1Series(n int, phi float64, seed int64) *timeseries.Series {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	prev := 0.0
	for i := range values {
		prev = phi*prev + rng.NormFloat64()
		values[i] = 10 + prev
	}
	return timeseries.NewMonthly(time.Date(1997, 1, 1, 0, 0, 0, 0, time.UTC), values)
}

func sampleReport(t *testing.T) *Report {
	t.Helper()
	s := ar1Series(120, 0.5, 7)
	train, test, err := s.SplitLast(12)
	require.NoError(t, err)

	model := sarima.New(1, 0, 0, 0, 0, 0, 0)
	require.NoError(t, model.Fit(train))
	fc, err := model.Forecast(12)
	require.NoError(t, err)
	acc, err := stats.Accuracy(test.Values, fc.Mean, train.Values, 12)
	require.NoError(t, err)

	r := New(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r.Series = SeriesInfo{Name: "henry_hub", Start: "1997-01", End: "2006-12", N: 120, NTrain: 108, NTest: 12,
		Min: Float(s.Min()), Max: Float(s.Max()), Mean: Float(s.Mean())}
	r.Stationarity = []StationarityRow{Stationarity("level", train, 12, 2)}
	r.Correlograms = []CorrelogramRow{Correlogram("level", train, 24)}
	r.Grid = GridRows([]autoarima.Entry{
		{Order: model.Order, AIC: model.AIC, AICc: model.AICc, BIC: model.BIC, LogLik: model.LogLik, Variance: model.Variance},
		{Order: sarima.Order{}, AIC: math.NaN(), AICc: 1, BIC: 2, LogLik: 3, Variance: 4},
	})
	r.BestByDiff = r.Grid[:1]
	r.Search = SearchInfo{Method: "grid", Criterion: "aic", Evaluated: 3, Fitted: 2, Failed: 1,
		FailureCounts: map[string]int{autoarima.ReasonInsufficientData: 1}, Seconds: 0.25}

	c := NewCandidate("search", model, 0.05)
	c.Accuracy = Accuracy(acc)
	c.Forecast = ForecastRows(fc, test)
	r.Candidates = []Candidate{c, {Order: "ARIMA(3,0,3)", Source: "manual", Error: "not converged"}}
	r.Forecast = ForecastRows(fc, nil)
	r.ForecastModel = model.Order.String()
	return r
}

func TestFloatEncoding(t *testing.T) {
	b, err := json.Marshal(struct {
		A Float `json:"a"`
		B Float `json:"b"`
		C Float `json:"c"`
	}{1.5, Float(math.NaN()), Float(math.Inf(1))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null,"c":null}`, string(b))

	y, err := yaml.Marshal(map[string]Float{"a": 2, "b": Float(math.NaN())})
	require.NoError(t, err)
	assert.Equal(t, "a: 2\nb: null\n", string(y))
}

func TestNewReport(t *testing.T) {
	r := New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600)))
	_, err := uuid.Parse(r.RunID)
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, r.CreatedAt.Location())
	assert.NotEqual(t, r.RunID, New(time.Now()).RunID)
}

func TestBuilders(t *testing.T) {
	r := sampleReport(t)

	assert.Equal(t, 1, r.Grid[0].Rank)
	assert.Equal(t, "ARIMA(1,0,0)", r.Grid[0].Order)
	assert.Equal(t, 2, r.Grid[1].Rank)
	assert.False(t, r.Grid[1].AIC.Valid())

	c := r.Candidates[0]
	require.Len(t, c.Coefficients, 2)
	assert.Equal(t, "ar1", c.Coefficients[0].Name)
	assert.Equal(t, "mean", c.Coefficients[1].Name)
	assert.InDelta(t, 0.5, float64(c.Coefficients[0].Value), 0.25)
	require.NotNil(t, c.LjungBox)
	assert.Equal(t, 1, c.LjungBox.Lags-c.LjungBox.DOF)
	require.NotNil(t, c.JarqueBera)
	assert.True(t, c.MaxARRoot.Valid())
	assert.False(t, c.MaxMARoot.Valid())
	assert.Equal(t, 12, c.Accuracy.N)

	require.Len(t, c.Forecast, 12)
	first := c.Forecast[0]
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, "2006-01", first.Month)
	assert.True(t, first.Actual.Valid())
	require.Len(t, first.Intervals, 2)
	assert.Equal(t, Float(0.8), first.Intervals[0].Level)
	assert.Less(t, float64(first.Intervals[1].Lower), float64(first.Intervals[0].Lower))
	assert.False(t, r.Forecast[0].Actual.Valid())

	assert.Equal(t, "level", r.Stationarity[0].Series)
	assert.True(t, r.Stationarity[0].ADFStatistic.Valid())
	assert.Greater(t, float64(r.Correlograms[0].Bound), 0.0)
}

func TestSaveAllFormats(t *testing.T) {
	r := sampleReport(t)
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := Save(dir, r, []string{"json", "yaml", "csv", "xlsx"})
	require.NoError(t, err)
	assert.Len(t, paths, 5)

	b, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])

	y, err := os.ReadFile(filepath.Join(dir, "report.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(y), "run_id: "+r.RunID)

	grid, err := os.ReadFile(filepath.Join(dir, "grid.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(grid)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(gridHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,ARIMA(1,0,0),1,0,0,"))

	fc, err := os.ReadFile(filepath.Join(dir, "forecasts.csv"))
	require.NoError(t, err)
	fcLines := strings.Split(strings.TrimSpace(string(fc)), "\n")
	assert.Equal(t, "model,step,month,mean,actual,lo_80,hi_80,lo_95,hi_95", fcLines[0])
	assert.Len(t, fcLines, 1+12+12)

	wb, err := excelize.OpenFile(filepath.Join(dir, "report.xlsx"))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"grid", "candidates", "accuracy", "forecasts"}, wb.GetSheetList())
	rows, err := wb.GetRows("grid")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "ARIMA(1,0,0)", rows[1][1])
	cands, err := wb.GetRows("candidates")
	require.NoError(t, err)
	assert.Len(t, cands, 3)
	acc, err := wb.GetRows("accuracy")
	require.NoError(t, err)
	assert.Len(t, acc, 2)
}

func TestSaveUnknownFormat(t *testing.T) {
	_, err := Save(t.TempDir(), sampleReport(t), []string{"html"})
	assert.ErrorContains(t, err, "unknown report format")
}

func TestPrint(t *testing.T) {
	color.NoColor = true
	r := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, r, 1))
	out := buf.String()
	assert.Contains(t, out, "== Series ==")
	assert.Contains(t, out, "== Search (grid, AIC) ==")
	assert.Contains(t, out, "3 evaluated, 2 fitted, 1 failed")
	assert.Contains(t, out, "insufficient_data")
	assert.Contains(t, out, "error: not converged")
	assert.Contains(t, out, "lo 80%")
	assert.NotContains(t, out, "ARIMA(0,0,0)")

	buf.Reset()
	require.NoError(t, PrintCandidate(&buf, r.Candidates[0]))
	assert.Contains(t, buf.String(), "ar1")
	assert.Contains(t, buf.String(), "Ljung-Box")
}

func TestPrintForecastOutcome(t *testing.T) {
	color.NoColor = true
	r := sampleReport(t)
	r.Search.RankGroup = "d=0,D=0"
	r.ForecastWarning = "MA root on the unit circle"

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, r, 1))
	assert.Contains(t, buf.String(), "candidates ranked within d=0,D=0")
	assert.Contains(t, buf.String(), "warning: MA root on the unit circle")

	r.Forecast = nil
	r.ForecastWarning = ""
	r.ForecastError = "non-invertible MA part"
	buf.Reset()
	require.NoError(t, Print(&buf, r, 1))
	assert.Contains(t, buf.String(), "== Forecast "+r.ForecastModel+" ==")
	assert.Contains(t, buf.String(), "failed: non-invertible MA part")

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"forecast_error":"non-invertible MA part"`)
	assert.Contains(t, string(b), `"rank_group":"d=0,D=0"`)
}
