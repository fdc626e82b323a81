package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/henryhub/autoarima"
	"github.com/sartorproj/henryhub/internal/config"
	"github.com/sartorproj/henryhub/internal/logging"
	"github.com/sartorproj/henryhub/internal/metrics"
	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/timeseries"
)

const fixture = "testdata/henry_hub_monthly.csv"

// smallConfig searches ARIMA(p,1,q)(0,1,Q)[12] with p, q, Q in {0, 1}.
func smallConfig(t *testing.T) *config.Analysis {
	t.Helper()
	cfg := config.Default()
	cfg.Input.Path = fixture
	cfg.Search.MaxP, cfg.Search.MaxQ = 1, 1
	cfg.Search.MinD, cfg.Search.MaxD = 1, 1
	cfg.Search.MaxSP, cfg.Search.MaxSQ = 0, 1
	cfg.Search.MinSD, cfg.Search.MaxSD = 1, 1
	cfg.Search.Workers = 2
	cfg.Candidates.Top = 2
	cfg.Candidates.Orders = []string{"ARIMA(0,1,1)(0,1,1)[12]", "ARIMA(2,1,0)(0,1,1)[12]"}
	cfg.Forecast.Horizon = 6
	cfg.Diagnostics.MaxLag = 24
	cfg.Output.Dir = t.TempDir()
	cfg.Output.Formats = []string{"json", "yaml", "csv", "xlsx"}
	return cfg
}

func TestLoadSeries(t *testing.T) {
	s, err := LoadSeries(config.Input{Path: fixture})
	require.NoError(t, err)
	assert.Equal(t, 180, s.Len())
	assert.Equal(t, "1997-01", s.Start().Format(config.MonthLayout))

	w, err := LoadSeries(config.Input{Path: fixture, From: "2000-01", To: "2004-12"})
	require.NoError(t, err)
	assert.Equal(t, 60, w.Len())

	_, err = LoadSeries(config.Input{Path: "testdata/missing.csv"})
	assert.Error(t, err)
}

func TestPrepare(t *testing.T) {
	s, err := LoadSeries(config.Input{Path: fixture})
	require.NoError(t, err)

	d, err := Prepare(s, config.Transform{Log: true}, config.Split{TestMonths: 24})
	require.NoError(t, err)
	assert.Equal(t, 156, d.ModelTrain.Len())
	assert.Equal(t, 24, d.PriceTest.Len())
	assert.InDelta(t, s.Values[0], d.PriceTrain.Values[0], 1e-12)
	assert.Less(t, d.ModelTrain.Values[0], s.Values[0])

	d, err = Prepare(s, config.Transform{}, config.Split{TrainEnd: "2009-12"})
	require.NoError(t, err)
	assert.Equal(t, 156, d.ModelTrain.Len())
	assert.Equal(t, d.Price, d.Model)

	_, err = Prepare(s, config.Transform{}, config.Split{TestMonths: 180})
	assert.Error(t, err)
}

func TestSearchConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Method = "stepwise"
	cfg.Search.Criterion = "BIC"
	cfg.Search.MaxIter = 500

	sc, err := SearchConfig(cfg.Search)
	require.NoError(t, err)
	assert.True(t, sc.Stepwise)
	assert.Equal(t, autoarima.BIC, sc.Criterion)
	assert.Equal(t, 12, sc.M)
	assert.Equal(t, 500, sc.Model.MaxIter)
	assert.Equal(t, 94, sc.MaxModels)

	cfg.Search.Criterion = "hqic"
	_, err = SearchConfig(cfg.Search)
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "arima_0_1_1_0_1_1_12", slug("ARIMA(0,1,1)(0,1,1)[12]"))
	assert.Equal(t, "log_seasonal_first_diff", slug("log seasonal+first diff"))
}

func TestRun(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Output.MetricsFile = filepath.Join(cfg.Output.Dir, "henryhub.prom")
	rec := metrics.New()

	rep, err := Run(context.Background(), cfg, logging.Discard(), rec)
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 180, rep.Series.N)
	assert.Equal(t, "2009-12", rep.Series.TrainEnd)
	require.Len(t, rep.Stationarity, 3)
	assert.Equal(t, "log seasonal diff", rep.Stationarity[1].Series)

	assert.Equal(t, 8, rep.Search.Evaluated)
	assert.Equal(t, rep.Search.Evaluated, rep.Search.Fitted+rep.Search.Failed)
	require.NotEmpty(t, rep.Grid)
	require.Len(t, rep.BestByDiff, 1)
	assert.Equal(t, rep.Grid[0].Order, rep.BestByDiff[0].Order)

	// Two from the search plus the manual orders the search did not rank.
	require.GreaterOrEqual(t, len(rep.Candidates), 3)
	assert.Equal(t, SourceSearch, rep.Candidates[0].Source)
	assert.Equal(t, rep.Grid[0].Order, rep.Candidates[0].Order)
	last := rep.Candidates[len(rep.Candidates)-1]
	assert.Equal(t, SourceManual, last.Source)
	assert.Equal(t, "ARIMA(2,1,0)(0,1,1)[12]", last.Order)

	for _, c := range rep.Candidates {
		if c.Error != "" {
			continue
		}
		require.NotNil(t, c.Accuracy, c.Order)
		assert.Equal(t, 24, c.Accuracy.N)
		assert.Greater(t, float64(c.Accuracy.RMSE), 0.0)
		require.Len(t, c.Forecast, 24)
		assert.Equal(t, "2010-01", c.Forecast[0].Month)
		assert.True(t, c.Forecast[0].Actual.Valid())
		assert.Greater(t, float64(c.Forecast[0].Mean), 0.0)
	}

	require.Len(t, rep.Forecast, 6)
	assert.Equal(t, rep.Grid[0].Order, rep.ForecastModel)
	assert.Equal(t, "2012-01", rep.Forecast[0].Month)

	for _, name := range []string{"report.json", "report.yaml", "grid.csv", "forecasts.csv", "report.xlsx", "henryhub.prom"} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}
	assert.Contains(t, rep.Charts, filepath.Join(cfg.Output.Dir, "charts", "price.png"))
	assert.Contains(t, rep.Charts, filepath.Join(cfg.Output.Dir, "charts", "forecast_future.png"))
	for _, path := range rep.Charts {
		assert.FileExists(t, path)
	}

	prom, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `henryhub_observations{part="train"} 156`)
}

func TestRunStepwiseWithoutOutputs(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Search.Method = "stepwise"
	cfg.Search.MaxModels = 10
	cfg.Output.Charts = false
	cfg.Output.Formats = nil
	cfg.Candidates.Orders = nil

	rep, err := Run(context.Background(), cfg, logging.Discard(), nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, rep.Search.Evaluated, 10)
	assert.Equal(t, "stepwise", rep.Search.Method)
	assert.Empty(t, rep.Charts)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, smallConfig(t), logging.Discard(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Search.Method = "random"
	_, err := Run(context.Background(), cfg, logging.Discard(), nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunRanksWithinOneDifferencingGroup(t *testing.T) {
	tests := []struct {
		group string
		want  string // expected rank group label; "" means the overall best
	}{
		{config.RankAuto, "d=1,D=1"},
		{"0,1", "d=0,D=1"},
		{config.RankAll, ""},
	}
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			cfg := smallConfig(t)
			// The default differencing ranges: d and D each in {0, 1}.
			cfg.Search.MinD, cfg.Search.MinSD = 0, 0
			cfg.Search.RankGroup = tt.group
			cfg.Forecast.Horizon = 3
			cfg.Output.Charts = false
			cfg.Output.Formats = nil

			rep, err := Run(context.Background(), cfg, logging.Discard(), nil)
			require.NoError(t, err)
			assert.Equal(t, 32, rep.Search.Evaluated)
			require.Greater(t, len(rep.BestByDiff), 1)

			if tt.want == "" {
				assert.Equal(t, config.RankAll, rep.Search.RankGroup)
				assert.Equal(t, rep.Grid[0].Order, rep.ForecastModel)
				return
			}
			assert.Equal(t, tt.want, rep.Search.RankGroup)

			group := func(s string) string {
				o, err := sarima.ParseOrder(s)
				require.NoError(t, err)
				return autoarima.DiffKey{D: o.D, SD: o.SD}.String()
			}
			assert.Equal(t, tt.want, group(rep.ForecastModel))
			var searched int
			for _, c := range rep.Candidates {
				if c.Source == SourceSearch {
					searched++
					assert.Equal(t, tt.want, group(c.Order), c.Order)
				}
			}
			assert.Equal(t, 2, searched)
		})
	}
}

func TestRunRankGroupWithoutModels(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Search.RankGroup = "2,0"
	cfg.Output.Charts = false
	cfg.Output.Formats = nil

	_, err := Run(context.Background(), cfg, logging.Discard(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model fitted with d=2,D=0")
}

func TestFutureAcceptsBoundaryMA(t *testing.T) {
	// Differencing white noise leaves an MA(1) with theta = -1.
	rng := rand.New(rand.NewSource(11))
	values := make([]float64, 240)
	for i := range values {
		values[i] = 3 + 0.2*rng.NormFloat64()
	}
	data := &Data{Model: timeseries.NewMonthly(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), values)}

	cfg := config.Default()
	cfg.Transform.Log = false
	cfg.Forecast.Horizon = 3
	order := sarima.Order{D: 1, Q: 1}

	out, err := New(cfg, logging.Discard(), nil).future(order, data)
	require.NoError(t, err)
	require.Len(t, out.rows, 3)
	assert.Equal(t, "2020-01", out.rows[0].Month)

	strict := sarima.NewWithOptions(order, ModelOptions(cfg.Search))
	if errors.Is(strict.Fit(data.Model), sarima.ErrNonInvertibleMA) {
		assert.Contains(t, out.warning, "unit circle")
	} else {
		assert.Empty(t, out.warning)
	}
}

func TestResidualSeries(t *testing.T) {
	s, err := LoadSeries(config.Input{Path: fixture})
	require.NoError(t, err)
	d, err := Prepare(s, config.Transform{Log: true}, config.Split{TestMonths: 24})
	require.NoError(t, err)

	m := sarima.NewWithOptions(sarima.Order{P: 1, D: 1, SD: 1, M: 12}, sarima.DefaultOptions())
	require.NoError(t, m.Fit(d.ModelTrain))

	r := residualSeries(m)
	require.Equal(t, d.ModelTrain.Len(), r.Len())
	assert.Equal(t, d.ModelTrain.Timestamps, r.Timestamps)

	// d + D*m + p observations carry no residual.
	offset := 1 + 12 + 1
	require.Equal(t, r.Len()-offset, m.NUsed)
	for i := 0; i < offset; i++ {
		assert.True(t, math.IsNaN(r.Values[i]), i)
	}
	assert.Equal(t, m.UsedResiduals(), r.Values[offset:])
}
