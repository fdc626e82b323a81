package analysis

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/sartorproj/henryhub/charts"
	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/stats"
	"github.com/sartorproj/henryhub/timeseries"
)

// slug turns a label such as "ARIMA(0,1,1)(0,1,1)[12]" into a file stem.
func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// residualSeries aligns the residuals that enter the sum of squares with
// the end of the fitted series. Observations lost to differencing and AR
// conditioning are NaN so they are left out of the plot.
func residualSeries(m *sarima.Model) *timeseries.Series {
	data := m.Data()
	used := m.UsedResiduals()
	values := make([]float64, data.Len())
	offset := len(values) - len(used)
	for i := 0; i < offset; i++ {
		values[i] = math.NaN()
	}
	copy(values[offset:], used)
	return &timeseries.Series{Timestamps: data.Timestamps, Values: values, Name: "residuals"}
}

// renderCharts draws the exploratory, candidate and forecast figures and
// returns the written paths. Figures with nothing finite to draw are skipped.
func (p *Pipeline) renderCharts(d *Data, fits []candidateFit, future *sarima.Forecast) ([]string, error) {
	cfg := p.cfg
	format, err := charts.Format(cfg.Output.ChartFormat)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(cfg.Output.Dir, "charts")
	var written []string
	draw := func(stem string, fn func(path string) error) error {
		path := charts.FileName(dir, stem, format)
		if err := fn(path); err != nil {
			if errors.Is(err, charts.ErrNoPoints) {
				p.log.WithField("chart", stem).Debug("Chart skipped")
				return nil
			}
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := draw("price", func(path string) error {
		return charts.SeriesLine(path, "Henry Hub spot price", d.Price)
	}); err != nil {
		return written, err
	}
	if cfg.Transform.Log {
		if err := draw("log_price", func(path string) error {
			return charts.SeriesLine(path, "Log price", d.Model)
		}); err != nil {
			return written, err
		}
	}
	if period := cfg.Search.Period; period >= 2 {
		if err := draw("decomposition", func(path string) error {
			return charts.Decomposition(path, stats.Decompose(d.ModelTrain, period, "additive"))
		}); err != nil {
			return written, err
		}
	}

	for _, v := range variants(d.ModelTrain, cfg.Search.Period, cfg.Transform.Log) {
		if err := draw("acf_"+slug(v.name), func(path string) error {
			return charts.Correlogram(path, "ACF "+v.name, stats.ACFWithConfidence(v.series, cfg.Diagnostics.MaxLag))
		}); err != nil {
			return written, err
		}
		if err := draw("pacf_"+slug(v.name), func(path string) error {
			return charts.Correlogram(path, "PACF "+v.name, stats.PACFWithConfidence(v.series, cfg.Diagnostics.MaxLag))
		}); err != nil {
			return written, err
		}
	}

	for _, f := range fits {
		if f.model == nil {
			continue
		}
		name := f.model.Order.String()
		stem := slug(name)
		residuals := residualSeries(f.model)
		roots, err := f.model.Roots()
		if err != nil {
			return written, err
		}
		steps := []struct {
			stem string
			fn   func(string) error
		}{
			{"forecast_" + stem, func(path string) error {
				return charts.Forecast(path, name+" test window", d.PriceTrain, d.PriceTest, f.forecast)
			}},
			{"residuals_" + stem, func(path string) error {
				return charts.Residuals(path, name+" residuals", residuals)
			}},
			{"residual_hist_" + stem, func(path string) error {
				return charts.Histogram(path, name+" residual distribution", f.model.UsedResiduals())
			}},
			{"roots_" + stem, func(path string) error {
				return charts.UnitCircle(path, name+" inverse roots", roots)
			}},
		}
		for _, s := range steps {
			if err := draw(s.stem, s.fn); err != nil {
				return written, err
			}
		}
	}

	if future != nil {
		if err := draw("forecast_future", func(path string) error {
			return charts.Forecast(path, "Forecast", d.Price, nil, future)
		}); err != nil {
			return written, err
		}
	}
	return written, nil
}
