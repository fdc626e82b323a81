package report

import (
	"github.com/sartorproj/henryhub/autoarima"
	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/stats"
	"github.com/sartorproj/henryhub/timeseries"
)

// GridRows converts ranked entries, numbering them from 1.
func GridRows(entries []autoarima.Entry) []GridRow {
	rows := make([]GridRow, len(entries))
	for i, e := range entries {
		o := e.Order
		rows[i] = GridRow{
			Rank:     i + 1,
			Order:    o.String(),
			P:        o.P,
			D:        o.D,
			Q:        o.Q,
			SP:       o.SP,
			SD:       o.SD,
			SQ:       o.SQ,
			M:        o.M,
			AIC:      Float(e.AIC),
			AICc:     Float(e.AICc),
			BIC:      Float(e.BIC),
			LogLik:   Float(e.LogLik),
			Variance: Float(e.Variance),
		}
	}
	return rows
}

// SearchSummary converts a search result.
func SearchSummary(method string, res *autoarima.Result, seconds float64) SearchInfo {
	return SearchInfo{
		Method:        method,
		Criterion:     string(res.Criterion),
		Evaluated:     res.Evaluated,
		Fitted:        len(res.Entries),
		Failed:        len(res.Failures),
		FailureCounts: res.FailureCounts(),
		Seconds:       Float(seconds),
	}
}

// NewCandidate fills the fit statistics and diagnostics of a fitted model.
// alpha is the significance level of the residual tests.
func NewCandidate(source string, m *sarima.Model, alpha float64) Candidate {
	c := Candidate{
		Order:        m.Order.String(),
		Source:       source,
		AIC:          Float(m.AIC),
		AICc:         Float(m.AICc),
		BIC:          Float(m.BIC),
		LogLik:       Float(m.LogLik),
		Variance:     Float(m.Variance),
		NUsed:        m.NUsed,
		DurbinWatson: Float(nan),
		MaxARRoot:    Float(nan),
		MaxMARoot:    Float(nan),
	}
	for _, coef := range m.Coefficients() {
		c.Coefficients = append(c.Coefficients, CoefficientRow{
			Name:   coef.Name,
			Value:  Float(coef.Value),
			StdErr: Float(coef.StdErr),
			TStat:  Float(coef.TStat()),
		})
	}

	diag, err := m.Diagnose()
	if err != nil {
		return c
	}
	if lb := diag.LjungBox; lb != nil {
		c.LjungBox = &TestRow{
			Statistic: Float(lb.Statistic),
			PValue:    Float(lb.PValue),
			Lags:      lb.Lags,
			DOF:       lb.DOF,
			Passed:    lb.WhiteNoise(alpha),
		}
	}
	if jb := diag.JarqueBera; jb != nil {
		c.JarqueBera = &TestRow{
			Statistic: Float(jb.Statistic),
			PValue:    Float(jb.PValue),
			DOF:       2,
			Passed:    jb.PValue >= alpha,
		}
	}
	c.DurbinWatson = Float(diag.DurbinWatson)
	ar, ma := diag.Roots.MaxModulus()
	if len(diag.Roots.AR) > 0 {
		c.MaxARRoot = Float(ar)
	}
	if len(diag.Roots.MA) > 0 {
		c.MaxMARoot = Float(ma)
	}
	return c
}

// Accuracy converts an accuracy result; nil stays nil.
func Accuracy(a *stats.AccuracyResult) *AccuracyRow {
	if a == nil {
		return nil
	}
	return &AccuracyRow{
		ME:    Float(a.ME),
		RMSE:  Float(a.RMSE),
		MAE:   Float(a.MAE),
		MPE:   Float(a.MPE),
		MAPE:  Float(a.MAPE),
		MASE:  Float(a.MASE),
		RMSSE: Float(a.RMSSE),
		ACF1:  Float(a.ACF1),
		N:     a.N,
	}
}

// ForecastRows lines a forecast up with the actual values, which may be
// nil or shorter than the horizon.
func ForecastRows(fc *sarima.Forecast, actual *timeseries.Series) []ForecastRow {
	rows := make([]ForecastRow, fc.Horizon())
	for i := range rows {
		row := ForecastRow{Step: i + 1, Mean: Float(fc.Mean[i]), Actual: Float(nan)}
		if fc.Timestamps != nil {
			row.Month = fc.Timestamps[i].Format("2006-01")
		}
		if actual != nil && i < actual.Len() {
			row.Actual = Float(actual.Values[i])
		}
		for _, l := range fc.Levels {
			row.Intervals = append(row.Intervals, Interval{
				Level: Float(l),
				Lower: Float(fc.Lower[l][i]),
				Upper: Float(fc.Upper[l][i]),
			})
		}
		rows[i] = row
	}
	return rows
}

// Stationarity summarises the unit-root tests of s.
func Stationarity(name string, s *timeseries.Series, period, maxD int) StationarityRow {
	row := StationarityRow{
		Series:           name,
		N:                s.Len(),
		ADFStatistic:     Float(nan),
		ADFPValue:        Float(nan),
		KPSSStatistic:    Float(nan),
		KPSSPValue:       Float(nan),
		NDiffs:           stats.NDiffs(s, maxD, "kpss"),
		SeasonalStrength: Float(nan),
	}
	if adf := stats.ADF(s, 0); adf != nil {
		row.ADFStatistic, row.ADFPValue = Float(adf.Statistic), Float(adf.PValue)
	}
	if kpss := stats.KPSS(s, "c", 0); kpss != nil {
		row.KPSSStatistic, row.KPSSPValue = Float(kpss.Statistic), Float(kpss.PValue)
	}
	if period >= 2 {
		row.NSDiffs = stats.NSDiffs(s, period, 1)
		row.SeasonalStrength = Float(stats.SeasonalStrength(s, period))
	}
	return row
}

// Correlogram records the significant ACF and PACF lags of s.
func Correlogram(name string, s *timeseries.Series, maxLag int) CorrelogramRow {
	row := CorrelogramRow{Series: name, MaxLag: maxLag, Bound: Float(nan)}
	acf := stats.ACFWithConfidence(s, maxLag)
	pacf := stats.PACFWithConfidence(s, maxLag)
	if acf != nil {
		row.Bound = Float(acf.ConfBounds)
		row.ACFSignificant = stats.SignificantLags(acf.Values, acf.ConfBounds)
	}
	if pacf != nil {
		row.PACFSignificant = stats.SignificantLags(pacf.Values, pacf.ConfBounds)
	}
	return row
}
