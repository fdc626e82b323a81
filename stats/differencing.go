package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/henryhub/timeseries"
)

// SeasonalStrengthThreshold is the F_S value at or above which NSDiffs
// suggests a seasonal difference.
const SeasonalStrengthThreshold = 0.64

// NDiffs determines the number of first differences required for stationarity.
// testType is "kpss" (default) or "adf".
func NDiffs(series *timeseries.Series, maxD int, testType string) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := series
	for d := 0; d < maxD; d++ {
		stationary := false
		if testType == "adf" {
			result := ADF(current, 0)
			stationary = result != nil && result.IsStationary
		} else {
			result := KPSS(current, "c", 0)
			stationary = result != nil && result.IsStationary
		}

		if stationary {
			return d
		}

		current = current.Diff()
		if current.Len() < 10 {
			return d
		}
	}

	return maxD
}

// NSDiffs determines the number of seasonal differences required using the
// seasonal strength measure F_S.
func NSDiffs(series *timeseries.Series, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	current := series
	for d := 0; d < maxD; d++ {
		if SeasonalStrength(current, period) < SeasonalStrengthThreshold {
			return d
		}

		current = current.SeasonalDiff(period)
		if current.Len() < 2*period {
			return d + 1
		}
	}

	return maxD
}

// SeasonalStrength calculates F_S = max(0, 1 - Var(R) / Var(S+R)).
func SeasonalStrength(series *timeseries.Series, period int) float64 {
	decomp := Decompose(series, period, "additive")
	if decomp == nil {
		return 0
	}

	var resid, seasonalPlusResid []float64
	for i := range decomp.Seasonal.Values {
		r := decomp.Residual.Values[i]
		if math.IsNaN(r) {
			continue
		}
		resid = append(resid, r)
		seasonalPlusResid = append(seasonalPlusResid, decomp.Seasonal.Values[i]+r)
	}
	if len(resid) < 2 {
		return 0
	}

	varSR := stat.Variance(seasonalPlusResid, nil)
	if varSR == 0 {
		return 0
	}

	return math.Max(0, 1-stat.Variance(resid, nil)/varSR)
}

// InformationCriteria holds AIC, AICc, and BIC for a fitted model.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC calculates all information criteria.
// nParams counts every estimated parameter including the innovation variance.
func CalculateIC(logLik float64, nObs int, nParams int) InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	bic := -2*logLik + k*math.Log(n)

	aicc := math.Inf(1)
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	}

	return InformationCriteria{
		AIC:    aic,
		AICc:   aicc,
		BIC:    bic,
		LogLik: logLik,
	}
}
