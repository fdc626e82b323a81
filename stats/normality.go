package stats

import (
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// JarqueBeraResult holds the Jarque-Bera normality test on residuals.
type JarqueBeraResult struct {
	Statistic float64
	PValue    float64
	Skewness  float64
	Kurtosis  float64 // excess kurtosis
}

// JarqueBera tests the null that values are normally distributed.
// JB = n/6 (S² + K²/4) with K the excess kurtosis, compared to χ²(2).
func JarqueBera(values []float64) *JarqueBeraResult {
	n := len(values)
	if n < 8 {
		return nil
	}
	if stat.Variance(values, nil) == 0 {
		return nil
	}

	skew := stat.Skew(values, nil)
	kurt := stat.ExKurtosis(values, nil)
	jb := float64(n) / 6 * (skew*skew + kurt*kurt/4)

	return &JarqueBeraResult{
		Statistic: jb,
		PValue:    distuv.ChiSquared{K: 2}.Survival(jb),
		Skewness:  skew,
		Kurtosis:  kurt,
	}
}
