package autoarima

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/timeseries"
)

// Criterion selects the information criterion used for ranking.
type Criterion string

// Supported criteria.
const (
	AIC  Criterion = "aic"
	AICc Criterion = "aicc"
	BIC  Criterion = "bic"
)

// ParseCriterion accepts aic, aicc or bic in any case.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(strings.ToLower(strings.TrimSpace(s))); c {
	case AIC, AICc, BIC:
		return c, nil
	case "":
		return AIC, nil
	default:
		return "", fmt.Errorf("unknown criterion %q (want aic, aicc or bic)", s)
	}
}

// Of returns the criterion value of a fitted model.
func (c Criterion) Of(m *sarima.Model) float64 {
	switch c {
	case BIC:
		return m.BIC
	case AICc:
		return m.AICc
	default:
		return m.AIC
	}
}

// Progress is reported after every fitted combination.
type Progress struct {
	Order   sarima.Order
	Done    int
	Total   int // 0 when unknown (stepwise)
	Err     error
	Elapsed time.Duration
}

// Config holds configuration for the order search. The six ranges are
// inclusive; seasonal ranges are ignored when M < 2.
type Config struct {
	MaxP  int // Maximum AR order
	MinD  int // Minimum differencing order
	MaxD  int // Maximum differencing order
	MaxQ  int // Maximum MA order
	MaxSP int // Maximum seasonal AR order
	MinSD int // Minimum seasonal differencing order
	MaxSD int // Maximum seasonal differencing order
	MaxSQ int // Maximum seasonal MA order
	M     int // Seasonal period

	// MaxOrder caps p+q+P+Q; zero means no cap.
	MaxOrder int

	Criterion   Criterion
	StationTest string // "kpss" or "adf", for stepwise differencing
	Stepwise    bool
	// MaxModels bounds the number of stepwise fits.
	MaxModels int
	// Workers bounds concurrent fits; zero uses GOMAXPROCS.
	Workers int

	Model    sarima.Options
	Progress func(Progress)
}

// DefaultConfig returns the ranges swept for monthly Henry Hub prices.
func DefaultConfig() *Config {
	return &Config{
		MaxP:        3,
		MinD:        0,
		MaxD:        1,
		MaxQ:        3,
		MaxSP:       2,
		MinSD:       0,
		MaxSD:       1,
		MaxSQ:       2,
		M:           12,
		Criterion:   AIC,
		StationTest: "kpss",
		MaxModels:   94,
		Model:       sarima.DefaultOptions(),
	}
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c *Config) criterion() Criterion {
	crit, err := ParseCriterion(string(c.Criterion))
	if err != nil {
		return AIC
	}
	return crit
}

func (c *Config) seasonal() bool {
	return c.M >= 2
}

// admits reports whether o lies inside the configured ranges.
func (c *Config) admits(o sarima.Order) bool {
	if o.P < 0 || o.Q < 0 || o.SP < 0 || o.SQ < 0 {
		return false
	}
	if o.P > c.MaxP || o.Q > c.MaxQ || o.SP > c.MaxSP || o.SQ > c.MaxSQ {
		return false
	}
	if !c.seasonal() && o.SP+o.SQ > 0 {
		return false
	}
	return c.MaxOrder <= 0 || o.NumCoeffs() <= c.MaxOrder
}

// Validate checks the ranges.
func (c *Config) Validate() error {
	for _, v := range []int{c.MaxP, c.MinD, c.MaxD, c.MaxQ, c.MaxSP, c.MinSD, c.MaxSD, c.MaxSQ} {
		if v < 0 {
			return fmt.Errorf("search ranges must be non-negative")
		}
	}
	if c.MinD > c.MaxD {
		return fmt.Errorf("min d %d exceeds max d %d", c.MinD, c.MaxD)
	}
	if c.MinSD > c.MaxSD {
		return fmt.Errorf("min D %d exceeds max D %d", c.MinSD, c.MaxSD)
	}
	if _, err := ParseCriterion(string(c.Criterion)); err != nil {
		return err
	}
	return nil
}

// AutoARIMA runs the stepwise search when cfg.Stepwise is set and the
// exhaustive grid otherwise. A nil config uses DefaultConfig.
func AutoARIMA(ctx context.Context, series *timeseries.Series, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Stepwise {
		return Stepwise(ctx, series, cfg)
	}
	return Grid(ctx, series, cfg)
}
