// Package config loads the analysis configuration from a YAML file, the
// environment and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes environment overrides, e.g. HENRYHUB_SEARCH_CRITERION.
const EnvPrefix = "HENRYHUB"

// MonthLayout is the layout of month-valued settings.
const MonthLayout = "2006-01"

// Values of search.rank_group besides an explicit "d,D".
const (
	RankAuto = "auto"
	RankAll  = "all"
)

// Analysis is the full configuration of one analysis run.
type Analysis struct {
	Input       Input       `mapstructure:"input" yaml:"input"`
	Transform   Transform   `mapstructure:"transform" yaml:"transform"`
	Split       Split       `mapstructure:"split" yaml:"split"`
	Search      Search      `mapstructure:"search" yaml:"search"`
	Candidates  Candidates  `mapstructure:"candidates" yaml:"candidates"`
	Forecast    Forecast    `mapstructure:"forecast" yaml:"forecast"`
	Diagnostics Diagnostics `mapstructure:"diagnostics" yaml:"diagnostics"`
	Output      Output      `mapstructure:"output" yaml:"output"`
}

// Input locates the price series.
type Input struct {
	Path        string `mapstructure:"path" yaml:"path"`
	DateColumn  string `mapstructure:"date_column" yaml:"date_column"`
	ValueColumn string `mapstructure:"value_column" yaml:"value_column"`
	From        string `mapstructure:"from" yaml:"from"` // first month kept, YYYY-MM
	To          string `mapstructure:"to" yaml:"to"`     // last month kept, YYYY-MM
}

// Transform selects the modelling scale.
type Transform struct {
	Log        bool `mapstructure:"log" yaml:"log"`
	BiasAdjust bool `mapstructure:"bias_adjust" yaml:"bias_adjust"`
}

// Split defines the held-out test window: everything after TrainEnd, or
// the last TestMonths observations when TrainEnd is empty.
type Split struct {
	TrainEnd   string `mapstructure:"train_end" yaml:"train_end"`
	TestMonths int    `mapstructure:"test_months" yaml:"test_months"`
}

// Search holds the six order ranges and the ranking criterion.
type Search struct {
	Method    string `mapstructure:"method" yaml:"method"` // grid or stepwise
	Period    int    `mapstructure:"period" yaml:"period"`
	MaxP      int    `mapstructure:"max_p" yaml:"max_p"`
	MinD      int    `mapstructure:"min_d" yaml:"min_d"`
	MaxD      int    `mapstructure:"max_d" yaml:"max_d"`
	MaxQ      int    `mapstructure:"max_q" yaml:"max_q"`
	MaxSP     int    `mapstructure:"max_sp" yaml:"max_sp"`
	MinSD     int    `mapstructure:"min_sd" yaml:"min_sd"`
	MaxSD     int    `mapstructure:"max_sd" yaml:"max_sd"`
	MaxSQ     int    `mapstructure:"max_sq" yaml:"max_sq"`
	MaxOrder  int    `mapstructure:"max_order" yaml:"max_order"`
	MaxModels int    `mapstructure:"max_models" yaml:"max_models"`
	Criterion string `mapstructure:"criterion" yaml:"criterion"`
	// RankGroup picks the differencing group the candidates and the
	// forecast model come from: auto (the most differenced group), all
	// (one ranking across groups) or "d,D".
	RankGroup string `mapstructure:"rank_group" yaml:"rank_group"`
	Workers   int    `mapstructure:"workers" yaml:"workers"`
	MaxIter   int    `mapstructure:"max_iter" yaml:"max_iter"`
}

// Candidates picks the handful of models compared in detail.
type Candidates struct {
	Top    int      `mapstructure:"top" yaml:"top"`
	Orders []string `mapstructure:"orders" yaml:"orders"`
}

// Forecast configures the out-of-sample horizon beyond the data.
type Forecast struct {
	Horizon int       `mapstructure:"horizon" yaml:"horizon"`
	Levels  []float64 `mapstructure:"levels" yaml:"levels"`
}

// Diagnostics configures correlograms and residual tests.
type Diagnostics struct {
	MaxLag int     `mapstructure:"max_lag" yaml:"max_lag"`
	Alpha  float64 `mapstructure:"alpha" yaml:"alpha"`
}

// Output selects report formats and chart rendering.
type Output struct {
	Dir         string   `mapstructure:"dir" yaml:"dir"`
	Formats     []string `mapstructure:"formats" yaml:"formats"`
	Charts      bool     `mapstructure:"charts" yaml:"charts"`
	ChartFormat string   `mapstructure:"chart_format" yaml:"chart_format"`
	MetricsFile string   `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// Default returns the settings of the original Henry Hub study.
func Default() *Analysis {
	return &Analysis{
		Input:     Input{Path: "data/henry_hub_monthly.csv"},
		Transform: Transform{Log: true},
		Split:     Split{TestMonths: 24},
		Search: Search{
			Method:    "grid",
			Period:    12,
			MaxP:      2,
			MaxD:      1,
			MaxQ:      2,
			MaxSP:     1,
			MaxSD:     1,
			MaxSQ:     1,
			MaxModels: 94,
			Criterion: "aic",
			RankGroup: RankAuto,
			MaxIter:   2000,
		},
		Candidates: Candidates{
			Top: 3,
			Orders: []string{
				"ARIMA(0,1,1)(0,1,1)[12]",
				"ARIMA(1,1,1)(0,1,1)[12]",
				"ARIMA(2,1,0)(0,1,1)[12]",
			},
		},
		Forecast:    Forecast{Horizon: 12, Levels: []float64{80, 95}},
		Diagnostics: Diagnostics{MaxLag: 36, Alpha: 0.05},
		Output: Output{
			Dir:         "out",
			Formats:     []string{"json", "csv"},
			Charts:      true,
			ChartFormat: "png",
		},
	}
}

// Load reads configuration with precedence env > config file > defaults.
// An empty cfgFile looks for ./henryhub.yaml, then ~/.henryhub.yaml; a
// missing file is not an error.
func Load(cfgFile string) (*Analysis, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	if cfgFile == "" {
		cfgFile = discover()
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var c Analysis
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Used returns the file Load would read for cfgFile, or "" for none.
func Used(cfgFile string) string {
	if cfgFile != "" {
		return cfgFile
	}
	return discover()
}

func discover() string {
	candidates := []string{"henryhub.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".henryhub.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// setDefaults registers every key of def with viper so that environment
// variables are honoured for keys absent from the file.
func setDefaults(v *viper.Viper, def *Analysis) error {
	b, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := prefix + k
			if child, ok := val.(map[string]any); ok {
				walk(key+".", child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

// Save writes the configuration as YAML.
func Save(c *Analysis, path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Write encodes the configuration as YAML.
func Write(w io.Writer, c *Analysis) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return enc.Close()
}

// Validate checks ranges and formats, naming the offending key.
func (c *Analysis) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, key, fmt.Sprintf(format, args...))
	}

	if c.Input.Path == "" {
		return invalid("input.path", "required")
	}
	for key, month := range map[string]string{"input.from": c.Input.From, "input.to": c.Input.To, "split.train_end": c.Split.TrainEnd} {
		if _, err := ParseMonth(month); err != nil {
			return invalid(key, "%v", err)
		}
	}
	if c.Split.TrainEnd == "" && c.Split.TestMonths < 1 {
		return invalid("split.test_months", "must be positive when split.train_end is unset")
	}

	s := c.Search
	switch s.Method {
	case "grid", "stepwise":
	default:
		return invalid("search.method", "unknown method %q (want grid or stepwise)", s.Method)
	}
	switch strings.ToLower(s.Criterion) {
	case "aic", "aicc", "bic":
	default:
		return invalid("search.criterion", "unknown criterion %q (want aic, aicc or bic)", s.Criterion)
	}
	if err := validRankGroup(s.RankGroup); err != nil {
		return invalid("search.rank_group", "%v", err)
	}
	ranges := map[string]int{
		"search.max_p": s.MaxP, "search.min_d": s.MinD, "search.max_d": s.MaxD, "search.max_q": s.MaxQ,
		"search.max_sp": s.MaxSP, "search.min_sd": s.MinSD, "search.max_sd": s.MaxSD, "search.max_sq": s.MaxSQ,
		"search.max_order": s.MaxOrder, "search.workers": s.Workers,
	}
	for key, val := range ranges {
		if val < 0 {
			return invalid(key, "must not be negative, got %d", val)
		}
	}
	if s.MinD > s.MaxD {
		return invalid("search.min_d", "exceeds search.max_d")
	}
	if s.MinSD > s.MaxSD {
		return invalid("search.min_sd", "exceeds search.max_sd")
	}
	if s.Period == 1 || s.Period < 0 {
		return invalid("search.period", "must be 0 (non-seasonal) or at least 2, got %d", s.Period)
	}

	if c.Candidates.Top < 0 {
		return invalid("candidates.top", "must not be negative")
	}
	if c.Forecast.Horizon < 0 {
		return invalid("forecast.horizon", "must not be negative")
	}
	for _, l := range c.Forecast.Levels {
		if l <= 0 || l >= 100 || (l >= 1 && l < 50) {
			return invalid("forecast.levels", "level %g out of range", l)
		}
	}
	if c.Diagnostics.Alpha <= 0 || c.Diagnostics.Alpha >= 1 {
		return invalid("diagnostics.alpha", "must be in (0, 1)")
	}

	for _, f := range c.Output.Formats {
		switch f {
		case "json", "yaml", "csv", "xlsx":
		default:
			return invalid("output.formats", "unknown format %q", f)
		}
	}
	switch c.Output.ChartFormat {
	case "png", "svg":
	default:
		return invalid("output.chart_format", "unknown format %q (want png or svg)", c.Output.ChartFormat)
	}
	return nil
}

func validRankGroup(g string) error {
	switch g {
	case "", RankAuto, RankAll:
		return nil
	}
	ds, sds, ok := strings.Cut(g, ",")
	d, err1 := strconv.Atoi(strings.TrimSpace(ds))
	sd, err2 := strconv.Atoi(strings.TrimSpace(sds))
	if !ok || err1 != nil || err2 != nil || d < 0 || sd < 0 {
		return fmt.Errorf("%q is not auto, all or d,D", g)
	}
	return nil
}

// ParseMonth parses a YYYY-MM setting; an empty string is the zero time.
func ParseMonth(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("month %q must look like 2006-01", s)
	}
	return t, nil
}
