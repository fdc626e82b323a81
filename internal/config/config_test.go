package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, "", Used(""))
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  path: prices.csv
  from: "1997-01"
search:
  method: stepwise
  max_p: 3
candidates:
  orders: ["(0,1,1)(0,1,1)[12]"]
forecast:
  levels: [0.9]
`), 0o644))
	t.Setenv("HENRYHUB_SEARCH_CRITERION", "bic")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prices.csv", c.Input.Path)
	assert.Equal(t, "1997-01", c.Input.From)
	assert.Equal(t, "stepwise", c.Search.Method)
	assert.Equal(t, 3, c.Search.MaxP)
	assert.Equal(t, 2, c.Search.MaxQ, "unset keys keep their defaults")
	assert.Equal(t, "bic", c.Search.Criterion)
	assert.Equal(t, []string{"(0,1,1)(0,1,1)[12]"}, c.Candidates.Orders)
	assert.Equal(t, []float64{0.9}, c.Forecast.Levels)
	assert.True(t, c.Transform.Log)
	require.NoError(t, c.Validate())
}

func TestLoadDiscoversHomeFile(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".henryhub.yaml"), []byte("split:\n  test_months: 36\n"), 0o644))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 36, c.Split.TestMonths)
	assert.Equal(t, filepath.Join(home, ".henryhub.yaml"), Used(""))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	want := Default()
	want.Search.Criterion = "aicc"

	require.NoError(t, Save(want, path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Analysis)
		key    string
	}{
		{"missing input", func(c *Analysis) { c.Input.Path = "" }, "input.path"},
		{"bad month", func(c *Analysis) { c.Split.TrainEnd = "2019/12" }, "split.train_end"},
		{"no test window", func(c *Analysis) { c.Split.TestMonths = 0 }, "split.test_months"},
		{"method", func(c *Analysis) { c.Search.Method = "random" }, "search.method"},
		{"criterion", func(c *Analysis) { c.Search.Criterion = "hqic" }, "search.criterion"},
		{"rank group", func(c *Analysis) { c.Search.RankGroup = "seasonal" }, "search.rank_group"},
		{"negative range", func(c *Analysis) { c.Search.MaxQ = -1 }, "search.max_q"},
		{"d range", func(c *Analysis) { c.Search.MinD = 2 }, "search.min_d"},
		{"period", func(c *Analysis) { c.Search.Period = 1 }, "search.period"},
		{"level", func(c *Analysis) { c.Forecast.Levels = []float64{120} }, "forecast.levels"},
		{"alpha", func(c *Analysis) { c.Diagnostics.Alpha = 0 }, "diagnostics.alpha"},
		{"format", func(c *Analysis) { c.Output.Formats = []string{"parquet"} }, "output.formats"},
		{"chart format", func(c *Analysis) { c.Output.ChartFormat = "gif" }, "output.chart_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}

	c := Default()
	c.Split.TrainEnd = "2019-12"
	c.Split.TestMonths = 0
	assert.NoError(t, c.Validate())

	for _, g := range []string{"all", "1,1", "0, 1"} {
		c := Default()
		c.Search.RankGroup = g
		assert.NoError(t, c.Validate(), g)
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2008-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2008, 7, 1, 0, 0, 0, 0, time.UTC), m)

	m, err = ParseMonth("")
	require.NoError(t, err)
	assert.True(t, m.IsZero())

	_, err = ParseMonth("July 2008")
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Default()))
	assert.Contains(t, buf.String(), "search:\n  method: grid\n")
	assert.Contains(t, buf.String(), "- ARIMA(0,1,1)(0,1,1)[12]")
}

func TestExampleConfig(t *testing.T) {
	path, err := filepath.Abs("../../configs/henryhub.yaml")
	require.NoError(t, err)
	isolate(t)

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"json", "csv", "xlsx"}, c.Output.Formats)
	assert.Equal(t, Default().Candidates, c.Candidates)
}
