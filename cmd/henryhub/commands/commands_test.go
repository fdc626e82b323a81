package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI in an empty working directory and home so that no
// stray henryhub.yaml is picked up.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("HOME", t.TempDir())
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func fixture(t *testing.T) string {
	t.Helper()
	path, err := filepath.Abs("testdata/henry_hub_monthly.csv")
	require.NoError(t, err)
	return path
}

func TestParseTriple(t *testing.T) {
	v, err := parseTriple("2, 1,0")
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 1, 0}, v)

	for _, bad := range []string{"1,1", "a,b,c", "1,-1,0", ""} {
		_, err := parseTriple(bad)
		assert.Error(t, err, bad)
	}
}

func TestFitOrder(t *testing.T) {
	o, err := (&fitOptions{order: "0,1,1", seasonal: "0,0,0", period: 12}).parse()
	require.NoError(t, err)
	assert.Equal(t, "ARIMA(0,1,1)", o.String())
	assert.Zero(t, o.M)

	o, err = (&fitOptions{model: "ARIMA(1,1,0)(0,1,1)[12]"}).parse()
	require.NoError(t, err)
	assert.Equal(t, 12, o.M)

	_, err = (&fitOptions{order: "0,1,1", seasonal: "0,1,1", period: 1}).parse()
	assert.Error(t, err)
}

func TestFitCommand(t *testing.T) {
	out, err := execute(t, "fit", "--input", fixture(t),
		"--order", "1,1,0", "--seasonal", "1,0,0", "--period", "12", "--horizon", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "ar1")
	assert.Contains(t, out, "sar1")
	assert.Contains(t, out, "Ljung-Box")
	assert.Contains(t, out, "ARIMA(1,1,0)(1,0,0)[12] test window")
	assert.Contains(t, out, "2010-01")
	assert.Contains(t, out, "2012-03")
}

func TestSearchCommand(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "search.prom")
	out, err := execute(t, "search", "--input", fixture(t),
		"--max-p", "1", "--max-q", "1", "--max-sp", "0", "--max-sq", "1",
		"--criterion", "bic", "--rows", "3", "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Search (grid, BIC)")
	assert.Contains(t, out, "32 evaluated")
	assert.Contains(t, out, "rank")
	assert.FileExists(t, metricsFile)
}

func TestStationarityCommand(t *testing.T) {
	out, err := execute(t, "stationarity", "--input", fixture(t), "--max-lag", "24")
	require.NoError(t, err)
	assert.Contains(t, out, "Stationarity")
	assert.Contains(t, out, "log seasonal+first diff")
	assert.Contains(t, out, "Significant autocorrelations")
}

func TestTransformCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "transform", "--input", fixture(t), "--out", dir)
	require.NoError(t, err)
	for _, name := range []string{"price", "model", "diff", "seasonal_diff", "seasonal_first_diff"} {
		assert.FileExists(t, filepath.Join(dir, name+".csv"))
		assert.Contains(t, out, name)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "analyze", "--input", fixture(t), "--out", dir,
		"--max-p", "1", "--max-q", "1", "--max-sp", "0", "--max-sq", "1",
		"--top", "1", "--horizon", "3", "--format", "json", "--no-charts")
	require.NoError(t, err)
	assert.Contains(t, out, "== Candidates ==")
	assert.Contains(t, out, "Test-window accuracy")
	assert.FileExists(t, filepath.Join(dir, "report.json"))
	assert.NoDirExists(t, filepath.Join(dir, "charts"))
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "henryhub.yaml")
	out, err := execute(t, "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	t.Setenv("HENRYHUB_SEARCH_CRITERION", "aicc")
	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "criterion: aicc")
	assert.Contains(t, out, "test_months: 24")
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "fit", "--input", fixture(t), "--order", "1,1")
	assert.ErrorContains(t, err, "three comma-separated integers")

	_, err = execute(t, "--log-format", "xml", "search")
	assert.ErrorContains(t, err, "unknown log format")

	_, err = execute(t, "search", "--input", "missing.csv")
	assert.Error(t, err)

	_, err = execute(t, "search", "--criterion", "hqic")
	assert.ErrorContains(t, err, "search.criterion")
}
