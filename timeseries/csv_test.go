package timeseries

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eiaSample = `Henry Hub Natural Gas Spot Price
https://www.eia.gov/dnav/ng/hist/rngwhhdm.htm
Source: U.S. Energy Information Administration
Month,Henry Hub Natural Gas Spot Price Dollars per Million Btu
Apr 2020,1.74
Mar 2020,1.79
Feb 2020,1.91
Jan 2020,2.02
`

func TestLoadCSVFromReaderEIA(t *testing.T) {
	series, err := LoadCSVFromReader(strings.NewReader(eiaSample), nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{2.02, 1.91, 1.79, 1.74}, series.Values)
	assert.Equal(t, month(2020, time.January), series.Start())
	assert.Equal(t, month(2020, time.April), series.End())
	assert.Equal(t, "Henry Hub Natural Gas Spot Price Dollars per Million Btu", series.Name)
	assert.NoError(t, CheckMonthly(series))
}

func TestLoadCSVFromReaderNamedColumns(t *testing.T) {
	data := `region,date,price,volume
US,2020-01-01,2.02,10
US,2020-02-01,1.91,11
`
	opts := DefaultCSVOptions()
	opts.ValueColumn = "price"

	series, err := LoadCSVFromReader(strings.NewReader(data), opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.02, 1.91}, series.Values)
	assert.Equal(t, "price", series.Name)
}

func TestLoadCSVStrictMissingValue(t *testing.T) {
	data := "Month,Price\nJan 2020,2.02\nFeb 2020,NA\n"

	_, err := LoadCSVFromReader(strings.NewReader(data), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2020-02")

	opts := DefaultCSVOptions()
	opts.Strict = false
	series, err := LoadCSVFromReader(strings.NewReader(data), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
}

func TestLoadCSVNoData(t *testing.T) {
	_, err := LoadCSVFromReader(strings.NewReader("Month,Price\n"), nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCheckMonthly(t *testing.T) {
	tests := []struct {
		name    string
		months  []time.Time
		wantErr string
	}{
		{"regular", []time.Time{month(2020, 1), month(2020, 2), month(2020, 3)}, ""},
		{"gap", []time.Time{month(2020, 1), month(2020, 3)}, "missing observation for 2020-02"},
		{"duplicate", []time.Time{month(2020, 1), month(2020, 1)}, "duplicate observation for 2020-01"},
		{"year boundary", []time.Time{month(2019, 12), month(2020, 1)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewWithTimestamps(tt.months, make([]float64, len(tt.months)))
			require.NoError(t, err)

			err = CheckMonthly(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMonthlyFixture(t *testing.T) {
	series, err := LoadMonthly(filepath.Join("testdata", "henry_hub_monthly.csv"), nil)
	require.NoError(t, err)

	assert.Equal(t, 180, series.Len())
	assert.Equal(t, month(1997, time.January), series.Start())
	assert.Equal(t, month(2011, time.December), series.End())
	assert.Greater(t, series.Min(), 0.0)
}

func TestSaveCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s := NewMonthly(month(2021, time.June), []float64{3.1, 3.25})
	s.Name = "price"

	require.NoError(t, SaveCSV(s, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "month,price\n2021-06,3.1\n2021-07,3.25\n", string(raw))

	loaded, err := LoadMonthly(path, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Values, loaded.Values)
	assert.Equal(t, s.Timestamps, loaded.Timestamps)
}
