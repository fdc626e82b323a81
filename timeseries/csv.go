package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoData is returned when a file holds no parseable observations.
var ErrNoData = errors.New("no valid data found in CSV")

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn  string   // Column name for dates (default: first column named like a date)
	ValueColumn string   // Column name for values (default: last column)
	DateFormats []string // Layouts tried in order
	SkipRows    int      // Free-text rows before the header; -1 detects the header row
	Strict      bool     // Fail on missing or unparseable values instead of skipping them
	Delimiter   rune     // Field delimiter (default: ',')
}

// DefaultDateFormats lists the month layouts found in EIA and FRED downloads.
var DefaultDateFormats = []string{
	"Jan 2006",
	"January 2006",
	"2006-01",
	"2006-01-02",
	"01/2006",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	"Jan-2006",
	"Jan-06",
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateFormats: DefaultDateFormats,
		SkipRows:    -1,
		Strict:      true,
		Delimiter:   ',',
	}
}

// LoadCSV loads a monthly series from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	series, err := LoadCSVFromReader(file, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return series, nil
}

// LoadCSVFromReader loads a monthly series from r. Rows are sorted by date,
// since EIA publishes newest first.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	formats := opts.DateFormats
	if len(formats) == 0 {
		formats = DefaultDateFormats
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	if reader.Comma == 0 {
		reader.Comma = ','
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	headerRow := opts.SkipRows
	if headerRow < 0 {
		headerRow = detectHeader(records)
	}
	if headerRow >= len(records) {
		return nil, ErrNoData
	}

	header := records[headerRow]
	dateIdx, valueIdx := findColumns(header, opts)
	if dateIdx < 0 {
		return nil, errors.New("no date column found in header")
	}
	if valueIdx < 0 || valueIdx == dateIdx {
		return nil, errors.New("no value column found in header")
	}

	type obs struct {
		t time.Time
		v float64
	}
	var rows []obs

	for i := headerRow + 1; i < len(records); i++ {
		record := records[i]
		line := i + 1
		if isBlank(record) {
			continue
		}
		if dateIdx >= len(record) || valueIdx >= len(record) {
			if opts.Strict {
				return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, max(dateIdx, valueIdx)+1, len(record))
			}
			continue
		}

		dateStr := clean(record[dateIdx])
		ts, err := parseMonth(dateStr, formats)
		if err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			continue
		}

		valStr := clean(record[valueIdx])
		if valStr == "" || valStr == "NA" || valStr == "NaN" || valStr == "." || valStr == "null" {
			if opts.Strict {
				return nil, fmt.Errorf("line %d (%s): missing value", line, ts.Format("2006-01"))
			}
			continue
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("line %d (%s): parse value %q: %w", line, ts.Format("2006-01"), valStr, err)
			}
			continue
		}
		rows = append(rows, obs{t: ts, v: val})
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })

	series := &Series{
		Timestamps: make([]time.Time, len(rows)),
		Values:     make([]float64, len(rows)),
		Name:       clean(header[valueIdx]),
	}
	for i, o := range rows {
		series.Timestamps[i] = o.t
		series.Values[i] = o.v
	}
	return series, nil
}

// LoadMonthly loads a file and verifies it is a regular monthly series.
func LoadMonthly(filename string, opts *CSVOptions) (*Series, error) {
	series, err := LoadCSV(filename, opts)
	if err != nil {
		return nil, err
	}
	if err := CheckMonthly(series); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return series, nil
}

// CheckMonthly verifies one observation per calendar month with no gaps
// and no duplicates.
func CheckMonthly(s *Series) error {
	if !s.Indexed() {
		return errors.New("series has no monthly index")
	}
	for i := 1; i < len(s.Timestamps); i++ {
		prev, cur := s.Timestamps[i-1], s.Timestamps[i]
		want := prev.AddDate(0, 1, 0)
		switch {
		case cur.Equal(prev):
			return fmt.Errorf("duplicate observation for %s", cur.Format("2006-01"))
		case cur.Before(want):
			return fmt.Errorf("irregular interval between %s and %s", prev.Format("2006-01"), cur.Format("2006-01"))
		case cur.After(want):
			return fmt.Errorf("missing observation for %s", want.Format("2006-01"))
		}
	}
	return nil
}

// SaveCSV writes the series as a two-column CSV (month, value).
func SaveCSV(series *Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, series); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return file.Close()
}

// WriteCSV writes the series to w.
func WriteCSV(w io.Writer, series *Series) error {
	writer := csv.NewWriter(w)

	name := series.Name
	if name == "" {
		name = "value"
	}
	if err := writer.Write([]string{"month", name}); err != nil {
		return err
	}

	for i, v := range series.Values {
		idx := strconv.Itoa(i + 1)
		if series.Indexed() {
			idx = series.Timestamps[i].Format("2006-01")
		}
		if err := writer.Write([]string{idx, strconv.FormatFloat(v, 'f', -1, 64)}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// detectHeader returns the first row whose first cell does not parse as a
// month and whose following row does, skipping EIA's free-text preamble.
func detectHeader(records [][]string) int {
	for i := 0; i+1 < len(records); i++ {
		if len(records[i]) < 2 || len(records[i+1]) < 2 {
			continue
		}
		if _, err := parseMonth(clean(records[i][0]), DefaultDateFormats); err == nil {
			continue
		}
		if _, err := parseMonth(clean(records[i+1][0]), DefaultDateFormats); err == nil {
			return i
		}
	}
	return 0
}

func findColumns(header []string, opts *CSVOptions) (dateIdx, valueIdx int) {
	dateIdx, valueIdx = -1, -1
	for i, h := range header {
		h = clean(h)
		switch {
		case opts.DateColumn != "" && h == opts.DateColumn:
			dateIdx = i
		case opts.ValueColumn != "" && h == opts.ValueColumn:
			valueIdx = i
		case opts.DateColumn == "" && dateIdx == -1 && isDateName(h):
			dateIdx = i
		}
	}
	if opts.DateColumn == "" && dateIdx == -1 && len(header) > 0 {
		dateIdx = 0
	}
	if opts.ValueColumn == "" && len(header) > 0 {
		valueIdx = len(header) - 1
	}
	return dateIdx, valueIdx
}

func isDateName(h string) bool {
	switch strings.ToLower(h) {
	case "month", "date", "ds", "period", "observation_date":
		return true
	}
	return false
}

func parseMonth(s string, formats []string) (time.Time, error) {
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthStart(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised month %q", s)
}

func clean(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"\ufeff"))
}

func isBlank(record []string) bool {
	for _, f := range record {
		if clean(f) != "" {
			return false
		}
	}
	return true
}
