package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Save.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteYAML writes r as YAML.
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

var gridHeader = []string{"rank", "order", "p", "d", "q", "P", "D", "Q", "m", "aic", "aicc", "bic", "loglik", "sigma2"}

func gridRecord(g GridRow) []string {
	return []string{
		strconv.Itoa(g.Rank), g.Order,
		strconv.Itoa(g.P), strconv.Itoa(g.D), strconv.Itoa(g.Q),
		strconv.Itoa(g.SP), strconv.Itoa(g.SD), strconv.Itoa(g.SQ), strconv.Itoa(g.M),
		fmtFloat(g.AIC), fmtFloat(g.AICc), fmtFloat(g.BIC), fmtFloat(g.LogLik), fmtFloat(g.Variance),
	}
}

// WriteGridCSV writes the ranked grid.
func WriteGridCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(gridHeader); err != nil {
		return err
	}
	for _, g := range r.Grid {
		if err := cw.Write(gridRecord(g)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func forecastHeader(rows []ForecastRow) []string {
	h := []string{"step", "month", "mean", "actual"}
	if len(rows) > 0 {
		for _, iv := range rows[0].Intervals {
			pct := strconv.FormatFloat(float64(iv.Level)*100, 'f', -1, 64)
			h = append(h, "lo_"+pct, "hi_"+pct)
		}
	}
	return h
}

func forecastRecord(model string, f ForecastRow) []string {
	rec := []string{model, strconv.Itoa(f.Step), f.Month, fmtFloat(f.Mean), fmtFloat(f.Actual)}
	for _, iv := range f.Intervals {
		rec = append(rec, fmtFloat(iv.Lower), fmtFloat(iv.Upper))
	}
	return rec
}

// WriteForecastCSV writes the test-window forecasts of every candidate
// followed by the future forecast, one row per model and step.
func WriteForecastCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	sets := r.forecastSets()
	header := forecastHeader(nil)
	for _, set := range sets {
		if len(set.rows) > 0 {
			header = forecastHeader(set.rows)
			break
		}
	}
	if err := cw.Write(append([]string{"model"}, header...)); err != nil {
		return err
	}
	for _, set := range sets {
		for _, f := range set.rows {
			if err := cw.Write(forecastRecord(set.label, f)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type forecastSet struct {
	label string
	rows  []ForecastRow
}

func (r *Report) forecastSets() []forecastSet {
	var sets []forecastSet
	for _, c := range r.Candidates {
		sets = append(sets, forecastSet{label: c.Order + " test", rows: c.Forecast})
	}
	if len(r.Forecast) > 0 {
		sets = append(sets, forecastSet{label: r.ForecastModel + " future", rows: r.Forecast})
	}
	return sets
}

func fmtFloat(f Float) string {
	if !f.Valid() {
		return ""
	}
	return strconv.FormatFloat(float64(f), 'g', 10, 64)
}

// cell maps invalid floats to an empty cell.
func cell(f Float) interface{} {
	if !f.Valid() {
		return nil
	}
	return float64(f)
}

// WriteXLSX writes the workbook with sheets grid, candidates, accuracy and
// forecasts.
func WriteXLSX(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	writeSheet := func(name string, header []string, rows [][]interface{}) error {
		hrow := make([]interface{}, len(header))
		for i, h := range header {
			hrow[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &hrow); err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
			return err
		}
		for i, row := range rows {
			addr, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, addr, &row); err != nil {
				return err
			}
		}
		return f.SetColWidth(name, "A", "B", 28)
	}

	if err := f.SetSheetName("Sheet1", "grid"); err != nil {
		return err
	}
	for _, name := range []string{"candidates", "accuracy", "forecasts"} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	var grid [][]interface{}
	for _, g := range r.Grid {
		grid = append(grid, []interface{}{g.Rank, g.Order, g.P, g.D, g.Q, g.SP, g.SD, g.SQ, g.M,
			cell(g.AIC), cell(g.AICc), cell(g.BIC), cell(g.LogLik), cell(g.Variance)})
	}
	if err := writeSheet("grid", gridHeader, grid); err != nil {
		return err
	}

	var cands, acc [][]interface{}
	for _, c := range r.Candidates {
		lbP, jbP := Float(nan), Float(nan)
		if c.LjungBox != nil {
			lbP = c.LjungBox.PValue
		}
		if c.JarqueBera != nil {
			jbP = c.JarqueBera.PValue
		}
		cands = append(cands, []interface{}{c.Order, c.Source, cell(c.AIC), cell(c.AICc), cell(c.BIC),
			cell(c.LogLik), cell(c.Variance), c.NUsed, cell(lbP), cell(jbP), cell(c.DurbinWatson),
			cell(c.MaxARRoot), cell(c.MaxMARoot), coefficientText(c.Coefficients), c.Error})
		if a := c.Accuracy; a != nil {
			acc = append(acc, []interface{}{c.Order, cell(a.ME), cell(a.RMSE), cell(a.MAE), cell(a.MPE),
				cell(a.MAPE), cell(a.MASE), cell(a.RMSSE), cell(a.ACF1), a.N})
		}
	}
	if err := writeSheet("candidates", []string{"order", "source", "aic", "aicc", "bic", "loglik", "sigma2",
		"n_used", "ljung_box_p", "jarque_bera_p", "durbin_watson", "max_ar_root", "max_ma_root",
		"coefficients", "error"}, cands); err != nil {
		return err
	}
	if err := writeSheet("accuracy", []string{"order", "me", "rmse", "mae", "mpe", "mape", "mase",
		"rmsse", "acf1", "n"}, acc); err != nil {
		return err
	}

	var fc [][]interface{}
	header := []string{"model"}
	for _, set := range r.forecastSets() {
		if len(header) == 1 && len(set.rows) > 0 {
			header = append(header, forecastHeader(set.rows)...)
		}
		for _, row := range set.rows {
			rec := []interface{}{set.label, row.Step, row.Month, cell(row.Mean), cell(row.Actual)}
			for _, iv := range row.Intervals {
				rec = append(rec, cell(iv.Lower), cell(iv.Upper))
			}
			fc = append(fc, rec)
		}
	}
	if len(header) == 1 {
		header = append(header, forecastHeader(nil)...)
	}
	if err := writeSheet("forecasts", header, fc); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func coefficientText(cs []CoefficientRow) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%s=%.4f", c.Name, float64(c.Value))
	}
	return strings.Join(parts, " ")
}

// Save writes the report in each format under dir and returns the paths.
// csv produces grid.csv and forecasts.csv.
func Save(dir string, r *Report, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	writeFile := func(name string, fn func(io.Writer, *Report) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f, r); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	for _, format := range formats {
		var err error
		switch strings.ToLower(format) {
		case FormatJSON:
			err = writeFile("report.json", WriteJSON)
		case FormatYAML, "yml":
			err = writeFile("report.yaml", WriteYAML)
		case FormatCSV:
			if err = writeFile("grid.csv", WriteGridCSV); err == nil {
				err = writeFile("forecasts.csv", WriteForecastCSV)
			}
		case FormatXLSX:
			path := filepath.Join(dir, "report.xlsx")
			if err = WriteXLSX(path, r); err == nil {
				written = append(written, path)
			}
		default:
			err = fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
