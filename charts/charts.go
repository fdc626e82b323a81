// Package charts renders the analysis figures with gonum/plot. Every
// function writes one file whose format follows the path extension
// (png, svg or pdf).
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/stats"
	"github.com/sartorproj/henryhub/timeseries"
)

// Default figure size.
var (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

// ErrNoPoints is returned when nothing finite is left to draw.
var ErrNoPoints = errors.New("no finite points to plot")

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
}

// Format returns the file extension for a configured chart format.
func Format(name string) (string, error) {
	switch f := strings.ToLower(name); f {
	case "png", "svg", "pdf":
		return f, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q", name)
	}
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}

// xOf places observation i of s on the x axis: Unix seconds for an indexed
// series and offset+i otherwise.
func xOf(s *timeseries.Series, i, offset int) float64 {
	if s.Indexed() {
		return float64(s.Timestamps[i].Unix())
	}
	return float64(offset + i)
}

func seriesXYs(s *timeseries.Series, offset int) plotter.XYs {
	var pts plotter.XYs
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: xOf(s, i, offset), Y: v})
	}
	return pts
}

func timeAxis(p *plot.Plot, s *timeseries.Series) {
	if s.Indexed() {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006"}
	}
}

func line(pts plotter.XYs, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	return l, nil
}

func dashed(ls *draw.LineStyle) {
	ls.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
}

// SeriesLine draws one or more series on shared axes.
func SeriesLine(path, title string, series ...*timeseries.Series) error {
	if len(series) == 0 {
		return ErrNoPoints
	}
	p := newPlot(title, "", "")
	timeAxis(p, series[0])
	for i, s := range series {
		pts := seriesXYs(s, 0)
		if len(pts) == 0 {
			return fmt.Errorf("%s: %w", s.Name, ErrNoPoints)
		}
		l, err := line(pts, palette[i%len(palette)])
		if err != nil {
			return err
		}
		p.Add(l)
		if s.Name != "" {
			p.Legend.Add(s.Name, l)
		}
	}
	p.Legend.Top = true
	return save(p, path)
}

// Residuals draws a residual series around a zero reference line.
func Residuals(path, title string, residuals *timeseries.Series) error {
	pts := seriesXYs(residuals, 0)
	if len(pts) == 0 {
		return ErrNoPoints
	}
	p := newPlot(title, "", "residual")
	timeAxis(p, residuals)
	l, err := line(pts, palette[0])
	if err != nil {
		return err
	}
	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = color.Gray{Y: 96}
	dashed(&zero.LineStyle)
	p.Add(l, zero)
	return save(p, path)
}

// Correlogram draws ACF or PACF spikes from lag 1 with the ±1.96/√n band.
func Correlogram(path, title string, c *stats.Correlogram) error {
	if c == nil || len(c.Values) < 2 {
		return ErrNoPoints
	}
	p := newPlot(title, "lag", "")
	values := make(plotter.Values, len(c.Values)-1)
	copy(values, c.Values[1:])
	bars, err := plotter.NewBarChart(values, vg.Points(4))
	if err != nil {
		return err
	}
	bars.XMin = 1
	bars.Color = palette[0]
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	for _, b := range []float64{c.ConfBounds, -c.ConfBounds} {
		bound := plotter.NewFunction(func(float64) float64 { return b })
		bound.Color = palette[1]
		dashed(&bound.LineStyle)
		p.Add(bound)
	}
	p.X.Min, p.X.Max = 0, float64(len(c.Values))
	p.Y.Min, p.Y.Max = math.Min(-1, p.Y.Min), math.Max(1, p.Y.Max)
	return save(p, path)
}

// Forecast draws the history, the point forecast with its widest interval
// as a shaded band, and the held-out actuals when given.
func Forecast(path, title string, history, actual *timeseries.Series, fc *sarima.Forecast) error {
	if fc == nil || fc.Horizon() == 0 {
		return ErrNoPoints
	}
	p := newPlot(title, "", "")
	timeAxis(p, history)

	fx := func(i int) float64 {
		if fc.Timestamps != nil {
			return float64(fc.Timestamps[i].Unix())
		}
		return float64(history.Len() + i)
	}

	if len(fc.Levels) > 0 {
		level := fc.Levels[len(fc.Levels)-1]
		lo, hi := fc.Lower[level], fc.Upper[level]
		band := make(plotter.XYs, 0, 2*len(lo))
		for i := range lo {
			band = append(band, plotter.XY{X: fx(i), Y: hi[i]})
		}
		for i := len(lo) - 1; i >= 0; i-- {
			band = append(band, plotter.XY{X: fx(i), Y: lo[i]})
		}
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return err
		}
		poly.Color = color.RGBA{R: 31, G: 119, B: 180, A: 60}
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add(fmt.Sprintf("%.0f%% interval", level*100), poly)
	}

	hist, err := line(seriesXYs(history, 0), color.Black)
	if err != nil {
		return err
	}
	p.Add(hist)
	p.Legend.Add("history", hist)

	mean := make(plotter.XYs, fc.Horizon())
	for i, v := range fc.Mean {
		mean[i] = plotter.XY{X: fx(i), Y: v}
	}
	ml, err := line(mean, palette[0])
	if err != nil {
		return err
	}
	p.Add(ml)
	p.Legend.Add("forecast", ml)

	if actual != nil && actual.Len() > 0 {
		al, err := line(seriesXYs(actual, history.Len()), palette[1])
		if err != nil {
			return err
		}
		dashed(&al.LineStyle)
		p.Add(al)
		p.Legend.Add("actual", al)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return save(p, path)
}

// Histogram draws a density histogram with the fitted normal curve.
func Histogram(path, title string, values []float64) error {
	var finite plotter.Values
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) < 2 {
		return ErrNoPoints
	}
	p := newPlot(title, "", "density")
	bins := int(math.Ceil(math.Log2(float64(len(finite))))) + 1
	h, err := plotter.NewHist(finite, bins)
	if err != nil {
		return err
	}
	h.Normalize(1)
	h.FillColor = color.RGBA{R: 31, G: 119, B: 180, A: 120}
	p.Add(h)

	mu, sd := stat.MeanStdDev(finite, nil)
	if sd > 0 {
		norm := plotter.NewFunction(distuv.Normal{Mu: mu, Sigma: sd}.Prob)
		norm.Color = palette[1]
		norm.Width = vg.Points(1.5)
		p.Add(norm)
	}
	return save(p, path)
}

// UnitCircle plots inverse AR and MA roots against the unit circle.
func UnitCircle(path, title string, roots sarima.Roots) error {
	p := newPlot(title, "real", "imaginary")
	circle := make(plotter.XYs, 181)
	for i := range circle {
		a := 2 * math.Pi * float64(i) / 180
		circle[i] = plotter.XY{X: math.Cos(a), Y: math.Sin(a)}
	}
	cl, err := line(circle, color.Gray{Y: 64})
	if err != nil {
		return err
	}
	p.Add(cl)

	add := func(name string, zs []complex128, c color.Color, shape draw.GlyphDrawer) error {
		if len(zs) == 0 {
			return nil
		}
		pts := make(plotter.XYs, len(zs))
		for i, z := range zs {
			pts[i] = plotter.XY{X: real(z), Y: imag(z)}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = c
		sc.GlyphStyle.Shape = shape
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add(name, sc)
		return nil
	}
	if err := add("AR", roots.AR, palette[0], draw.CircleGlyph{}); err != nil {
		return err
	}
	if err := add("MA", roots.MA, palette[1], draw.TriangleGlyph{}); err != nil {
		return err
	}
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = -1.1, 1.1, -1.1, 1.1
	return save(p, path)
}

// Decomposition stacks the observed, trend, seasonal and remainder panels.
func Decomposition(path string, d *stats.Decomposition) error {
	if d == nil {
		return ErrNoPoints
	}
	parts := []*timeseries.Series{d.Original, d.Trend, d.Seasonal, d.Residual}
	names := []string{"observed", "trend", "seasonal", "remainder"}

	plots := make([][]*plot.Plot, len(parts))
	for i, s := range parts {
		p := newPlot("", "", names[i])
		if i == 0 {
			p.Title.Text = fmt.Sprintf("%s decomposition (period %d)", d.Type, d.Period)
		}
		timeAxis(p, s)
		pts := seriesXYs(s, 0)
		if len(pts) == 0 {
			return fmt.Errorf("%s: %w", names[i], ErrNoPoints)
		}
		l, err := line(pts, palette[0])
		if err != nil {
			return err
		}
		p.Add(l)
		plots[i] = []*plot.Plot{p}
	}

	format, err := Format(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}
	w, h := Width, 2*Height
	img, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return err
	}
	tiles := draw.Tiles{Rows: len(plots), Cols: 1, PadX: vg.Millimeter, PadY: vg.Millimeter, PadTop: vg.Points(2), PadBottom: vg.Points(2), PadLeft: vg.Points(2), PadRight: vg.Points(2)}
	canvases := plot.Align(plots, tiles, draw.New(img))
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := img.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return f.Close()
}

// FileName builds "<stem>.<format>" inside dir.
func FileName(dir, stem, format string) string {
	return filepath.Join(dir, stem+"."+format)
}
