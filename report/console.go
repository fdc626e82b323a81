package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	pass    = color.New(color.FgGreen)
	fail    = color.New(color.FgRed)
)

// Print writes the console summary: series, stationarity, the top grid
// rows, best per differencing group, candidates, accuracy and the future
// forecast. top <= 0 prints every grid row.
func Print(w io.Writer, r *Report, top int) error {
	p := &printer{w: w}

	p.title("Series")
	s := r.Series
	p.linef("%s  %s to %s  n=%d (train %d, test %d)  log=%t\n",
		s.Name, s.Start, s.End, s.N, s.NTrain, s.NTest, s.Log)
	p.linef("min %s  max %s  mean %s\n", num(s.Min, 3), num(s.Max, 3), num(s.Mean, 3))

	p.exploration(r.Stationarity, r.Correlograms)

	p.search(r.Search, r.Grid, top)

	if len(r.BestByDiff) > 1 {
		p.title("Best per differencing (d, D)")
		p.gridTable(r.BestByDiff)
	}

	if len(r.Candidates) > 0 {
		p.title("Candidates")
		p.table(func(tw io.Writer) {
			fmt.Fprintln(tw, "order\tsource\tAICc\tLjung-Box p\tJB p\tDW\t|AR root|\t|MA root|")
			for _, c := range r.Candidates {
				if c.Error != "" {
					fmt.Fprintf(tw, "%s\t%s\terror: %s\n", c.Order, c.Source, c.Error)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", c.Order, c.Source, num(c.AICc, 2),
					testP(c.LjungBox), testP(c.JarqueBera), num(c.DurbinWatson, 3),
					num(c.MaxARRoot, 3), num(c.MaxMARoot, 3))
			}
		})
		for _, c := range r.Candidates {
			if c.LjungBox == nil {
				continue
			}
			verdict := pass.Sprint("residuals look like white noise")
			if !c.LjungBox.Passed {
				verdict = fail.Sprint("residual autocorrelation remains")
			}
			p.linef("  %s: %s\n", c.Order, verdict)
		}

		p.title("Test-window accuracy (price scale)")
		p.table(func(tw io.Writer) {
			fmt.Fprintln(tw, "order\tME\tRMSE\tMAE\tMAPE\tMASE\tACF1")
			for _, c := range r.Candidates {
				a := c.Accuracy
				if a == nil {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", c.Order, num(a.ME, 4), num(a.RMSE, 4),
					num(a.MAE, 4), num(a.MAPE, 2), num(a.MASE, 3), num(a.ACF1, 3))
			}
		})
	}

	if len(r.Forecast) > 0 {
		p.title("Forecast " + r.ForecastModel)
		if r.ForecastWarning != "" {
			p.linef("%s\n", fail.Sprint("warning: "+r.ForecastWarning))
		}
		p.forecastTable(r.Forecast)
	} else if r.ForecastError != "" {
		p.title("Forecast " + r.ForecastModel)
		p.linef("%s\n", fail.Sprint("failed: "+r.ForecastError))
	}
	return p.err
}

// PrintStationarity writes the unit-root and correlogram tables.
func PrintStationarity(w io.Writer, rows []StationarityRow, corr []CorrelogramRow) error {
	p := &printer{w: w}
	p.exploration(rows, corr)
	return p.err
}

// PrintGrid writes the search summary and the first top ranked rows.
func PrintGrid(w io.Writer, s SearchInfo, rows []GridRow, top int) error {
	p := &printer{w: w}
	p.search(s, rows, top)
	return p.err
}

// PrintForecast writes a forecast table on its own.
func PrintForecast(w io.Writer, model string, rows []ForecastRow) error {
	p := &printer{w: w}
	p.title("Forecast " + model)
	p.forecastTable(rows)
	return p.err
}

// PrintCandidate writes the coefficient table and diagnostics of one model.
func PrintCandidate(w io.Writer, c Candidate) error {
	p := &printer{w: w}
	p.title(c.Order)
	p.table(func(tw io.Writer) {
		fmt.Fprintln(tw, "coef\testimate\ts.e.\tt")
		for _, k := range c.Coefficients {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Name, num(k.Value, 4), num(k.StdErr, 4), num(k.TStat, 2))
		}
	})
	p.linef("sigma^2 %s  loglik %s  AIC %s  AICc %s  BIC %s\n",
		num(c.Variance, 5), num(c.LogLik, 2), num(c.AIC, 2), num(c.AICc, 2), num(c.BIC, 2))
	if lb := c.LjungBox; lb != nil {
		p.linef("Ljung-Box Q*=%s df=%d p=%s\n", num(lb.Statistic, 3), lb.DOF, num(lb.PValue, 4))
	}
	if jb := c.JarqueBera; jb != nil {
		p.linef("Jarque-Bera %s p=%s\n", num(jb.Statistic, 3), num(jb.PValue, 4))
	}
	p.linef("Durbin-Watson %s\n", num(c.DurbinWatson, 3))
	if a := c.Accuracy; a != nil {
		p.linef("test window: RMSE %s  MAE %s  MAPE %s  MASE %s (n=%d)\n",
			num(a.RMSE, 4), num(a.MAE, 4), num(a.MAPE, 2), num(a.MASE, 3), a.N)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) title(s string) {
	if p.err != nil {
		return
	}
	_, p.err = heading.Fprintf(p.w, "\n== %s ==\n", s)
}

func (p *printer) linef(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) table(fill func(io.Writer)) {
	if p.err != nil {
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fill(tw)
	p.err = tw.Flush()
}

func (p *printer) exploration(rows []StationarityRow, corr []CorrelogramRow) {
	if len(rows) > 0 {
		p.title("Stationarity")
		p.table(func(tw io.Writer) {
			fmt.Fprintln(tw, "series\tn\tADF\tp\tKPSS\tp\tndiffs\tnsdiffs\tF_S")
			for _, row := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n", row.Series, row.N,
					num(row.ADFStatistic, 3), num(row.ADFPValue, 3),
					num(row.KPSSStatistic, 3), num(row.KPSSPValue, 3),
					row.NDiffs, row.NSDiffs, num(row.SeasonalStrength, 3))
			}
		})
	}

	if len(corr) > 0 {
		p.title("Significant autocorrelations")
		p.table(func(tw io.Writer) {
			fmt.Fprintln(tw, "series\tbound\tACF lags\tPACF lags")
			for _, c := range corr {
				fmt.Fprintf(tw, "%s\t±%s\t%s\t%s\n", c.Series, num(c.Bound, 3), lags(c.ACFSignificant), lags(c.PACFSignificant))
			}
		})
	}
}

func (p *printer) search(s SearchInfo, rows []GridRow, top int) {
	p.title(fmt.Sprintf("Search (%s, %s)", s.Method, strings.ToUpper(s.Criterion)))
	p.linef("%d evaluated, %d fitted, %d failed in %ss\n",
		s.Evaluated, s.Fitted, s.Failed, num(s.Seconds, 1))
	if s.RankGroup != "" {
		p.linef("candidates ranked within %s\n", s.RankGroup)
	}
	if len(s.FailureCounts) > 0 {
		reasons := make([]string, 0, len(s.FailureCounts))
		for k := range s.FailureCounts {
			reasons = append(reasons, k)
		}
		sort.Strings(reasons)
		for _, k := range reasons {
			p.linef("  %-18s %d\n", k, s.FailureCounts[k])
		}
	}
	grid := rows
	if top > 0 && top < len(grid) {
		grid = grid[:top]
	}
	p.gridTable(grid)
}

func (p *printer) gridTable(rows []GridRow) {
	p.table(func(tw io.Writer) {
		fmt.Fprintln(tw, "rank\torder\tAIC\tAICc\tBIC\tsigma^2")
		for _, g := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", g.Rank, g.Order,
				num(g.AIC, 2), num(g.AICc, 2), num(g.BIC, 2), num(g.Variance, 5))
		}
	})
}

func (p *printer) forecastTable(rows []ForecastRow) {
	p.table(func(tw io.Writer) {
		header := []string{"step", "month", "mean", "actual"}
		if len(rows) > 0 {
			for _, iv := range rows[0].Intervals {
				pct := fmt.Sprintf("%g%%", float64(iv.Level)*100)
				header = append(header, "lo "+pct, "hi "+pct)
			}
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, f := range rows {
			cols := []string{fmt.Sprint(f.Step), f.Month, num(f.Mean, 3), num(f.Actual, 3)}
			for _, iv := range f.Intervals {
				cols = append(cols, num(iv.Lower, 3), num(iv.Upper, 3))
			}
			fmt.Fprintln(tw, strings.Join(cols, "\t"))
		}
	})
}

func num(f Float, prec int) string {
	if !f.Valid() {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, float64(f))
}

func testP(t *TestRow) string {
	if t == nil {
		return "-"
	}
	return num(t.PValue, 4)
}

func lags(ls []int) string {
	if len(ls) == 0 {
		return "none"
	}
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, ",")
}
