// Package analysis runs the Henry Hub study end to end: load the monthly
// prices, transform and split them, search seasonal ARIMA orders, compare
// a handful of candidates on the held-out window and write the outputs.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sartorproj/henryhub/autoarima"
	"github.com/sartorproj/henryhub/internal/config"
	"github.com/sartorproj/henryhub/internal/metrics"
	"github.com/sartorproj/henryhub/report"
	"github.com/sartorproj/henryhub/sarima"
	"github.com/sartorproj/henryhub/stats"
	"github.com/sartorproj/henryhub/timeseries"
)

// Candidate sources.
const (
	SourceSearch = "search"
	SourceManual = "manual"
)

// Pipeline holds the collaborators of one run.
type Pipeline struct {
	cfg     *config.Analysis
	log     logrus.FieldLogger
	metrics *metrics.Recorder
	now     func() time.Time
}

// New returns a pipeline. A nil recorder gets a private one.
func New(cfg *config.Analysis, log logrus.FieldLogger, rec *metrics.Recorder) *Pipeline {
	if rec == nil {
		rec = metrics.New()
	}
	return &Pipeline{cfg: cfg, log: log, metrics: rec, now: time.Now}
}

// Run executes the pipeline with cfg.
func Run(ctx context.Context, cfg *config.Analysis, log logrus.FieldLogger, rec *metrics.Recorder) (*report.Report, error) {
	return New(cfg, log, rec).Run(ctx)
}

// Data is the series at every stage of preparation. Price* stay on the
// price scale; Model* are on the modelling scale (log when configured).
type Data struct {
	Price      *timeseries.Series
	Model      *timeseries.Series
	PriceTrain *timeseries.Series
	PriceTest  *timeseries.Series
	ModelTrain *timeseries.Series
	ModelTest  *timeseries.Series
}

// LoadSeries reads the configured file, checks it is a gap-free monthly
// series and restricts it to [from, to].
func LoadSeries(in config.Input) (*timeseries.Series, error) {
	opts := timeseries.DefaultCSVOptions()
	opts.DateColumn = in.DateColumn
	opts.ValueColumn = in.ValueColumn

	s, err := timeseries.LoadMonthly(in.Path, opts)
	if err != nil {
		return nil, err
	}
	from, err := config.ParseMonth(in.From)
	if err != nil {
		return nil, err
	}
	to, err := config.ParseMonth(in.To)
	if err != nil {
		return nil, err
	}
	if from.IsZero() && to.IsZero() {
		return s, nil
	}
	return s.Window(from, to)
}

// Prepare transforms and splits a price series.
func Prepare(price *timeseries.Series, tr config.Transform, sp config.Split) (*Data, error) {
	d := &Data{Price: price, Model: price}
	if tr.Log {
		logged, err := price.Log()
		if err != nil {
			return nil, err
		}
		d.Model = logged
	}

	trainEnd, err := config.ParseMonth(sp.TrainEnd)
	if err != nil {
		return nil, err
	}
	split := func(s *timeseries.Series) (*timeseries.Series, *timeseries.Series, error) {
		if !trainEnd.IsZero() {
			return s.SplitAt(trainEnd)
		}
		return s.SplitLast(sp.TestMonths)
	}
	if d.PriceTrain, d.PriceTest, err = split(d.Price); err != nil {
		return nil, err
	}
	if d.ModelTrain, d.ModelTest, err = split(d.Model); err != nil {
		return nil, err
	}
	return d, nil
}

// SearchConfig maps the search settings onto the order search.
func SearchConfig(s config.Search) (*autoarima.Config, error) {
	crit, err := autoarima.ParseCriterion(s.Criterion)
	if err != nil {
		return nil, err
	}
	cfg := &autoarima.Config{
		MaxP:        s.MaxP,
		MinD:        s.MinD,
		MaxD:        s.MaxD,
		MaxQ:        s.MaxQ,
		MaxSP:       s.MaxSP,
		MinSD:       s.MinSD,
		MaxSD:       s.MaxSD,
		MaxSQ:       s.MaxSQ,
		M:           s.Period,
		MaxOrder:    s.MaxOrder,
		Criterion:   crit,
		StationTest: "kpss",
		Stepwise:    s.Method == "stepwise",
		MaxModels:   s.MaxModels,
		Workers:     s.Workers,
		Model:       ModelOptions(s),
	}
	return cfg, cfg.Validate()
}

// ModelOptions returns the fitting options for the search settings.
func ModelOptions(s config.Search) sarima.Options {
	opts := sarima.DefaultOptions()
	if s.MaxIter > 0 {
		opts.MaxIter = s.MaxIter
	}
	return opts
}

// stage logs and records the duration of a pipeline step.
func (p *Pipeline) stage(name string) func() {
	began := p.now()
	p.log.WithField("stage", name).Debug("Stage started")
	return func() {
		elapsed := p.now().Sub(began)
		p.metrics.ObserveStage(name, elapsed)
		p.log.WithFields(logrus.Fields{"stage": name, "elapsed": elapsed.Round(time.Millisecond)}).Info("Stage finished")
	}
}

// Run executes every step and returns the report. Reports and charts are
// written under the output directory.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	cfg := p.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rep := report.New(p.now())
	log := p.log.WithField("run_id", rep.RunID)

	done := p.stage("load")
	price, err := LoadSeries(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	data, err := Prepare(price, cfg.Transform, cfg.Split)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	done()
	p.metrics.SetObservations("total", price.Len())
	p.metrics.SetObservations("train", data.ModelTrain.Len())
	p.metrics.SetObservations("test", data.ModelTest.Len())
	rep.Series = seriesInfo(cfg, data)
	log.WithFields(logrus.Fields{
		"start": rep.Series.Start,
		"end":   rep.Series.End,
		"train": rep.Series.NTrain,
		"test":  rep.Series.NTest,
	}).Info("Series loaded")

	done = p.stage("explore")
	for _, v := range variants(data.ModelTrain, cfg.Search.Period, cfg.Transform.Log) {
		rep.Stationarity = append(rep.Stationarity, report.Stationarity(v.name, v.series, cfg.Search.Period, 2))
		rep.Correlograms = append(rep.Correlograms, report.Correlogram(v.name, v.series, cfg.Diagnostics.MaxLag))
	}
	done()

	done = p.stage("search")
	began := p.now()
	res, err := p.search(ctx, data.ModelTrain, log)
	if err != nil {
		return nil, err
	}
	done()
	rep.Search = report.SearchSummary(cfg.Search.Method, res, p.now().Sub(began).Seconds())
	rep.Grid = report.GridRows(res.Entries)
	rep.BestByDiff = report.GridRows(res.BestByDiff)
	ranked, group, err := p.rankGroup(res, log)
	if err != nil {
		return nil, err
	}
	rep.Search.RankGroup = group
	p.metrics.SetBest(ranked)

	done = p.stage("candidates")
	models, err := p.candidates(ranked, data.ModelTrain)
	if err != nil {
		return nil, err
	}
	var fits []candidateFit
	for _, c := range models {
		fit := p.evaluate(c, data)
		if fit.err != nil {
			log.WithError(fit.err).WithField("order", c.order.String()).Warn("Candidate failed")
		}
		rep.Candidates = append(rep.Candidates, fit.row)
		fits = append(fits, fit)
	}
	done()

	var future *sarima.Forecast
	if cfg.Forecast.Horizon > 0 && ranked.Best != nil {
		done = p.stage("forecast")
		rep.ForecastModel = ranked.Best.Order.String()
		out, err := p.future(ranked.Best.Order, data)
		if err != nil {
			log.WithError(err).Warn("Future forecast failed")
			rep.ForecastError = err.Error()
		} else {
			rep.Forecast = out.rows
			rep.ForecastWarning = out.warning
			future = out.forecast
		}
		done()
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	if cfg.Output.Charts {
		done = p.stage("charts")
		paths, err := p.renderCharts(data, fits, future)
		if err != nil {
			return rep, fmt.Errorf("charts: %w", err)
		}
		rep.Charts = paths
		done()
	}

	if len(cfg.Output.Formats) > 0 {
		done = p.stage("report")
		written, err := report.Save(cfg.Output.Dir, rep, cfg.Output.Formats)
		if err != nil {
			return rep, fmt.Errorf("report: %w", err)
		}
		done()
		log.WithField("files", written).Info("Reports written")
	}

	p.metrics.Finish(p.now())
	if cfg.Output.MetricsFile != "" {
		if err := p.metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func seriesInfo(cfg *config.Analysis, d *Data) report.SeriesInfo {
	month := func(t time.Time) string { return t.Format(config.MonthLayout) }
	return report.SeriesInfo{
		Name:     d.Price.Name,
		Source:   cfg.Input.Path,
		Start:    month(d.Price.Start()),
		End:      month(d.Price.End()),
		N:        d.Price.Len(),
		NTrain:   d.ModelTrain.Len(),
		NTest:    d.ModelTest.Len(),
		TrainEnd: month(d.ModelTrain.End()),
		Log:      cfg.Transform.Log,
		Min:      report.Float(d.Price.Min()),
		Max:      report.Float(d.Price.Max()),
		Mean:     report.Float(d.Price.Mean()),
	}
}

type variant struct {
	name   string
	series *timeseries.Series
}

// variants are the transformed series inspected before modelling: the
// series itself, its seasonal difference and the double difference.
func variants(s *timeseries.Series, period int, logged bool) []variant {
	base := "level"
	if logged {
		base = "log"
	}
	out := []variant{{base, s}}
	if period >= 2 && s.Len() > 2*period {
		sd := s.SeasonalDiff(period)
		out = append(out,
			variant{base + " seasonal diff", sd},
			variant{base + " seasonal+first diff", sd.Diff()})
	} else {
		out = append(out, variant{base + " diff", s.Diff()})
	}
	return out
}

func (p *Pipeline) search(ctx context.Context, train *timeseries.Series, log logrus.FieldLogger) (*autoarima.Result, error) {
	scfg, err := SearchConfig(p.cfg.Search)
	if err != nil {
		return nil, err
	}
	scfg.Progress = func(pr autoarima.Progress) {
		p.metrics.ObserveFit(pr)
		entry := log.WithFields(logrus.Fields{"order": pr.Order.String(), "done": pr.Done})
		if pr.Total > 0 {
			entry = entry.WithField("total", pr.Total)
		}
		if pr.Err != nil {
			entry.WithField("reason", autoarima.Classify(pr.Err)).Debug("Fit failed")
			return
		}
		entry.Debug("Fit done")
	}

	log.WithFields(logrus.Fields{
		"method":    p.cfg.Search.Method,
		"criterion": scfg.Criterion,
	}).Info("Searching orders")

	res, err := autoarima.AutoARIMA(ctx, train, scfg)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	log.WithFields(logrus.Fields{
		"best":      res.Best.Order.String(),
		"criterion": res.Best.Criterion,
		"fitted":    len(res.Entries),
		"failed":    len(res.Failures),
	}).Info("Search finished")
	return res, nil
}

// rankGroup restricts the ranking to one differencing group, since the
// criteria of models fitted to differently differenced series are not
// comparable. It returns the restricted result and the group label.
func (p *Pipeline) rankGroup(res *autoarima.Result, log logrus.FieldLogger) (*autoarima.Result, string, error) {
	var key autoarima.DiffKey
	switch g := p.cfg.Search.RankGroup; g {
	case config.RankAll:
		return res, config.RankAll, nil
	case "", config.RankAuto:
		k, ok := res.MostDifferenced()
		if !ok {
			return res, "", nil
		}
		key = k
	default:
		k, err := autoarima.ParseDiffKey(g)
		if err != nil {
			return nil, "", fmt.Errorf("search.rank_group: %w", err)
		}
		key = k
	}

	ranked := res.Within(key)
	if ranked.Best == nil {
		return nil, "", fmt.Errorf("search.rank_group: no model fitted with %s", key)
	}
	if len(res.BestByDiff) > 1 {
		log.WithFields(logrus.Fields{
			"group":  key.String(),
			"best":   ranked.Best.Order.String(),
			"groups": len(res.BestByDiff),
		}).Info("Ranking candidates within one differencing group")
	}
	return ranked, key.String(), nil
}

type candidateModel struct {
	order  sarima.Order
	source string
	model  *sarima.Model // fitted on the training window; nil to refit
}

// candidates returns the top entries followed by the configured orders
// that the search did not already rank.
func (p *Pipeline) candidates(res *autoarima.Result, train *timeseries.Series) ([]candidateModel, error) {
	var out []candidateModel
	seen := make(map[sarima.Order]bool)
	for _, e := range res.Top(p.cfg.Candidates.Top) {
		seen[e.Order] = true
		out = append(out, candidateModel{order: e.Order, source: SourceSearch, model: e.Model})
	}
	for _, s := range p.cfg.Candidates.Orders {
		o, err := sarima.ParseOrder(s)
		if err != nil {
			return nil, fmt.Errorf("candidates.orders: %w", err)
		}
		if seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, candidateModel{order: o, source: SourceManual})
	}
	return out, nil
}

type candidateFit struct {
	row      report.Candidate
	model    *sarima.Model
	forecast *sarima.Forecast // test window, price scale
	err      error
}

// evaluate fits a candidate on the training window when needed, checks
// its residuals and scores its test-window forecast on the price scale.
func (p *Pipeline) evaluate(c candidateModel, d *Data) candidateFit {
	cfg := p.cfg
	fail := func(err error) candidateFit {
		return candidateFit{
			row: report.Candidate{Order: c.order.String(), Source: c.source, Error: err.Error()},
			err: err,
		}
	}

	m := c.model
	if m == nil {
		m = sarima.NewWithOptions(c.order, ModelOptions(cfg.Search))
		if err := m.Fit(d.ModelTrain); err != nil {
			return fail(err)
		}
	}
	row := report.NewCandidate(c.source, m, cfg.Diagnostics.Alpha)

	fc, err := m.Forecast(d.ModelTest.Len(), cfg.Forecast.Levels...)
	if err != nil {
		return fail(err)
	}
	if cfg.Transform.Log {
		fc = fc.BackTransform(cfg.Transform.BiasAdjust)
	}
	acc, err := stats.Accuracy(d.PriceTest.Values, fc.Mean, d.PriceTrain.Values, cfg.Search.Period)
	if err != nil {
		return fail(err)
	}
	row.Accuracy = report.Accuracy(acc)
	row.Forecast = report.ForecastRows(fc, d.PriceTest)
	return candidateFit{row: row, model: m, forecast: fc}
}

// Fit fits one order on the training window and evaluates it the way the
// candidates are evaluated.
func (p *Pipeline) Fit(o sarima.Order, d *Data) (report.Candidate, error) {
	fit := p.evaluate(candidateModel{order: o, source: SourceManual}, d)
	return fit.row, fit.err
}

// Future refits o on the whole series and forecasts the configured horizon.
func (p *Pipeline) Future(o sarima.Order, d *Data) ([]report.ForecastRow, error) {
	out, err := p.future(o, d)
	if err != nil {
		return nil, err
	}
	return out.rows, nil
}

type futureForecast struct {
	rows     []report.ForecastRow
	forecast *sarima.Forecast
	warning  string
}

// future refits order on the whole series and forecasts past its end. An MA
// part that lands on the unit circle (typical of over-differencing) is
// accepted here with a warning instead of failing the forecast.
func (p *Pipeline) future(o sarima.Order, d *Data) (*futureForecast, error) {
	cfg := p.cfg
	opts := ModelOptions(cfg.Search)
	out := &futureForecast{}

	m := sarima.NewWithOptions(o, opts)
	err := m.Fit(d.Model)
	if errors.Is(err, sarima.ErrNonInvertibleMA) {
		opts.RootMargin = 0
		m = sarima.NewWithOptions(o, opts)
		if err = m.Fit(d.Model); err == nil {
			out.warning = fmt.Sprintf("%s has an MA root on the unit circle boundary", o)
			p.log.WithField("order", o.String()).Warn("Forecast model refitted with a boundary MA root")
		}
	}
	if err != nil {
		return nil, err
	}

	fc, err := m.Forecast(cfg.Forecast.Horizon, cfg.Forecast.Levels...)
	if err != nil {
		return nil, err
	}
	if cfg.Transform.Log {
		fc = fc.BackTransform(cfg.Transform.BiasAdjust)
	}
	out.rows = report.ForecastRows(fc, nil)
	out.forecast = fc
	return out, nil
}
