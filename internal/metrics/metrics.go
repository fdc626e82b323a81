// Package metrics records analysis-run metrics in a private Prometheus
// registry and writes them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sartorproj/henryhub/autoarima"
)

const namespace = "henryhub"

// Recorder collects the metrics of one run.
type Recorder struct {
	registry *prometheus.Registry

	fitsTotal     *prometheus.CounterVec
	fitDuration   prometheus.Histogram
	bestCriterion *prometheus.GaugeVec
	stageDuration *prometheus.GaugeVec
	observations  *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fits_total",
			Help:      "SARIMA fits attempted, by outcome and failure reason.",
		}, []string{"status", "reason"}),
		fitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_fit_duration_seconds",
			Help:      "Wall time of a single SARIMA fit.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		bestCriterion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_criterion",
			Help:      "Information criterion of the best model found.",
		}, []string{"criterion", "order"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
		}, []string{"stage"}),
		observations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations",
			Help:      "Observations in each part of the series.",
		}, []string{"part"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
	r.registry.MustRegister(r.fitsTotal, r.fitDuration, r.bestCriterion, r.stageDuration, r.observations, r.lastRun)
	return r
}

// ObserveFit records one search progress event.
func (r *Recorder) ObserveFit(p autoarima.Progress) {
	if p.Err != nil {
		r.fitsTotal.WithLabelValues("failed", autoarima.Classify(p.Err)).Inc()
	} else {
		r.fitsTotal.WithLabelValues("ok", "").Inc()
	}
	r.fitDuration.Observe(p.Elapsed.Seconds())
}

// SetBest records the winning model of a search.
func (r *Recorder) SetBest(res *autoarima.Result) {
	if res == nil || res.Best == nil {
		return
	}
	r.bestCriterion.WithLabelValues(string(res.Criterion), res.Best.Order.String()).Set(res.Best.Criterion)
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// SetObservations records the size of a series part (total, train, test).
func (r *Recorder) SetObservations(part string, n int) {
	r.observations.WithLabelValues(part).Set(float64(n))
}

// Finish stamps the completion time.
func (r *Recorder) Finish(t time.Time) {
	r.lastRun.Set(float64(t.Unix()))
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
