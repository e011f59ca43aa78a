package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "blogbuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration      *prom.HistogramVec
	stageResults       *prom.CounterVec
	buildDuration      prom.Histogram
	buildOutcome       *prom.CounterVec
	conversionDuration *prom.HistogramVec
	conversionResults  *prom.CounterVec
	postsPublished     prom.Gauge
	brokenLinks        prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		conversionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Duration of post source conversions",
			Buckets:   prom.DefBuckets,
		}, []string{"backend", "kind"}),
		conversionResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_results_total",
			Help:      "Conversion results by backend and success/failure",
		}, []string{"backend", "result"}),
		postsPublished: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "posts_published",
			Help:      "Number of posts written by the last successful build",
		}),
		brokenLinks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "broken_links_total",
			Help:      "Broken internal links found across builds",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome,
		pr.conversionDuration, pr.conversionResults, pr.postsPublished, pr.brokenLinks)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcome) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveConversion(backend, kind string, d time.Duration, success bool) {
	if p == nil || p.conversionDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.conversionDuration.WithLabelValues(backend, kind).Observe(d.Seconds())
	p.conversionResults.WithLabelValues(backend, res).Inc()
}

func (p *PrometheusRecorder) SetPostsPublished(n int) {
	if p == nil || p.postsPublished == nil {
		return
	}
	p.postsPublished.Set(float64(n))
}

func (p *PrometheusRecorder) AddBrokenLinks(n int) {
	if p == nil || p.brokenLinks == nil || n <= 0 {
		return
	}
	p.brokenLinks.Add(float64(n))
}
