// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for the content rating engine.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "content-rating"

// Metrics holds all rating engine Prometheus metrics.
type Metrics struct {
	// Pipeline metrics
	RatingsProduced    *prometheus.CounterVec
	RatingsFailed      prometheus.Counter
	PipelineDuration   *prometheus.HistogramVec
	SentencesProcessed prometheus.Counter
	TokensProcessed    prometheus.Counter
	SpellCorrections   prometheus.Counter
	PromotionsApplied  prometheus.Counter

	// Dictionary metrics
	DictionaryEdits     *prometheus.CounterVec
	DictionaryConflicts prometheus.Counter
	OrphansDeleted      *prometheus.CounterVec

	// History metrics
	RatingsSaved     prometheus.Counter
	RatingsEvicted   prometheus.Counter
	CascadesExecuted prometheus.Counter
}

// Provider wraps the tracer and metrics.
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics registered on
// the default registry and the globally configured otel tracer.
func NewProvider() *Provider {
	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: initMetrics(),
	}
}

// Handler returns the Prometheus HTTP handler for a /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

// StartSpan starts a pipeline stage span. Safe on a nil provider, which
// yields a no-op span.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p == nil || p.Tracer == nil {
		return noop.NewTracerProvider().Tracer(serviceName).Start(ctx, name)
	}
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordRating records a completed rating request. Sentence and token
// totals are counted by the classifier, not here.
func (p *Provider) RecordRating(contentType string, duration time.Duration) {
	if p == nil || p.Metrics == nil {
		return
	}
	p.Metrics.RatingsProduced.WithLabelValues(contentType).Inc()
	p.Metrics.PipelineDuration.WithLabelValues(contentType).Observe(duration.Seconds())
}

// RecordDictionaryEdit records a word or category weight edit.
func (p *Provider) RecordDictionaryEdit(kind string) {
	if p == nil || p.Metrics == nil {
		return
	}
	p.Metrics.DictionaryEdits.WithLabelValues(kind).Inc()
}

// RecordOrphanDelete records the deletion of an orphaned custom row.
func (p *Provider) RecordOrphanDelete(kind string) {
	if p == nil || p.Metrics == nil {
		return
	}
	p.Metrics.OrphansDeleted.WithLabelValues(kind).Inc()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initPipelineMetrics(m)
	initDictionaryMetrics(m)
	initHistoryMetrics(m)
	return m
}

func initPipelineMetrics(m *Metrics) {
	m.RatingsProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rating_pipeline_ratings_total",
		Help: "Total texts successfully rated",
	}, []string{"content_type"})

	m.RatingsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_pipeline_failures_total",
		Help: "Total rating requests that failed",
	})

	m.PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rating_pipeline_duration_seconds",
		Help:    "Time to tokenize, classify, and rate a single text",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	}, []string{"content_type"})

	m.SentencesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_sentences_processed_total",
		Help: "Total sentences classified",
	})

	m.TokensProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_tokens_processed_total",
		Help: "Total tokens examined by the sentence classifier",
	})

	m.SpellCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_spell_corrections_total",
		Help: "Total tokens replaced by the spelling corrector",
	})

	m.PromotionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_weak_promotions_total",
		Help: "Sentences where weak tallies were promoted to strong",
	})
}

func initDictionaryMetrics(m *Metrics) {
	m.DictionaryEdits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rating_dictionary_edits_total",
		Help: "Per-user dictionary weight edits (kind: word, category)",
	}, []string{"kind"})

	m.DictionaryConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_dictionary_conflicts_total",
		Help: "Dictionary edits that lost a race and returned a retry signal",
	})

	m.OrphansDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rating_dictionary_orphans_deleted_total",
		Help: "Orphaned custom rows deleted (kind: word, category, feature)",
	}, []string{"kind"})
}

func initHistoryMetrics(m *Metrics) {
	m.RatingsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_history_saved_total",
		Help: "Content ratings persisted to user storage",
	})

	m.RatingsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_history_evicted_total",
		Help: "Oldest ratings evicted to honor the per-user retention cap",
	})

	m.CascadesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_storage_cascades_total",
		Help: "User storage cascade deletions executed",
	})
}
