package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec

	vectorOps     *prometheus.CounterVec
	vectorLatency *prometheus.HistogramVec

	ingestOutcomes *prometheus.CounterVec
	ingestBatches  *prometheus.CounterVec
	ingestSegments prometheus.Histogram

	generationAttempts *prometheus.CounterVec
	paperSlots         *prometheus.CounterVec

	jobRuns    *prometheus.CounterVec
	jobLatency *prometheus.HistogramVec
	queueDepth *prometheus.GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process-wide collectors, or nil when metrics are off.
// Every Observe method is safe on a nil receiver.
func Current() *Metrics {
	return instance
}

// Init builds the process-wide collectors once.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("prometheus metrics initialized")
		}
	})
	return instance
}

// New builds an unshared set of collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exampaper_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exampaper_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_llm_requests_total",
			Help: "Embedding and generation calls by provider/operation/status.",
		}, []string{"provider", "operation", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exampaper_llm_request_duration_seconds",
			Help:    "Embedding and generation latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"provider", "operation"}),
		vectorOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_vector_operations_total",
			Help: "Vector store operations by provider/operation/status.",
		}, []string{"provider", "operation", "status"}),
		vectorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exampaper_vector_operation_duration_seconds",
			Help:    "Vector store operation latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		}, []string{"provider", "operation"}),
		ingestOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_ingest_outcomes_total",
			Help: "Document ingestions by terminal state.",
		}, []string{"state"}),
		ingestBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_ingest_batches_total",
			Help: "Ingestion upsert batches by outcome.",
		}, []string{"outcome"}),
		ingestSegments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exampaper_ingest_segments",
			Help:    "Segments reported per successful ingestion.",
			Buckets: []float64{0, 25, 50, 100, 150, 200, 250, 300},
		}),
		generationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_generation_attempts_total",
			Help: "Question generation attempts by archetype/outcome.",
		}, []string{"archetype", "outcome"}),
		paperSlots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_paper_slots_total",
			Help: "Assembled paper slots by archetype and source (generated/fallback).",
		}, []string{"archetype", "source"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exampaper_job_runs_total",
			Help: "Finished background jobs by type/status.",
		}, []string{"job_type", "status"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exampaper_job_run_duration_seconds",
			Help:    "Background job duration in seconds.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job_type"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exampaper_job_queue_depth",
			Help: "Job rows by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency,
		m.vectorOps, m.vectorLatency,
		m.ingestOutcomes, m.ingestBatches, m.ingestSegments,
		m.generationAttempts, m.paperSlots,
		m.jobRuns, m.jobLatency, m.queueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orUnknown(method)
	route = orUnknown(route)
	m.apiRequests.WithLabelValues(method, route, orUnknown(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	provider = orUnknown(provider)
	operation = orUnknown(operation)
	m.llmRequests.WithLabelValues(provider, operation, orUnknown(status)).Inc()
	if dur > 0 {
		m.llmLatency.WithLabelValues(provider, operation).Observe(dur.Seconds())
	}
}

func (m *Metrics) ObserveVectorOp(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	provider = orUnknown(provider)
	operation = orUnknown(operation)
	m.vectorOps.WithLabelValues(provider, operation, orUnknown(status)).Inc()
	m.vectorLatency.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

func (m *Metrics) ObserveIngestion(state string, segments int) {
	if m == nil {
		return
	}
	m.ingestOutcomes.WithLabelValues(orUnknown(state)).Inc()
	if segments > 0 {
		m.ingestSegments.Observe(float64(segments))
	}
}

func (m *Metrics) IncIngestBatch(outcome string) {
	if m == nil {
		return
	}
	m.ingestBatches.WithLabelValues(orUnknown(outcome)).Inc()
}

func (m *Metrics) IncGenerationAttempt(archetype, outcome string) {
	if m == nil {
		return
	}
	m.generationAttempts.WithLabelValues(orUnknown(archetype), orUnknown(outcome)).Inc()
}

func (m *Metrics) IncPaperSlot(archetype string, fallback bool) {
	if m == nil {
		return
	}
	source := "generated"
	if fallback {
		source = "fallback"
	}
	m.paperSlots.WithLabelValues(orUnknown(archetype), source).Inc()
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	jobType = orUnknown(jobType)
	m.jobRuns.WithLabelValues(jobType, orUnknown(status)).Inc()
	m.jobLatency.WithLabelValues(jobType).Observe(dur.Seconds())
}

// StartJobQueueCollector samples job_run row counts by status until ctx ends.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	statuses := []string{domain.JobStatusQueued, domain.JobStatusRunning, domain.JobStatusSucceeded, domain.JobStatusFailed}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range statuses {
					m.queueDepth.WithLabelValues(s).Set(0)
				}
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Model(&domain.JobRun{}).
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: job queue depth query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					m.queueDepth.WithLabelValues(orUnknown(row.Status)).Set(float64(row.Count))
				}
			}
		}
	}()
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
