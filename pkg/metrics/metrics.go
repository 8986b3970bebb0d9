package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Business metrics
	UsersRegistered   prometheus.Counter
	LoginAttempts     *prometheus.CounterVec
	ResearchesCreated *prometheus.CounterVec
	ReportsCreated    *prometheus.CounterVec
	QuotaRejections   *prometheus.CounterVec
	SubscriptionsSold *prometheus.CounterVec
	ReportExports     prometheus.Counter

	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	LLMRequests      *prometheus.CounterVec
	LLMDuration      *prometheus.HistogramVec
	QueueDepth       prometheus.Gauge
}

// New creates a new Metrics instance registered on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of users registered",
		}),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"}, // success, failed
		),
		ResearchesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "researches_created_total",
				Help: "Total number of researches created",
			},
			[]string{"mode"}, // auto, manual
		),
		ReportsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reports_created_total",
				Help: "Total number of reports created",
			},
			[]string{"source"}, // pipeline, api
		),
		QuotaRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quota_rejections_total",
				Help: "Research creations refused by the tier quota",
			},
			[]string{"tier"},
		),
		SubscriptionsSold: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_sold_total",
				Help: "Total number of subscriptions started",
			},
			[]string{"tier"},
		),
		ReportExports: factory.NewCounter(prometheus.CounterOpts{
			Name: "report_exports_total",
			Help: "Total number of report workbooks exported",
		}),

		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_pipeline_runs_total",
				Help: "Research pipeline runs by outcome",
			},
			[]string{"outcome"}, // completed, failed, skipped
		),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "research_pipeline_duration_seconds",
			Help:    "Time from job pickup to terminal status",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		LLMRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Language model requests by operation and outcome",
			},
			[]string{"operation", "outcome"}, // discover|generate, ok|degraded
		),
		LLMDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Language model request latency in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"operation"},
		),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "research_queue_depth",
			Help: "Jobs waiting in the research queue",
		}),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, e.g. /api/researches/:id

			err := next(c)
			if err != nil {
				// let echo write the error so the recorded status is final
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return nil
		}
	}
}

// RecordUserRegistered increments users registered counter
func (m *Metrics) RecordUserRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

// RecordLoginAttempt increments login attempts counter
func (m *Metrics) RecordLoginAttempt(success bool) {
	if m == nil {
		return
	}
	status := "failed"
	if success {
		status = "success"
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

// RecordResearchCreated counts a new research by discovery mode
func (m *Metrics) RecordResearchCreated(auto bool) {
	if m == nil {
		return
	}
	mode := "manual"
	if auto {
		mode = "auto"
	}
	m.ResearchesCreated.WithLabelValues(mode).Inc()
}

// RecordReportCreated counts a new report by where it came from
func (m *Metrics) RecordReportCreated(source string) {
	if m == nil {
		return
	}
	m.ReportsCreated.WithLabelValues(source).Inc()
}

// RecordQuotaRejection counts a research refused by the quota policy
func (m *Metrics) RecordQuotaRejection(tier string) {
	if m == nil {
		return
	}
	m.QuotaRejections.WithLabelValues(tier).Inc()
}

// RecordSubscriptionSold increments subscriptions sold counter
func (m *Metrics) RecordSubscriptionSold(tier string) {
	if m == nil {
		return
	}
	m.SubscriptionsSold.WithLabelValues(tier).Inc()
}

// RecordReportExport counts an exported workbook
func (m *Metrics) RecordReportExport() {
	if m == nil {
		return
	}
	m.ReportExports.Inc()
}

// RecordPipelineRun records one pipeline outcome and its duration
func (m *Metrics) RecordPipelineRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(duration.Seconds())
}

// RecordLLMRequest records one model call
func (m *Metrics) RecordLLMRequest(operation string, degraded bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	m.LLMRequests.WithLabelValues(operation, outcome).Inc()
	m.LLMDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetQueueDepth updates the queue depth gauge
func (m *Metrics) SetQueueDepth(n int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
