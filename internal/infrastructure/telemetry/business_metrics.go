package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricDomainEventsTotal     = "neuronek_domain_events_total"
	MetricEventsPublishedTotal  = "neuronek_events_published_total"
	MetricHandlerFailuresTotal  = "neuronek_event_handler_failures_total"
	MetricDeliveriesTotal       = "neuronek_event_deliveries_total"
	MetricOutboxProcessedTotal  = "neuronek_outbox_entries_processed_total"
	MetricSinkMessagesTotal     = "neuronek_sink_messages_total"
	MetricJobRunsTotal          = "neuronek_scheduler_job_runs_total"
	MetricJobDurationSeconds    = "neuronek_scheduler_job_duration_seconds"
	MetricLoginAttemptsTotal    = "neuronek_login_attempts_total"
	MetricDosageClassifiedTotal = "neuronek_dosage_classifications_total"
)

// Outcome labels shared by several counters.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultReceived = "received"
)

// BusinessMetrics exposes the application counters served on /metrics.
// It uses its own registry so tests can create as many instances as they need.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type BusinessMetrics struct {
	registry *prometheus.Registry

	domainEvents     *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	handlerFailures  *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	outboxProcessed  *prometheus.CounterVec
	sinkMessages     *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	loginAttempts    *prometheus.CounterVec
	dosageClassified *prometheus.CounterVec
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	// RuntimeCollectors adds the Go runtime and process collectors
	RuntimeCollectors bool
	// JobBuckets are the histogram buckets for job durations (seconds)
	JobBuckets []float64
}

// NewBusinessMetrics creates and registers every business metric.
func NewBusinessMetrics(cfg BusinessMetricsConfig) *BusinessMetrics {
	if len(cfg.JobBuckets) == 0 {
		cfg.JobBuckets = JobDurationBuckets
	}

	bm := &BusinessMetrics{
		registry: prometheus.NewRegistry(),
		domainEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDomainEventsTotal,
			Help: "Domain events observed on the bus, by type",
		}, []string{"event_type"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEventsPublishedTotal,
			Help: "Events dispatched by the in-process bus",
		}, []string{"event_type"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHandlerFailuresTotal,
			Help: "Event handler errors and recovered panics",
		}, []string{"event_type"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDeliveriesTotal,
			Help: "Deduplicated handler deliveries, by outcome",
		}, []string{"event_type", "outcome"}),
		outboxProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricOutboxProcessedTotal,
			Help: "Outbox entries relayed, by resulting status",
		}, []string{"event_type", "status"}),
		sinkMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSinkMessagesTotal,
			Help: "Events handed to outbound sinks",
		}, []string{"sink", "event_type", "result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricJobRunsTotal,
			Help: "Scheduled job executions",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricJobDurationSeconds,
			Help:    "Scheduled job run time",
			Buckets: cfg.JobBuckets,
		}, []string{"job"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricLoginAttemptsTotal,
			Help: "Login attempts by outcome",
		}, []string{"result"}),
		dosageClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDosageClassifiedTotal,
			Help: "Dosage classifications served, by class",
		}, []string{"classification"}),
	}

	bm.registry.MustRegister(
		bm.domainEvents,
		bm.eventsPublished,
		bm.handlerFailures,
		bm.deliveries,
		bm.outboxProcessed,
		bm.sinkMessages,
		bm.jobRuns,
		bm.jobDuration,
		bm.loginAttempts,
		bm.dosageClassified,
	)
	if cfg.RuntimeCollectors {
		bm.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return bm
}

// Registry returns the underlying registry
func (bm *BusinessMetrics) Registry() *prometheus.Registry {
	return bm.registry
}

// Handler serves the registry in the Prometheus text format
func (bm *BusinessMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(bm.registry, promhttp.HandlerOpts{Registry: bm.registry})
}

// EventPublished counts a bus dispatch
func (bm *BusinessMetrics) EventPublished(eventType string) {
	bm.eventsPublished.WithLabelValues(eventType).Inc()
}

// HandlerFailed counts a failed handler invocation
func (bm *BusinessMetrics) HandlerFailed(eventType string) {
	bm.handlerFailures.WithLabelValues(eventType).Inc()
}

// EventDelivered counts how a deduplicating handler disposed of an event
func (bm *BusinessMetrics) EventDelivered(eventType, outcome string) {
	bm.deliveries.WithLabelValues(eventType, outcome).Inc()
}

// OutboxEntryProcessed counts an outbox entry leaving the processor
func (bm *BusinessMetrics) OutboxEntryProcessed(eventType string, status shared.OutboxStatus) {
	bm.outboxProcessed.WithLabelValues(eventType, string(status)).Inc()
}

// SinkReceived counts an event entering an outbound sink
func (bm *BusinessMetrics) SinkReceived(sink, eventType string) {
	bm.sinkMessages.WithLabelValues(sink, eventType, ResultReceived).Inc()
}

// SinkDelivered counts the delivery outcome of an outbound sink
func (bm *BusinessMetrics) SinkDelivered(sink, eventType string, err error) {
	bm.sinkMessages.WithLabelValues(sink, eventType, result(err)).Inc()
}

// JobFinished records one scheduled job run
func (bm *BusinessMetrics) JobFinished(job string, duration time.Duration, err error) {
	bm.jobRuns.WithLabelValues(job, result(err)).Inc()
	bm.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// LoginAttempted counts a login by outcome
func (bm *BusinessMetrics) LoginAttempted(success bool) {
	if success {
		bm.loginAttempts.WithLabelValues(ResultSuccess).Inc()
		return
	}
	bm.loginAttempts.WithLabelValues(ResultFailure).Inc()
}

// DosageClassified counts a served classification
func (bm *BusinessMetrics) DosageClassified(classification string) {
	bm.dosageClassified.WithLabelValues(classification).Inc()
}

// Handle counts every domain event it is subscribed to
func (bm *BusinessMetrics) Handle(_ context.Context, event shared.DomainEvent) error {
	bm.domainEvents.WithLabelValues(event.EventType()).Inc()
	return nil
}

// EventTypes subscribes to all events
func (bm *BusinessMetrics) EventTypes() []string {
	return nil
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
