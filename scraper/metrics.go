package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors of one scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	CardsExtracted  prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics registers the collectors on a dedicated registry. The locale
// label lets the source and translation registries be gathered together.
func NewMetrics(locale string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"locale": locale}

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "scraper_requests_total",
			Help:        "HTTP requests issued, by phase (series_list or series_page).",
			ConstLabels: labels,
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "scraper_request_duration_seconds",
			Help:        "Latency of successful card list requests.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		},
	)
	cardsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "scraper_cards_extracted_total",
			Help:        "Card nodes found on series pages and handed to the pipeline.",
			ConstLabels: labels,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "scraper_retries_total",
			Help:        "Request attempts repeated after a retryable failure.",
			ConstLabels: labels,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "scraper_errors_total",
			Help:        "Failed request attempts by error type.",
			ConstLabels: labels,
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, cardsExtracted, retries, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		CardsExtracted:  cardsExtracted,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddCards counts card nodes extracted from one series page.
func (m *Metrics) AddCards(n int) {
	if m == nil {
		return
	}
	m.CardsExtracted.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
