package diagnostics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes scrape health over Prometheus for the serve mode.
type Collector struct {
	fillRate    *prometheus.GaugeVec
	health      *prometheus.GaugeVec
	scrapeDur   *prometheus.HistogramVec
	events      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	driftAlerts *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// NewCollector registers the trailscan metric set on its own registry,
// so tests can create collectors freely without duplicate-registration
// panics.
func NewCollector() (*Collector, *prometheus.Registry) {
	c := &Collector{
		fillRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailscan_fill_rate_percent",
			Help: "Per-field fill rate of the most recent scrape.",
		}, []string{"source", "field"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailscan_source_health",
			Help: "Source health level: 3 healthy, 2 degraded, 1 failing, 0 stale.",
		}, []string{"source"}),
		scrapeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trailscan_scrape_duration_seconds",
			Help:    "Wall-clock duration of one source scrape.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailscan_events_total",
			Help: "Events found per source, by reconciliation outcome.",
		}, []string{"source", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailscan_errors_total",
			Help: "Scrape errors per source, by taxonomy class.",
		}, []string{"source", "class"}),
		driftAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailscan_structure_changes_total",
			Help: "Structure-hash changes observed between consecutive runs.",
		}, []string{"source"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailscan_last_success_timestamp_seconds",
			Help: "Unix time of the last successful scrape.",
		}, []string{"source"}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(c.fillRate, c.health, c.scrapeDur, c.events, c.errors, c.driftAlerts, c.lastSuccess)
	return c, reg
}

// ObserveRun records one completed source scrape.
func (c *Collector) ObserveRun(source string, rates map[string]float64, h Health, dur time.Duration, ok bool) {
	for field, rate := range rates {
		c.fillRate.WithLabelValues(source, field).Set(rate)
	}
	c.health.WithLabelValues(source).Set(healthValue(h))
	c.scrapeDur.WithLabelValues(source).Observe(dur.Seconds())
	if ok {
		c.lastSuccess.WithLabelValues(source).SetToCurrentTime()
	}
}

// CountEvents records reconciliation outcomes (created/updated/skipped).
func (c *Collector) CountEvents(source, outcome string, n int) {
	if n > 0 {
		c.events.WithLabelValues(source, outcome).Add(float64(n))
	}
}

// CountErrors records taxonomy-classed errors (fetch/parse/merge/config).
func (c *Collector) CountErrors(source, class string, n int) {
	if n > 0 {
		c.errors.WithLabelValues(source, class).Add(float64(n))
	}
}

// CountStructureChange records a drift detection.
func (c *Collector) CountStructureChange(source string) {
	c.driftAlerts.WithLabelValues(source).Inc()
}

func healthValue(h Health) float64 {
	switch h {
	case HealthHealthy:
		return 3
	case HealthDegraded:
		return 2
	case HealthFailing:
		return 1
	default:
		return 0
	}
}

// Handler returns the /metrics handler for a registry built by
// NewCollector.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
