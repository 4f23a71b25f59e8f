package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Quote attempt results.
const (
	QuoteResultQuoted   = "quoted"
	QuoteResultRejected = "rejected"
	QuoteResultError    = "error"
)

// Violation kinds.
const (
	ViolationQuantity = "quantity"
	ViolationAmount   = "amount"
)

// MinimumMetrics records how minimum rules affect sale editing and quoting.
// A nil receiver is a no-op so callers never need to guard.
type MinimumMetrics struct {
	clamps       *prometheus.CounterVec
	warnings     prometheus.Counter
	incompatible prometheus.Counter
	quotes       *prometheus.CounterVec
	violations   *prometheus.CounterVec
	quoteLatency prometheus.Histogram
}

// NewMinimumMetrics registers the minimum metrics on the provided registerer.
func NewMinimumMetrics(reg prometheus.Registerer) *MinimumMetrics {
	if reg == nil {
		return &MinimumMetrics{}
	}
	clamps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_minimum_clamps_total",
		Help: "Line quantities raised to the resolved minimum.",
	}, []string{"trigger"})
	warnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sale_minimum_warnings_total",
		Help: "Advisory warnings emitted for quantities below the minimum.",
	})
	incompatible := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "minimum_resolve_incompatible_unit_total",
		Help: "Minimum resolutions skipped because the line unit is in another category.",
	})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_quote_attempts_total",
		Help: "Draft to quotation transitions attempted, by result.",
	}, []string{"result"})
	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_minimum_violations_total",
		Help: "Quote attempts blocked by a minimum rule, by kind.",
	}, []string{"kind"})
	quoteLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_quote_duration_seconds",
		Help:    "Duration of a single sale quote transaction.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(clamps, warnings, incompatible, quotes, violations, quoteLatency)
	return &MinimumMetrics{
		clamps:       clamps,
		warnings:     warnings,
		incompatible: incompatible,
		quotes:       quotes,
		violations:   violations,
		quoteLatency: quoteLatency,
	}
}

func (m *MinimumMetrics) IncClamp(trigger string) {
	if m == nil || m.clamps == nil {
		return
	}
	m.clamps.WithLabelValues(normalizeLabel(trigger)).Inc()
}

func (m *MinimumMetrics) IncWarning() {
	if m == nil || m.warnings == nil {
		return
	}
	m.warnings.Inc()
}

func (m *MinimumMetrics) IncIncompatibleUnit() {
	if m == nil || m.incompatible == nil {
		return
	}
	m.incompatible.Inc()
}

func (m *MinimumMetrics) IncQuote(result string) {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *MinimumMetrics) IncViolation(kind string) {
	if m == nil || m.violations == nil {
		return
	}
	m.violations.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *MinimumMetrics) ObserveQuote(duration time.Duration) {
	if m == nil || m.quoteLatency == nil {
		return
	}
	m.quoteLatency.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
