package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the honeypot turn pipeline.
type EngineMetrics struct {
	turnsTotal        *prometheus.CounterVec
	verdictsTotal     *prometheus.CounterVec
	llmFallbacksTotal prometheus.Counter
	exitsTotal        *prometheus.CounterVec
	entitiesCaptured  prometheus.Counter
	reportsTotal      *prometheus.CounterVec
	turnLatency       *prometheus.HistogramVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stickynet",
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Total processed turns by engagement mode",
		}, []string{"mode"}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stickynet",
			Subsystem: "detection",
			Name:      "verdicts_total",
			Help:      "Total detection verdicts by threat type",
		}, []string{"threat_type", "is_threat"}),
		llmFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stickynet",
			Subsystem: "engagement",
			Name:      "llm_fallbacks_total",
			Help:      "Turns answered with a canned reply after model failure",
		}),
		exitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stickynet",
			Subsystem: "engine",
			Name:      "exits_total",
			Help:      "Completed conversations by exit reason",
		}, []string{"reason"}),
		entitiesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stickynet",
			Subsystem: "intel",
			Name:      "entities_captured_total",
			Help:      "Total new intelligence entities merged into state",
		}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stickynet",
			Subsystem: "report",
			Name:      "published_total",
			Help:      "Final report publish attempts",
		}, []string{"status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stickynet",
			Subsystem: "engine",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.verdictsTotal, m.llmFallbacksTotal,
		m.exitsTotal, m.entitiesCaptured, m.reportsTotal, m.turnLatency)
	return m
}

func (m *EngineMetrics) ObserveTurn(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(mode).Inc()
	m.turnLatency.WithLabelValues(mode).Observe(seconds)
}

func (m *EngineMetrics) ObserveVerdict(threatType string, isThreat bool) {
	if m == nil {
		return
	}
	if threatType == "" {
		threatType = "none"
	}
	label := "false"
	if isThreat {
		label = "true"
	}
	m.verdictsTotal.WithLabelValues(threatType, label).Inc()
}

func (m *EngineMetrics) ObserveLLMFallback() {
	if m == nil {
		return
	}
	m.llmFallbacksTotal.Inc()
}

func (m *EngineMetrics) ObserveExit(reason string) {
	if m == nil {
		return
	}
	m.exitsTotal.WithLabelValues(reason).Inc()
}

func (m *EngineMetrics) ObserveEntities(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.entitiesCaptured.Add(float64(count))
}

func (m *EngineMetrics) ObserveReportPublish(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.reportsTotal.WithLabelValues(status).Inc()
}
