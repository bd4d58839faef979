// Package metrics holds the Prometheus instrumentation for webhooks and
// role changes.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const maxLabelLen = 64

// sanitizeLabel keeps label values bounded; empty becomes "unknown".
func sanitizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

type Metrics struct {
	webhookEvents *prometheus.CounterVec
	roleChanges   *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	processing    prometheus.Gauge
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
		instance.MustRegister(prometheus.DefaultRegisterer)
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guildpay",
				Name:      "webhook_events_total",
				Help:      "Stripe webhook deliveries by event type and outcome",
			},
			[]string{"type", "outcome"},
		),
		roleChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guildpay",
				Name:      "role_changes_total",
				Help:      "Discord role changes by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "guildpay",
				Name:      "role_queue_pending",
				Help:      "Role change jobs waiting in the queue",
			},
		),
		processing: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "guildpay",
				Name:      "role_queue_processing",
				Help:      "Role change jobs taken by a worker and not yet finished",
			},
		),
	}
}

// MustRegister registers all collectors on reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.webhookEvents, m.roleChanges, m.queueDepth, m.processing)
}

func (m *Metrics) RecordWebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(sanitizeLabel(eventType), sanitizeLabel(outcome)).Inc()
}

func (m *Metrics) RecordRoleChange(action, outcome string) {
	m.roleChanges.WithLabelValues(sanitizeLabel(action), sanitizeLabel(outcome)).Inc()
}

func (m *Metrics) SetQueueDepth(n int64) {
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) SetProcessingDepth(n int64) {
	m.processing.Set(float64(n))
}
