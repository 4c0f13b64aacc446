package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the probe's Prometheus collectors on a private registry.
// All methods are no-ops on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	messagesSent     *prometheus.CounterVec
	eventsReceived   *prometheus.CounterVec
	errors           *prometheus.CounterVec
	scenarioDuration *prometheus.HistogramVec
}

// NewMetrics registers the probe collectors under namespace.
func NewMetrics(namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultServiceName
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.messagesSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages sent to the agent",
		},
		[]string{"scenario"},
	)

	m.eventsReceived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of events received from the agent",
		},
		[]string{"kind"}, // message, task, status, artifact
	)

	m.errors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by stage",
		},
		[]string{"stage"}, // connect, send, stream, check
	)

	m.scenarioDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scenario_duration_seconds",
			Help:      "Scenario duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"scenario"},
	)

	return m, nil
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordMessageSent(scenario string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(scenario).Inc()
}

func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordError(stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveScenario(scenario string, d time.Duration) {
	if m == nil {
		return
	}
	m.scenarioDuration.WithLabelValues(scenario).Observe(d.Seconds())
}

// WriteTextfile writes all metrics to path in the text exposition format,
// creating parent directories. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
