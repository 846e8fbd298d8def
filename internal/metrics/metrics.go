package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chriserin/ftspec/internal/runner"
)

const (
	MetricsNamespace = "ftspec"
)

// Metrics holds the collectors of one run. Every run gets its own registry so an
// isolated child never reports into its parent's counters.
type Metrics struct {
	registry *prometheus.Registry

	testsTotal       *prometheus.CounterVec
	isolationSpawns  prometheus.Counter
	openChannels     prometheus.Gauge
	lostResultsTotal prometheus.Counter
	runDuration      prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		testsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Count of finished tests by result",
		}, []string{
			"result",
		}),
		isolationSpawns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "isolation_spawns_total",
			Help:      "Count of isolated child processes started",
		}),
		openChannels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "isolation_open_channel_endpoints",
			Help:      "Channel endpoints currently held open by the isolation coordinator",
		}),
		lostResultsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "isolation_lost_results_total",
			Help:      "Count of isolated suites whose child never reported",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Attach records test and run results from the emitter.
func (m *Metrics) Attach(e *runner.Emitter) {
	e.OnTestEnd(func(r *runner.TestResult) {
		m.testsTotal.WithLabelValues(r.Status.String()).Inc()
	})
	e.OnRunnerEnd(func(r *runner.Result) {
		m.runDuration.Set(r.Duration.Seconds())
	})
}

func (m *Metrics) RecordSpawn() {
	m.isolationSpawns.Inc()
}

func (m *Metrics) ChannelOpened(endpoints int) {
	m.openChannels.Add(float64(endpoints))
}

func (m *Metrics) ChannelClosed(endpoints int) {
	m.openChannels.Sub(float64(endpoints))
}

func (m *Metrics) RecordLostResult() {
	m.lostResultsTotal.Inc()
}

// WriteTextfile writes every collected metric in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
