package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/temirov/runcmd/internal/execshell"
)

const (
	metricsNamespaceConstant                = "runcmd"
	executionsTotalMetricNameConstant       = "executions_total"
	executionsTotalMetricHelpConstant       = "Completed command executions by exit status"
	executionDurationMetricNameConstant     = "execution_duration_seconds"
	executionDurationMetricHelpConstant     = "Wall-clock duration of command executions"
	executionsInFlightMetricNameConstant    = "executions_in_flight"
	executionsInFlightMetricHelpConstant    = "Child processes currently running"
	launchFailuresTotalMetricNameConstant   = "launch_failures_total"
	launchFailuresTotalMetricHelpConstant   = "Commands whose child process could not be spawned"
	statusLabelNameConstant                 = "status"
	registererNotConfiguredMessageConstant  = "metrics registerer not configured"
	gathererNotConfiguredMessageConstant    = "metrics gatherer not configured"
	emptyTextfilePathMessageConstant        = "metrics textfile path cannot be empty"
	metricRegistrationErrorTemplateConstant = "failed to register %s: %w"
	textfileWriteErrorTemplateConstant      = "failed to write metrics textfile %s: %w"
)

var executionDurationBucketsSeconds = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// ErrRegistererNotConfigured indicates that the collector was constructed without a registerer.
var ErrRegistererNotConfigured = errors.New(registererNotConfiguredMessageConstant)

// ExecutionCollector implements execshell.ExecutionObserver by updating Prometheus metrics.
type ExecutionCollector struct {
	executionsTotal     *prometheus.CounterVec
	executionDuration   *prometheus.HistogramVec
	executionsInFlight  prometheus.Gauge
	launchFailuresTotal prometheus.Counter
}

// NewExecutionCollector creates the execution metrics and registers them with registerer.
func NewExecutionCollector(registerer prometheus.Registerer) (*ExecutionCollector, error) {
	if registerer == nil {
		return nil, ErrRegistererNotConfigured
	}

	collector := &ExecutionCollector{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespaceConstant,
				Name:      executionsTotalMetricNameConstant,
				Help:      executionsTotalMetricHelpConstant,
			},
			[]string{statusLabelNameConstant},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespaceConstant,
				Name:      executionDurationMetricNameConstant,
				Help:      executionDurationMetricHelpConstant,
				Buckets:   executionDurationBucketsSeconds,
			},
			[]string{statusLabelNameConstant},
		),
		executionsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespaceConstant,
				Name:      executionsInFlightMetricNameConstant,
				Help:      executionsInFlightMetricHelpConstant,
			},
		),
		launchFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespaceConstant,
				Name:      launchFailuresTotalMetricNameConstant,
				Help:      launchFailuresTotalMetricHelpConstant,
			},
		),
	}

	namedCollectors := []struct {
		name      string
		collector prometheus.Collector
	}{
		{name: executionsTotalMetricNameConstant, collector: collector.executionsTotal},
		{name: executionDurationMetricNameConstant, collector: collector.executionDuration},
		{name: executionsInFlightMetricNameConstant, collector: collector.executionsInFlight},
		{name: launchFailuresTotalMetricNameConstant, collector: collector.launchFailuresTotal},
	}
	for _, namedCollector := range namedCollectors {
		if registrationError := registerer.Register(namedCollector.collector); registrationError != nil {
			return nil, fmt.Errorf(metricRegistrationErrorTemplateConstant, namedCollector.name, registrationError)
		}
	}

	// Pre-create every status series so exports list zero counts.
	for _, status := range []execshell.ExitStatus{execshell.ExitStatusSuccess, execshell.ExitStatusFailure, execshell.ExitStatusTimedOut} {
		collector.executionsTotal.WithLabelValues(status.String())
	}

	return collector, nil
}

// ExecutionStarted counts the spawned child process as in flight.
func (collector *ExecutionCollector) ExecutionStarted(execshell.Invocation) {
	collector.executionsInFlight.Inc()
}

// ExecutionCompleted records the outcome. Launch failures were never counted as in flight.
func (collector *ExecutionCollector) ExecutionCompleted(invocation execshell.Invocation, result execshell.ExecuteResult) {
	if invocation.ProcessID != 0 {
		collector.executionsInFlight.Dec()
	}

	statusLabel := result.Status().String()
	collector.executionsTotal.WithLabelValues(statusLabel).Inc()
	collector.executionDuration.WithLabelValues(statusLabel).Observe(result.Duration().Seconds())
}

// ExecutionLaunchFailed counts the failed spawn.
func (collector *ExecutionCollector) ExecutionLaunchFailed(execshell.Invocation, error) {
	collector.launchFailuresTotal.Inc()
}

// WriteTextfile atomically writes every gathered metric to path in the Prometheus text format.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		return errors.New(gathererNotConfiguredMessageConstant)
	}

	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return errors.New(emptyTextfilePathMessageConstant)
	}

	if writeError := prometheus.WriteToTextfile(trimmedPath, gatherer); writeError != nil {
		return fmt.Errorf(textfileWriteErrorTemplateConstant, trimmedPath, writeError)
	}

	return nil
}
