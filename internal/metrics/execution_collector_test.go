//go:build !windows

package metrics_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/runcmd/internal/execshell"
	"github.com/temirov/runcmd/internal/metrics"
)

const (
	testTimeoutConstant           = 200 * time.Millisecond
	testMissingExecutableConstant = "runcmd-metrics-missing-executable"
	testTextfileNameConstant      = "runcmd.prom"
	testExecutionsTotalMetricName = "runcmd_executions_total"
)

func newInstrumentedEngine(testInstance *testing.T) (*execshell.ExecutionEngine, *prometheus.Registry) {
	testInstance.Helper()

	registry := prometheus.NewRegistry()
	collector, collectorError := metrics.NewExecutionCollector(registry)
	require.NoError(testInstance, collectorError)

	engine, engineError := execshell.NewExecutionEngine(zap.NewNop(), execshell.NewOSProcessLauncher(), execshell.EngineConfiguration{
		Observers: []execshell.ExecutionObserver{collector},
	})
	require.NoError(testInstance, engineError)

	return engine, registry
}

func TestNewExecutionCollectorValidation(testInstance *testing.T) {
	collector, collectorError := metrics.NewExecutionCollector(nil)
	require.ErrorIs(testInstance, collectorError, metrics.ErrRegistererNotConfigured)
	require.Nil(testInstance, collector)

	registry := prometheus.NewRegistry()
	_, firstError := metrics.NewExecutionCollector(registry)
	require.NoError(testInstance, firstError)

	_, duplicateError := metrics.NewExecutionCollector(registry)
	require.Error(testInstance, duplicateError)
}

func TestExecutionCollectorRecordsOutcomes(testInstance *testing.T) {
	engine, registry := newInstrumentedEngine(testInstance)
	executionContext := context.Background()

	_, successError := engine.ExecuteCommand(executionContext, "true", 0)
	require.NoError(testInstance, successError)
	_, failureError := engine.ExecuteCommand(executionContext, "exit 3", 0)
	require.NoError(testInstance, failureError)
	_, timeoutError := engine.ExecuteArguments(executionContext, []string{"sleep", "5"}, testTimeoutConstant, execshell.TextEncodingUTF8)
	require.NoError(testInstance, timeoutError)
	_, launchError := engine.ExecuteArguments(executionContext, []string{testMissingExecutableConstant}, 0, execshell.TextEncodingUTF8)
	require.NoError(testInstance, launchError)

	expected := `
# HELP runcmd_executions_total Completed command executions by exit status
# TYPE runcmd_executions_total counter
runcmd_executions_total{status="failure"} 2
runcmd_executions_total{status="success"} 1
runcmd_executions_total{status="timed_out"} 1
# HELP runcmd_executions_in_flight Child processes currently running
# TYPE runcmd_executions_in_flight gauge
runcmd_executions_in_flight 0
# HELP runcmd_launch_failures_total Commands whose child process could not be spawned
# TYPE runcmd_launch_failures_total counter
runcmd_launch_failures_total 1
`
	require.NoError(testInstance, testutil.GatherAndCompare(
		registry,
		strings.NewReader(expected),
		testExecutionsTotalMetricName,
		"runcmd_executions_in_flight",
		"runcmd_launch_failures_total",
	))
}

func TestWriteTextfile(testInstance *testing.T) {
	engine, registry := newInstrumentedEngine(testInstance)
	_, runError := engine.ExecuteCommand(context.Background(), "true", 0)
	require.NoError(testInstance, runError)

	textfilePath := filepath.Join(testInstance.TempDir(), testTextfileNameConstant)
	require.NoError(testInstance, metrics.WriteTextfile(textfilePath, registry))

	exportedContent, readError := os.ReadFile(textfilePath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(exportedContent), `runcmd_executions_total{status="success"} 1`)
	require.Contains(testInstance, string(exportedContent), "runcmd_execution_duration_seconds_bucket")

	require.Error(testInstance, metrics.WriteTextfile("  ", registry))
	require.Error(testInstance, metrics.WriteTextfile(textfilePath, nil))
}
