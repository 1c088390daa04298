package runner_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/runcmd/internal/execshell"
	"github.com/temirov/runcmd/internal/runner"
)

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	platformEncoding := string(execshell.ResolveDefaultTextEncoding(runtime.GOOS))

	testCases := []struct {
		name                  string
		configuration         runner.CommandConfiguration
		expectedConfiguration runner.CommandConfiguration
	}{
		{
			name:                  "zero_value",
			configuration:         runner.CommandConfiguration{},
			expectedConfiguration: runner.CommandConfiguration{Encoding: platformEncoding, DrainGracePeriod: 250 * time.Millisecond},
		},
		{
			name:                  "normalizes_encoding",
			configuration:         runner.CommandConfiguration{Timeout: time.Second, Encoding: "  GBK ", DrainGracePeriod: time.Second},
			expectedConfiguration: runner.CommandConfiguration{Timeout: time.Second, Encoding: "gbk", DrainGracePeriod: time.Second},
		},
		{
			name:                  "negative_timeout_waits_without_bound",
			configuration:         runner.CommandConfiguration{Timeout: -time.Second, Encoding: "utf-8", DrainGracePeriod: time.Millisecond},
			expectedConfiguration: runner.CommandConfiguration{Encoding: "utf-8", DrainGracePeriod: time.Millisecond},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedConfiguration, testCase.configuration.Sanitize())
		})
	}
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	defaults := runner.DefaultConfigurationValues("execution")

	require.Equal(testInstance, "0s", defaults["execution.timeout"])
	require.Equal(testInstance, "250ms", defaults["execution.drain_grace_period"])
	require.Equal(testInstance, string(execshell.ResolveDefaultTextEncoding(runtime.GOOS)), defaults["execution.encoding"])
}

func TestEngineConfigurationCarriesObservers(testInstance *testing.T) {
	configuration := runner.CommandConfiguration{Encoding: "GBK"}.EngineConfiguration(silentObserver{})

	require.Equal(testInstance, runtime.GOOS, configuration.OperatingSystem)
	require.Equal(testInstance, execshell.TextEncodingGBK, configuration.DefaultEncoding)
	require.Equal(testInstance, 250*time.Millisecond, configuration.DrainGracePeriod)
	require.Len(testInstance, configuration.Observers, 1)
}

type silentObserver struct{}

func (silentObserver) ExecutionStarted(execshell.Invocation) {}

func (silentObserver) ExecutionCompleted(execshell.Invocation, execshell.ExecuteResult) {}

func (silentObserver) ExecutionLaunchFailed(execshell.Invocation, error) {}
