package runner

import (
	"runtime"
	"strings"
	"time"

	"github.com/temirov/runcmd/internal/execshell"
)

const (
	defaultDrainGracePeriodConstant          = 250 * time.Millisecond
	timeoutConfigurationKeyConstant          = "timeout"
	encodingConfigurationKeyConstant         = "encoding"
	drainGracePeriodConfigurationKeyConstant = "drain_grace_period"
	configurationKeySeparatorConstant        = "."
)

// CommandConfiguration captures execution settings shared by every command invocation.
type CommandConfiguration struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	Encoding         string        `mapstructure:"encoding"`
	DrainGracePeriod time.Duration `mapstructure:"drain_grace_period"`
}

// DefaultCommandConfiguration waits without bound and decodes output using the platform encoding.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Timeout:          0,
		Encoding:         string(execshell.ResolveDefaultTextEncoding(runtime.GOOS)),
		DrainGracePeriod: defaultDrainGracePeriodConstant,
	}
}

// DefaultConfigurationValues exposes the defaults keyed for the configuration loader under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + timeoutConfigurationKeyConstant:          defaults.Timeout.String(),
		prefix + configurationKeySeparatorConstant + encodingConfigurationKeyConstant:         defaults.Encoding,
		prefix + configurationKeySeparatorConstant + drainGracePeriodConfigurationKeyConstant: defaults.DrainGracePeriod.String(),
	}
}

// Sanitize normalizes configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Encoding = strings.ToLower(strings.TrimSpace(configuration.Encoding))
	if len(sanitized.Encoding) == 0 {
		sanitized.Encoding = DefaultCommandConfiguration().Encoding
	}
	if sanitized.Timeout < 0 {
		sanitized.Timeout = 0
	}
	if sanitized.DrainGracePeriod == 0 {
		sanitized.DrainGracePeriod = defaultDrainGracePeriodConstant
	}
	return sanitized
}

// EngineConfiguration converts the settings into execution engine configuration.
func (configuration CommandConfiguration) EngineConfiguration(observers ...execshell.ExecutionObserver) execshell.EngineConfiguration {
	sanitized := configuration.Sanitize()
	return execshell.EngineConfiguration{
		OperatingSystem:  runtime.GOOS,
		DefaultEncoding:  execshell.TextEncoding(sanitized.Encoding),
		DrainGracePeriod: sanitized.DrainGracePeriod,
		Observers:        observers,
	}
}
