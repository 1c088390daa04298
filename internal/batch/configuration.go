package batch

import "strings"

const (
	fileConfigurationKeyConstant        = "file"
	parallelismConfigurationKeyConstant = "parallelism"
	failFastConfigurationKeyConstant    = "fail_fast"
	formatConfigurationKeyConstant      = "format"
	configurationKeySeparatorConstant   = "."
)

// CommandConfiguration captures configuration values for the batch command.
type CommandConfiguration struct {
	File        string `mapstructure:"file"`
	Parallelism int    `mapstructure:"parallelism"`
	FailFast    bool   `mapstructure:"fail_fast"`
	Format      string `mapstructure:"format"`
}

// DefaultCommandConfiguration provides default batch command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		File:        "",
		Parallelism: defaultParallelismConstant,
		FailFast:    false,
		Format:      string(ReportFormatYAML),
	}
}

// DefaultConfigurationValues exposes the defaults keyed for the configuration loader under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + fileConfigurationKeyConstant:        defaults.File,
		prefix + configurationKeySeparatorConstant + parallelismConfigurationKeyConstant: defaults.Parallelism,
		prefix + configurationKeySeparatorConstant + failFastConfigurationKeyConstant:    defaults.FailFast,
		prefix + configurationKeySeparatorConstant + formatConfigurationKeyConstant:      defaults.Format,
	}
}

// Sanitize normalizes configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.File = strings.TrimSpace(configuration.File)
	if sanitized.Parallelism <= 0 {
		sanitized.Parallelism = defaultParallelismConstant
	}
	if format, formatError := ParseReportFormat(configuration.Format); formatError == nil {
		sanitized.Format = string(format)
	} else {
		sanitized.Format = string(ReportFormatYAML)
	}
	return sanitized
}
