package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/runcmd/internal/execshell"
	"github.com/temirov/runcmd/internal/runner"
	"github.com/temirov/runcmd/internal/utils"
	"github.com/temirov/runcmd/internal/utils/flags"
	pathutils "github.com/temirov/runcmd/internal/utils/path"
)

const (
	commandUseConstant                    = "batch [flags] [FILE]"
	commandShortDescriptionConstant       = "Run the commands listed in a YAML file"
	commandLongDescriptionConstant        = "batch executes the commands defined in a YAML file concurrently and prints a report with each command's status, duration, and output. Per-command timeout and encoding take priority over the file defaults, which take priority over --timeout and --encoding."
	fileFlagNameConstant                  = "file"
	fileFlagShorthandConstant             = "f"
	fileFlagDescriptionConstant           = "Path to the batch definition file"
	parallelismFlagNameConstant           = "parallelism"
	parallelismFlagShorthandConstant      = "p"
	parallelismFlagDescriptionConstant    = "Maximum number of commands running at once"
	formatFlagNameConstant                = "format"
	formatFlagDescriptionConstant         = "Report encoding"
	failFastFlagNameConstant              = "fail-fast"
	failFastFlagDescriptionConstant       = "Stop starting commands after the first one that does not succeed"
	definitionPathMissingMessageConstant  = "batch requires a definition file; provide a positional argument or --file flag"
	definitionLoadFailureTemplateConstant = "unable to load batch definition: %w"
	executorCreationErrorTemplateConstant = "unable to construct batch executor: %w"
	reportWriteErrorTemplateConstant      = "unable to write batch report: %w"
	batchCommandDebugMessageConstant      = "batch command resolved"
	logFieldDefinitionPathConstant        = "definition"
	logFieldFormatConstant                = "format"
	logFieldFailFastConstant              = "fail_fast"
	logFieldConfigFileConstant            = "config_file"
)

var errDefinitionPathMissing = errors.New(definitionPathMissingMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the batch command.
type CommandBuilder struct {
	LoggerProvider                 LoggerProvider
	ConfigurationProvider          func() CommandConfiguration
	ExecutionConfigurationProvider func() runner.CommandConfiguration
	EngineProvider                 func() *execshell.ExecutionEngine
	HomeExpander                   *pathutils.HomeExpander
}

// Build constructs the batch command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().StringP(fileFlagNameConstant, fileFlagShorthandConstant, "", fileFlagDescriptionConstant)
	command.Flags().IntP(parallelismFlagNameConstant, parallelismFlagShorthandConstant, defaults.Parallelism, parallelismFlagDescriptionConstant)
	flags.AddChoiceFlag(command.Flags(), nil, formatFlagNameConstant, defaults.Format, []string{string(ReportFormatYAML), string(ReportFormatJSON)}, formatFlagDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), nil, failFastFlagNameConstant, defaults.FailFast, failFastFlagDescriptionConstant)
	flags.BindExecutionFlags(command, flags.ExecutionFlagValues{})

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	options := builder.resolveOptions(command, configuration)

	definitionPath := builder.resolveDefinitionPath(command, arguments, configuration)
	if len(definitionPath) == 0 {
		if helpError := command.Help(); helpError != nil {
			return helpError
		}
		return errDefinitionPathMissing
	}

	definition, definitionError := LoadDefinition(definitionPath)
	if definitionError != nil {
		return fmt.Errorf(definitionLoadFailureTemplateConstant, definitionError)
	}

	executionConfiguration := builder.resolveExecutionConfiguration(command)
	definition.Defaults = mergeDefaults(definition.Defaults, executionConfiguration)

	logger := builder.resolveLogger()
	configurationFilePath, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	logger.Debug(
		batchCommandDebugMessageConstant,
		zap.String(logFieldDefinitionPathConstant, definitionPath),
		zap.Int(logFieldParallelismConstant, options.Parallelism),
		zap.Bool(logFieldFailFastConstant, options.FailFast),
		zap.String(logFieldFormatConstant, configuration.Format),
		zap.String(logFieldConfigFileConstant, configurationFilePath),
	)

	engine, engineError := runner.ResolveEngine(command.Context(), builder.EngineProvider, logger, executionConfiguration)
	if engineError != nil {
		return engineError
	}

	executor, executorError := NewExecutor(engine, logger)
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	report := executor.Execute(command.Context(), definition, options)

	format, _ := ParseReportFormat(builder.resolveFormat(command, configuration))
	if writeError := WriteReport(utils.NewFlushingWriter(command.OutOrStdout()), report, format); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}

	if !report.Succeeded() {
		statusError := utils.CommandStatusError{
			Subject:      definitionPath,
			Status:       report.WorstStatus(),
			FailedCount:  report.FailedCount(),
			CommandCount: report.Summary.Total,
		}
		if report.Summary.Total == 1 {
			statusError.Subject = report.Results[0].Name
		}
		return statusError
	}

	return nil
}

func (builder *CommandBuilder) resolveDefinitionPath(command *cobra.Command, arguments []string, configuration CommandConfiguration) string {
	candidatePath := configuration.File
	if command.Flags().Changed(fileFlagNameConstant) {
		candidatePath, _ = command.Flags().GetString(fileFlagNameConstant)
	}
	if len(arguments) > 0 && len(strings.TrimSpace(arguments[0])) > 0 {
		candidatePath = arguments[0]
	}

	expander := builder.HomeExpander
	if expander == nil {
		expander = pathutils.NewHomeExpander()
	}
	return expander.Expand(candidatePath)
}

func (builder *CommandBuilder) resolveOptions(command *cobra.Command, configuration CommandConfiguration) ExecutionOptions {
	options := ExecutionOptions{Parallelism: configuration.Parallelism, FailFast: configuration.FailFast}
	if command.Flags().Changed(parallelismFlagNameConstant) {
		options.Parallelism, _ = command.Flags().GetInt(parallelismFlagNameConstant)
	}
	if command.Flags().Changed(failFastFlagNameConstant) {
		options.FailFast = command.Flags().Lookup(failFastFlagNameConstant).Value.String() == "true"
	}
	return options
}

func (builder *CommandBuilder) resolveFormat(command *cobra.Command, configuration CommandConfiguration) string {
	if command.Flags().Changed(formatFlagNameConstant) {
		return command.Flags().Lookup(formatFlagNameConstant).Value.String()
	}
	return configuration.Format
}

func (builder *CommandBuilder) resolveExecutionConfiguration(command *cobra.Command) runner.CommandConfiguration {
	executionConfiguration := runner.DefaultCommandConfiguration()
	if builder.ExecutionConfigurationProvider != nil {
		executionConfiguration = builder.ExecutionConfigurationProvider()
	}

	if command.Flags().Changed(flags.TimeoutFlagName) {
		executionConfiguration.Timeout, _ = command.Flags().GetDuration(flags.TimeoutFlagName)
	}
	if command.Flags().Changed(flags.EncodingFlagName) {
		executionConfiguration.Encoding, _ = command.Flags().GetString(flags.EncodingFlagName)
	}

	return executionConfiguration.Sanitize()
}

func mergeDefaults(defaults DefinitionDefaults, executionConfiguration runner.CommandConfiguration) DefinitionDefaults {
	merged := defaults
	if merged.Timeout == 0 {
		merged.Timeout = executionConfiguration.Timeout
	}
	if len(merged.Encoding) == 0 {
		merged.Encoding = executionConfiguration.Encoding
	}
	return merged
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
