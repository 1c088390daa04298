package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/runcmd/internal/execshell"
	"github.com/temirov/runcmd/internal/utils"
	"github.com/temirov/runcmd/internal/utils/flags"
)

const (
	commandUseConstant                    = "run [flags] -- COMMAND [ARGUMENT...]"
	commandShortDescriptionConstant       = "Run one command and print its output"
	commandLongDescriptionConstant        = "run executes a command through the platform shell, or directly with --argv, and prints standard output followed by standard error. The exit status is non-zero when the command fails or times out."
	argumentVectorFlagNameConstant        = "argv"
	argumentVectorFlagDescriptionConstant = "Execute the arguments directly instead of through the platform shell"
	missingCommandMessageConstant         = "run requires a command to execute"
	engineCreationErrorTemplateConstant   = "unable to construct execution engine: %w"
	commandExecutionErrorTemplateConstant = "run failed: %w"
	outputWriteErrorTemplateConstant      = "unable to write command output: %w"
	shellArgumentSeparatorConstant        = " "
	runCommandDebugMessageConstant        = "run command resolved"
	logFieldShellCommandConstant          = "shell_command"
	logFieldArgumentsConstant             = "arguments"
	logFieldTimeoutConstant               = "timeout"
	logFieldEncodingConstant              = "encoding"
	logFieldConfigFileConstant            = "config_file"
)

var errMissingCommand = errors.New(missingCommandMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the run command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	EngineProvider        func() *execshell.ExecutionEngine
}

// Build constructs the run command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().SetInterspersed(false)
	flags.BindExecutionFlags(command, flags.ExecutionFlagValues{})
	flags.AddToggleFlag(command.Flags(), nil, argumentVectorFlagNameConstant, false, argumentVectorFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		if helpError := command.Help(); helpError != nil {
			return helpError
		}
		return errMissingCommand
	}

	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()
	specification := builder.buildSpecification(command, arguments, configuration)

	configurationFilePath, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	logger.Debug(
		runCommandDebugMessageConstant,
		zap.String(logFieldShellCommandConstant, specification.ShellCommand),
		zap.Strings(logFieldArgumentsConstant, specification.Arguments),
		zap.Duration(logFieldTimeoutConstant, specification.Timeout),
		zap.String(logFieldEncodingConstant, string(specification.Encoding)),
		zap.String(logFieldConfigFileConstant, configurationFilePath),
	)

	engine, engineError := ResolveEngine(command.Context(), builder.EngineProvider, logger, configuration)
	if engineError != nil {
		return engineError
	}

	result, runError := engine.Run(command.Context(), specification)
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	if _, writeError := outputWriter.WriteString(result.Output()); writeError != nil {
		return fmt.Errorf(outputWriteErrorTemplateConstant, writeError)
	}
	if terminateError := outputWriter.TerminateLine(); terminateError != nil {
		return fmt.Errorf(outputWriteErrorTemplateConstant, terminateError)
	}

	if !result.Succeeded() {
		return utils.CommandStatusError{
			Subject:      strings.Join(arguments, shellArgumentSeparatorConstant),
			Status:       result.Status(),
			FailedCount:  1,
			CommandCount: 1,
		}
	}

	return nil
}

func (builder *CommandBuilder) buildSpecification(command *cobra.Command, arguments []string, configuration CommandConfiguration) execshell.CommandSpecification {
	timeout := configuration.Timeout
	if command.Flags().Changed(flags.TimeoutFlagName) {
		timeout, _ = command.Flags().GetDuration(flags.TimeoutFlagName)
	}

	encoding := configuration.Encoding
	if command.Flags().Changed(flags.EncodingFlagName) {
		encoding, _ = command.Flags().GetString(flags.EncodingFlagName)
	}

	specification := execshell.CommandSpecification{
		Timeout:  timeout,
		Encoding: execshell.TextEncoding(encoding),
	}

	if argumentVectorEnabled(command) {
		specification.Arguments = append([]string{}, arguments...)
		return specification
	}

	specification.ShellCommand = strings.Join(arguments, shellArgumentSeparatorConstant)
	return specification
}

func argumentVectorEnabled(command *cobra.Command) bool {
	argumentVectorFlag := command.Flags().Lookup(argumentVectorFlagNameConstant)
	if argumentVectorFlag == nil {
		return false
	}
	return argumentVectorFlag.Value.String() == "true"
}

// ResolveEngine prefers the provider, then the engine stored in the command context, and finally
// constructs a new engine from configuration.
func ResolveEngine(executionContext context.Context, provider func() *execshell.ExecutionEngine, logger *zap.Logger, configuration CommandConfiguration) (*execshell.ExecutionEngine, error) {
	if provider != nil {
		if engine := provider(); engine != nil {
			return engine, nil
		}
	}

	if engine, engineAvailable := utils.NewCommandContextAccessor().ExecutionEngine(executionContext); engineAvailable {
		return engine, nil
	}

	engine, creationError := execshell.NewExecutionEngine(logger, execshell.NewOSProcessLauncher(), configuration.EngineConfiguration())
	if creationError != nil {
		return nil, fmt.Errorf(engineCreationErrorTemplateConstant, creationError)
	}
	return engine, nil
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
