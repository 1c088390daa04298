package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/runcmd/internal/batch"
	"github.com/temirov/runcmd/internal/execshell"
	"github.com/temirov/runcmd/internal/metrics"
	"github.com/temirov/runcmd/internal/runner"
	"github.com/temirov/runcmd/internal/ui"
	"github.com/temirov/runcmd/internal/utils"
	pathutils "github.com/temirov/runcmd/internal/utils/path"
)

const (
	applicationNameConstant                    = "runcmd"
	applicationShortDescriptionConstant        = "Run shell commands with timeouts and decoded output"
	applicationLongDescriptionConstant         = "runcmd executes commands through the platform shell or as argument vectors, enforces timeouts, decodes output in the configured character set, and reports success, failure, or timeout."
	configFileFlagNameConstant                 = "config"
	configFileFlagUsageConstant                = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                   = "log-level"
	logLevelFlagUsageConstant                  = "Override the configured log level."
	logFormatFlagNameConstant                  = "log-format"
	logFormatFlagUsageConstant                 = "Override the configured log format (structured or console)."
	metricsTextfileFlagNameConstant            = "metrics-textfile"
	metricsTextfileFlagUsageConstant           = "Write Prometheus execution metrics to this file after the run."
	versionFlagNameConstant                    = "version"
	versionFlagUsageConstant                   = "Print the application version and exit."
	commonConfigurationKeyConstant             = "common"
	commonLogLevelConfigKeyConstant            = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant           = commonConfigurationKeyConstant + ".log_format"
	executionConfigurationKeyConstant          = "execution"
	batchConfigurationKeyConstant              = "batch"
	metricsTextfileConfigKeyConstant           = "metrics.textfile"
	environmentPrefixConstant                  = "RUNCMD"
	configurationSearchPathEnvironmentConstant = "RUNCMD_CONFIG_SEARCH_PATH"
	configurationNameConstant                  = "config"
	configurationTypeConstant                  = "yaml"
	configurationInitializedMessageConstant    = "configuration initialized"
	configurationLogLevelFieldConstant         = "log_level"
	configurationLogFormatFieldConstant        = "log_format"
	configurationFileFieldConstant             = "config_file"
	metricsTextfileFieldConstant               = "metrics_textfile"
	configurationLoadErrorTemplateConstant     = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant        = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant            = "unable to flush logger: %w"
	engineCreationErrorTemplateConstant        = "unable to construct execution engine: %w"
	metricsCollectorErrorTemplateConstant      = "unable to register execution metrics: %w"
	metricsWriteErrorTemplateConstant          = "unable to write execution metrics: %w"
	unknownCommandErrorTemplateConstant        = "unknown command %q"
	rootCommandDebugMessageConstant            = "runcmd CLI diagnostics"
	logFieldCommandNameConstant                = "command_name"
	logFieldArgumentsConstant                  = "arguments"
	defaultConfigurationSearchPathConstant     = "."
	userConfigurationSearchPathConstant        = "~/.runcmd"
	versionOutputTemplateConstant              = "%s version: %s\n"
	unknownVersionConstant                     = "(devel)"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common    ApplicationCommonConfiguration  `mapstructure:"common"`
	Execution runner.CommandConfiguration     `mapstructure:"execution"`
	Batch     batch.CommandConfiguration      `mapstructure:"batch"`
	Metrics   ApplicationMetricsConfiguration `mapstructure:"metrics"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationMetricsConfiguration controls the Prometheus textfile export.
type ApplicationMetricsConfiguration struct {
	Textfile string `mapstructure:"textfile"`
}

// Application wires the Cobra root command, configuration loader, structured logger, and execution engine.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	consoleLogger          *zap.Logger
	engine                 *execshell.ExecutionEngine
	metricsRegistry        *prometheus.Registry
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	metricsTextfileValue   string
	commandContextAccessor utils.CommandContextAccessor
	homeExpander           *pathutils.HomeExpander
	versionResolver        func(context.Context) string
	exitFunction           func(int)
	versionOutput          io.Writer
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	homeExpander := pathutils.NewHomeExpander()
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		resolveConfigurationSearchPaths(homeExpander),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		homeExpander:           homeExpander,
		versionResolver:        resolveApplicationVersion,
		exitFunction:           os.Exit,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.metricsTextfileValue, metricsTextfileFlagNameConstant, "", metricsTextfileFlagUsageConstant)
	cobraCommand.Flags().Bool(versionFlagNameConstant, false, versionFlagUsageConstant)

	runBuilder := runner.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() runner.CommandConfiguration {
			return application.configuration.Execution
		},
		EngineProvider: func() *execshell.ExecutionEngine {
			return application.engine
		},
	}
	runCommand, runBuildError := runBuilder.Build()
	if runBuildError == nil {
		cobraCommand.AddCommand(runCommand)
	}

	batchBuilder := batch.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() batch.CommandConfiguration {
			return application.configuration.Batch
		},
		ExecutionConfigurationProvider: func() runner.CommandConfiguration {
			return application.configuration.Execution
		},
		EngineProvider: func() *execshell.ExecutionEngine {
			return application.engine
		},
		HomeExpander: homeExpander,
	}
	batchCommand, batchBuildError := batchBuilder.Build()
	if batchBuildError == nil {
		cobraCommand.AddCommand(batchCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy, exports metrics, and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()

	if metricsError := application.exportMetrics(); metricsError != nil && executionError == nil {
		executionError = metricsError
	}

	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// InitializeForCommand loads configuration and constructs the engine as if the named command were about to run.
func (application *Application) InitializeForCommand(commandUse string) error {
	targetCommand := application.rootCommand
	trimmedUse := strings.TrimSpace(commandUse)
	if len(trimmedUse) > 0 {
		foundCommand, _, findError := application.rootCommand.Find([]string{trimmedUse})
		if findError != nil || foundCommand == application.rootCommand {
			return fmt.Errorf(unknownCommandErrorTemplateConstant, trimmedUse)
		}
		targetCommand = foundCommand
	}

	if targetCommand.Context() == nil {
		targetCommand.SetContext(context.Background())
	}
	return application.initializeConfiguration(targetCommand)
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		metricsTextfileConfigKeyConstant: "",
	}
	for configurationKey, configurationValue := range runner.DefaultConfigurationValues(executionConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range batch.DefaultConfigurationValues(batchConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	configurationFilePath := application.homeExpander.Expand(application.configurationFilePath)
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration
	application.configuration.Execution = application.configuration.Execution.Sanitize()
	application.configuration.Batch = application.configuration.Batch.Sanitize()

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	if application.persistentFlagChanged(command, metricsTextfileFlagNameConstant) {
		application.configuration.Metrics.Textfile = application.metricsTextfileValue
	}
	application.configuration.Metrics.Textfile = application.homeExpander.Expand(application.configuration.Metrics.Textfile)

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(metricsTextfileFieldConstant, application.configuration.Metrics.Textfile),
	)

	observers, observersError := application.buildObservers()
	if observersError != nil {
		return observersError
	}

	engine, engineError := execshell.NewExecutionEngine(
		application.logger,
		execshell.NewOSProcessLauncher(),
		application.configuration.Execution.EngineConfiguration(observers...),
	)
	if engineError != nil {
		return fmt.Errorf(engineCreationErrorTemplateConstant, engineError)
	}
	application.engine = engine

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithExecutionEngine(updatedContext, engine)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) buildObservers() ([]execshell.ExecutionObserver, error) {
	observers := make([]execshell.ExecutionObserver, 0, 2)

	if application.humanReadableLoggingEnabled() {
		consoleLogger, consoleLoggerError := application.loggerFactory.CreateHumanReadableLogger(utils.LogLevel(application.configuration.Common.LogLevel))
		if consoleLoggerError != nil {
			return nil, fmt.Errorf(loggerCreationErrorTemplateConstant, consoleLoggerError)
		}
		application.consoleLogger = consoleLogger
		observers = append(observers, ui.NewConsoleExecutionEventLogger(consoleLogger))
	}

	application.metricsRegistry = nil
	if len(application.configuration.Metrics.Textfile) > 0 {
		registry := prometheus.NewRegistry()
		collector, collectorError := metrics.NewExecutionCollector(registry)
		if collectorError != nil {
			return nil, fmt.Errorf(metricsCollectorErrorTemplateConstant, collectorError)
		}
		application.metricsRegistry = registry
		observers = append(observers, collector)
	}

	return observers, nil
}

func (application *Application) exportMetrics() error {
	if application.metricsRegistry == nil || len(application.configuration.Metrics.Textfile) == 0 {
		return nil
	}
	if writeError := metrics.WriteTextfile(application.configuration.Metrics.Textfile, application.metricsRegistry); writeError != nil {
		return fmt.Errorf(metricsWriteErrorTemplateConstant, writeError)
	}
	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if versionRequested, _ := command.Flags().GetBool(versionFlagNameConstant); versionRequested {
		return application.printVersion()
	}

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	return command.Help()
}

func (application *Application) printVersion() error {
	output := application.versionOutput
	if output == nil {
		output = os.Stdout
	}
	if _, writeError := fmt.Fprintf(output, versionOutputTemplateConstant, applicationNameConstant, application.versionResolver(context.Background())); writeError != nil {
		return writeError
	}
	application.exitFunction(0)
	return nil
}

func resolveApplicationVersion(context.Context) string {
	buildInformation, buildInformationAvailable := debug.ReadBuildInfo()
	if !buildInformationAvailable || len(strings.TrimSpace(buildInformation.Main.Version)) == 0 {
		return unknownVersionConstant
	}
	return buildInformation.Main.Version
}

func resolveConfigurationSearchPaths(homeExpander *pathutils.HomeExpander) []string {
	if configuredSearchPath := strings.TrimSpace(os.Getenv(configurationSearchPathEnvironmentConstant)); len(configuredSearchPath) > 0 {
		searchPaths := make([]string, 0)
		for _, searchPath := range filepath.SplitList(configuredSearchPath) {
			if expandedPath := homeExpander.Expand(searchPath); len(expandedPath) > 0 {
				searchPaths = append(searchPaths, expandedPath)
			}
		}
		return searchPaths
	}

	return []string{defaultConfigurationSearchPathConstant, homeExpander.Expand(userConfigurationSearchPathConstant)}
}

func (application *Application) flushLogger() error {
	for _, logger := range []*zap.Logger{application.logger, application.consoleLogger} {
		if syncError := application.syncLoggerInstance(logger); syncError != nil {
			return syncError
		}
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
