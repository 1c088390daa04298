package execshell

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDrainGracePeriodConstant         = 250 * time.Millisecond
	loggerNotConfiguredMessageConstant      = "logger not configured"
	launcherNotConfiguredMessageConstant    = "process launcher not configured"
	launchFailureOutputTemplateConstant     = "launch failure: %v"
	executionStartedMessageConstant         = "command execution started"
	executionFinishedMessageConstant        = "command execution finished"
	executionTimedOutMessageConstant        = "command execution timed out"
	processExitedMessageConstant            = "child process exited"
	executionLaunchFailedMessageConstant    = "command launch failed"
	executionInterruptedMessageConstant     = "command execution interrupted"
	executionStreamFailedMessageConstant    = "command output could not be read"
	processTerminationFailedMessageConstant = "process termination failed"
	processReleaseFailedMessageConstant     = "process release failed"
	logFieldInvocationIDConstant            = "invocation_id"
	logFieldArgumentsConstant               = "arguments"
	logFieldTimeoutConstant                 = "timeout"
	logFieldProcessIDConstant               = "pid"
	logFieldExitCodeConstant                = "exit_code"
	logFieldStatusConstant                  = "status"
	logFieldDurationConstant                = "duration"
	logFieldOutputConstant                  = "output"
)

// ErrLoggerNotConfigured indicates that the execution engine was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrProcessLauncherNotConfigured indicates that the execution engine was constructed without a process launcher.
var ErrProcessLauncherNotConfigured = errors.New(launcherNotConfiguredMessageConstant)

// EngineConfiguration tunes an ExecutionEngine. Zero values select platform defaults.
type EngineConfiguration struct {
	// OperatingSystem selects the shell and default encoding; defaults to runtime.GOOS.
	OperatingSystem string
	// DefaultEncoding decodes output when a command does not name an encoding.
	DefaultEncoding TextEncoding
	// DrainGracePeriod bounds how long output is still collected after a forced termination.
	// Zero selects the default; a negative value disables the grace period.
	DrainGracePeriod time.Duration
	// Observers receive lifecycle events in registration order.
	Observers []ExecutionObserver
}

// DefaultEngineConfiguration returns the configuration used when none is supplied.
func DefaultEngineConfiguration() EngineConfiguration {
	return EngineConfiguration{
		OperatingSystem:  runtime.GOOS,
		DefaultEncoding:  ResolveDefaultTextEncoding(runtime.GOOS),
		DrainGracePeriod: defaultDrainGracePeriodConstant,
	}
}

func (configuration EngineConfiguration) sanitize() EngineConfiguration {
	sanitized := configuration

	sanitized.OperatingSystem = strings.TrimSpace(configuration.OperatingSystem)
	if len(sanitized.OperatingSystem) == 0 {
		sanitized.OperatingSystem = runtime.GOOS
	}

	sanitized.DefaultEncoding = TextEncoding(strings.TrimSpace(string(configuration.DefaultEncoding)))
	if len(sanitized.DefaultEncoding) == 0 {
		sanitized.DefaultEncoding = ResolveDefaultTextEncoding(sanitized.OperatingSystem)
	}

	if sanitized.DrainGracePeriod == 0 {
		sanitized.DrainGracePeriod = defaultDrainGracePeriodConstant
	}

	sanitized.Observers = make([]ExecutionObserver, 0, len(configuration.Observers))
	for _, observer := range configuration.Observers {
		if observer != nil {
			sanitized.Observers = append(sanitized.Observers, observer)
		}
	}

	return sanitized
}

// ExecutionEngine runs commands as child processes and reports one ExecuteResult per invocation.
//
// Invocations share no mutable state; Run may be called concurrently.
type ExecutionEngine struct {
	logger        *zap.Logger
	launcher      ProcessLauncher
	observer      ExecutionObserver
	configuration EngineConfiguration
}

// NewExecutionEngine constructs an engine around the supplied logger and process launcher.
func NewExecutionEngine(logger *zap.Logger, launcher ProcessLauncher, configuration EngineConfiguration) (*ExecutionEngine, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if launcher == nil {
		return nil, ErrProcessLauncherNotConfigured
	}

	sanitizedConfiguration := configuration.sanitize()
	if _, encodingError := ResolveTextEncoding(sanitizedConfiguration.DefaultEncoding); encodingError != nil {
		return nil, encodingError
	}

	var observer ExecutionObserver = noopExecutionObserver{}
	if len(sanitizedConfiguration.Observers) > 0 {
		observer = observerGroup(sanitizedConfiguration.Observers)
	}

	return &ExecutionEngine{
		logger:        logger,
		launcher:      launcher,
		observer:      observer,
		configuration: sanitizedConfiguration,
	}, nil
}

// ExecuteCommand runs a command string through the platform shell using the default encoding.
func (engine *ExecutionEngine) ExecuteCommand(executionContext context.Context, command string, timeout time.Duration) (ExecuteResult, error) {
	return engine.Run(executionContext, CommandSpecification{ShellCommand: command, Timeout: timeout})
}

// ExecuteArguments runs an explicit argument vector without shell interpretation.
func (engine *ExecutionEngine) ExecuteArguments(executionContext context.Context, arguments []string, timeout time.Duration, textEncoding TextEncoding) (ExecuteResult, error) {
	if len(strings.TrimSpace(string(textEncoding))) == 0 {
		return ExecuteResult{}, InvalidArgumentError{Reason: emptyEncodingMessageConstant}
	}
	return engine.Run(executionContext, CommandSpecification{Arguments: arguments, Timeout: timeout, Encoding: textEncoding})
}

// Run executes the specification and returns its classified result.
//
// The returned error is non-nil only for an invalid specification, in which case
// no process was spawned. Launch failures, non-zero exits, read failures, and
// timeouts are all reported through the ExecuteResult.
func (engine *ExecutionEngine) Run(executionContext context.Context, specification CommandSpecification) (ExecuteResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	if validationError := specification.Validate(); validationError != nil {
		return ExecuteResult{}, validationError
	}

	textEncoding := TextEncoding(strings.TrimSpace(string(specification.Encoding)))
	if len(textEncoding) == 0 {
		textEncoding = engine.configuration.DefaultEncoding
	}
	if _, encodingError := ResolveTextEncoding(textEncoding); encodingError != nil {
		return ExecuteResult{}, encodingError
	}

	invocation := Invocation{
		ID:        uuid.NewString(),
		Arguments: specification.resolveArguments(engine.configuration.OperatingSystem),
		Timeout:   specification.Timeout,
	}

	engine.logger.Debug(
		executionStartedMessageConstant,
		zap.String(logFieldInvocationIDConstant, invocation.ID),
		zap.Strings(logFieldArgumentsConstant, invocation.Arguments),
		zap.Duration(logFieldTimeoutConstant, invocation.Timeout),
	)

	result, startedInvocation := engine.execute(executionContext, invocation, textEncoding)

	engine.logResult(startedInvocation, result)
	engine.observer.ExecutionCompleted(startedInvocation, result)

	return result, nil
}

// execute owns the process for the whole invocation; the process is released before it returns.
func (engine *ExecutionEngine) execute(executionContext context.Context, invocation Invocation, textEncoding TextEncoding) (ExecuteResult, Invocation) {
	startTime := time.Now()

	handle, launchError := engine.launcher.Launch(invocation.Arguments)
	if launchError != nil {
		engine.logger.Error(
			executionLaunchFailedMessageConstant,
			zap.String(logFieldInvocationIDConstant, invocation.ID),
			zap.Strings(logFieldArgumentsConstant, invocation.Arguments),
			zap.Error(launchError),
		)
		engine.observer.ExecutionLaunchFailed(invocation, launchError)
		failureOutput := fmt.Sprintf(launchFailureOutputTemplateConstant, launchError)
		return NewExecuteResult(invocation.ID, ExitStatusFailure, failureOutput, time.Since(startTime)), invocation
	}
	defer engine.release(invocation, handle)

	invocation.ProcessID = handle.ProcessID()
	engine.observer.ExecutionStarted(invocation)

	drainLogger := engine.logger.With(zap.String(logFieldInvocationIDConstant, invocation.ID))
	standardOutputDrain, standardOutputDrainError := NewTextDrain(standardOutputStreamNameConstant, handle.StandardOutput(), textEncoding, drainLogger)
	standardErrorDrain, standardErrorDrainError := NewTextDrain(standardErrorStreamNameConstant, handle.StandardError(), textEncoding, drainLogger)
	if drainCreationError := errors.Join(standardOutputDrainError, standardErrorDrainError); drainCreationError != nil {
		engine.terminate(invocation, handle)
		return NewExecuteResult(invocation.ID, ExitStatusFailure, drainCreationError.Error(), time.Since(startTime)), invocation
	}
	standardOutputDrain.Start()
	standardErrorDrain.Start()

	waitContext, cancelWait := engine.boundedContext(executionContext, invocation.Timeout)
	defer cancelWait()

	exitCode, waitError := handle.WaitForExit(waitContext)
	if waitError != nil {
		status := ExitStatusFailure
		if errors.Is(waitError, ErrExitWaitTimeout) {
			status = classifyInterruption(waitContext.Err())
		}
		engine.logger.Debug(
			executionInterruptedMessageConstant,
			zap.String(logFieldInvocationIDConstant, invocation.ID),
			zap.Int(logFieldProcessIDConstant, invocation.ProcessID),
			zap.Error(waitError),
		)
		engine.terminate(invocation, handle)
		partialOutput := engine.collectPartialOutput(standardOutputDrain, standardErrorDrain)
		return NewExecuteResult(invocation.ID, status, partialOutput, time.Since(startTime)), invocation
	}

	standardOutput, standardOutputReadError := standardOutputDrain.AwaitContent(waitContext)
	standardError, standardErrorReadError := standardErrorDrain.AwaitContent(waitContext)
	combinedOutput := combineOutput(standardOutput, standardError)

	if interruption := waitContext.Err(); interruption != nil && (standardOutputReadError != nil || standardErrorReadError != nil) {
		return NewExecuteResult(invocation.ID, classifyInterruption(interruption), combinedOutput, time.Since(startTime)), invocation
	}

	if readError := errors.Join(standardOutputReadError, standardErrorReadError); readError != nil {
		engine.logger.Warn(
			executionStreamFailedMessageConstant,
			zap.String(logFieldInvocationIDConstant, invocation.ID),
			zap.Error(readError),
		)
		return NewExecuteResult(invocation.ID, ExitStatusFailure, combinedOutput, time.Since(startTime)), invocation
	}

	status := ExitStatusSuccess
	if exitCode != 0 {
		status = ExitStatusFailure
	}

	engine.logger.Debug(
		processExitedMessageConstant,
		zap.String(logFieldInvocationIDConstant, invocation.ID),
		zap.Int(logFieldProcessIDConstant, invocation.ProcessID),
		zap.Int(logFieldExitCodeConstant, exitCode),
	)

	return NewExecuteResult(invocation.ID, status, combinedOutput, time.Since(startTime)), invocation
}

// boundedContext derives the wait deadline; a non-positive timeout waits on the caller context alone.
func (engine *ExecutionEngine) boundedContext(executionContext context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(executionContext)
	}
	return context.WithTimeout(executionContext, timeout)
}

// collectPartialOutput gives the drains a bounded grace period before taking what they captured.
func (engine *ExecutionEngine) collectPartialOutput(standardOutputDrain *TextDrain, standardErrorDrain *TextDrain) string {
	graceContext, cancelGrace := context.WithTimeout(context.Background(), max(engine.configuration.DrainGracePeriod, 0))
	defer cancelGrace()

	standardOutput, _ := standardOutputDrain.AwaitContent(graceContext)
	standardError, _ := standardErrorDrain.AwaitContent(graceContext)

	return combineOutput(standardOutput, standardError)
}

func (engine *ExecutionEngine) terminate(invocation Invocation, handle ProcessHandle) {
	if terminateError := handle.Terminate(); terminateError != nil {
		engine.logger.Debug(
			processTerminationFailedMessageConstant,
			zap.String(logFieldInvocationIDConstant, invocation.ID),
			zap.Int(logFieldProcessIDConstant, invocation.ProcessID),
			zap.Error(terminateError),
		)
	}
}

// release never changes the classified result; failures are only logged.
func (engine *ExecutionEngine) release(invocation Invocation, handle ProcessHandle) {
	if releaseError := handle.Release(); releaseError != nil {
		engine.logger.Debug(
			processReleaseFailedMessageConstant,
			zap.String(logFieldInvocationIDConstant, invocation.ID),
			zap.Int(logFieldProcessIDConstant, invocation.ProcessID),
			zap.Error(releaseError),
		)
	}
}

func (engine *ExecutionEngine) logResult(invocation Invocation, result ExecuteResult) {
	fields := []zap.Field{
		zap.String(logFieldInvocationIDConstant, invocation.ID),
		zap.Strings(logFieldArgumentsConstant, invocation.Arguments),
		zap.Stringer(logFieldStatusConstant, result.Status()),
		zap.Duration(logFieldDurationConstant, result.Duration()),
	}

	if result.Status() == ExitStatusTimedOut {
		engine.logger.Warn(executionTimedOutMessageConstant, append(fields, zap.Duration(logFieldTimeoutConstant, invocation.Timeout))...)
		return
	}

	engine.logger.Debug(executionFinishedMessageConstant, append(fields, zap.String(logFieldOutputConstant, result.Output()))...)
}

// classifyInterruption maps the reason a wait ended early onto an exit status.
func classifyInterruption(interruption error) ExitStatus {
	if errors.Is(interruption, context.DeadlineExceeded) {
		return ExitStatusTimedOut
	}
	return ExitStatusFailure
}
