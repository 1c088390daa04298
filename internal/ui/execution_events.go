package ui

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/runcmd/internal/execshell"
)

const (
	executionStartedMessageTemplateConstant      = "Running %s"
	executionCompletedMessageTemplateConstant    = "Completed %s in %s"
	executionFailedMessageTemplateConstant       = "%s failed after %s"
	executionTimedOutMessageTemplateConstant     = "%s timed out after %s"
	executionLaunchFailedMessageTemplateConstant = "%s could not be started: %s"
	outputSuffixTemplateConstant                 = ": %s"
	processIdentifierSuffixTemplateConstant      = " (pid %d)"
	commandArgumentsJoinSeparatorConstant        = " "
	quotedArgumentTemplateConstant               = "%q"
	argumentCharactersRequiringQuotationConstant = " \t\n\"'"
	unknownFailureMessageConstant                = "unknown error"
	outputSummaryMaximumLengthConstant           = 200
	outputSummaryEllipsisConstant                = "..."
	emptyStringConstant                          = ""
)

// ExecutionEventFormatter builds human-readable messages for execution lifecycle events.
type ExecutionEventFormatter struct{}

// BuildStartedMessage formats the message describing a spawned child process.
func (formatter ExecutionEventFormatter) BuildStartedMessage(invocation execshell.Invocation) string {
	label := formatter.formatCommandLabel(invocation)
	if invocation.ProcessID > 0 {
		label += fmt.Sprintf(processIdentifierSuffixTemplateConstant, invocation.ProcessID)
	}
	return fmt.Sprintf(executionStartedMessageTemplateConstant, label)
}

// BuildCompletedMessage formats the message describing a classified result.
func (formatter ExecutionEventFormatter) BuildCompletedMessage(invocation execshell.Invocation, result execshell.ExecuteResult) string {
	label := formatter.formatCommandLabel(invocation)
	duration := result.Duration().Round(roundingPrecision(result))

	switch result.Status() {
	case execshell.ExitStatusSuccess:
		return fmt.Sprintf(executionCompletedMessageTemplateConstant, label, duration)
	case execshell.ExitStatusTimedOut:
		return fmt.Sprintf(executionTimedOutMessageTemplateConstant, label, duration)
	default:
		return fmt.Sprintf(executionFailedMessageTemplateConstant, label, duration) + formatter.formatOutputSuffix(result.Output())
	}
}

// BuildLaunchFailureMessage formats the message describing a child process that could not be spawned.
func (formatter ExecutionEventFormatter) BuildLaunchFailureMessage(invocation execshell.Invocation, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(executionLaunchFailedMessageTemplateConstant, formatter.formatCommandLabel(invocation), failureMessage)
}

func (formatter ExecutionEventFormatter) formatCommandLabel(invocation execshell.Invocation) string {
	renderedArguments := make([]string, 0, len(invocation.Arguments))
	for _, argument := range invocation.Arguments {
		if len(argument) == 0 || strings.ContainsAny(argument, argumentCharactersRequiringQuotationConstant) {
			renderedArguments = append(renderedArguments, fmt.Sprintf(quotedArgumentTemplateConstant, argument))
			continue
		}
		renderedArguments = append(renderedArguments, argument)
	}
	return strings.Join(renderedArguments, commandArgumentsJoinSeparatorConstant)
}

// formatOutputSuffix keeps the last line of output, which usually carries the error.
func (formatter ExecutionEventFormatter) formatOutputSuffix(output string) string {
	trimmedOutput := strings.TrimSpace(output)
	if len(trimmedOutput) == 0 {
		return emptyStringConstant
	}

	lines := strings.Split(trimmedOutput, "\n")
	lastLine := strings.TrimSpace(lines[len(lines)-1])
	if len(lastLine) > outputSummaryMaximumLengthConstant {
		lastLine = lastLine[:outputSummaryMaximumLengthConstant] + outputSummaryEllipsisConstant
	}
	return fmt.Sprintf(outputSuffixTemplateConstant, lastLine)
}

func roundingPrecision(result execshell.ExecuteResult) time.Duration {
	if result.Duration() < time.Second {
		return time.Millisecond
	}
	return 10 * time.Millisecond
}

// ConsoleExecutionEventLogger renders execution lifecycle events using a zap logger configured for human-readable output.
type ConsoleExecutionEventLogger struct {
	logger    *zap.Logger
	formatter ExecutionEventFormatter
}

// NewConsoleExecutionEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleExecutionEventLogger(logger *zap.Logger) *ConsoleExecutionEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleExecutionEventLogger{logger: logger, formatter: ExecutionEventFormatter{}}
}

// ExecutionStarted implements execshell.ExecutionObserver by logging spawn notifications.
func (eventLogger *ConsoleExecutionEventLogger) ExecutionStarted(invocation execshell.Invocation) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(invocation))
}

// ExecutionCompleted implements execshell.ExecutionObserver by logging classified results.
// Launch failures were already reported by ExecutionLaunchFailed.
func (eventLogger *ConsoleExecutionEventLogger) ExecutionCompleted(invocation execshell.Invocation, result execshell.ExecuteResult) {
	if eventLogger == nil || invocation.ProcessID == 0 {
		return
	}
	message := eventLogger.formatter.BuildCompletedMessage(invocation, result)
	if result.Succeeded() {
		eventLogger.logger.Info(message)
		return
	}
	eventLogger.logger.Warn(message)
}

// ExecutionLaunchFailed implements execshell.ExecutionObserver by logging spawn failures.
func (eventLogger *ConsoleExecutionEventLogger) ExecutionLaunchFailed(invocation execshell.Invocation, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildLaunchFailureMessage(invocation, failure))
}
