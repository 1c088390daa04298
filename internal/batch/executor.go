package batch

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/runcmd/internal/execshell"
)

const (
	defaultParallelismConstant           = 4
	commandRunnerRequiredMessageConstant = "batch executor requires a command runner"
	failFastTriggeredMessageConstant     = "batch command did not succeed; remaining commands skipped"
	batchStartedMessageConstant          = "batch started"
	batchFinishedMessageConstant         = "batch finished"
	commandSkippedMessageConstant        = "batch command skipped"
	commandRejectedMessageConstant       = "batch command rejected"
	logFieldCommandNameConstant          = "command"
	logFieldCommandCountConstant         = "commands"
	logFieldParallelismConstant          = "parallelism"
	logFieldSucceededConstant            = "succeeded"
	logFieldFailedConstant               = "failed"
	logFieldTimedOutConstant             = "timed_out"
	logFieldSkippedConstant              = "skipped"
)

// ErrCommandRunnerNotConfigured indicates that the executor was constructed without a command runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerRequiredMessageConstant)

var errFailFastTriggered = errors.New(failFastTriggeredMessageConstant)

// CommandRunner executes a single command specification.
type CommandRunner interface {
	Run(executionContext context.Context, specification execshell.CommandSpecification) (execshell.ExecuteResult, error)
}

// ExecutionOptions tune a batch run.
type ExecutionOptions struct {
	Parallelism int
	FailFast    bool
}

// Executor runs batch definitions through a command runner.
type Executor struct {
	runner CommandRunner
	logger *zap.Logger
}

// NewExecutor constructs an Executor.
func NewExecutor(runner CommandRunner, logger *zap.Logger) (*Executor, error) {
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{runner: runner, logger: logger}, nil
}

// Execute runs every command in the definition with at most options.Parallelism
// commands in flight. With FailFast, the first unsuccessful command cancels
// commands still running and skips those not yet started.
func (executor *Executor) Execute(executionContext context.Context, definition Definition, options ExecutionOptions) Report {
	if executionContext == nil {
		executionContext = context.Background()
	}

	parallelism := options.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelismConstant
	}

	executor.logger.Debug(
		batchStartedMessageConstant,
		zap.Int(logFieldCommandCountConstant, len(definition.Commands)),
		zap.Int(logFieldParallelismConstant, parallelism),
	)

	results := make([]CommandResult, len(definition.Commands))
	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(parallelism)

	for commandIndex := range definition.Commands {
		commandDefinition := definition.Commands[commandIndex]
		if groupContext.Err() != nil {
			results[commandIndex] = executor.skip(commandDefinition.Name)
			continue
		}

		group.Go(func() error {
			if groupContext.Err() != nil {
				results[commandIndex] = executor.skip(commandDefinition.Name)
				return nil
			}

			result, runError := executor.runner.Run(groupContext, commandDefinition.Specification(definition.Defaults))
			if runError != nil {
				executor.logger.Warn(commandRejectedMessageConstant, zap.String(logFieldCommandNameConstant, commandDefinition.Name), zap.Error(runError))
				results[commandIndex] = CommandResult{Name: commandDefinition.Name, Status: ResultStatusFailure, Duration: formatDuration(0), Output: runError.Error()}
			} else {
				results[commandIndex] = newCommandResult(commandDefinition.Name, result)
			}

			if options.FailFast && results[commandIndex].Status != ResultStatusSuccess {
				return errFailFastTriggered
			}
			return nil
		})
	}

	_ = group.Wait()

	report := newReport(results)
	executor.logger.Debug(
		batchFinishedMessageConstant,
		zap.Int(logFieldSucceededConstant, report.Summary.Succeeded),
		zap.Int(logFieldFailedConstant, report.Summary.Failed),
		zap.Int(logFieldTimedOutConstant, report.Summary.TimedOut),
		zap.Int(logFieldSkippedConstant, report.Summary.Skipped),
	)
	return report
}

func (executor *Executor) skip(commandName string) CommandResult {
	executor.logger.Debug(commandSkippedMessageConstant, zap.String(logFieldCommandNameConstant, commandName))
	return newSkippedResult(commandName)
}
