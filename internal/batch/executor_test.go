package batch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/runcmd/internal/batch"
	"github.com/temirov/runcmd/internal/execshell"
)

const (
	testFailingCommandConstant  = "exit 1"
	testRejectedCommandConstant = "rejected"
	testCommandDelayConstant    = 20 * time.Millisecond
)

type scriptedCommandRunner struct {
	mutex            sync.Mutex
	delay            time.Duration
	inFlight         int
	maximumInFlight  int
	executedCommands []string
}

func (runner *scriptedCommandRunner) Run(executionContext context.Context, specification execshell.CommandSpecification) (execshell.ExecuteResult, error) {
	runner.mutex.Lock()
	runner.inFlight++
	if runner.inFlight > runner.maximumInFlight {
		runner.maximumInFlight = runner.inFlight
	}
	runner.executedCommands = append(runner.executedCommands, specification.ShellCommand)
	runner.mutex.Unlock()

	defer func() {
		runner.mutex.Lock()
		runner.inFlight--
		runner.mutex.Unlock()
	}()

	if runner.delay > 0 {
		time.Sleep(runner.delay)
	}

	switch specification.ShellCommand {
	case testFailingCommandConstant:
		return execshell.NewExecuteResult("failed-id", execshell.ExitStatusFailure, "boom\n", time.Millisecond), nil
	case testRejectedCommandConstant:
		return execshell.ExecuteResult{}, execshell.InvalidArgumentError{Reason: "rejected"}
	default:
		return execshell.NewExecuteResult(specification.ShellCommand+"-id", execshell.ExitStatusSuccess, specification.ShellCommand+"\n", time.Millisecond), nil
	}
}

func (runner *scriptedCommandRunner) executed() []string {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	return append([]string(nil), runner.executedCommands...)
}

func shellDefinition(commands ...string) batch.Definition {
	definition := batch.Definition{}
	for _, command := range commands {
		definition.Commands = append(definition.Commands, batch.CommandDefinition{Name: command, Shell: command})
	}
	return definition
}

func TestNewExecutorRequiresRunner(testInstance *testing.T) {
	executor, creationError := batch.NewExecutor(nil, zap.NewNop())
	require.ErrorIs(testInstance, creationError, batch.ErrCommandRunnerNotConfigured)
	require.Nil(testInstance, executor)
}

func TestExecutorKeepsDefinitionOrder(testInstance *testing.T) {
	commandRunner := &scriptedCommandRunner{delay: testCommandDelayConstant}
	executor, creationError := batch.NewExecutor(commandRunner, nil)
	require.NoError(testInstance, creationError)

	report := executor.Execute(context.Background(), shellDefinition("alpha", testFailingCommandConstant, "gamma", testRejectedCommandConstant), batch.ExecutionOptions{Parallelism: 4})

	require.Equal(testInstance, batch.Summary{Total: 4, Succeeded: 2, Failed: 2}, report.Summary)
	require.Equal(testInstance, []batch.CommandResult{
		{Name: "alpha", InvocationID: "alpha-id", Status: batch.ResultStatusSuccess, Duration: "1ms", Output: "alpha\n"},
		{Name: testFailingCommandConstant, InvocationID: "failed-id", Status: batch.ResultStatusFailure, Duration: "1ms", Output: "boom\n"},
		{Name: "gamma", InvocationID: "gamma-id", Status: batch.ResultStatusSuccess, Duration: "1ms", Output: "gamma\n"},
		{Name: testRejectedCommandConstant, Status: batch.ResultStatusFailure, Duration: "0s", Output: "invalid argument: rejected"},
	}, report.Results)
}

func TestExecutorBoundsParallelism(testInstance *testing.T) {
	testCases := []struct {
		name            string
		parallelism     int
		expectedMaximum int
	}{
		{name: "serial", parallelism: 1, expectedMaximum: 1},
		{name: "pair", parallelism: 2, expectedMaximum: 2},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			commandRunner := &scriptedCommandRunner{delay: testCommandDelayConstant}
			executor, creationError := batch.NewExecutor(commandRunner, zap.NewNop())
			require.NoError(testInstance, creationError)

			report := executor.Execute(context.Background(), shellDefinition("a", "b", "c", "d", "e", "f"), batch.ExecutionOptions{Parallelism: testCase.parallelism})
			require.True(testInstance, report.Succeeded())
			require.LessOrEqual(testInstance, commandRunner.maximumInFlight, testCase.expectedMaximum)
			require.Len(testInstance, commandRunner.executed(), 6)
		})
	}
}

func TestExecutorFailFastSkipsRemainingCommands(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.DebugLevel)
	commandRunner := &scriptedCommandRunner{}
	executor, creationError := batch.NewExecutor(commandRunner, zap.New(observerCore))
	require.NoError(testInstance, creationError)

	report := executor.Execute(context.Background(), shellDefinition("alpha", testFailingCommandConstant, "gamma", "delta"), batch.ExecutionOptions{Parallelism: 1, FailFast: true})

	require.Equal(testInstance, batch.Summary{Total: 4, Succeeded: 1, Failed: 1, Skipped: 2}, report.Summary)
	require.Equal(testInstance, []string{"alpha", testFailingCommandConstant}, commandRunner.executed())
	require.Equal(testInstance, batch.ResultStatusSkipped, report.Results[2].Status)
	require.Equal(testInstance, batch.ResultStatusSkipped, report.Results[3].Status)
	require.Len(testInstance, observedLogs.FilterMessage("batch command skipped").All(), 2)
	require.Len(testInstance, observedLogs.FilterMessage("batch finished").All(), 1)
}

func TestExecutorWithoutFailFastRunsEverything(testInstance *testing.T) {
	commandRunner := &scriptedCommandRunner{}
	executor, creationError := batch.NewExecutor(commandRunner, zap.NewNop())
	require.NoError(testInstance, creationError)

	report := executor.Execute(context.Background(), shellDefinition(testFailingCommandConstant, "beta"), batch.ExecutionOptions{Parallelism: 1})
	require.Equal(testInstance, batch.Summary{Total: 2, Succeeded: 1, Failed: 1}, report.Summary)
}

func TestExecutorSkipsEverythingWhenContextCancelled(testInstance *testing.T) {
	commandRunner := &scriptedCommandRunner{}
	executor, creationError := batch.NewExecutor(commandRunner, zap.NewNop())
	require.NoError(testInstance, creationError)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	report := executor.Execute(cancelledContext, shellDefinition("alpha", "beta"), batch.ExecutionOptions{})
	require.Equal(testInstance, batch.Summary{Total: 2, Skipped: 2}, report.Summary)
	require.Empty(testInstance, commandRunner.executed())
}
