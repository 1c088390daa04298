package execshell

import "time"

// Invocation describes one running command for lifecycle observers.
type Invocation struct {
	ID        string
	Arguments []string
	Timeout   time.Duration
	ProcessID int
}

// ExecutionObserver receives lifecycle notifications for command execution.
type ExecutionObserver interface {
	// ExecutionStarted notifies observers that the child process was spawned.
	ExecutionStarted(invocation Invocation)
	// ExecutionCompleted notifies observers of the classified result.
	ExecutionCompleted(invocation Invocation, result ExecuteResult)
	// ExecutionLaunchFailed reports that the child process could not be spawned.
	// ExecutionCompleted still follows with a failure result.
	ExecutionLaunchFailed(invocation Invocation, failure error)
}

// noopExecutionObserver discards all execution events.
type noopExecutionObserver struct{}

// ExecutionStarted implements ExecutionObserver for the no-op observer.
func (noopExecutionObserver) ExecutionStarted(Invocation) {}

// ExecutionCompleted implements ExecutionObserver for the no-op observer.
func (noopExecutionObserver) ExecutionCompleted(Invocation, ExecuteResult) {}

// ExecutionLaunchFailed implements ExecutionObserver for the no-op observer.
func (noopExecutionObserver) ExecutionLaunchFailed(Invocation, error) {}

// observerGroup fans events out to several observers in registration order.
type observerGroup []ExecutionObserver

func (group observerGroup) ExecutionStarted(invocation Invocation) {
	for _, observer := range group {
		observer.ExecutionStarted(invocation)
	}
}

func (group observerGroup) ExecutionCompleted(invocation Invocation, result ExecuteResult) {
	for _, observer := range group {
		observer.ExecutionCompleted(invocation, result)
	}
}

func (group observerGroup) ExecutionLaunchFailed(invocation Invocation, failure error) {
	for _, observer := range group {
		observer.ExecutionLaunchFailed(invocation, failure)
	}
}
