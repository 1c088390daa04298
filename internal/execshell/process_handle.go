package execshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

const (
	emptyArgumentVectorMessageConstant = "argument vector cannot be empty"
	pipeCreationErrorTemplateConstant  = "failed to create %s pipe: %w"
	processLaunchErrorTemplateConstant = "failed to launch %s: %w"
	processWaitErrorTemplateConstant   = "failed to wait for %s: %w"
	standardInputStreamNameConstant    = "stdin"
	standardOutputStreamNameConstant   = "stdout"
	standardErrorStreamNameConstant    = "stderr"
	unknownExitCodeConstant            = -1
)

// ErrExitWaitTimeout indicates the process did not exit before the wait context ended.
var ErrExitWaitTimeout = errors.New("process did not exit before the deadline")

// ProcessLauncher spawns child processes.
type ProcessLauncher interface {
	Launch(arguments []string) (ProcessHandle, error)
}

// ProcessHandle is the lifecycle of one spawned child process.
type ProcessHandle interface {
	// ProcessID returns the operating system process identifier.
	ProcessID() int
	// StandardOutput returns the readable end of the child's stdout pipe.
	StandardOutput() io.Reader
	// StandardError returns the readable end of the child's stderr pipe.
	StandardError() io.Reader
	// WaitForExit blocks until the process exits or the context ends, returning the exit code.
	WaitForExit(waitContext context.Context) (int, error)
	// Terminate forcibly stops the process. It is safe to call on an exited process.
	Terminate() error
	// IsAlive reports whether the process has not yet been reaped.
	IsAlive() bool
	// Release terminates the process if needed and closes every pipe. Only the first call has effect.
	Release() error
}

// OSProcessLauncher spawns processes using os/exec.
type OSProcessLauncher struct{}

// NewOSProcessLauncher constructs a launcher backed by os/exec.
func NewOSProcessLauncher() *OSProcessLauncher {
	return &OSProcessLauncher{}
}

// Launch starts the executable named by arguments[0].
//
// The pipes are created with os.Pipe rather than exec.Cmd.StdoutPipe so that
// reaping the process never closes a pipe that still holds unread output.
func (launcher *OSProcessLauncher) Launch(arguments []string) (ProcessHandle, error) {
	if len(arguments) == 0 {
		return nil, InvalidArgumentError{Reason: emptyArgumentVectorMessageConstant}
	}

	executable := exec.Command(arguments[0], arguments[1:]...)

	standardOutputReader, standardOutputWriter, standardOutputError := os.Pipe()
	if standardOutputError != nil {
		return nil, fmt.Errorf(pipeCreationErrorTemplateConstant, standardOutputStreamNameConstant, standardOutputError)
	}

	standardErrorReader, standardErrorWriter, standardErrorError := os.Pipe()
	if standardErrorError != nil {
		closeQuietly(standardOutputReader, standardOutputWriter)
		return nil, fmt.Errorf(pipeCreationErrorTemplateConstant, standardErrorStreamNameConstant, standardErrorError)
	}

	standardInputReader, standardInputWriter, standardInputError := os.Pipe()
	if standardInputError != nil {
		closeQuietly(standardOutputReader, standardOutputWriter, standardErrorReader, standardErrorWriter)
		return nil, fmt.Errorf(pipeCreationErrorTemplateConstant, standardInputStreamNameConstant, standardInputError)
	}

	executable.Stdout = standardOutputWriter
	executable.Stderr = standardErrorWriter
	executable.Stdin = standardInputReader

	startError := executable.Start()

	// The child holds its own copies; the parent keeps only the read ends of the output pipes.
	closeQuietly(standardOutputWriter, standardErrorWriter, standardInputReader, standardInputWriter)

	if startError != nil {
		closeQuietly(standardOutputReader, standardErrorReader)
		return nil, fmt.Errorf(processLaunchErrorTemplateConstant, arguments[0], startError)
	}

	handle := &osProcessHandle{
		executableName:       arguments[0],
		command:              executable,
		standardOutputReader: standardOutputReader,
		standardErrorReader:  standardErrorReader,
		exited:               make(chan struct{}),
		exitCode:             unknownExitCodeConstant,
	}
	go handle.awaitExit()

	return handle, nil
}

type osProcessHandle struct {
	executableName       string
	command              *exec.Cmd
	standardOutputReader *os.File
	standardErrorReader  *os.File

	exited    chan struct{}
	exitCode  int
	exitError error

	releaseOnce  sync.Once
	releaseError error
}

func (handle *osProcessHandle) ProcessID() int {
	return handle.command.Process.Pid
}

func (handle *osProcessHandle) StandardOutput() io.Reader {
	return handle.standardOutputReader
}

func (handle *osProcessHandle) StandardError() io.Reader {
	return handle.standardErrorReader
}

func (handle *osProcessHandle) WaitForExit(waitContext context.Context) (int, error) {
	select {
	case <-handle.exited:
		return handle.exitCode, handle.exitError
	case <-waitContext.Done():
		return unknownExitCodeConstant, fmt.Errorf("%w: %w", ErrExitWaitTimeout, waitContext.Err())
	}
}

func (handle *osProcessHandle) Terminate() error {
	if !handle.IsAlive() {
		return nil
	}
	killError := handle.command.Process.Kill()
	if killError != nil && !errors.Is(killError, os.ErrProcessDone) {
		return killError
	}
	return nil
}

func (handle *osProcessHandle) IsAlive() bool {
	select {
	case <-handle.exited:
		return false
	default:
		return true
	}
}

func (handle *osProcessHandle) Release() error {
	handle.releaseOnce.Do(func() {
		terminateError := handle.Terminate()
		closeError := errors.Join(handle.standardOutputReader.Close(), handle.standardErrorReader.Close())
		handle.releaseError = errors.Join(terminateError, closeError)
	})
	return handle.releaseError
}

// awaitExit reaps the process; it is the only caller of Wait.
func (handle *osProcessHandle) awaitExit() {
	defer close(handle.exited)

	waitError := handle.command.Wait()
	if waitError == nil {
		handle.exitCode = 0
		return
	}

	exitError := &exec.ExitError{}
	if errors.As(waitError, &exitError) {
		handle.exitCode = exitError.ExitCode()
		return
	}

	handle.exitError = fmt.Errorf(processWaitErrorTemplateConstant, handle.executableName, waitError)
}

func closeQuietly(files ...*os.File) {
	for _, file := range files {
		if file != nil {
			_ = file.Close()
		}
	}
}
