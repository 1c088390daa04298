package utils

import (
	"fmt"

	"github.com/temirov/runcmd/internal/execshell"
)

const (
	commandStatusErrorTemplateConstant      = "%s finished with status %s"
	commandStatusErrorCountTemplateConstant = "%d of %d commands did not succeed"
	failureProcessExitCodeConstant          = 1
	timedOutProcessExitCodeConstant         = 124
)

// CommandStatusError reports that one or more executed commands did not succeed.
// The command output has already been written when this error is returned.
type CommandStatusError struct {
	Subject      string
	Status       execshell.ExitStatus
	FailedCount  int
	CommandCount int
}

// Error describes the unsuccessful outcome.
func (statusError CommandStatusError) Error() string {
	if statusError.CommandCount > 1 {
		return fmt.Sprintf(commandStatusErrorCountTemplateConstant, statusError.FailedCount, statusError.CommandCount)
	}
	return fmt.Sprintf(commandStatusErrorTemplateConstant, statusError.Subject, statusError.Status)
}

// ExitCode maps the outcome to a process exit code, following the timeout(1) convention for timeouts.
func (statusError CommandStatusError) ExitCode() int {
	if statusError.Status == execshell.ExitStatusTimedOut {
		return timedOutProcessExitCodeConstant
	}
	return failureProcessExitCodeConstant
}
