package execshell

import (
	"fmt"
	"strings"
	"time"
)

const (
	exitStatusSuccessLabelConstant    = "success"
	exitStatusFailureLabelConstant    = "failure"
	exitStatusTimedOutLabelConstant   = "timed_out"
	unknownExitStatusTemplateConstant = "unknown exit status %q"
	resultStringTemplateConstant      = "ExecuteResult{status=%s, output=%q, duration=%s}"
	outputStreamSeparatorConstant     = "\n"
)

// ExitStatus classifies how a command invocation ended.
type ExitStatus int

// Supported exit classifications. Any non-zero operating system exit code maps to ExitStatusFailure.
const (
	ExitStatusSuccess ExitStatus = iota
	ExitStatusFailure
	ExitStatusTimedOut
)

var exitStatusLabels = map[ExitStatus]string{
	ExitStatusSuccess:  exitStatusSuccessLabelConstant,
	ExitStatusFailure:  exitStatusFailureLabelConstant,
	ExitStatusTimedOut: exitStatusTimedOutLabelConstant,
}

// String returns the lowercase label of the status.
func (status ExitStatus) String() string {
	if label, known := exitStatusLabels[status]; known {
		return label
	}
	return exitStatusFailureLabelConstant
}

// MarshalText encodes the status label for YAML and JSON reports.
func (status ExitStatus) MarshalText() ([]byte, error) {
	return []byte(status.String()), nil
}

// UnmarshalText decodes a status label.
func (status *ExitStatus) UnmarshalText(text []byte) error {
	label := strings.TrimSpace(string(text))
	for candidateStatus, candidateLabel := range exitStatusLabels {
		if strings.EqualFold(candidateLabel, label) {
			*status = candidateStatus
			return nil
		}
	}
	return fmt.Errorf(unknownExitStatusTemplateConstant, label)
}

// ExecuteResult is the immutable outcome of one command invocation.
type ExecuteResult struct {
	invocationID string
	status       ExitStatus
	output       string
	duration     time.Duration
}

// NewExecuteResult assembles an immutable result.
func NewExecuteResult(invocationID string, status ExitStatus, output string, duration time.Duration) ExecuteResult {
	return ExecuteResult{
		invocationID: invocationID,
		status:       status,
		output:       output,
		duration:     duration,
	}
}

// InvocationID identifies the invocation in logs and metrics.
func (result ExecuteResult) InvocationID() string {
	return result.invocationID
}

// Status returns the exit classification.
func (result ExecuteResult) Status() ExitStatus {
	return result.status
}

// Succeeded reports whether the command exited with status zero.
func (result ExecuteResult) Succeeded() bool {
	return result.status == ExitStatusSuccess
}

// Output returns standard output followed by standard error.
// For timed out invocations it holds whatever was captured before termination.
func (result ExecuteResult) Output() string {
	return result.output
}

// Duration returns the wall-clock time between spawn and classification.
func (result ExecuteResult) Duration() time.Duration {
	return result.duration
}

// String renders the result for diagnostics.
func (result ExecuteResult) String() string {
	return fmt.Sprintf(resultStringTemplateConstant, result.status, result.output, result.duration)
}

// combineOutput concatenates both streams, keeping stderr on its own line.
func combineOutput(standardOutput string, standardError string) string {
	if len(standardError) == 0 {
		return standardOutput
	}
	if len(standardOutput) == 0 || strings.HasSuffix(standardOutput, outputStreamSeparatorConstant) {
		return standardOutput + standardError
	}
	return standardOutput + outputStreamSeparatorConstant + standardError
}
