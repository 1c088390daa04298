package execshell

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	invalidArgumentTemplateConstant           = "invalid argument: %s"
	emptyCommandMessageConstant               = "command cannot be empty"
	ambiguousCommandMessageConstant           = "supply either a shell command or an argument vector, not both"
	emptyArgumentVectorElementMessageConstant = "argument vector executable cannot be empty"
	emptyEncodingMessageConstant              = "text encoding cannot be empty"
	unsupportedEncodingTemplateConstant       = "unsupported text encoding %q"
)

// ErrInvalidArgument identifies caller programming errors detected before any process is spawned.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError describes a rejected command specification.
type InvalidArgumentError struct {
	Reason string
}

// Error describes the rejected argument.
func (invalidArgumentError InvalidArgumentError) Error() string {
	return fmt.Sprintf(invalidArgumentTemplateConstant, invalidArgumentError.Reason)
}

// Unwrap exposes ErrInvalidArgument for errors.Is checks.
func (invalidArgumentError InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// CommandSpecification describes a single command invocation.
//
// Exactly one of ShellCommand or Arguments must be provided. ShellCommand is
// interpreted by the platform shell; Arguments bypasses shell interpretation.
// A Timeout of zero or less waits without bound. An empty Encoding selects the
// platform default.
type CommandSpecification struct {
	ShellCommand string
	Arguments    []string
	Timeout      time.Duration
	Encoding     TextEncoding
}

// Validate reports an InvalidArgumentError when the specification cannot be executed.
func (specification CommandSpecification) Validate() error {
	trimmedShellCommand := strings.TrimSpace(specification.ShellCommand)
	hasShellCommand := len(trimmedShellCommand) > 0
	hasArguments := len(specification.Arguments) > 0

	switch {
	case hasShellCommand && hasArguments:
		return InvalidArgumentError{Reason: ambiguousCommandMessageConstant}
	case !hasShellCommand && !hasArguments:
		return InvalidArgumentError{Reason: emptyCommandMessageConstant}
	case hasArguments && len(strings.TrimSpace(specification.Arguments[0])) == 0:
		return InvalidArgumentError{Reason: emptyArgumentVectorElementMessageConstant}
	}

	return nil
}

// resolveArguments produces the platform argument vector for the specification.
func (specification CommandSpecification) resolveArguments(operatingSystem string) []string {
	if len(specification.Arguments) > 0 {
		return append([]string{}, specification.Arguments...)
	}
	return ResolveShellInvocation(operatingSystem, specification.ShellCommand)
}
