package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/runcmd/cmd/cli"
	"github.com/temirov/runcmd/internal/utils"
)

const (
	exitErrorTemplateConstant      = "%v\n"
	genericFailureExitCodeConstant = 1
)

// main executes the runcmd command-line application.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)

	statusError := utils.CommandStatusError{}
	if errors.As(executionError, &statusError) {
		os.Exit(statusError.ExitCode())
	}
	os.Exit(genericFailureExitCodeConstant)
}
