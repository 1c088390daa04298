package utils_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/runcmd/internal/execshell"
	"github.com/temirov/runcmd/internal/utils"
)

func TestCommandStatusError(testInstance *testing.T) {
	testCases := []struct {
		name             string
		statusError      utils.CommandStatusError
		expectedMessage  string
		expectedExitCode int
	}{
		{
			name:             "single_failure",
			statusError:      utils.CommandStatusError{Subject: "make test", Status: execshell.ExitStatusFailure, FailedCount: 1, CommandCount: 1},
			expectedMessage:  "make test finished with status failure",
			expectedExitCode: 1,
		},
		{
			name:             "single_timeout",
			statusError:      utils.CommandStatusError{Subject: "sleep 60", Status: execshell.ExitStatusTimedOut, FailedCount: 1, CommandCount: 1},
			expectedMessage:  "sleep 60 finished with status timed_out",
			expectedExitCode: 124,
		},
		{
			name:             "batch",
			statusError:      utils.CommandStatusError{Subject: "batch", Status: execshell.ExitStatusFailure, FailedCount: 2, CommandCount: 5},
			expectedMessage:  "2 of 5 commands did not succeed",
			expectedExitCode: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			wrappedError := fmt.Errorf("wrapped: %w", testCase.statusError)

			statusError := utils.CommandStatusError{}
			require.True(testInstance, errors.As(wrappedError, &statusError))
			require.Equal(testInstance, testCase.expectedMessage, statusError.Error())
			require.Equal(testInstance, testCase.expectedExitCode, statusError.ExitCode())
		})
	}
}
