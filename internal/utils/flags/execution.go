// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"time"

	"github.com/spf13/cobra"
)

const (
	// TimeoutFlagName exposes the shared timeout flag name.
	TimeoutFlagName = "timeout"
	// TimeoutFlagUsage describes the shared timeout flag purpose.
	TimeoutFlagUsage = "Maximum time to wait for each command; zero waits without bound"
	// EncodingFlagName exposes the shared encoding flag name.
	EncodingFlagName = "encoding"
	// EncodingFlagUsage describes the shared encoding flag purpose.
	EncodingFlagUsage = "Character set used to decode command output (for example utf-8 or gbk)"
)

// ExecutionFlagValues stores the values of the shared execution flags.
type ExecutionFlagValues struct {
	Timeout  time.Duration
	Encoding string
}

// BindExecutionFlags attaches the timeout and encoding flags to the provided command.
// Callers should consult Changed on the returned flags before overriding configured values.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionFlagValues) *ExecutionFlagValues {
	values := defaults
	if command == nil {
		return &values
	}

	flagSet := command.Flags()
	if flagSet.Lookup(TimeoutFlagName) == nil {
		flagSet.DurationVar(&values.Timeout, TimeoutFlagName, defaults.Timeout, TimeoutFlagUsage)
	}
	if flagSet.Lookup(EncodingFlagName) == nil {
		flagSet.StringVar(&values.Encoding, EncodingFlagName, defaults.Encoding, EncodingFlagUsage)
	}

	return &values
}
