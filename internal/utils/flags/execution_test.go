package flags

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestBindExecutionFlagsUsesDefaultsAndParsesValues(t *testing.T) {
	command := &cobra.Command{}

	values := BindExecutionFlags(command, ExecutionFlagValues{Timeout: 30 * time.Second, Encoding: "utf-8"})
	require.Equal(t, 30*time.Second, values.Timeout)
	require.Equal(t, "utf-8", values.Encoding)

	parseError := command.ParseFlags([]string{"--timeout", "250ms", "--encoding", "gbk"})
	require.NoError(t, parseError)
	require.Equal(t, 250*time.Millisecond, values.Timeout)
	require.Equal(t, "gbk", values.Encoding)
	require.True(t, command.Flags().Changed(TimeoutFlagName))
}

func TestBindExecutionFlagsToleratesNilCommand(t *testing.T) {
	values := BindExecutionFlags(nil, ExecutionFlagValues{Encoding: "utf-8"})
	require.Equal(t, "utf-8", values.Encoding)
}
