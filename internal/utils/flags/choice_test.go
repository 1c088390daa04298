package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(t *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "DefaultFirstChoice",
			defaultChoice:  "yaml",
			choices:        []string{"yaml", "json"},
			description:    "Render the report as YAML or json.",
			expectedOutput: "`<YAML|json>` Render the report as YAML or json.",
		},
		{
			name:           "DefaultSecondChoice",
			defaultChoice:  "json",
			choices:        []string{"yaml", "json"},
			description:    "Render the report as json.",
			expectedOutput: "`<yaml|JSON>` Render the report as json.",
		},
		{
			name:           "EmptyDescription",
			defaultChoice:  "alpha",
			choices:        []string{"alpha", "beta"},
			description:    "",
			expectedOutput: "`<ALPHA|beta>`",
		},
		{
			name:           "DuplicateChoicesIgnored",
			defaultChoice:  "beta",
			choices:        []string{"beta", "beta", "alpha", "alpha"},
			description:    "Select between options.",
			expectedOutput: "`<BETA|alpha>` Select between options.",
		},
		{
			name:           "WhitespaceTrimmed",
			defaultChoice:  "primary",
			choices:        []string{" primary ", " secondary "},
			description:    "Pick a palette.",
			expectedOutput: "`<PRIMARY|secondary>` Pick a palette.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual := FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description)
			require.Equal(t, testCase.expectedOutput, actual)
		})
	}
}

func TestAddChoiceFlagValidatesValues(t *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedValue string
		expectError   bool
	}{
		{name: "Default", arguments: []string{}, expectedValue: "yaml"},
		{name: "ExplicitChoice", arguments: []string{"--format", "json"}, expectedValue: "json"},
		{name: "CaseInsensitive", arguments: []string{"--format=JSON"}, expectedValue: "json"},
		{name: "UnknownChoice", arguments: []string{"--format", "xml"}, expectedValue: "yaml", expectError: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{}

			var formatValue string
			AddChoiceFlag(command.Flags(), &formatValue, "format", "yaml", []string{"yaml", "json"}, "Report format")

			parseError := command.ParseFlags(testCase.arguments)
			if testCase.expectError {
				require.Error(t, parseError)
			} else {
				require.NoError(t, parseError)
			}
			require.Equal(t, testCase.expectedValue, formatValue)
			require.Equal(t, testCase.expectedValue, command.Flags().Lookup("format").Value.String())
		})
	}
}
