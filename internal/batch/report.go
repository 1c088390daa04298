package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temirov/runcmd/internal/execshell"
)

// ReportFormat identifies a supported report encoding.
type ReportFormat string

// Supported report encodings.
const (
	ReportFormatYAML ReportFormat = ReportFormat("yaml")
	ReportFormatJSON ReportFormat = ReportFormat("json")
)

// ResultStatus classifies a command in a batch report.
type ResultStatus string

// Batch result classifications. Skipped commands were never started.
const (
	ResultStatusSuccess  ResultStatus = ResultStatus("success")
	ResultStatusFailure  ResultStatus = ResultStatus("failure")
	ResultStatusTimedOut ResultStatus = ResultStatus("timed_out")
	ResultStatusSkipped  ResultStatus = ResultStatus("skipped")
)

const (
	reportFormatUnsupportedTemplateConstant = "unsupported report format %q"
	reportEncodeErrorTemplateConstant       = "failed to encode batch report: %w"
	reportWriterRequiredMessageConstant     = "batch report writer must be provided"
	reportIndentWidthConstant               = 2
	reportJSONIndentConstant                = "  "
)

// Report summarizes a batch run. Results keep the definition order.
type Report struct {
	Summary Summary         `yaml:"summary" json:"summary"`
	Results []CommandResult `yaml:"results" json:"results"`
}

// Summary counts results by classification.
type Summary struct {
	Total     int `yaml:"total" json:"total"`
	Succeeded int `yaml:"succeeded" json:"succeeded"`
	Failed    int `yaml:"failed" json:"failed"`
	TimedOut  int `yaml:"timed_out" json:"timed_out"`
	Skipped   int `yaml:"skipped" json:"skipped"`
}

// CommandResult records the outcome of one command.
type CommandResult struct {
	Name         string       `yaml:"name" json:"name"`
	InvocationID string       `yaml:"invocation_id,omitempty" json:"invocation_id,omitempty"`
	Status       ResultStatus `yaml:"status" json:"status"`
	Duration     string       `yaml:"duration" json:"duration"`
	Output       string       `yaml:"output" json:"output"`
}

// Succeeded reports whether every command succeeded.
func (report Report) Succeeded() bool {
	return report.Summary.Total == report.Summary.Succeeded
}

// FailedCount counts every command that did not succeed, skipped ones included.
func (report Report) FailedCount() int {
	return report.Summary.Total - report.Summary.Succeeded
}

// WorstStatus returns the most severe execution status in the report.
// Failures and skips outrank timeouts.
func (report Report) WorstStatus() execshell.ExitStatus {
	switch {
	case report.Summary.Failed > 0 || report.Summary.Skipped > 0:
		return execshell.ExitStatusFailure
	case report.Summary.TimedOut > 0:
		return execshell.ExitStatusTimedOut
	default:
		return execshell.ExitStatusSuccess
	}
}

func newReport(results []CommandResult) Report {
	report := Report{Results: results}
	report.Summary.Total = len(results)
	for resultIndex := range results {
		switch results[resultIndex].Status {
		case ResultStatusSuccess:
			report.Summary.Succeeded++
		case ResultStatusTimedOut:
			report.Summary.TimedOut++
		case ResultStatusSkipped:
			report.Summary.Skipped++
		default:
			report.Summary.Failed++
		}
	}
	return report
}

func newCommandResult(name string, result execshell.ExecuteResult) CommandResult {
	return CommandResult{
		Name:         name,
		InvocationID: result.InvocationID(),
		Status:       ResultStatus(result.Status().String()),
		Duration:     formatDuration(result.Duration()),
		Output:       result.Output(),
	}
}

func newSkippedResult(name string) CommandResult {
	return CommandResult{Name: name, Status: ResultStatusSkipped, Duration: formatDuration(0)}
}

func formatDuration(duration time.Duration) string {
	return duration.Round(time.Millisecond).String()
}

// ParseReportFormat normalizes a format name.
func ParseReportFormat(rawFormat string) (ReportFormat, error) {
	switch normalizedFormat := ReportFormat(strings.ToLower(strings.TrimSpace(rawFormat))); normalizedFormat {
	case ReportFormatYAML, ReportFormatJSON:
		return normalizedFormat, nil
	default:
		return "", fmt.Errorf(reportFormatUnsupportedTemplateConstant, rawFormat)
	}
}

// WriteReport encodes the report to writer in the requested format.
func WriteReport(writer io.Writer, report Report, format ReportFormat) error {
	if writer == nil {
		return errors.New(reportWriterRequiredMessageConstant)
	}

	switch format {
	case ReportFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(reportIndentWidthConstant)
		if encodeError := encoder.Encode(report); encodeError != nil {
			return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
		}
		if closeError := encoder.Close(); closeError != nil {
			return fmt.Errorf(reportEncodeErrorTemplateConstant, closeError)
		}
		return nil
	case ReportFormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", reportJSONIndentConstant)
		if encodeError := encoder.Encode(report); encodeError != nil {
			return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
		}
		return nil
	default:
		return fmt.Errorf(reportFormatUnsupportedTemplateConstant, string(format))
	}
}
