// Package ui provides helpers for formatting human-readable console output.
//
// ConsoleExecutionEventLogger turns command lifecycle events into short
// sentences for CLI users while detailed telemetry continues to flow through
// structured loggers.
package ui
