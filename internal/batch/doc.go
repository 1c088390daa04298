// Package batch runs a set of commands described in a YAML file with bounded
// parallelism and summarizes their outcomes in a report.
package batch
