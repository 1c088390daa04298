// Package cli constructs the runcmd command-line interface, wiring the Cobra
// command hierarchy, configuration loader, structured logging, and the shared
// execution engine used by the run and batch commands.
package cli
