// Package execshell runs external commands as child processes and reports a
// single classified result per invocation.
//
// ExecutionEngine spawns the child through a ProcessLauncher and drains stdout
// and stderr concurrently with TextDrain, so a chatty child never blocks on a
// full pipe. The process and its pipes are released before Run returns, and
// every outcome collapses into ExitStatusSuccess, ExitStatusFailure, or
// ExitStatusTimedOut.
package execshell
