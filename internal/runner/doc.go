// Package runner implements the run command, which executes one command and
// prints its combined output.
package runner
