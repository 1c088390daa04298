// Package metrics records command execution outcomes as Prometheus metrics.
package metrics
