// Package telemetry groups the observability concerns of the host.
//
// # Components
//
//   - logging: structured slog logger construction
//   - outcome: per-tag-set throttling outcome sensors for Prometheus
package telemetry
