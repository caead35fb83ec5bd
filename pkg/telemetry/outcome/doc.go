// Package outcome records committed response outcomes for a watched
// status code, by default 429.
//
// # Sensors
//
// Each distinct tag set observed gets its own sensor: three prometheus
// measurements (instantaneous rate, short-window count, cumulative
// count) registered under names derived from the deployment prefix, the
// metric family, the status code, and the sorted tag values. Sensor
// identity is the sorted tag set; sensors are created lazily on first
// observation, exactly once even when many request goroutines race on
// the first hit, and live for the rest of the process.
//
// # Degradation
//
// Metric resolution failures never propagate to request handling: a nil
// registry or a failed registration quietly turns the affected sensor
// into a no-op.
package outcome
