// Package ratelimit enforces per-listener request-rate limits.
//
// # Overview
//
// The limiter tracks request rates in sliding-window counters keyed by
// one of three strategies:
//
//   - Per client address (the default)
//   - Per connection (remote-port tracking)
//   - Global (one shared counter)
//
// The keyed strategy selected by the tracking mode and the global
// strategy may be active at the same time; a request is admitted only if
// every active strategy admits it independently.
//
// # Delay semantics
//
// A negative configured delay rejects over-limit requests immediately. A
// zero or positive delay holds the request for up to that many
// milliseconds and re-evaluates once; a request still over limit after
// the hold is rejected. The hold is context-aware: cancellation during
// the hold releases the request without admitting it.
//
// # Overflow fan-out
//
// Over-limit events are dispatched to registered listeners in
// registration order. A panicking listener is recovered and logged and
// never suppresses later listeners. The first decisive action returned
// by any listener wins; if none decides, the configured default applies.
//
// # Recovery
//
// Counters expire as the window slides; once the window rolls past
// without the limit being exceeded, the key admits again. There is no
// manual reset path. Idle keys are evicted by a scheduled janitor so the
// key space never grows without bound.
package ratelimit
