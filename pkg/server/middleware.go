package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"arcadia-hq/resthost/pkg/apierrors"
	"arcadia-hq/resthost/pkg/ratelimit"
	"arcadia-hq/resthost/pkg/telemetry/outcome"
	"arcadia-hq/resthost/pkg/tlsmat"
)

// contextKey is a private type for context keys defined in this package.
type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"

	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"
)

// Middleware wraps a handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// responseWriter wraps http.ResponseWriter to capture the committed
// status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// RequestIDMiddleware assigns each request a unique ID, preferring a
// client-supplied X-Request-ID. The ID travels in the request context
// and is echoed in the response headers.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context. Returns empty
// string if not found.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// RecoveryMiddleware recovers from panics in downstream handlers, logs
// the panic with a stack trace, and renders a generic 500 error body.
// Internal detail never reaches the client unless debug translation is
// on.
func RecoveryMiddleware(logger *slog.Logger, translator *apierrors.Translator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic in handler",
						"error", err,
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					translator.WriteResponse(w, fmt.Errorf("panic: %v", err))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs each request on completion with method, path,
// status, latency, and correlation metadata. The log level escalates
// with the response status.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			if rw.statusCode >= 500 {
				level = slog.LevelError
			} else if rw.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"latency_ms", time.Since(startTime).Milliseconds(),
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// SNICheckMiddleware rejects TLS requests whose handshake server name
// disagrees with the Host header. The check is consulted per request
// against the current material snapshot, so rotation picks up policy
// changes without restarting the listener.
func SNICheckMiddleware(current func() *tlsmat.Material, translator *apierrors.Translator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil {
				if m := current(); m != nil && m.SNICheckEnabled {
					if !tlsmat.MatchesSNIHost(r.TLS.ServerName, r.Host) {
						translator.WriteResponse(w, &apierrors.BadRequestError{
							Message: fmt.Sprintf("Host header %q does not match SNI server name %q", r.Host, r.TLS.ServerName),
						})
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware consults the limiter before the application
// handler runs. Rejected requests get a 429 error body and never reach
// the handler.
func RateLimitMiddleware(limiter *ratelimit.Limiter, listenerName string, translator *apierrors.Translator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := ratelimit.Request{
				ClientAddr:   clientAddr(r.RemoteAddr),
				ConnectionID: r.RemoteAddr,
				Tags:         map[string]string{"listener": listenerName},
			}

			if limiter.Admit(r.Context(), req) == ratelimit.ActionReject {
				translator.WriteResponse(w, &apierrors.ThrottledError{
					Message: "request rate exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OutcomeMiddleware reports each committed response status to the
// outcome recorder with the given tags.
func OutcomeMiddleware(recorder *outcome.Recorder, tags map[string]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			recorder.Observe(rw.statusCode, tags)
		})
	}
}

// clientAddr strips the port from a remote address. An address without
// a port is returned unchanged.
func clientAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
