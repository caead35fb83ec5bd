package server

import (
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"arcadia-hq/resthost/pkg/apierrors"
	"arcadia-hq/resthost/pkg/ratelimit"
	"arcadia-hq/resthost/pkg/telemetry/outcome"
	"arcadia-hq/resthost/pkg/tlsmat"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) apierrors.Body {
	t.Helper()
	var body apierrors.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// =============================================================================
// Request ID
// =============================================================================

func TestRequestIDMiddleware_Generates(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("Expected a generated request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("Response header %q must match context ID %q", got, seen)
	}
}

func TestRequestIDMiddleware_PreservesClientID(t *testing.T) {
	handler := RequestIDMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied" {
		t.Errorf("Expected client-supplied ID preserved, got %q", got)
	}
}

// =============================================================================
// Recovery
// =============================================================================

func TestRecoveryMiddleware_PanicBecomesGeneric500(t *testing.T) {
	handler := RecoveryMiddleware(slog.Default(), &apierrors.Translator{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.ErrorCode != apierrors.CodeGeneric {
		t.Errorf("Expected code %d, got %d", apierrors.CodeGeneric, body.ErrorCode)
	}
	if body.Message == "boom" || body.Message == "panic: boom" {
		t.Errorf("Panic detail must not leak to the client, got %q", body.Message)
	}
}

// =============================================================================
// SNI enforcement
// =============================================================================

func sniHandler(material *tlsmat.Material) http.Handler {
	current := func() *tlsmat.Material { return material }
	return SNICheckMiddleware(current, &apierrors.Translator{})(okHandler())
}

func tlsRequest(serverName, host string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = host
	req.TLS = &tls.ConnectionState{ServerName: serverName}
	return req
}

func TestSNICheckMiddleware_Mismatch(t *testing.T) {
	handler := sniHandler(&tlsmat.Material{SNICheckEnabled: true})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tlsRequest("other.example.com", "api.example.com:8443"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on SNI mismatch, got %d", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.ErrorCode != apierrors.CodeBadRequest {
		t.Errorf("Expected code %d, got %d", apierrors.CodeBadRequest, body.ErrorCode)
	}
}

func TestSNICheckMiddleware_Match(t *testing.T) {
	handler := sniHandler(&tlsmat.Material{SNICheckEnabled: true})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tlsRequest("API.Example.Com", "api.example.com:8443"))

	if rec.Code != http.StatusOK {
		t.Errorf("Case-insensitive match must pass, got %d", rec.Code)
	}
}

func TestSNICheckMiddleware_Disabled(t *testing.T) {
	handler := sniHandler(&tlsmat.Material{SNICheckEnabled: false})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tlsRequest("other.example.com", "api.example.com:8443"))

	if rec.Code != http.StatusOK {
		t.Errorf("Disabled check must pass mismatches, got %d", rec.Code)
	}
}

func TestSNICheckMiddleware_NoServerName(t *testing.T) {
	handler := sniHandler(&tlsmat.Material{SNICheckEnabled: true})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tlsRequest("", "api.example.com:8443"))

	if rec.Code != http.StatusOK {
		t.Errorf("Absent SNI must pass, got %d", rec.Code)
	}
}

// =============================================================================
// Rate limiting
// =============================================================================

func TestRateLimitMiddleware_RejectsWith429(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		Enabled:          true,
		PermitsPerSecond: 1,
		DelayMillis:      -1,
	}, slog.Default())

	invoked := 0
	handler := RateLimitMiddleware(limiter, "external", &apierrors.Translator{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			invoked++
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:54321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("First request must pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.ErrorCode != apierrors.CodeThrottled {
		t.Errorf("Expected code %d, got %d", apierrors.CodeThrottled, body.ErrorCode)
	}
	if invoked != 1 {
		t.Errorf("Rejected request must not reach the handler, invoked=%d", invoked)
	}
}

func TestRateLimitMiddleware_IndependentClients(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		Enabled:          true,
		PermitsPerSecond: 1,
		DelayMillis:      -1,
	}, slog.Default())

	handler := RateLimitMiddleware(limiter, "external", &apierrors.Translator{})(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "192.0.2.1:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "192.0.2.2:1000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusOK {
		t.Errorf("Different client must not inherit another client's budget, got %d", rec.Code)
	}
}

// =============================================================================
// Outcome observation
// =============================================================================

func TestOutcomeMiddleware_ObservesCommittedStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := outcome.NewRecorder(outcome.Config{}, registry, slog.Default())

	handler := OutcomeMiddleware(recorder, map[string]string{"listener": "external"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(families) == 0 {
		t.Error("Expected sensor metrics after observing the watched status")
	}
}
