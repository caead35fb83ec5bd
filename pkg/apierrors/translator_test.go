package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// Classification Tests
// ============================================================================

func TestTranslate_Families(t *testing.T) {
	tr := &Translator{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"authentication", &AuthenticationError{Message: "bad credentials"}, 401, CodeAuthentication},
		{"authorization", &AuthorizationError{Message: "not allowed"}, 403, CodeAuthorization},
		{"bad request", &BadRequestError{Message: "malformed payload"}, 400, CodeBadRequest},
		{"not found", &NotFoundError{Message: "no such partition"}, 404, CodeNotFound},
		{"topic not found timeout", &TopicNotFoundError{Topic: "orders"}, 404, CodeTopicNotFound},
		{"throttled", &ThrottledError{Message: "quota exceeded"}, 429, CodeThrottled},
		{"unavailable", &UnavailableError{Message: "broker down"}, 503, CodeUnavailable},
		{"retriable", &RetriableError{Message: "leader election in progress"}, 500, CodeRetriable},
		{"deadline exceeded", context.DeadlineExceeded, 500, CodeRetriable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tr.Translate(tt.err)
			if out.Status != tt.wantStatus {
				t.Errorf("Status: expected %d, got %d", tt.wantStatus, out.Status)
			}
			if out.Code != tt.wantCode {
				t.Errorf("Code: expected %d, got %d", tt.wantCode, out.Code)
			}
		})
	}
}

func TestTranslate_UnwrapsExecutionError(t *testing.T) {
	tr := &Translator{}

	err := &ExecutionError{Err: &AuthorizationError{Message: "denied"}}
	out := tr.Translate(err)
	if out.Status != 403 || out.Code != CodeAuthorization {
		t.Errorf("Expected (403, %d), got (%d, %d)", CodeAuthorization, out.Status, out.Code)
	}

	// Nested wrappers unwrap all the way down.
	nested := &ExecutionError{Err: &ExecutionError{Err: &ThrottledError{Message: "slow down"}}}
	out = tr.Translate(nested)
	if out.Status != 429 {
		t.Errorf("Expected 429 through nested wrappers, got %d", out.Status)
	}
}

func TestTranslate_WrappedCauseClassifies(t *testing.T) {
	tr := &Translator{}

	err := fmt.Errorf("produce failed: %w", &UnavailableError{Message: "broker down"})
	out := tr.Translate(err)
	if out.Status != 503 || out.Code != CodeUnavailable {
		t.Errorf("Expected (503, %d), got (%d, %d)", CodeUnavailable, out.Status, out.Code)
	}
}

func TestTranslate_TopicTimeoutBeatsGenericTimeout(t *testing.T) {
	tr := &Translator{}

	// A topic-absence timeout is a 404, not the 500 other timeouts get.
	err := fmt.Errorf("fetch metadata: %w", &TopicNotFoundError{Topic: "orders"})
	out := tr.Translate(err)
	if out.Status != 404 || out.Code != CodeTopicNotFound {
		t.Errorf("Expected (404, %d), got (%d, %d)", CodeTopicNotFound, out.Status, out.Code)
	}
}

func TestTranslate_UnclassifiedHidesDetail(t *testing.T) {
	tr := &Translator{}

	out := tr.Translate(errors.New("connection to 10.2.3.4:9092 reset"))
	if out.Status != 500 || out.Code != CodeGeneric {
		t.Fatalf("Expected (500, %d), got (%d, %d)", CodeGeneric, out.Status, out.Code)
	}
	if out.Message != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("Expected generic reason phrase, got %q", out.Message)
	}
	if strings.Contains(out.Message, "10.2.3.4") {
		t.Error("Internal detail leaked into non-debug message")
	}
}

func TestTranslate_UnclassifiedDebugSurfacesMessage(t *testing.T) {
	tr := &Translator{Debug: true}

	out := tr.Translate(errors.New("something odd"))
	if out.Message != "something odd" {
		t.Errorf("Expected original message in debug mode, got %q", out.Message)
	}
}

// ============================================================================
// Wire Body Tests
// ============================================================================

func TestWriteResponse_Body(t *testing.T) {
	tr := &Translator{}
	rec := httptest.NewRecorder()

	tr.WriteResponse(rec, &NotFoundError{Message: "no such topic"})

	if rec.Code != 404 {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON body: %v", err)
	}
	if body["error_code"] != float64(CodeNotFound) {
		t.Errorf("Expected error_code %d, got %v", CodeNotFound, body["error_code"])
	}
	if _, present := body["schema_error_code"]; present {
		t.Error("schema_error_code must be omitted when absent, not emitted as null")
	}
}

func TestWriteResponse_SchemaErrorCode(t *testing.T) {
	tr := &Translator{}
	rec := httptest.NewRecorder()

	schemaCode := 42201
	tr.WriteResponse(rec, &BadRequestError{Message: "schema mismatch", SchemaCode: &schemaCode})

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON body: %v", err)
	}
	if body["schema_error_code"] != float64(schemaCode) {
		t.Errorf("Expected schema_error_code %d, got %v", schemaCode, body["schema_error_code"])
	}
}
