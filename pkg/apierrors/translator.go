package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Outcome is the wire-level result of translating an error: an HTTP
// status, a stable domain error code, and a message safe to surface.
type Outcome struct {
	// Status is the HTTP status code.
	Status int

	// Code is the stable numeric domain error code.
	Code int

	// Message is the message to surface to the client.
	Message string

	// SchemaCode carries the optional schema error code for the
	// bad-request family. Nil when absent.
	SchemaCode *int
}

// Translator maps errors through the classification table to outcomes.
//
// Translator is stateless and safe for concurrent use.
type Translator struct {
	// Debug controls whether unclassified errors surface their original
	// message. In non-debug mode (the default) they surface only the
	// status reason phrase.
	Debug bool
}

// rule is one row of the classification table. Order defines precedence:
// the first matching row wins.
type rule struct {
	matches func(error) bool
	outcome func(error) Outcome
}

// classificationRules is the ordered classification table, most specific
// family first. New error families get a new row here, never the
// fallback.
var classificationRules = []rule{
	{
		matches: match[*AuthenticationError](),
		outcome: plain(http.StatusUnauthorized, CodeAuthentication),
	},
	{
		matches: match[*AuthorizationError](),
		outcome: plain(http.StatusForbidden, CodeAuthorization),
	},
	{
		matches: match[*BadRequestError](),
		outcome: func(err error) Outcome {
			var br *BadRequestError
			errors.As(err, &br)
			return Outcome{
				Status:     http.StatusBadRequest,
				Code:       CodeBadRequest,
				Message:    br.Message,
				SchemaCode: br.SchemaCode,
			}
		},
	},
	{
		// Must precede the not-found and retriable rows: this is a
		// timeout, but the resource absence is what the client needs.
		matches: match[*TopicNotFoundError](),
		outcome: plain(http.StatusNotFound, CodeTopicNotFound),
	},
	{
		matches: match[*NotFoundError](),
		outcome: plain(http.StatusNotFound, CodeNotFound),
	},
	{
		matches: match[*ThrottledError](),
		outcome: plain(http.StatusTooManyRequests, CodeThrottled),
	},
	{
		matches: match[*UnavailableError](),
		outcome: plain(http.StatusServiceUnavailable, CodeUnavailable),
	},
	{
		// Generic timeouts and cancellations are transient.
		matches: func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
		},
		outcome: func(err error) Outcome {
			return Outcome{
				Status:  http.StatusInternalServerError,
				Code:    CodeRetriable,
				Message: err.Error(),
			}
		},
	},
	{
		matches: match[*RetriableError](),
		outcome: plain(http.StatusInternalServerError, CodeRetriable),
	},
}

// match builds a predicate testing whether err, or any error in its
// wrap chain, is of type T.
func match[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// plain builds an outcome constructor that surfaces the error's own
// message under the given status and code.
func plain(status, code int) func(error) Outcome {
	return func(err error) Outcome {
		return Outcome{Status: status, Code: code, Message: err.Error()}
	}
}

// Translate maps an error to its wire outcome. Wrapper errors are
// unwrapped to their cause before matching; classification itself walks
// the full wrap chain, so deeply nested causes classify the same as
// their roots.
func (t *Translator) Translate(err error) Outcome {
	var exec *ExecutionError
	for errors.As(err, &exec) {
		err = exec.Err
		exec = nil
	}

	for _, r := range classificationRules {
		if r.matches(err) {
			return r.outcome(err)
		}
	}

	message := http.StatusText(http.StatusInternalServerError)
	if t.Debug && err != nil {
		message = err.Error()
	}
	return Outcome{
		Status:  http.StatusInternalServerError,
		Code:    CodeGeneric,
		Message: message,
	}
}

// Body is the JSON error body format. schema_error_code is omitted
// entirely when absent, never emitted as null.
type Body struct {
	ErrorCode       int    `json:"error_code"`
	Message         string `json:"message"`
	SchemaErrorCode *int   `json:"schema_error_code,omitempty"`
}

// WriteResponse translates err and writes the resulting error body and
// status to w.
func (t *Translator) WriteResponse(w http.ResponseWriter, err error) {
	outcome := t.Translate(err)
	WriteOutcome(w, outcome)
}

// WriteOutcome writes a translated outcome as a JSON error response.
func WriteOutcome(w http.ResponseWriter, outcome Outcome) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(outcome.Status)
	_ = json.NewEncoder(w).Encode(Body{
		ErrorCode:       outcome.Code,
		Message:         outcome.Message,
		SchemaErrorCode: outcome.SchemaCode,
	})
}
