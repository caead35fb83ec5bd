package apierrors

import "fmt"

// Stable numeric domain error codes carried in error bodies. These are
// part of the wire contract; clients key retry and alerting logic on
// them, so existing values must never be renumbered.
const (
	// CodeAuthentication is returned for authentication failures (401).
	CodeAuthentication = 40101

	// CodeAuthorization is returned for authorization failures (403).
	CodeAuthorization = 40301

	// CodeBadRequest is the shared code for the bad-request family (400).
	CodeBadRequest = 40002

	// CodeNotFound is returned when a requested resource does not exist (404).
	CodeNotFound = 40401

	// CodeTopicNotFound is returned for the timeout variant raised when
	// the target topic is not present (404). Distinct from CodeNotFound
	// so clients can tell a missing topic from a missing entity.
	CodeTopicNotFound = 40403

	// CodeThrottled is returned when a quota or rate limit is exceeded (429).
	CodeThrottled = 42901

	// CodeUnavailable is returned when the backing broker or service is
	// unavailable (503).
	CodeUnavailable = 50302

	// CodeRetriable is returned for transient errors the client may
	// safely retry (500).
	CodeRetriable = 50003

	// CodeGeneric is the fallback code for unclassified errors (500).
	CodeGeneric = 50002
)

// AuthenticationError indicates the caller could not be authenticated.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError indicates the caller is authenticated but not
// permitted to perform the operation.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// BadRequestError covers the bad-request family: malformed input,
// serialization failures, unsupported versions, invalid arguments. All
// members share CodeBadRequest. SchemaCode, when set, is carried into
// the error body's schema_error_code field.
type BadRequestError struct {
	Message    string
	SchemaCode *int
}

func (e *BadRequestError) Error() string { return e.Message }

// NotFoundError indicates a requested entity does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// TopicNotFoundError is the timeout variant raised when an operation
// times out because the target topic is not present. It classifies as
// 404 rather than the generic 500 other timeouts receive.
type TopicNotFoundError struct {
	Topic string
}

func (e *TopicNotFoundError) Error() string {
	return fmt.Sprintf("topic %q not found", e.Topic)
}

// ThrottledError indicates a rate limit or quota was exceeded.
type ThrottledError struct {
	Message string
}

func (e *ThrottledError) Error() string { return e.Message }

// UnavailableError indicates the backing broker or downstream service is
// not currently reachable.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// RetriableError indicates a transient failure the client may retry.
// Transaction conflicts classify here: the conflict is transient by
// definition, and CodeRetriable is the code retry loops key on.
type RetriableError struct {
	Message string
}

func (e *RetriableError) Error() string { return e.Message }

// ExecutionError wraps a failure produced on another goroutine or by a
// deferred computation. Translation unwraps it to the underlying cause
// before matching.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Err }
