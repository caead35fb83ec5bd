package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTLS(&cfg.TLS)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Port),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "must be positive",
		})
	}

	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	var errs []FieldError

	fileConfigured := cfg.CertFile != "" || cfg.KeyFile != "" || cfg.BundleFile != ""

	if cfg.SpiffeSocket != "" && fileConfigured {
		errs = append(errs, FieldError{
			Field:   "tls.spiffe_socket",
			Message: "cannot be combined with cert_file, key_file, or bundle_file",
		})
	}
	if cfg.BundleFile != "" && (cfg.CertFile != "" || cfg.KeyFile != "") {
		errs = append(errs, FieldError{
			Field:   "tls.bundle_file",
			Message: "cannot be combined with cert_file or key_file",
		})
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		errs = append(errs, FieldError{
			Field:   "tls.cert_file",
			Message: "cert_file and key_file must be set together",
		})
	}
	if cfg.ClientAuth && cfg.SpiffeSocket == "" && cfg.TrustFile == "" && cfg.BundleFile == "" {
		errs = append(errs, FieldError{
			Field:   "tls.client_auth",
			Message: "requires trust_file, bundle_file, or spiffe_socket",
		})
	}
	if cfg.Watch && cfg.SpiffeSocket != "" {
		errs = append(errs, FieldError{
			Field:   "tls.watch",
			Message: "file watching does not apply to spiffe_socket material",
		})
	}
	if cfg.TrustDomain != "" && cfg.SpiffeSocket == "" {
		errs = append(errs, FieldError{
			Field:   "tls.trust_domain",
			Message: "requires spiffe_socket",
		})
	}

	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	switch cfg.Mode {
	case "address", "remote-port", "track-global":
	default:
		errs = append(errs, FieldError{
			Field:   "rate_limit.mode",
			Message: fmt.Sprintf("must be one of address, remote-port, track-global, got %q", cfg.Mode),
		})
	}
	if cfg.PermitsPerSecond <= 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.permits_per_second",
			Message: "must be positive",
		})
	}
	if cfg.GlobalPermitsPerSecond < 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.global_permits_per_second",
			Message: "must not be negative",
		})
	}
	if cfg.Mode == "track-global" && cfg.GlobalPermitsPerSecond == 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.global_permits_per_second",
			Message: "must be set when mode is track-global",
		})
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.idle_timeout",
			Message: "must be positive",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.log_level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error, got %q", cfg.LogLevel),
		})
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.log_format",
			Message: fmt.Sprintf("must be one of json, text, got %q", cfg.LogFormat),
		})
	}
	if cfg.WatchStatus < 100 || cfg.WatchStatus > 599 {
		errs = append(errs, FieldError{
			Field:   "telemetry.watch_status",
			Message: fmt.Sprintf("must be a valid HTTP status code, got %d", cfg.WatchStatus),
		})
	}

	return errs
}
