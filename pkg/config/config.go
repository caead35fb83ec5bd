// Package config defines the application configuration, its defaults,
// loading, and validation.
package config

import "time"

// Config is the root configuration structure for the REST host.
type Config struct {
	// Server contains listener and HTTP engine configuration.
	Server ServerConfig `yaml:"server"`

	// TLS contains the TLS material configuration shared by all https
	// listeners.
	TLS TLSConfig `yaml:"tls"`

	// RateLimit contains denial-of-service rate limiting configuration.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains listener and HTTP engine configuration.
type ServerConfig struct {
	// Listeners is a comma-separated list of scheme://host:port entries.
	// An empty host binds all interfaces. A listener name may stand in
	// scheme position when ListenerProtocolMap resolves it. Empty
	// selects the legacy single-listener form on Port.
	Listeners string `yaml:"listeners"`

	// ListenerProtocolMap is a comma-separated list of name:protocol
	// pairs naming listeners (names are case-insensitive).
	ListenerProtocolMap string `yaml:"listener_protocol_map"`

	// Port is the legacy port used when Listeners is empty.
	// Default: 8080
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the grace period in-flight requests get before
	// the transport is forcibly closed.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Debug surfaces original messages for unclassified errors. Leave
	// off in production: it leaks internal detail.
	Debug bool `yaml:"debug"`
}

// TLSConfig contains TLS material configuration. Exactly one source is
// used: split cert/key files, a single PEM bundle, or a workload
// identity socket for dynamically rotated material.
type TLSConfig struct {
	// CertFile is the PEM certificate chain file (split form).
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key file (split form).
	KeyFile string `yaml:"key_file"`

	// BundleFile is a single PEM file of trust certificate(s) followed
	// by a private key and the identity certificate.
	BundleFile string `yaml:"bundle_file"`

	// TrustFile is a PEM file of trusted roots and intermediates.
	TrustFile string `yaml:"trust_file"`

	// ClientAuth requires peers to present certificates chaining to the
	// trust material (mTLS).
	ClientAuth bool `yaml:"client_auth"`

	// DisableSNICheck turns off the handshake-name-vs-Host check.
	// The check is on by default for https listeners.
	DisableSNICheck bool `yaml:"disable_sni_check"`

	// Watch reloads file-based material when the files change.
	Watch bool `yaml:"watch"`

	// SpiffeSocket is the workload identity socket (unix:// or tcp://
	// form). Set, it selects dynamically rotated material and the file
	// fields must be empty.
	SpiffeSocket string `yaml:"spiffe_socket"`

	// TrustDomain selects the trust bundle for dynamic material.
	// Empty uses the workload's own trust domain.
	TrustDomain string `yaml:"trust_domain"`
}

// RateLimitConfig contains denial-of-service rate limiting keys.
type RateLimitConfig struct {
	// Enabled turns enforcement on.
	Enabled bool `yaml:"enabled"`

	// PermitsPerSecond is the per-key request budget.
	// Default: 25
	PermitsPerSecond int `yaml:"permits_per_second"`

	// GlobalPermitsPerSecond is the process-wide budget. Zero disables
	// the global strategy (unless Mode is track-global).
	GlobalPermitsPerSecond int `yaml:"global_permits_per_second"`

	// DelayMillis holds over-limit requests before re-evaluation. A
	// negative value rejects immediately. A zero value selects the
	// default (-1).
	DelayMillis int `yaml:"delay_ms"`

	// Mode is the tracking mode: "address" (default), "remote-port",
	// or "track-global".
	Mode string `yaml:"mode"`

	// IdleTimeout is how long an inactive key survives before the
	// janitor evicts it.
	// Default: 5m
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// SweepSchedule is the janitor cron schedule.
	// Default: @every 1m
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	// LogLevel is the minimum log level ("debug", "info", "warn",
	// "error").
	// Default: info
	LogLevel string `yaml:"log_level"`

	// LogFormat is the log output format ("json", "text").
	// Default: json
	LogFormat string `yaml:"log_format"`

	// MetricsPrefix is the deployment prefix metric names start with.
	// Default: resthost
	MetricsPrefix string `yaml:"metrics_prefix"`

	// MetricsListener is the host:port for the Prometheus scrape
	// endpoint. Empty disables it.
	MetricsListener string `yaml:"metrics_listener"`

	// WatchStatus is the committed status the outcome recorder tracks.
	// Default: 429
	WatchStatus int `yaml:"watch_status"`

	// Tags are static tags merged into every outcome observation.
	Tags map[string]string `yaml:"tags"`
}
