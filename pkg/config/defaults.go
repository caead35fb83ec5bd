package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Rate limit defaults
	DefaultPermitsPerSecond = 25
	DefaultDelayMillis      = -1
	DefaultMode             = "address"
	DefaultIdleKeyTimeout   = 5 * time.Minute
	DefaultSweepSchedule    = "@every 1m"

	// Telemetry defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultMetricsPrefix = "resthost"
	DefaultWatchStatus   = 429
)

// ApplyDefaults fills unset configuration fields with default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.RateLimit.PermitsPerSecond == 0 {
		cfg.RateLimit.PermitsPerSecond = DefaultPermitsPerSecond
	}
	if cfg.RateLimit.DelayMillis == 0 {
		cfg.RateLimit.DelayMillis = DefaultDelayMillis
	}
	if cfg.RateLimit.Mode == "" {
		cfg.RateLimit.Mode = DefaultMode
	}
	if cfg.RateLimit.IdleTimeout == 0 {
		cfg.RateLimit.IdleTimeout = DefaultIdleKeyTimeout
	}
	if cfg.RateLimit.SweepSchedule == "" {
		cfg.RateLimit.SweepSchedule = DefaultSweepSchedule
	}

	if cfg.Telemetry.LogLevel == "" {
		cfg.Telemetry.LogLevel = DefaultLogLevel
	}
	if cfg.Telemetry.LogFormat == "" {
		cfg.Telemetry.LogFormat = DefaultLogFormat
	}
	if cfg.Telemetry.MetricsPrefix == "" {
		cfg.Telemetry.MetricsPrefix = DefaultMetricsPrefix
	}
	if cfg.Telemetry.WatchStatus == 0 {
		cfg.Telemetry.WatchStatus = DefaultWatchStatus
	}
}
