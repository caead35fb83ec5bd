package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path,
// applies default values, validates the result, and returns any errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention RESTHOST_SECTION_FIELD (e.g. RESTHOST_SERVER_LISTENERS)
// and always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration invalid after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString("RESTHOST_SERVER_LISTENERS", &cfg.Server.Listeners)
	setString("RESTHOST_SERVER_LISTENER_PROTOCOL_MAP", &cfg.Server.ListenerProtocolMap)
	setInt("RESTHOST_SERVER_PORT", &cfg.Server.Port)
	setDuration("RESTHOST_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	setBool("RESTHOST_SERVER_DEBUG", &cfg.Server.Debug)

	setString("RESTHOST_TLS_CERT_FILE", &cfg.TLS.CertFile)
	setString("RESTHOST_TLS_KEY_FILE", &cfg.TLS.KeyFile)
	setString("RESTHOST_TLS_BUNDLE_FILE", &cfg.TLS.BundleFile)
	setString("RESTHOST_TLS_TRUST_FILE", &cfg.TLS.TrustFile)
	setBool("RESTHOST_TLS_CLIENT_AUTH", &cfg.TLS.ClientAuth)
	setString("RESTHOST_TLS_SPIFFE_SOCKET", &cfg.TLS.SpiffeSocket)
	setString("RESTHOST_TLS_TRUST_DOMAIN", &cfg.TLS.TrustDomain)

	setBool("RESTHOST_RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setInt("RESTHOST_RATE_LIMIT_PERMITS_PER_SECOND", &cfg.RateLimit.PermitsPerSecond)
	setInt("RESTHOST_RATE_LIMIT_GLOBAL_PERMITS_PER_SECOND", &cfg.RateLimit.GlobalPermitsPerSecond)
	setInt("RESTHOST_RATE_LIMIT_DELAY_MS", &cfg.RateLimit.DelayMillis)
	setString("RESTHOST_RATE_LIMIT_MODE", &cfg.RateLimit.Mode)

	setString("RESTHOST_TELEMETRY_LOG_LEVEL", &cfg.Telemetry.LogLevel)
	setString("RESTHOST_TELEMETRY_LOG_FORMAT", &cfg.Telemetry.LogFormat)
	setString("RESTHOST_TELEMETRY_METRICS_PREFIX", &cfg.Telemetry.MetricsPrefix)
	setString("RESTHOST_TELEMETRY_METRICS_LISTENER", &cfg.Telemetry.MetricsListener)
}

func setString(key string, target *string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v
	}
}

func setInt(key string, target *int) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func setBool(key string, target *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*target = parsed
		}
	}
}

func setDuration(key string, target *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			*target = parsed
		}
	}
}
