package tlsmat

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
)

// InvalidConfigError reports malformed TLS material. It is fatal at
// startup: a listener never comes up with broken or partial identity.
type InvalidConfigError struct {
	Reason string
	Err    error
}

// Error returns the error message.
func (e *InvalidConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid TLS configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid TLS configuration: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *InvalidConfigError) Unwrap() error { return e.Err }

// Config describes how to build TLS material for one listener.
type Config struct {
	// CertFile and KeyFile select the split static form: a PEM
	// certificate chain and a PEM private key.
	CertFile string
	KeyFile  string

	// BundleFile selects the single-bundle form: one PEM file holding
	// trust certificate(s) followed by a private key and the identity
	// certificate. Mutually exclusive with CertFile/KeyFile.
	BundleFile string

	// TrustFile is an optional PEM file of trusted roots and
	// intermediates. Ignored in bundle form, where trust comes from the
	// bundle itself.
	TrustFile string

	// ClientAuth requires peers to present a certificate chaining to
	// the trust material. Failures reject the handshake at the
	// connection level.
	ClientAuth bool

	// SkipSNICheck disables the handshake-name-vs-Host enforcement.
	// The check is on by default.
	SkipSNICheck bool
}

// Material is one immutable TLS material snapshot: identity, trust, and
// mTLS policy. It is owned by the listener it is attached to and
// replaced wholesale on rotation, never mutated.
type Material struct {
	// Identity is the certificate chain and private key presented to
	// peers.
	Identity tls.Certificate

	// Trust holds the trusted root and intermediate certificates used
	// to verify client certificates.
	Trust *x509.CertPool

	// ClientAuthRequired requires and verifies peer certificates.
	ClientAuthRequired bool

	// SNICheckEnabled enables the handshake-name-vs-Host check.
	SNICheckEnabled bool
}

// Build constructs a material snapshot from static configuration.
func Build(cfg Config) (*Material, error) {
	if cfg.BundleFile != "" {
		if cfg.CertFile != "" || cfg.KeyFile != "" {
			return nil, &InvalidConfigError{Reason: "bundle file and cert/key files are mutually exclusive"}
		}
		return buildFromBundle(cfg)
	}
	return buildFromSplitFiles(cfg)
}

func buildFromSplitFiles(cfg Config) (*Material, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, &InvalidConfigError{Reason: "both certificate file and key file are required"}
	}

	identity, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, &InvalidConfigError{Reason: "failed to load key pair", Err: err}
	}

	var trust *x509.CertPool
	if cfg.TrustFile != "" {
		pemData, err := os.ReadFile(cfg.TrustFile)
		if err != nil {
			return nil, &InvalidConfigError{Reason: fmt.Sprintf("failed to read trust file %q", cfg.TrustFile), Err: err}
		}
		trust = x509.NewCertPool()
		if !trust.AppendCertsFromPEM(pemData) {
			return nil, &InvalidConfigError{Reason: fmt.Sprintf("trust file %q contains no parsable certificates", cfg.TrustFile)}
		}
	}

	if cfg.ClientAuth && trust == nil {
		return nil, &InvalidConfigError{Reason: "client authentication requires trust material"}
	}

	return &Material{
		Identity:           identity,
		Trust:              trust,
		ClientAuthRequired: cfg.ClientAuth,
		SNICheckEnabled:    !cfg.SkipSNICheck,
	}, nil
}

// serverTLSConfig renders this snapshot as a concrete handshake config.
func (m *Material) serverTLSConfig() *tls.Config {
	cfg := &tls.Config{
		Certificates: []tls.Certificate{m.Identity},
		MinVersion:   tls.VersionTLS12,
	}
	if m.ClientAuthRequired {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		cfg.ClientCAs = m.Trust
	}
	return cfg
}

// MatchesSNIHost reports whether the server name advertised during the
// TLS handshake matches the HTTP Host header presented afterward. An
// absent server name (no SNI sent) always matches; comparison is
// case-insensitive and ignores the Host header's port.
func MatchesSNIHost(serverName, hostHeader string) bool {
	if serverName == "" {
		return true
	}
	host := hostHeader
	if h, _, err := net.SplitHostPort(hostHeader); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return strings.EqualFold(serverName, host)
}
