package tlsmat

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Rotating is the live TLS material handle a listener holds. It is a
// single-writer, many-reader atomic snapshot: readers (handshaking
// connections) always observe either the previous or the next complete
// Material, never a mix.
type Rotating struct {
	current atomic.Pointer[Material]
}

// NewRotating creates a handle publishing the given initial snapshot.
func NewRotating(m *Material) *Rotating {
	r := &Rotating{}
	r.current.Store(m)
	return r
}

// Current returns the currently published snapshot.
func (r *Rotating) Current() *Material {
	return r.current.Load()
}

// Publish atomically swaps in a new snapshot. Handshakes already in
// flight complete under the material they started with.
func (r *Rotating) Publish(m *Material) {
	r.current.Store(m)
}

// ServerTLSConfig returns the tls.Config to attach to the listener's
// acceptor. The published snapshot is resolved per ClientHello, so
// rotation takes effect for new handshakes without dropping connections
// established under the previous material.
func (r *Rotating) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetConfigForClient: func(*tls.ClientHelloInfo) (*tls.Config, error) {
			return r.Current().serverTLSConfig(), nil
		},
	}
}

// IdentitySource is a live identity provider backing dynamically rotated
// material: a certificate/key pair plus a trust bundle that can be
// swapped at runtime without a restart.
type IdentitySource interface {
	// CurrentIdentity returns the current certificate chain and private
	// key.
	CurrentIdentity() (tls.Certificate, error)

	// TrustBundle returns the trusted certificates for the given trust
	// domain.
	TrustBundle(trustDomain string) (*x509.CertPool, error)

	// Updates signals each rotation of the underlying identity. The
	// channel is closed when the source shuts down.
	Updates() <-chan struct{}

	// Close releases the source.
	Close() error
}

// DynamicConfig configures dynamically rotated material.
type DynamicConfig struct {
	// TrustDomain selects the trust bundle served by the source.
	TrustDomain string

	// ClientAuth requires and verifies peer certificates against the
	// source's trust bundle.
	ClientAuth bool

	// SkipSNICheck disables the handshake-name-vs-Host enforcement.
	SkipSNICheck bool
}

// NewDynamic builds rotating material backed by a live identity source.
// The initial snapshot is derived eagerly so a listener never starts
// without identity; thereafter every rotation signal re-derives the
// snapshot and publishes it. The refresh loop exits when ctx is
// cancelled or the source closes its update channel.
func NewDynamic(ctx context.Context, src IdentitySource, cfg DynamicConfig, logger *slog.Logger) (*Rotating, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tlsmat.dynamic")

	material, err := snapshotFromSource(src, cfg)
	if err != nil {
		return nil, err
	}

	r := NewRotating(material)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-src.Updates():
				if !ok {
					return
				}
				next, err := snapshotFromSource(src, cfg)
				if err != nil {
					// Keep serving the previous snapshot; identity must
					// never regress to empty on a bad rotation.
					logger.Error("identity rotation failed, keeping previous material", "error", err)
					continue
				}
				r.Publish(next)
				logger.Info("rotated TLS material", "trust_domain", cfg.TrustDomain)
			}
		}
	}()

	return r, nil
}

func snapshotFromSource(src IdentitySource, cfg DynamicConfig) (*Material, error) {
	identity, err := src.CurrentIdentity()
	if err != nil {
		return nil, &InvalidConfigError{Reason: "identity source has no current identity", Err: err}
	}
	trust, err := src.TrustBundle(cfg.TrustDomain)
	if err != nil {
		return nil, &InvalidConfigError{
			Reason: fmt.Sprintf("identity source has no trust bundle for %q", cfg.TrustDomain),
			Err:    err,
		}
	}
	return &Material{
		Identity:           identity,
		Trust:              trust,
		ClientAuthRequired: cfg.ClientAuth,
		SNICheckEnabled:    !cfg.SkipSNICheck,
	}, nil
}
