package tlsmat

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// SpiffeSource adapts a SPIFFE Workload API socket to the IdentitySource
// interface. The underlying X509Source fetches the workload's SVID and
// trust bundle and keeps both rotated; every rotation is surfaced
// through Updates.
type SpiffeSource struct {
	source *workloadapi.X509Source
}

// NewSpiffeSource connects to the Workload API at socketPath (full
// unix:// or tcp:// form) and waits for the initial identity. The
// returned source must be closed when its listener is torn down.
func NewSpiffeSource(ctx context.Context, socketPath string) (*SpiffeSource, error) {
	if socketPath == "" {
		return nil, &InvalidConfigError{Reason: "workload identity socket path is required"}
	}

	source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)),
	)
	if err != nil {
		return nil, &InvalidConfigError{Reason: "failed to connect to workload identity source", Err: err}
	}

	return &SpiffeSource{source: source}, nil
}

// CurrentIdentity returns the workload's current certificate chain and
// private key. The X509Source rotates internally, so this always
// reflects the latest SVID.
func (s *SpiffeSource) CurrentIdentity() (tls.Certificate, error) {
	svid, err := s.source.GetX509SVID()
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to fetch SVID: %w", err)
	}
	if len(svid.Certificates) == 0 || svid.PrivateKey == nil {
		return tls.Certificate{}, errors.New("workload identity source returned an incomplete SVID")
	}

	der := make([][]byte, len(svid.Certificates))
	for i, cert := range svid.Certificates {
		der[i] = cert.Raw
	}
	return tls.Certificate{
		Certificate: der,
		PrivateKey:  svid.PrivateKey,
		Leaf:        svid.Certificates[0],
	}, nil
}

// TrustBundle returns the trust bundle for the given trust domain, or
// for the workload's own trust domain when trustDomain is empty.
func (s *SpiffeSource) TrustBundle(trustDomain string) (*x509.CertPool, error) {
	var td spiffeid.TrustDomain
	if trustDomain == "" {
		svid, err := s.source.GetX509SVID()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch SVID: %w", err)
		}
		td = svid.ID.TrustDomain()
	} else {
		var err error
		td, err = spiffeid.TrustDomainFromString(trustDomain)
		if err != nil {
			return nil, fmt.Errorf("invalid trust domain %q: %w", trustDomain, err)
		}
	}

	bundle, err := s.source.GetX509BundleForTrustDomain(td)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trust bundle for %q: %w", td, err)
	}

	pool := x509.NewCertPool()
	for _, cert := range bundle.X509Authorities() {
		pool.AddCert(cert)
	}
	return pool, nil
}

// Updates surfaces the X509Source's rotation signal.
func (s *SpiffeSource) Updates() <-chan struct{} {
	return s.source.Updated()
}

// Close releases the Workload API connection and its watchers.
func (s *SpiffeSource) Close() error {
	return s.source.Close()
}
