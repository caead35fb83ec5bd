package tlsmat

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// buildFromBundle loads material from a single PEM file laid out as
// trust certificate(s), then a private key, then the identity
// certificate chain. Certificates before the key become trust material;
// certificates after it become the identity chain.
func buildFromBundle(cfg Config) (*Material, error) {
	data, err := os.ReadFile(cfg.BundleFile)
	if err != nil {
		return nil, &InvalidConfigError{Reason: fmt.Sprintf("failed to read bundle %q", cfg.BundleFile), Err: err}
	}

	var (
		trust    = x509.NewCertPool()
		trustLen int
		key      crypto.PrivateKey
		chain    [][]byte
	)

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, &InvalidConfigError{Reason: "bundle contains an unparsable certificate", Err: err}
			}
			if key == nil {
				trust.AddCert(cert)
				trustLen++
			} else {
				chain = append(chain, block.Bytes)
			}
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			if key != nil {
				return nil, &InvalidConfigError{Reason: "bundle contains more than one private key"}
			}
			key, err = parsePrivateKey(block)
			if err != nil {
				return nil, &InvalidConfigError{Reason: "bundle contains an unparsable private key", Err: err}
			}
		default:
			return nil, &InvalidConfigError{Reason: fmt.Sprintf("bundle contains unsupported PEM block %q", block.Type)}
		}
	}

	// Any leftover non-PEM bytes mean the file was truncated or
	// corrupted; never build a partial identity from it.
	if len(trimPEMRemainder(rest)) > 0 {
		return nil, &InvalidConfigError{Reason: "bundle contains malformed PEM content"}
	}
	if key == nil {
		return nil, &InvalidConfigError{Reason: "bundle contains no private key"}
	}
	if len(chain) == 0 {
		return nil, &InvalidConfigError{Reason: "bundle contains no identity certificate after the private key"}
	}
	if trustLen == 0 {
		return nil, &InvalidConfigError{Reason: "bundle contains no trust certificates before the private key"}
	}

	identity := tls.Certificate{Certificate: chain, PrivateKey: key}
	leaf, err := x509.ParseCertificate(chain[0])
	if err == nil {
		identity.Leaf = leaf
	}

	if cfg.ClientAuth && trustLen == 0 {
		return nil, &InvalidConfigError{Reason: "client authentication requires trust material"}
	}

	return &Material{
		Identity:           identity,
		Trust:              trust,
		ClientAuthRequired: cfg.ClientAuth,
		SNICheckEnabled:    !cfg.SkipSNICheck,
	}, nil
}

func parsePrivateKey(block *pem.Block) (crypto.PrivateKey, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	}
}

// trimPEMRemainder strips whitespace so trailing newlines after the last
// block do not read as corruption.
func trimPEMRemainder(rest []byte) []byte {
	start := 0
	for start < len(rest) {
		switch rest[start] {
		case ' ', '\t', '\r', '\n':
			start++
		default:
			return rest[start:]
		}
	}
	return nil
}
