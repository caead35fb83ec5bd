// Package tlsmat builds and rotates the TLS material attached to a
// listener: key material, trust material, and the mTLS policy.
//
// # Material sources
//
// Material comes from one of three sources:
//
//   - Split static files: a certificate chain file and a private key
//     file, plus an optional trust file.
//   - A single PEM bundle: trust certificate(s) followed by a private
//     key and the identity certificate, concatenated in one file.
//   - A dynamic identity source (e.g. a SPIFFE Workload API socket)
//     that rotates the certificate/key pair and trust bundle at
//     runtime.
//
// All static parse failures are *InvalidConfigError and fatal at
// startup; a malformed bundle never silently produces an empty
// identity.
//
// # Rotation
//
// A listener holds a Rotating handle, not a Material. Material
// snapshots are immutable; rotation publishes a new snapshot through an
// atomic pointer swap, so accepting goroutines always see either the
// old or the new material, never a partial update. Connections
// established under the previous material are not dropped: the snapshot
// is resolved per handshake via GetConfigForClient.
package tlsmat
