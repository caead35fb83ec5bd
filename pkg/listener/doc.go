// Package listener resolves listener directives into validated endpoint
// specifications.
//
// # Overview
//
// A listener directive is a comma-separated list of scheme://host:port
// entries. The resolver turns the directive into an ordered set of
// listener specs, applying protocol support rules:
//
//   - Entries with an unsupported scheme are dropped, not rejected.
//   - Dropping every entry is an error: a server with zero listeners
//     cannot serve.
//   - A single schemeless, portless entry is the legacy form and binds
//     the default port on all interfaces.
//
// Listeners may also be named. A named entry uses its name in scheme
// position (e.g. internal://0.0.0.0:8443) and the protocol map directive
// (name:protocol pairs) supplies the actual protocol.
//
// # Validation
//
// All directive errors are reported as *ConfigError and are fatal at
// startup. The only silently tolerated condition is the documented
// unsupported-scheme drop.
package listener
