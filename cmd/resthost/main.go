// Resthost is a multi-listener REST serving host.
//
// It binds one HTTP engine per configured listener, terminates TLS with
// statically loaded or dynamically rotated material, enforces
// denial-of-service rate limits, and reports throttling outcomes as
// Prometheus metrics.
//
// Usage:
//
//	# Start with default configuration
//	resthost run
//
//	# Start with a custom configuration file
//	resthost run --config /etc/resthost/config.yaml
//
//	# Validate a configuration file without serving
//	resthost validate --config /etc/resthost/config.yaml
//
//	# Show version information
//	resthost version
package main

func main() {
	Execute()
}
