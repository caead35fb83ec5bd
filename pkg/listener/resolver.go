package listener

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Protocol identifies the wire protocol a listener speaks.
type Protocol string

const (
	// ProtocolHTTP is plaintext HTTP.
	ProtocolHTTP Protocol = "http"

	// ProtocolHTTPS is HTTP over TLS.
	ProtocolHTTPS Protocol = "https"
)

// Spec describes one resolved listener: a named network endpoint the
// application binds to. Specs are created once at assembly time and are
// immutable thereafter.
type Spec struct {
	// Name is the listener name, normalized to lowercase. Empty for an
	// unnamed listener.
	Name string

	// Scheme is the resolved protocol ("http" or "https").
	Scheme Protocol

	// Host is the bind address. Empty means all interfaces.
	Host string

	// Port is the bind port.
	Port int
}

// Addr returns the host:port form suitable for net.Listen.
func (s Spec) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TLS reports whether this listener terminates TLS.
func (s Spec) TLS() bool {
	return s.Scheme == ProtocolHTTPS
}

// ConfigError reports a malformed listener or protocol-map directive.
// Configuration errors are fatal at startup and never silently ignored,
// except for the documented unsupported-scheme drop in Resolve.
type ConfigError struct {
	// Directive is the offending directive or directive fragment.
	Directive string

	// Reason is a human-readable description of the problem.
	Reason string
}

// Error returns the error message for this configuration error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid listener configuration %q: %s", e.Directive, e.Reason)
}

// Resolve parses listener URIs into an ordered sequence of listener specs.
//
// Each URI must carry a scheme and an explicit port. URIs whose scheme is
// not in supported are dropped from the result; if dropping leaves zero
// listeners the whole directive is rejected. Output order matches the
// input order of the surviving entries.
//
// As a special case, an empty uris slice or a single schemeless, portless
// entry selects the legacy form: one listener on defaultPort, bound to
// all interfaces, speaking legacyScheme.
func Resolve(uris []string, defaultPort int, supported map[Protocol]bool, legacyScheme Protocol) ([]Spec, error) {
	return resolve(uris, defaultPort, supported, legacyScheme, nil)
}

// ResolveWithProtocolMap is Resolve for deployments with named listeners.
// A URI whose scheme position holds a key of protocols is treated as a
// named listener speaking the mapped protocol.
//
// Named-listener rules: names are unique case-insensitively, at most one
// listener may be unnamed, and a name that collides with a supported
// protocol token is only valid because the protocol map forces it to map
// to itself (see ResolveProtocolMap).
func ResolveWithProtocolMap(uris []string, defaultPort int, supported map[Protocol]bool, legacyScheme Protocol, protocols map[string]Protocol) ([]Spec, error) {
	return resolve(uris, defaultPort, supported, legacyScheme, protocols)
}

func resolve(uris []string, defaultPort int, supported map[Protocol]bool, legacyScheme Protocol, protocols map[string]Protocol) ([]Spec, error) {
	if isLegacyForm(uris) {
		return []Spec{{Scheme: legacyScheme, Port: defaultPort}}, nil
	}

	specs := make([]Spec, 0, len(uris))
	seenNames := make(map[string]bool, len(uris))
	unnamed := 0

	for _, raw := range uris {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, &ConfigError{Directive: strings.Join(uris, ","), Reason: "empty listener entry"}
		}

		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" {
			return nil, &ConfigError{Directive: raw, Reason: "listener must be of the form scheme://host:port"}
		}

		name := ""
		scheme := Protocol(strings.ToLower(u.Scheme))
		if protocols != nil {
			if mapped, ok := protocols[strings.ToLower(u.Scheme)]; ok {
				name = strings.ToLower(u.Scheme)
				scheme = mapped
			}
		}

		if !supported[scheme] {
			// Unsupported protocols are dropped, not rejected. The zero
			// survivor check below catches a fully dropped directive.
			continue
		}

		if u.Port() == "" {
			return nil, &ConfigError{Directive: raw, Reason: "listener must specify a port"}
		}
		port, err := strconv.Atoi(u.Port())
		if err != nil || port <= 0 || port > 65535 {
			return nil, &ConfigError{Directive: raw, Reason: fmt.Sprintf("invalid port %q", u.Port())}
		}

		if name == "" {
			unnamed++
		} else {
			if seenNames[name] {
				return nil, &ConfigError{Directive: raw, Reason: fmt.Sprintf("duplicate listener name %q", name)}
			}
			seenNames[name] = true
		}

		specs = append(specs, Spec{
			Name:   name,
			Scheme: scheme,
			Host:   u.Hostname(),
			Port:   port,
		})
	}

	if len(specs) == 0 {
		return nil, &ConfigError{
			Directive: strings.Join(uris, ","),
			Reason:    "no supported listeners",
		}
	}
	if len(seenNames) > 0 && unnamed > 1 {
		return nil, &ConfigError{
			Directive: strings.Join(uris, ","),
			Reason:    "at most one listener may omit a name",
		}
	}

	return specs, nil
}

// isLegacyForm reports whether the directive is the single legacy
// schemeless, portless entry (or entirely absent).
func isLegacyForm(uris []string) bool {
	if len(uris) == 0 {
		return true
	}
	if len(uris) != 1 {
		return false
	}
	entry := strings.TrimSpace(uris[0])
	return entry == "" || !strings.Contains(entry, "://")
}

// ResolveProtocolMap parses a protocol map directive of comma-separated
// name:protocol pairs into a mapping from lowercase listener name to
// protocol.
//
// An empty or blank directive yields an empty mapping. Each entry must be
// exactly name:protocol with a single delimiter and non-empty halves.
// Duplicate names after case normalization are rejected, as is any entry
// whose name is itself a supported protocol token mapped to a different
// protocol (e.g. http:https), which would mask a literal scheme.
func ResolveProtocolMap(directive string, supported map[Protocol]bool) (map[string]Protocol, error) {
	result := make(map[string]Protocol)
	if strings.TrimSpace(directive) == "" {
		return result, nil
	}

	for _, entry := range strings.Split(directive, ",") {
		entry = strings.TrimSpace(entry)
		if strings.Count(entry, ":") != 1 {
			return nil, &ConfigError{Directive: entry, Reason: "protocol map entry must be name:protocol"}
		}

		idx := strings.Index(entry, ":")
		name := strings.ToLower(strings.TrimSpace(entry[:idx]))
		proto := Protocol(strings.ToLower(strings.TrimSpace(entry[idx+1:])))
		if name == "" || proto == "" {
			return nil, &ConfigError{Directive: entry, Reason: "protocol map entry must be name:protocol"}
		}

		if !supported[proto] {
			return nil, &ConfigError{Directive: entry, Reason: fmt.Sprintf("unsupported protocol %q", proto)}
		}
		if supported[Protocol(name)] && Protocol(name) != proto {
			return nil, &ConfigError{
				Directive: entry,
				Reason:    fmt.Sprintf("listener name %q is a protocol token and cannot map to %q", name, proto),
			}
		}
		if _, dup := result[name]; dup {
			return nil, &ConfigError{Directive: entry, Reason: fmt.Sprintf("duplicate listener name %q", name)}
		}

		result[name] = proto
	}

	return result, nil
}

// SupportedProtocols returns the default supported protocol set.
func SupportedProtocols() map[Protocol]bool {
	return map[Protocol]bool{
		ProtocolHTTP:  true,
		ProtocolHTTPS: true,
	}
}
