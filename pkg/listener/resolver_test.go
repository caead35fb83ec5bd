package listener

import (
	"errors"
	"testing"
)

// ============================================================================
// Resolve Tests
// ============================================================================

func TestResolve_TwoListeners(t *testing.T) {
	specs, err := Resolve(
		[]string{"http://localhost:123", "https://localhost:124"},
		8080, SupportedProtocols(), ProtocolHTTP,
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if len(specs) != 2 {
		t.Fatalf("Expected 2 listeners, got %d", len(specs))
	}
	if specs[0].Scheme != ProtocolHTTP || specs[0].Host != "localhost" || specs[0].Port != 123 {
		t.Errorf("Unexpected first listener: %+v", specs[0])
	}
	if specs[1].Scheme != ProtocolHTTPS || specs[1].Host != "localhost" || specs[1].Port != 124 {
		t.Errorf("Unexpected second listener: %+v", specs[1])
	}
}

func TestResolve_PreservesOrder(t *testing.T) {
	specs, err := Resolve(
		[]string{"https://a:1", "http://b:2", "https://c:3"},
		8080, SupportedProtocols(), ProtocolHTTP,
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	hosts := []string{"a", "b", "c"}
	for i, want := range hosts {
		if specs[i].Host != want {
			t.Errorf("Listener %d: expected host %q, got %q", i, want, specs[i].Host)
		}
	}
}

func TestResolve_DropsUnsupportedScheme(t *testing.T) {
	specs, err := Resolve(
		[]string{"ftp://localhost:21", "http://localhost:8080"},
		8080, SupportedProtocols(), ProtocolHTTP,
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(specs) != 1 || specs[0].Scheme != ProtocolHTTP {
		t.Errorf("Expected single http listener, got %+v", specs)
	}
}

func TestResolve_AllDroppedIsError(t *testing.T) {
	_, err := Resolve(
		[]string{"ftp://localhost:21"},
		8080, SupportedProtocols(), ProtocolHTTP,
	)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigError, got %v", err)
	}
}

func TestResolve_MissingPortIsError(t *testing.T) {
	_, err := Resolve(
		[]string{"http://localhost", "https://localhost:124"},
		8080, SupportedProtocols(), ProtocolHTTP,
	)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigError for missing port, got %v", err)
	}
}

func TestResolve_LegacyForm(t *testing.T) {
	tests := []struct {
		name string
		uris []string
	}{
		{"empty directive", nil},
		{"blank entry", []string{""}},
		{"schemeless entry", []string{"localhost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, err := Resolve(tt.uris, 9092, SupportedProtocols(), ProtocolHTTP)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if len(specs) != 1 {
				t.Fatalf("Expected 1 legacy listener, got %d", len(specs))
			}
			if specs[0].Port != 9092 || specs[0].Scheme != ProtocolHTTP || specs[0].Host != "" {
				t.Errorf("Unexpected legacy listener: %+v", specs[0])
			}
		})
	}
}

func TestResolveWithProtocolMap_NamedListener(t *testing.T) {
	protocols := map[string]Protocol{"internal": ProtocolHTTPS}

	specs, err := ResolveWithProtocolMap(
		[]string{"internal://0.0.0.0:8443", "http://0.0.0.0:8080"},
		8080, SupportedProtocols(), ProtocolHTTP, protocols,
	)
	if err != nil {
		t.Fatalf("ResolveWithProtocolMap returned error: %v", err)
	}

	if specs[0].Name != "internal" || specs[0].Scheme != ProtocolHTTPS {
		t.Errorf("Expected named https listener, got %+v", specs[0])
	}
	if specs[1].Name != "" || specs[1].Scheme != ProtocolHTTP {
		t.Errorf("Expected unnamed http listener, got %+v", specs[1])
	}
}

func TestResolveWithProtocolMap_DuplicateName(t *testing.T) {
	protocols := map[string]Protocol{"internal": ProtocolHTTPS}

	_, err := ResolveWithProtocolMap(
		[]string{"internal://0.0.0.0:8443", "internal://0.0.0.0:8444"},
		8080, SupportedProtocols(), ProtocolHTTP, protocols,
	)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigError for duplicate name, got %v", err)
	}
}

// ============================================================================
// ResolveProtocolMap Tests
// ============================================================================

func TestResolveProtocolMap_Empty(t *testing.T) {
	for _, directive := range []string{"", "   "} {
		m, err := ResolveProtocolMap(directive, SupportedProtocols())
		if err != nil {
			t.Fatalf("ResolveProtocolMap(%q) returned error: %v", directive, err)
		}
		if len(m) != 0 {
			t.Errorf("Expected empty map for %q, got %v", directive, m)
		}
	}
}

func TestResolveProtocolMap_Valid(t *testing.T) {
	m, err := ResolveProtocolMap("INTERNAL:https,external:http", SupportedProtocols())
	if err != nil {
		t.Fatalf("ResolveProtocolMap returned error: %v", err)
	}

	want := map[string]Protocol{"internal": ProtocolHTTPS, "external": ProtocolHTTP}
	if len(m) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(m))
	}
	for name, proto := range want {
		if m[name] != proto {
			t.Errorf("Expected %s -> %s, got %s", name, proto, m[name])
		}
	}
}

func TestResolveProtocolMap_RoundTripsAnyOrder(t *testing.T) {
	a, err := ResolveProtocolMap("a:http,b:https,c:http", SupportedProtocols())
	if err != nil {
		t.Fatalf("ResolveProtocolMap returned error: %v", err)
	}
	b, err := ResolveProtocolMap("c:http,a:http,b:https", SupportedProtocols())
	if err != nil {
		t.Fatalf("ResolveProtocolMap returned error: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("Permutations disagree on size: %d vs %d", len(a), len(b))
	}
	for name, proto := range a {
		if b[name] != proto {
			t.Errorf("Permutations disagree on %s: %s vs %s", name, proto, b[name])
		}
	}
}

func TestResolveProtocolMap_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		directive string
	}{
		{"http masked as https", "HTTP:https"},
		{"missing delimiter", "internal"},
		{"double delimiter", "internal:https:extra"},
		{"empty name", ":https"},
		{"empty protocol", "internal:"},
		{"duplicate name", "internal:https,INTERNAL:https"},
		{"unsupported protocol", "internal:ftp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveProtocolMap(tt.directive, SupportedProtocols())
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("ResolveProtocolMap(%q): expected *ConfigError, got %v", tt.directive, err)
			}
		})
	}
}

func TestResolveProtocolMap_ProtocolTokenMapsToItself(t *testing.T) {
	// A listener named after a protocol token is allowed when the mapping
	// is the identity.
	m, err := ResolveProtocolMap("http:http", SupportedProtocols())
	if err != nil {
		t.Fatalf("ResolveProtocolMap returned error: %v", err)
	}
	if m["http"] != ProtocolHTTP {
		t.Errorf("Expected identity mapping, got %v", m)
	}
}
