package outcome

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRecorder(t *testing.T) (*Recorder, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRecorder(Config{}, reg, nil), reg
}

// ============================================================================
// Observation Tests
// ============================================================================

func TestObserve_OnlyWatchedStatus(t *testing.T) {
	r, _ := newTestRecorder(t)

	r.Observe(200, map[string]string{"listener": "a"})
	r.Observe(404, map[string]string{"listener": "a"})
	r.Observe(500, map[string]string{"listener": "a"})

	if len(r.sensors) != 0 {
		t.Errorf("Non-watched statuses must not create sensors, got %d", len(r.sensors))
	}

	r.Observe(429, map[string]string{"listener": "a"})
	if len(r.sensors) != 1 {
		t.Errorf("Expected 1 sensor after a watched observation, got %d", len(r.sensors))
	}
}

func TestObserve_IndependentSensorsPerTagSet(t *testing.T) {
	r, _ := newTestRecorder(t)

	for i := 0; i < 5; i++ {
		r.Observe(429, map[string]string{"listener": "a"})
	}
	r.Observe(429, map[string]string{"listener": "b"})

	sa := r.sensors[sensorKey(map[string]string{"listener": "a", StatusTag: "429"})]
	sb := r.sensors[sensorKey(map[string]string{"listener": "b", StatusTag: "429"})]
	if sa == nil || sb == nil {
		t.Fatal("Expected a sensor per tag set")
	}
	if sa == sb {
		t.Fatal("Tag sets must get independent sensor instances")
	}

	if got := testutil.ToFloat64(sa.cumulative); got != 5 {
		t.Errorf("Expected cumulative 5 for listener a, got %v", got)
	}
	if got := testutil.ToFloat64(sb.cumulative); got != 1 {
		t.Errorf("Expected cumulative 1 for listener b, got %v", got)
	}
}

func TestObserve_TagOrderDoesNotSplitSensors(t *testing.T) {
	r, _ := newTestRecorder(t)

	r.Observe(429, map[string]string{"a": "1", "b": "2"})
	r.Observe(429, map[string]string{"b": "2", "a": "1"})

	if len(r.sensors) != 1 {
		t.Errorf("Same tag set must map to one sensor, got %d", len(r.sensors))
	}
}

func TestObserve_StaticTagsMerged(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(Config{StaticTags: map[string]string{"deployment": "prod"}}, reg, nil)

	r.Observe(429, map[string]string{"listener": "a"})

	key := sensorKey(map[string]string{"deployment": "prod", "listener": "a", StatusTag: "429"})
	if r.sensors[key] == nil {
		t.Error("Static tags must participate in sensor identity")
	}
}

func TestObserve_ConcurrentFirstObserversCreateOneSensor(t *testing.T) {
	r, _ := newTestRecorder(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Observe(429, map[string]string{"listener": "shared"})
		}()
	}
	wg.Wait()

	if len(r.sensors) != 1 {
		t.Fatalf("Expected exactly one sensor, got %d", len(r.sensors))
	}
	s := r.sensors[sensorKey(map[string]string{"listener": "shared", StatusTag: "429"})]
	if got := testutil.ToFloat64(s.cumulative); got != 100 {
		t.Errorf("Expected every racing observer to record once, got %v", got)
	}
}

func TestObserve_NilRegistryDegradesQuietly(t *testing.T) {
	r := NewRecorder(Config{}, nil, nil)

	// Must not panic, ever.
	for i := 0; i < 10; i++ {
		r.Observe(429, map[string]string{"listener": "a"})
	}
}

func TestObserve_ConfigurableWatchStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(Config{WatchStatus: 503}, reg, nil)

	r.Observe(429, nil)
	if len(r.sensors) != 0 {
		t.Error("429 must be ignored when watching 503")
	}
	r.Observe(503, nil)
	if len(r.sensors) != 1 {
		t.Error("503 must be observed when configured")
	}
}

// ============================================================================
// Naming Tests
// ============================================================================

func TestMetricName(t *testing.T) {
	name := MetricName("resthost", "request_count_total", 429, []string{"external"})
	want := "resthost_rest_request_count_total_429_external"
	if name != want {
		t.Errorf("Expected %q, got %q", want, name)
	}
}

func TestMetricName_SanitizesTagValues(t *testing.T) {
	name := MetricName("resthost", "request_rate", 429, []string{"us-east.1"})
	want := "resthost_rest_request_rate_429_us_east_1"
	if name != want {
		t.Errorf("Expected %q, got %q", want, name)
	}
}

func TestSensorKey_Stable(t *testing.T) {
	a := sensorKey(map[string]string{"x": "1", "y": "2", "z": "3"})
	for i := 0; i < 20; i++ {
		if b := sensorKey(map[string]string{"z": "3", "x": "1", "y": "2"}); a != b {
			t.Fatalf("sensorKey unstable: %q vs %q", a, b)
		}
	}
}

func TestSortedValues_ExcludesStatusTag(t *testing.T) {
	values := sortedValues(map[string]string{"b": "beta", "a": "alpha", StatusTag: "429"})
	if fmt.Sprint(values) != "[alpha beta]" {
		t.Errorf("Expected [alpha beta], got %v", values)
	}
}
