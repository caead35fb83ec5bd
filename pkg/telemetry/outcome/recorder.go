package outcome

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"arcadia-hq/resthost/pkg/ratelimit"
)

// Config configures a Recorder.
type Config struct {
	// WatchStatus is the only committed status observed. Defaults to
	// 429; responses with any other status are no-ops.
	WatchStatus int

	// Prefix is the deployment prefix metric names start with.
	// Defaults to "resthost".
	Prefix string

	// StaticTags are merged into every observation's tag set.
	StaticTags map[string]string

	// Window is the short-window count duration. Defaults to 30s.
	Window time.Duration
}

// Recorder observes committed responses and maintains one sensor per
// distinct tag set for the watched status code.
//
// Recorder is safe for concurrent use. The sensor store has create-if-
// absent semantics: concurrent first observers of the same tag set race
// to create the sensor, exactly one wins, and the others record against
// the winner's instance.
type Recorder struct {
	config   Config
	registry prometheus.Registerer
	logger   *slog.Logger

	mu      sync.Mutex
	sensors map[string]*sensor
}

// sensor is the per-tag-set measurement triple. A sensor whose metric
// registration failed is kept as a degraded no-op so the failure is
// paid once, not per request.
type sensor struct {
	rate       prometheus.Gauge
	windowed   prometheus.Gauge
	cumulative prometheus.Counter
	window     *ratelimit.Window
	degraded   bool
}

// NewRecorder creates a recorder registering sensors with reg. A nil
// reg is allowed and turns all recording into no-ops.
func NewRecorder(cfg Config, reg prometheus.Registerer, logger *slog.Logger) *Recorder {
	if cfg.WatchStatus == 0 {
		cfg.WatchStatus = 429
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "resthost"
	}
	if cfg.Window <= 0 {
		cfg.Window = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		config:   cfg,
		registry: reg,
		logger:   logger.With("component", "outcome"),
		sensors:  make(map[string]*sensor),
	}
}

// Observe records one committed response. Responses whose status does
// not equal the watched status are ignored. Each qualifying response
// increments its sensor exactly once.
func (r *Recorder) Observe(status int, tags map[string]string) {
	if status != r.config.WatchStatus {
		return
	}

	merged := make(map[string]string, len(tags)+len(r.config.StaticTags)+1)
	for k, v := range r.config.StaticTags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	merged[StatusTag] = fmt.Sprintf("%d", status)

	s := r.sensorFor(sensorKey(merged), status, merged)
	s.record(r.config.Window)
}

// sensorFor returns the sensor for key, creating it on first
// observation. Creation happens inside the critical section so exactly
// one instance ever exists per key.
func (r *Recorder) sensorFor(key string, status int, tags map[string]string) *sensor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sensors[key]; ok {
		return s
	}
	s := r.newSensor(status, tags)
	r.sensors[key] = s
	return s
}

// newSensor registers the measurement triple. Any failure yields a
// degraded sensor rather than an error: metric bookkeeping must never
// break request handling.
func (r *Recorder) newSensor(status int, tags map[string]string) *sensor {
	if r.registry == nil {
		return &sensor{degraded: true}
	}

	values := sortedValues(tags)
	rate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        MetricName(r.config.Prefix, "request_rate", status, values),
		Help:        "Instantaneous rate of watched responses per second.",
		ConstLabels: tags,
	})
	windowed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        MetricName(r.config.Prefix, "request_count_windowed", status, values),
		Help:        "Watched responses inside the short window.",
		ConstLabels: tags,
	})
	cumulative := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        MetricName(r.config.Prefix, "request_count_total", status, values),
		Help:        "Cumulative count of watched responses.",
		ConstLabels: tags,
	})

	for _, c := range []prometheus.Collector{rate, windowed, cumulative} {
		if err := r.registry.Register(c); err != nil {
			r.logger.Warn("sensor registration failed, recording disabled for tag set",
				"status", status,
				"error", err,
			)
			return &sensor{degraded: true}
		}
	}

	return &sensor{
		rate:       rate,
		windowed:   windowed,
		cumulative: cumulative,
		window:     ratelimit.NewWindow(r.config.Window),
	}
}

// record applies one observation to all three measurements.
func (s *sensor) record(window time.Duration) {
	if s.degraded {
		return
	}
	s.cumulative.Inc()
	count := s.window.Observe()
	s.windowed.Set(float64(count))
	s.rate.Set(float64(count) / window.Seconds())
}
