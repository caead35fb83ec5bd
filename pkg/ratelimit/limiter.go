package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Action is a rate-limit decision.
type Action int

const (
	// ActionDefault expresses no decision. Overflow listeners return it
	// to defer to other listeners or the configured default.
	ActionDefault Action = iota

	// ActionAllow admits the request.
	ActionAllow

	// ActionReject rejects the request with a throttling status.
	ActionReject
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionReject:
		return "reject"
	default:
		return "default"
	}
}

// TrackingMode selects the key a request's rate is counted under.
type TrackingMode string

const (
	// TrackAddress counts per client address. This is the default.
	TrackAddress TrackingMode = "address"

	// TrackConnection counts per connection (remote-port tracking).
	TrackConnection TrackingMode = "remote-port"

	// TrackGlobal counts all requests under one shared key.
	TrackGlobal TrackingMode = "track-global"
)

// Request carries the request attributes the limiter keys on.
type Request struct {
	// ClientAddr is the client address without port.
	ClientAddr string

	// ConnectionID identifies the transport connection (address:port).
	ConnectionID string

	// Tags are arbitrary caller-supplied attributes, passed through to
	// overflow listeners.
	Tags map[string]string
}

// Config configures a Limiter.
type Config struct {
	// Enabled turns enforcement on. A disabled limiter admits everything.
	Enabled bool

	// PermitsPerSecond is the per-key limit for the keyed strategy.
	// Zero disables the keyed strategy.
	PermitsPerSecond int

	// GlobalPermitsPerSecond is the process-wide limit. Zero disables
	// the global strategy.
	GlobalPermitsPerSecond int

	// Mode selects the keyed strategy. TrackGlobal disables the keyed
	// strategy and relies on GlobalPermitsPerSecond alone.
	Mode TrackingMode

	// DelayMillis controls over-limit handling: a negative value rejects
	// immediately; zero or positive holds the request for up to that
	// many milliseconds and re-evaluates once before rejecting.
	DelayMillis int

	// Window is the sliding window duration. Defaults to one second.
	Window time.Duration

	// IdleTimeout is how long a key may sit idle before the janitor
	// evicts it. Defaults to five minutes.
	IdleTimeout time.Duration

	// SweepSchedule is the cron schedule for the idle-key janitor.
	// Defaults to every minute.
	SweepSchedule string

	// DefaultAction applies when no overflow listener decides.
	// Defaults to ActionReject.
	DefaultAction Action
}

// strategy is one active limiting dimension. Each strategy keeps its own
// keyed counters; a request is admitted only when every strategy admits.
type strategy struct {
	name   string
	limit  int64
	keys   *keyedWindows
	keyFor func(Request) string
}

// Limiter enforces request-rate limits across the configured strategies.
// It is safe for concurrent use from many request-handling goroutines.
type Limiter struct {
	config     Config
	strategies []*strategy
	overflow   *dispatcher
	logger     *slog.Logger
	janitor    *cron.Cron
}

// New creates a limiter from config. Call Start to run the idle-key
// janitor and Stop on teardown.
func New(cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "@every 1m"
	}
	if cfg.DefaultAction == ActionDefault {
		cfg.DefaultAction = ActionReject
	}
	if cfg.Mode == "" {
		cfg.Mode = TrackAddress
	}

	l := &Limiter{
		config:   cfg,
		overflow: newDispatcher(cfg.DefaultAction, logger),
		logger:   logger.With("component", "ratelimit"),
	}

	if cfg.PermitsPerSecond > 0 && cfg.Mode != TrackGlobal {
		keyFor := func(r Request) string { return r.ClientAddr }
		name := "address"
		if cfg.Mode == TrackConnection {
			keyFor = func(r Request) string { return r.ConnectionID }
			name = "connection"
		}
		l.strategies = append(l.strategies, &strategy{
			name:   name,
			limit:  int64(cfg.PermitsPerSecond),
			keys:   newKeyedWindows(cfg.Window),
			keyFor: keyFor,
		})
	}

	globalLimit := cfg.GlobalPermitsPerSecond
	if cfg.Mode == TrackGlobal && globalLimit == 0 {
		globalLimit = cfg.PermitsPerSecond
	}
	if globalLimit > 0 {
		l.strategies = append(l.strategies, &strategy{
			name:   "global",
			limit:  int64(globalLimit),
			keys:   newKeyedWindows(cfg.Window),
			keyFor: func(Request) string { return "global" },
		})
	}

	return l
}

// AddOverLimitListener registers an overflow listener. Listeners are
// invoked in registration order on every over-limit request.
func (l *Limiter) AddOverLimitListener(fn OverLimitListener) {
	l.overflow.register(fn)
}

// Start launches the idle-key janitor.
func (l *Limiter) Start() error {
	if !l.config.Enabled || len(l.strategies) == 0 {
		return nil
	}

	l.janitor = cron.New()
	_, err := l.janitor.AddFunc(l.config.SweepSchedule, l.sweep)
	if err != nil {
		return err
	}
	l.janitor.Start()

	l.logger.Info("rate limiter started",
		"mode", string(l.config.Mode),
		"permits_per_second", l.config.PermitsPerSecond,
		"global_permits_per_second", l.config.GlobalPermitsPerSecond,
		"delay_ms", l.config.DelayMillis,
	)
	return nil
}

// Stop halts the janitor. In-flight Admit calls are unaffected.
func (l *Limiter) Stop() {
	if l.janitor != nil {
		l.janitor.Stop()
	}
}

// sweep evicts keys idle past the configured cutoff.
func (l *Limiter) sweep() {
	cutoff := time.Now().Add(-l.config.IdleTimeout)
	for _, s := range l.strategies {
		if evicted := s.keys.Sweep(cutoff); evicted > 0 {
			l.logger.Debug("evicted idle rate-limit keys",
				"strategy", s.name,
				"evicted", evicted,
				"remaining", s.keys.Len(),
			)
		}
	}
}

// Admit decides whether a request may proceed. Every active strategy is
// consulted; the request is admitted only when all admit it.
//
// When a strategy is over limit and a non-negative delay is configured,
// Admit holds the request for up to the delay and re-evaluates once.
// The hold is bounded and context-aware: ctx cancellation during the
// hold rejects the request immediately so held resources are released.
func (l *Limiter) Admit(ctx context.Context, req Request) Action {
	if !l.config.Enabled || len(l.strategies) == 0 {
		return ActionAllow
	}

	over := l.observe(req)
	if over == nil {
		return ActionAllow
	}

	if l.config.DelayMillis >= 0 {
		select {
		case <-time.After(time.Duration(l.config.DelayMillis) * time.Millisecond):
		case <-ctx.Done():
			return ActionReject
		}
		if over = l.recheck(req); over == nil {
			return ActionAllow
		}
	}

	action := l.overflow.dispatch(OverLimitEvent{
		Strategy: over.name,
		Key:      over.keyFor(req),
		Request:  req,
	})
	if action != ActionReject {
		return action
	}

	l.logger.Debug("request rejected by rate limiter",
		"strategy", over.name,
		"key", over.keyFor(req),
	)
	return ActionReject
}

// observe counts the request against every strategy and returns the
// first strategy over its limit, or nil when all admit. Every strategy
// counts the request even when an earlier one is over limit, so the
// windows reflect true arrival rates.
func (l *Limiter) observe(req Request) *strategy {
	var over *strategy
	for _, s := range l.strategies {
		count := s.keys.get(s.keyFor(req)).Observe()
		if count > s.limit && over == nil {
			over = s
		}
	}
	return over
}

// recheck re-evaluates without counting the request again.
func (l *Limiter) recheck(req Request) *strategy {
	for _, s := range l.strategies {
		if s.keys.get(s.keyFor(req)).Sum() > s.limit {
			return s
		}
	}
	return nil
}
