package ratelimit

import (
	"log/slog"
	"sync"
)

// OverLimitEvent describes one over-limit occurrence delivered to
// overflow listeners.
type OverLimitEvent struct {
	// Strategy names the strategy that tripped ("address", "connection",
	// "global").
	Strategy string

	// Key is the rate-limit key that tripped.
	Key string

	// Request is the offending request.
	Request Request
}

// OverLimitListener observes an over-limit event and may decide the
// outcome. Returning ActionDefault expresses no decision.
type OverLimitListener func(OverLimitEvent) Action

// dispatcher fans an over-limit event out to registered listeners with
// per-call fault containment.
//
// Listeners run sequentially in registration order. A panic in one
// listener is recovered and logged and never prevents later listeners
// from running; a misbehaving observer must not suppress the decision of
// a well-behaved one. The dispatch result is the first decisive
// (non-default) action any listener returned, or the configured default
// when none decided.
type dispatcher struct {
	defaultAction Action
	logger        *slog.Logger

	mu        sync.RWMutex
	listeners []OverLimitListener
}

func newDispatcher(defaultAction Action, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		defaultAction: defaultAction,
		logger:        logger,
	}
}

// register appends a listener. Registration order is dispatch order.
func (d *dispatcher) register(l OverLimitListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// dispatch invokes every listener exactly once and resolves the action.
func (d *dispatcher) dispatch(ev OverLimitEvent) Action {
	d.mu.RLock()
	listeners := d.listeners
	d.mu.RUnlock()

	result := ActionDefault
	for i, l := range listeners {
		action := d.invoke(i, l, ev)
		if result == ActionDefault && action != ActionDefault {
			result = action
		}
	}

	if result == ActionDefault {
		return d.defaultAction
	}
	return result
}

// invoke runs one listener, converting a panic into a logged no-decision.
func (d *dispatcher) invoke(idx int, l OverLimitListener, ev OverLimitEvent) (action Action) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("over-limit listener panicked",
				"listener", idx,
				"strategy", ev.Strategy,
				"key", ev.Key,
				"panic", r,
			)
			action = ActionDefault
		}
	}()
	return l(ev)
}
