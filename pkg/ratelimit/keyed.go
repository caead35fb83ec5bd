package ratelimit

import (
	"sync"
	"time"
)

// keyedWindows is a concurrent key -> sliding window store with lazy
// creation and idle eviction. Keys are created on first request and
// removed by Sweep once they have been idle past the cutoff, so the key
// space stays bounded by the set of recently active clients.
type keyedWindows struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	window   *Window
	lastSeen time.Time
}

func newKeyedWindows(window time.Duration) *keyedWindows {
	return &keyedWindows{
		window:  window,
		entries: make(map[string]*keyedEntry),
	}
}

// get returns the window for key, creating it on first use.
func (k *keyedWindows) get(key string) *Window {
	now := time.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{window: NewWindow(k.window)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.window
}

// Sweep removes entries idle since before the cutoff and returns the
// number of evicted keys.
func (k *keyedWindows) Sweep(cutoff time.Time) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	evicted := 0
	for key, e := range k.entries {
		if e.lastSeen.Before(cutoff) {
			delete(k.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live keys.
func (k *keyedWindows) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
