package ratelimit

import (
	"sync"
	"time"
)

// Window implements a sliding window counter over a rolling time period.
//
// The window is divided into fixed-granularity buckets held in a small
// circular buffer; entries older than the window duration are pruned on
// every access. This avoids the reset spike of a fixed window while
// keeping memory constant per key.
//
// Window is safe for concurrent use.
type Window struct {
	duration   time.Duration // Window duration (e.g., 1 second)
	bucketSize time.Duration // Granularity of each bucket
	buckets    []bucket      // Circular buffer of buckets
	mu         sync.Mutex
}

// bucket is a single time-stamped counter cell.
type bucket struct {
	timestamp time.Time
	count     int64
}

// windowBuckets is the bucket count per window. Finer granularity gives
// smoother roll-off at slightly more memory per key.
const windowBuckets = 10

// NewWindow creates a sliding window counter over the given duration.
func NewWindow(duration time.Duration) *Window {
	bucketSize := duration / windowBuckets
	if bucketSize <= 0 {
		bucketSize = time.Millisecond
	}
	return &Window{
		duration:   duration,
		bucketSize: bucketSize,
		buckets:    make([]bucket, windowBuckets),
	}
}

// Observe increments the counter and returns the total count inside the
// window, including this observation. The increment and the read are a
// single critical section so concurrent callers never under-count.
func (w *Window) Observe() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.pruneLocked(now)
	w.bucketForLocked(now).count++
	return w.sumLocked()
}

// Sum returns the current count inside the window without incrementing.
func (w *Window) Sum() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(time.Now())
	return w.sumLocked()
}

func (w *Window) sumLocked() int64 {
	var sum int64
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() {
			sum += w.buckets[i].count
		}
	}
	return sum
}

// pruneLocked clears buckets older than the window.
func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.duration)
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() && w.buckets[i].timestamp.Before(cutoff) {
			w.buckets[i] = bucket{}
		}
	}
}

// bucketForLocked returns the bucket covering now, reusing an existing
// cell when possible and recycling the oldest otherwise.
func (w *Window) bucketForLocked(now time.Time) *bucket {
	bucketTime := now.Truncate(w.bucketSize)

	for i := range w.buckets {
		if w.buckets[i].timestamp.Equal(bucketTime) {
			return &w.buckets[i]
		}
	}

	target := -1
	for i := range w.buckets {
		if w.buckets[i].timestamp.IsZero() {
			target = i
			break
		}
	}
	if target == -1 {
		oldest := 0
		for i := 1; i < len(w.buckets); i++ {
			if w.buckets[i].timestamp.Before(w.buckets[oldest].timestamp) {
				oldest = i
			}
		}
		target = oldest
	}

	w.buckets[target] = bucket{timestamp: bucketTime}
	return &w.buckets[target]
}
