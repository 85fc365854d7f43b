package downloader

import (
	"sync"
	"time"
)

// ProgressTracker accumulates transferred bytes and decides when a progress
// sample is due. The first observation is always due, later ones only once the
// interval has elapsed since the previous emission.
type ProgressTracker struct {
	mu sync.Mutex

	updateInterval time.Duration
	totalBytes     int64
	now            func() time.Time

	startTime   time.Time
	lastEmitted time.Time
	emitted     bool
	transferred int64
}

// NewProgressTracker creates a tracker for a transfer of totalBytes (0 when unknown)
func NewProgressTracker(totalBytes int64, interval time.Duration) *ProgressTracker {
	return NewProgressTrackerWithClock(totalBytes, interval, time.Now)
}

// NewProgressTrackerWithClock creates a tracker that reads time from now
func NewProgressTrackerWithClock(totalBytes int64, interval time.Duration, now func() time.Time) *ProgressTracker {
	if now == nil {
		now = time.Now
	}
	return &ProgressTracker{
		updateInterval: interval,
		totalBytes:     totalBytes,
		now:            now,
		startTime:      now(),
	}
}

// Add records n more bytes and returns the current sample and whether it should be emitted
func (pt *ProgressTracker) Add(n int) (ProgressSample, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.observe(pt.transferred + int64(n))
}

// Observe records a cumulative byte count, as reported by upload callbacks
func (pt *ProgressTracker) Observe(transferred int64) (ProgressSample, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.observe(transferred)
}

func (pt *ProgressTracker) observe(transferred int64) (ProgressSample, bool) {
	if transferred > pt.transferred {
		pt.transferred = transferred
	}

	now := pt.now()
	sample := pt.sampleAt(now)

	if pt.emitted && now.Sub(pt.lastEmitted) < pt.updateInterval {
		return sample, false
	}
	pt.emitted = true
	pt.lastEmitted = now
	return sample, true
}

// Sample returns the current progress without affecting emission cadence
func (pt *ProgressTracker) Sample() ProgressSample {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.sampleAt(pt.now())
}

// Transferred returns the bytes recorded so far
func (pt *ProgressTracker) Transferred() int64 {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.transferred
}

func (pt *ProgressTracker) sampleAt(now time.Time) ProgressSample {
	return ProgressSample{
		BytesTransferred: pt.transferred,
		TotalBytes:       pt.totalBytes,
		Elapsed:          now.Sub(pt.startTime),
	}
}
