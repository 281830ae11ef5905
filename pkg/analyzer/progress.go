package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives (done, total, path) after each file finishes.
type ProgressFunc func(done, total int, path string)

// Tracker counts finished files across worker goroutines.
type Tracker struct {
	total    atomic.Int64
	done     atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker; callback may be nil.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// SetTotal replaces the expected total.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int64(n))
}

// Tick records one finished file and notifies the callback.
func (t *Tracker) Tick(path string) {
	done := int(t.done.Add(1))
	if t.callback != nil {
		t.callback(done, int(t.total.Load()), path)
	}
}

// Current returns the number of finished files.
func (t *Tracker) Current() int {
	return int(t.done.Load())
}

// Total returns the expected total.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

// Percent returns completion in the range 0..100.
func (t *Tracker) Percent() float64 {
	total := t.total.Load()
	if total == 0 {
		return 0
	}
	return float64(t.done.Load()) / float64(total) * 100
}

type trackerKey struct{}

// WithTracker returns a context carrying t. fileproc picks it up so callers
// can observe progress without threading callbacks through every layer.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker in ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
