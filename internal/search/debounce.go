package search

import (
	"context"
	"sync"
	"time"
)

// SearchFunc runs one search. It should return promptly once ctx is done.
type SearchFunc[T any] func(ctx context.Context, query string) (T, error)

// Result is a completed search delivered by a Debouncer
type Result[T any] struct {
	Query string
	Value T
	Err   error
}

// Debouncer delays searches while the user is typing. Each Submit restarts
// the delay and cancels any search still running, so only the latest query
// produces a Result.
type Debouncer[T any] struct {
	delay time.Duration
	fn    SearchFunc[T]

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	closed  bool
	results chan Result[T]
}

// NewDebouncer creates a Debouncer. A zero delay runs searches immediately
// (still asynchronously).
func NewDebouncer[T any](delay time.Duration, fn SearchFunc[T]) *Debouncer[T] {
	return &Debouncer[T]{
		delay:   delay,
		fn:      fn,
		results: make(chan Result[T], 1),
	}
}

// Submit schedules a search for query, superseding any pending or running one
func (d *Debouncer[T]) Submit(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.stopLocked()
	d.seq++
	seq := d.seq

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		value, err := d.fn(ctx, query)
		d.deliver(ctx, seq, Result[T]{Query: query, Value: value, Err: err})
	})
}

// Results delivers the latest completed search. A result not yet received
// is replaced by a newer one.
func (d *Debouncer[T]) Results() <-chan Result[T] {
	return d.results
}

// Cancel drops any pending or running search without closing the Debouncer
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.seq++
}

// Close cancels outstanding work and closes the Results channel
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopLocked()
	d.closed = true
	close(d.results)
}

func (d *Debouncer[T]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer[T]) deliver(ctx context.Context, seq uint64, r Result[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || seq != d.seq || ctx.Err() != nil {
		return
	}

	// Replace an unread older result
	select {
	case <-d.results:
	default:
	}
	d.results <- r
}
