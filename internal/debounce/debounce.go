// Package debounce coalesces rapidly changing search terms into a single
// search, cancels searches that a newer term has made obsolete, and never
// delivers a result for a superseded term.
package debounce

import (
	"context"
	"sync"
	"time"
)

// SearchFunc runs one search. It must honour ctx cancellation.
type SearchFunc[T any] func(ctx context.Context, term string) (T, error)

// Result is the outcome of the search for Term.
type Result[T any] struct {
	Term  string
	Value T
	Err   error
}

// Debouncer runs fn for the last term submitted once delay has passed
// without a newer one.
type Debouncer[T any] struct {
	parent context.Context
	delay  time.Duration
	fn     SearchFunc[T]
	out    chan Result[T]

	mu       sync.Mutex
	seq      uint64
	timer    *time.Timer
	inflight context.CancelFunc
	closed   bool
}

// New returns a debouncer whose searches derive from ctx.
func New[T any](ctx context.Context, delay time.Duration, fn SearchFunc[T]) *Debouncer[T] {
	return &Debouncer[T]{
		parent: ctx,
		delay:  delay,
		fn:     fn,
		out:    make(chan Result[T], 1),
	}
}

// Results delivers one Result per search that was not superseded. The
// channel holds at most the latest result and is closed by Close.
func (d *Debouncer[T]) Results() <-chan Result[T] {
	return d.out
}

// Submit schedules a search for term, superseding any pending or running one.
func (d *Debouncer[T]) Submit(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.inflight != nil {
		d.inflight()
		d.inflight = nil
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq, term) })
}

func (d *Debouncer[T]) fire(seq uint64, term string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.parent)
	d.inflight = cancel
	d.mu.Unlock()

	v, err := d.fn(ctx, term)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || seq != d.seq {
		return
	}
	d.inflight = nil

	r := Result[T]{Term: term, Value: v, Err: err}
	for {
		select {
		case d.out <- r:
			return
		default:
			// Drop an undelivered older result.
			select {
			case <-d.out:
			default:
			}
		}
	}
}

// Close stops pending work and closes Results.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.inflight != nil {
		d.inflight()
	}
	close(d.out)
}
