// Package bridge runs blocking work off the event-loop thread and brings
// the results back onto it, correlated by RequestID.
package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/1broseidon/windowkit/internal/ids"
)

// Work runs on a worker goroutine. It must not touch loop-owned state; any
// result is captured by the returned Completion, which runs on the loop.
// A nil Completion finishes the request silently.
type Work func(ctx context.Context) Completion

// Completion delivers a result on the loop thread.
type Completion func(id ids.RequestID, owner ids.WindowID)

// Options configures a Bridge.
type Options struct {
	Workers   int
	QueueSize int
	Logger    *slog.Logger
}

// Bridge is a bounded worker pool with a correlation table.
type Bridge struct {
	post   func(func()) bool
	logger *slog.Logger
	alloc  ids.RequestAllocator
	jobs   chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// loop thread only
	pending *ids.Correlation
}

type job struct {
	id   ids.RequestID
	work Work
}

// New starts the workers. post schedules a function on the event loop.
func New(post func(func()) bool, opts Options) *Bridge {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		post:    post,
		logger:  logger,
		jobs:    make(chan job, queue),
		ctx:     ctx,
		cancel:  cancel,
		pending: ids.NewCorrelation(),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Submit enqueues work owned by a window (0 for none) and returns its
// request id. It returns 0 when the bridge is closed or the queue is full.
// Loop thread only.
func (b *Bridge) Submit(owner ids.WindowID, work Work) ids.RequestID {
	if b.ctx.Err() != nil {
		return 0
	}
	id := b.alloc.Next()
	if !b.pending.Add(id, owner) {
		return 0
	}
	select {
	case b.jobs <- job{id: id, work: work}:
		return id
	default:
		b.pending.Take(id)
		b.logger.Warn("request queue full", "owner", owner)
		return 0
	}
}

// Pending reports whether id is still waiting for its completion.
func (b *Bridge) Pending(id ids.RequestID) bool {
	_, ok := b.pending.Owner(id)
	return ok
}

// Len is the number of outstanding requests.
func (b *Bridge) Len() int {
	return b.pending.Len()
}

// DropWindow forgets every request owned by a closed window. Their work
// keeps running but the completions are discarded.
func (b *Bridge) DropWindow(w ids.WindowID) []ids.RequestID {
	return b.pending.DropWindow(w)
}

// Close cancels running work and waits for the workers to exit.
func (b *Bridge) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *Bridge) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case j := <-b.jobs:
			done := b.run(j)
			id := j.id
			if !b.post(func() { b.finish(id, done) }) {
				b.logger.Debug("loop stopped, dropping response", "request", id)
			}
		}
	}
}

func (b *Bridge) run(j job) (done Completion) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bridge work panicked", "request", j.id, "panic", r)
			done = nil
		}
	}()
	return j.work(b.ctx)
}

func (b *Bridge) finish(id ids.RequestID, done Completion) {
	owner, ok := b.pending.Take(id)
	if !ok {
		b.logger.Debug("ignoring late response", "request", id)
		return
	}
	if done != nil {
		done(id, owner)
	}
}
