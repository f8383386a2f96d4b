// Package loop is the single event-loop thread that owns all toolkit state.
//
// Any goroutine may Post work. Work runs one task at a time, in the order
// each producer posted it, on the goroutine that called Run (or Bind). Defer
// schedules from inside the loop for the next iteration so native calls
// never re-enter the code that issued them.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned once the loop no longer accepts work.
var ErrStopped = errors.New("event loop stopped")

const defaultQueueSize = 256

// Options configures a Loop.
type Options struct {
	QueueSize int
	// Debug turns thread assertions into panics.
	Debug  bool
	Logger *slog.Logger
}

// Loop is a multi-producer, single-consumer task queue.
type Loop struct {
	tasks  chan func()
	wake   chan struct{}
	done   chan struct{}
	stop   sync.Once
	debug  bool
	logger *slog.Logger

	bound atomic.Bool
	tid   atomic.Int64

	// Work scheduled from the loop thread itself. It never goes through
	// tasks, whose only consumer is the scheduling thread.
	mu       sync.Mutex
	deferred []func()
}

// New creates a loop that is not yet running.
func New(opts Options) *Loop {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan func(), size),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		debug:  opts.Debug,
		logger: logger,
	}
}

// Post schedules fn from any goroutine. It returns false once the loop has
// stopped. Off the loop, Post blocks while the queue is full. On the loop
// it never blocks: fn runs at the start of the next iteration, as with
// Defer.
func (l *Loop) Post(fn func()) bool {
	if l.Stopped() {
		return false
	}
	if l.OnLoopThread() {
		l.enqueueDeferred(fn)
		return true
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Defer runs fn at the start of the next iteration. Loop thread only.
func (l *Loop) Defer(fn func()) {
	l.AssertLoopThread("Defer")
	l.enqueueDeferred(fn)
}

func (l *Loop) enqueueDeferred(fn func()) {
	l.mu.Lock()
	l.deferred = append(l.deferred, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) hasDeferred() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.deferred) > 0
}

// Call runs fn on the loop and waits for it to finish. It returns
// ErrStopped without running fn once the loop has stopped.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	if l.Stopped() {
		return ErrStopped
	}
	if l.OnLoopThread() {
		fn()
		return nil
	}
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The task may still have run before the loop exited.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bind makes the calling goroutine the loop thread without starting Run.
// Hosts that pump the loop themselves, and tests, call Bind and then Pump
// or Drain from the same goroutine.
func (l *Loop) Bind() {
	runtime.LockOSThread()
	l.tid.Store(threadID())
	l.bound.Store(true)
}

// unbind releases the OS thread. Goroutines later scheduled on it are not
// the loop thread.
func (l *Loop) unbind() {
	l.bound.Store(false)
	l.tid.Store(0)
	runtime.UnlockOSThread()
}

// Run pumps the loop until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.Bind()
	defer l.unbind()

	for {
		if err := l.iterate(ctx, true); err != nil {
			if errors.Is(err, ErrStopped) {
				return nil
			}
			return err
		}
	}
}

// Pump runs iterations until done reports true, the loop stops or ctx ends.
func (l *Loop) Pump(ctx context.Context, done func() bool) error {
	for !done() {
		if err := l.iterate(ctx, true); err != nil {
			return err
		}
	}
	return nil
}

// Drain runs everything that is already queued or deferred, including work
// that this scheduling produces, and returns when the loop is idle.
func (l *Loop) Drain() {
	for {
		l.runDeferred()
		select {
		case fn := <-l.tasks:
			l.exec(fn)
			continue
		default:
		}
		if !l.hasDeferred() {
			return
		}
	}
}

// Stop makes the loop exit after the current task. Safe from any goroutine.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		close(l.done)
	})
}

// Stopped reports whether Stop was called.
func (l *Loop) Stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// OnLoopThread reports whether the caller runs on the loop thread. On
// platforms without a thread id it only reports whether the loop is bound.
func (l *Loop) OnLoopThread() bool {
	if !l.bound.Load() {
		return false
	}
	tid := threadID()
	return tid == 0 || tid == l.tid.Load()
}

// AssertLoopThread panics in debug mode when called off the loop thread,
// and logs otherwise.
func (l *Loop) AssertLoopThread(op string) {
	if l.OnLoopThread() {
		return
	}
	if l.debug {
		panic(fmt.Sprintf("%s called off the event-loop thread", op))
	}
	l.logger.Error("called off the event-loop thread", "op", op)
}

func (l *Loop) iterate(ctx context.Context, block bool) error {
	l.runDeferred()
	if l.hasDeferred() {
		block = false
	}

	if !block {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-l.done:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return nil
	}

	select {
	case fn := <-l.tasks:
		l.exec(fn)
		return nil
	case <-l.wake:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) runDeferred() {
	l.mu.Lock()
	batch := l.deferred
	l.deferred = nil
	l.mu.Unlock()
	for _, fn := range batch {
		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if l.debug {
				panic(r)
			}
			l.logger.Error("event-loop task panicked", "panic", r)
		}
	}()
	fn()
}
