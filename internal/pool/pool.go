// Package pool runs blocking work on a fixed set of worker goroutines so
// request handlers never execute geometry stages themselves.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by Do after Close.
	ErrClosed = errors.New("pool: closed")

	// ErrPanic wraps a recovered worker panic.
	ErrPanic = errors.New("pool: task panicked")
)

type task struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers   int
	Queued    int
	Running   int64
	Completed int64
	Failed    int64
	Panics    int64
}

// Pool is a fixed-size worker pool with a bounded queue.
type Pool struct {
	queue   chan task
	workers int
	logger  *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup

	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panics    atomic.Int64
}

// New starts workers goroutines (at least one) behind a queue of size
// queueSize.
func New(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		queue:   make(chan task, queueSize),
		workers: workers,
		logger:  logger.With(zap.String("component", "pool")),
		closed:  make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closed:
			return
		case t := <-p.queue:
			if t.ctx.Err() != nil {
				t.done <- t.ctx.Err()
				continue
			}
			t.done <- p.run(t.fn)
		}
	}
}

func (p *Pool) run(fn func() error) (err error) {
	p.running.Add(1)
	defer p.running.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.logger.Error("task panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		if err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
	}()
	return fn()
}

// Do runs fn on a worker and returns its error. It blocks until a worker
// is free and fn has returned, or until ctx ends. A task abandoned after it
// started keeps running to completion.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	t := task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case <-p.closed:
		return ErrClosed
	default:
	}

	select {
	case p.queue <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrClosed
	}

	return p.await(ctx, t)
}

// await waits for the result of a queued task.
func (p *Pool) await(ctx context.Context, t task) error {
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		// The task may have been queued after Close drained the queue.
		// Once the workers are gone its result, if any, is already sent.
		p.wg.Wait()
		select {
		case err := <-t.done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.queue),
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panics:    p.panics.Load(),
	}
}

// Close stops accepting work and waits for running tasks. Queued tasks
// that never started are dropped and their callers see ctx expiry or
// ErrClosed.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.wg.Wait()
		for {
			select {
			case t := <-p.queue:
				t.done <- ErrClosed
			default:
				return
			}
		}
	})
}
