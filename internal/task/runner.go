// Package task runs user-triggered actions in the background and delivers
// their completions through one channel, in completion order.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("task runner closed")

// Func is one background action. It returns the finished value or an
// error; there is no partial result.
type Func func(ctx context.Context) (any, error)

type Completion struct {
	ID       uuid.UUID
	Name     string
	Value    any
	Err      error
	Started  time.Time
	Finished time.Time
}

func (c Completion) Duration() time.Duration {
	return c.Finished.Sub(c.Started)
}

// Runner starts tasks on their own goroutines. Tasks are never queued,
// throttled or cancelled individually; callers guard against duplicates.
type Runner struct {
	ctx         context.Context
	completions chan Completion
	wg          sync.WaitGroup
	logger      *slog.Logger

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

type Option func(*Runner)

// WithBuffer sets how many completions may wait for the consumer.
func WithBuffer(n int) Option {
	return func(r *Runner) {
		r.completions = make(chan Completion, n)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner returns a runner whose tasks all run under ctx.
func NewRunner(ctx context.Context, opts ...Option) *Runner {
	r := &Runner{
		ctx:         ctx,
		completions: make(chan Completion, 8),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go starts fn and returns its ID. The completion carries the same ID. After
// Close nothing is started and ErrClosed is returned.
func (r *Runner) Go(name string, fn Func) (uuid.UUID, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: %s", ErrClosed, name)
	}
	r.wg.Add(1)
	r.mu.Unlock()

	id := uuid.New()
	go func() {
		defer r.wg.Done()

		c := Completion{ID: id, Name: name, Started: time.Now()}
		c.Value, c.Err = r.call(fn)
		c.Finished = time.Now()

		r.logger.Debug("task finished",
			"task", name,
			"id", id,
			"duration", c.Duration(),
			"error", c.Err,
		)
		r.deliver(c)
	}()

	return id, nil
}

// deliver hands c to the consumer. Once the runner context is done and the
// buffer is full the completion is dropped, so Close never waits on a
// consumer that has gone away.
func (r *Runner) deliver(c Completion) {
	select {
	case r.completions <- c:
		return
	default:
	}
	select {
	case r.completions <- c:
	case <-r.ctx.Done():
		r.logger.Debug("completion dropped", "task", c.Name, "id", c.ID)
	}
}

// Completions is read by exactly one consumer.
func (r *Runner) Completions() <-chan Completion {
	return r.completions
}

// Close waits for in-flight tasks and closes the completion channel. The
// consumer must keep reading until then.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.wg.Wait()
		close(r.completions)
	})
}

func (r *Runner) call(fn Func) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return fn(r.ctx)
}
