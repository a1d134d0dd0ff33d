// Package worker runs long image computations in the background and drops
// results that no longer match the data they were computed from.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrStaleVersion = errors.New("job version is older than the current version")
	ErrClosed       = errors.New("runner is closed")
)

// JobState represents the current state of a job.
type JobState int

const (
	StatePending JobState = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateDiscarded
	StateError
)

func (s JobState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateDiscarded:
		return "discarded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Job is one submitted computation.
type Job struct {
	ID      string
	Name    string
	Version uint64
	State   JobState
	Err     error

	CreatedAt   time.Time
	CompletedAt time.Time

	cancel context.CancelFunc
}

// Result is handed to the delivery callback for jobs that finished while
// their version was still current.
type Result[T any] struct {
	JobID   string
	Name    string
	Version uint64
	Value   T
	Err     error
}

// Func is the computation run by a job. It should return early once ctx is
// cancelled.
type Func[T any] func(ctx context.Context) (T, error)

// Runner executes at most one live job at a time. Submitting a job cancels
// the previous one; advancing the version makes every older result stale.
type Runner[T any] struct {
	log     *zap.Logger
	deliver func(Result[T])

	mu      sync.Mutex
	version uint64
	current *Job
	history []Job
	closed  bool
	wg      sync.WaitGroup
}

// NewRunner creates a runner that hands fresh results to deliver. deliver is
// called from the job goroutine.
func NewRunner[T any](log *zap.Logger, deliver func(Result[T])) *Runner[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner[T]{log: log, deliver: deliver}
}

// Version returns the current data version.
func (r *Runner[T]) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// SetVersion advances the data version. A running job computed for an older
// version is cancelled and its result will be discarded.
func (r *Runner[T]) SetVersion(v uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v <= r.version {
		return
	}
	r.version = v
	if r.current != nil && r.current.Version < v {
		r.current.cancel()
	}
}

// Submit starts fn for data at version and returns the job id.
func (r *Runner[T]) Submit(name string, version uint64, fn Func[T]) (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	if version < r.version {
		r.mu.Unlock()
		return "", ErrStaleVersion
	}
	r.version = version
	if r.current != nil {
		r.current.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:        uuid.New().String(),
		Name:      name,
		Version:   version,
		State:     StateRunning,
		CreatedAt: time.Now(),
		cancel:    cancel,
	}
	r.current = job
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.Debug("job started",
		zap.String("job", job.ID),
		zap.String("name", name),
		zap.Uint64("version", version),
	)
	go r.run(ctx, job, fn)
	return job.ID, nil
}

func (r *Runner[T]) run(ctx context.Context, job *Job, fn Func[T]) {
	defer r.wg.Done()
	defer job.cancel()

	value, err := fn(ctx)

	r.mu.Lock()
	job.CompletedAt = time.Now()
	job.Err = err
	fresh := ctx.Err() == nil && job.Version == r.version
	switch {
	case !fresh && ctx.Err() != nil:
		job.State = StateCancelled
	case !fresh:
		job.State = StateDiscarded
	case err != nil:
		job.State = StateError
	default:
		job.State = StateCompleted
	}
	if r.current == job {
		r.current = nil
	}
	r.history = append(r.history, *job)
	r.mu.Unlock()

	elapsed := job.CompletedAt.Sub(job.CreatedAt)
	if !fresh {
		r.log.Debug("job result discarded",
			zap.String("job", job.ID),
			zap.String("name", job.Name),
			zap.Stringer("state", job.State),
			zap.Duration("elapsed", elapsed),
		)
		return
	}
	if err != nil {
		r.log.Warn("job failed", zap.String("job", job.ID), zap.String("name", job.Name), zap.Error(err))
	} else {
		r.log.Debug("job completed", zap.String("job", job.ID), zap.String("name", job.Name), zap.Duration("elapsed", elapsed))
	}

	if r.deliver != nil {
		r.deliver(Result[T]{JobID: job.ID, Name: job.Name, Version: job.Version, Value: value, Err: err})
	}
}

// Running reports the job currently in flight, if any.
func (r *Runner[T]) Running() (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Job{}, false
	}
	return *r.current, true
}

// Finished returns a snapshot of every job that has ended, oldest first.
func (r *Runner[T]) Finished() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Job(nil), r.history...)
}

// Wait blocks until every submitted job has returned.
func (r *Runner[T]) Wait() {
	r.wg.Wait()
}

// Close cancels the running job, waits for it and rejects further work.
func (r *Runner[T]) Close() {
	r.mu.Lock()
	r.closed = true
	if r.current != nil {
		r.current.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
