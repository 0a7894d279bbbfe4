package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/livectl/internal/types"
)

var (
	ErrQueueFull   = errors.New("host queue full")
	ErrLoopStopped = errors.New("host loop stopped")
)

// DefaultQueueSize bounds the number of jobs waiting for the host.
const DefaultQueueSize = 64

// Loop owns a SessionProvider and executes handed-off jobs one at a time on
// a single goroutine, the host's controlling context. Nothing else may call
// the provider while the loop is in use.
type Loop struct {
	provider types.SessionProvider
	jobs     chan *Job
	active   atomic.Bool

	completed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64

	ready     chan struct{}
	readyOnce sync.Once

	stopped  chan struct{}
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Loop around provider with room for queueSize pending jobs.
func New(provider types.SessionProvider, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		provider: provider,
		jobs:     make(chan *Job, queueSize),
		ready:    make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start runs the loop on its own goroutine until ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.Run(l.ctx)
	}()
}

// Stop cancels the loop started by Start and waits for it to exit. Jobs still
// queued fail with ErrLoopStopped.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	l.shutdown()
}

// Run executes jobs on the calling goroutine until ctx is done. A host that
// owns its own thread calls Run from it instead of Start.
func (l *Loop) Run(ctx context.Context) {
	defer l.shutdown()
	for {
		select {
		case job := <-l.jobs:
			l.execute(job)
		case <-ctx.Done():
			return
		case <-l.stopped:
			return
		}
	}
}

// RunPending executes every job already queued without blocking and returns
// how many ran. Hosts that drive work from a periodic tick call this instead
// of Run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		select {
		case job := <-l.jobs:
			l.execute(job)
			n++
		default:
			return n
		}
	}
}

// MarkReady signals that the host finished initialising. Safe to call more
// than once.
func (l *Loop) MarkReady() {
	l.readyOnce.Do(func() { close(l.ready) })
}

// Ready is closed once MarkReady has been called.
func (l *Loop) Ready() <-chan struct{} {
	return l.ready
}

// Do hands fn to the host loop and waits for its result. The wait ends early
// if ctx is done; fn may still run on the host afterwards.
func (l *Loop) Do(ctx context.Context, name string, fn Func) (any, error) {
	job := NewJob(name, fn)

	select {
	case <-l.stopped:
		return nil, ErrLoopStopped
	default:
	}

	select {
	case l.jobs <- job:
	default:
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, name)
	}

	select {
	case res := <-job.done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.stopped:
		// The job may have completed just before shutdown.
		select {
		case res := <-job.done:
			return res.value, res.err
		default:
			return nil, ErrLoopStopped
		}
	}
}

// Stats is a point-in-time view of the loop's work.
type Stats struct {
	Pending   int
	Active    bool
	Completed uint64
	Failed    uint64
	// Dropped counts jobs still queued when the loop stopped.
	Dropped uint64
}

// Stats reports the loop's counters. Safe to call from any goroutine.
func (l *Loop) Stats() Stats {
	return Stats{
		Pending:   len(l.jobs),
		Active:    l.active.Load(),
		Completed: l.completed.Load(),
		Failed:    l.failed.Load(),
		Dropped:   l.dropped.Load(),
	}
}

// execute runs a job, converting a panic inside the provider into an error so
// the loop survives a faulty host call.
func (l *Loop) execute(job *Job) {
	job.StartedAt = time.Now()
	job.Status = JobStatusRunning
	l.active.Store(true)

	value, err := func() (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: session provider panic: %v", job.Name, r)
			}
		}()
		return job.fn(l.provider)
	}()

	l.active.Store(false)
	job.EndedAt = time.Now()
	log := slog.With("job_id", types.ShortID(string(job.ID)), "job", job.Name,
		"waited", job.QueueWait(), "took", job.RunTime())
	if err != nil {
		job.Status = JobStatusFailed
		l.failed.Add(1)
		log.Debug("host job failed", "error", err)
	} else {
		job.Status = JobStatusComplete
		l.completed.Add(1)
		log.Debug("host job complete")
	}
	job.done <- jobResult{value: value, err: err}
}

func (l *Loop) shutdown() {
	l.stopOnce.Do(func() {
		close(l.stopped)
		for {
			select {
			case job := <-l.jobs:
				job.Status = JobStatusFailed
				l.dropped.Add(1)
				job.done <- jobResult{err: ErrLoopStopped}
			default:
				return
			}
		}
	})
}
