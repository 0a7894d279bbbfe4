package host

import (
	"time"

	"github.com/user/livectl/internal/types"
)

// JobStatus represents the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// Func is work executed on the host loop with exclusive access to the provider.
type Func func(p types.SessionProvider) (any, error)

// Job tracks one unit of work handed off to the host loop. Status and the
// timestamps are written by the loop goroutine only.
type Job struct {
	ID        types.JobID
	Name      string
	Status    JobStatus
	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time

	fn   Func
	done chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// NewJob creates a Job in the Queued state.
func NewJob(name string, fn Func) *Job {
	return &Job{
		ID:        types.NewJobID(),
		Name:      name,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
		fn:        fn,
		done:      make(chan jobResult, 1),
	}
}

// QueueWait is how long the job waited before the host picked it up.
func (j *Job) QueueWait() time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	return j.StartedAt.Sub(j.CreatedAt)
}

// RunTime is how long the job ran on the host.
func (j *Job) RunTime() time.Duration {
	if j.StartedAt.IsZero() || j.EndedAt.IsZero() {
		return 0
	}
	return j.EndedAt.Sub(j.StartedAt)
}
