// Package task drives asynchronous cluster tasks to completion. Every
// mutating command submits a task and blocks on Tracker.Await until the
// task reaches a terminal state or its timeout budget runs out.
package task

import (
	"context"
	"time"

	"github.com/pmxdev/pmx/internal/api"
	"github.com/pmxdev/pmx/internal/logger"
)

// Timeout budgets per operation class.
const (
	CloneTimeout    = 300 * time.Second
	SnapshotTimeout = 120 * time.Second
	RollbackTimeout = 300 * time.Second
	StopTimeout     = 30 * time.Second

	// DefaultPollInterval is how often Await queries task status.
	DefaultPollInterval = 2 * time.Second
)

// Outcome is the terminal result of awaiting a task.
type Outcome int

const (
	// Succeeded means the task stopped with the success exit status.
	Succeeded Outcome = iota
	// Failed means the task stopped with any other exit status.
	Failed
	// TimedOut means no terminal state was observed within the budget.
	TimedOut
)

// String renders the outcome for logs and messages.
func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Job identifies one in-flight cluster task. It lives only for the duration
// of the owning command.
type Job struct {
	Node string
	UPID api.UPID
}

// Result is the resolution of one awaited job.
type Result struct {
	Outcome Outcome

	// Reason carries the raw exit status for Failed outcomes, for
	// diagnostics. Empty otherwise.
	Reason string

	// Elapsed is how long the wait took.
	Elapsed time.Duration
}

// OK reports whether the job succeeded.
func (r Result) OK() bool {
	return r.Outcome == Succeeded
}

// Tracker polls the cluster for task completion.
type Tracker struct {
	client api.Client
	log    logger.Logger
	now    func() time.Time
}

// New creates a Tracker. A nil log defaults to the package logger.
func New(client api.Client, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewEnvLogger("[task]")
	}
	return &Tracker{client: client, log: log, now: time.Now}
}

// Await blocks until the job reaches a terminal state or timeout elapses.
//
// Transient status-query errors (network blips) are logged and retried
// inside the timeout budget; they are never conflated with the job's own
// failure. The only three outcomes crossing this boundary are Succeeded,
// Failed, and TimedOut.
func (t *Tracker) Await(ctx context.Context, job Job, pollInterval, timeout time.Duration) Result {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	start := t.now()
	deadline := start.Add(timeout)

	for {
		if !t.now().Before(deadline) {
			t.log.Warn("task %s on %s timed out after %s", job.UPID, job.Node, timeout)
			return Result{Outcome: TimedOut, Elapsed: t.now().Sub(start)}
		}

		status, err := t.client.TaskStatus(ctx, job.Node, job.UPID)
		if err != nil {
			// Transient query failure: keep polling until the deadline.
			t.log.Debug("task %s status query failed (retrying): %v", job.UPID, err)
		} else if status.Finished() {
			elapsed := t.now().Sub(start)
			if status.OK() {
				t.log.Debug("task %s finished in %s", job.UPID, elapsed)
				return Result{Outcome: Succeeded, Elapsed: elapsed}
			}
			t.log.Warn("task %s failed: %s", job.UPID, status.ExitStatus)
			return Result{Outcome: Failed, Reason: status.ExitStatus, Elapsed: elapsed}
		}

		if !t.sleep(ctx, pollInterval, deadline) {
			return Result{Outcome: TimedOut, Elapsed: t.now().Sub(start)}
		}
	}
}

// sleep pauses for interval, clamped to the deadline. It returns false when
// the context was cancelled, which Await reports as TimedOut: there is no
// separate cancellation outcome in the public contract.
func (t *Tracker) sleep(ctx context.Context, interval time.Duration, deadline time.Time) bool {
	remaining := deadline.Sub(t.now())
	if remaining <= 0 {
		return true
	}
	if interval > remaining {
		interval = remaining
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
