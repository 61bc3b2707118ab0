// Package worker runs slow jobs (CSV parsing, report rendering) off the UI
// goroutine and hands their results back through a Dispatcher.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Dispatcher marshals a function onto the UI-affine goroutine.
type Dispatcher interface {
	Post(fn func())
}

// Task describes one background job. Run must not touch the model; it works
// on values captured when the task was built. OnSlow and OnDone are posted
// through the Dispatcher.
type Task[T any] struct {
	Name   string
	Budget time.Duration
	Run    func(ctx context.Context) (T, error)
	OnSlow func()
	OnDone func(result T, err error)
}

// Job is a handle to a submitted task.
type Job struct {
	ID     string
	Name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel asks the job to stop at its next checkpoint.
func (j *Job) Cancel() { j.cancel() }

// Done is closed once the job has finished and its OnDone was posted.
func (j *Job) Done() <-chan struct{} { return j.done }

// Runner owns the background jobs of one tab.
type Runner struct {
	log      logrus.FieldLogger
	dispatch Dispatcher

	mu     sync.Mutex
	ctx    context.Context
	stop   context.CancelFunc
	group  errgroup.Group
	active map[string]*Job
}

// NewRunner returns a Runner whose jobs are children of ctx.
func NewRunner(ctx context.Context, dispatch Dispatcher, log logrus.FieldLogger) *Runner {
	ctx, stop := context.WithCancel(ctx)
	return &Runner{
		log:      log.WithField("component", "worker"),
		dispatch: dispatch,
		ctx:      ctx,
		stop:     stop,
		active:   make(map[string]*Job),
	}
}

// Submit starts t on a new goroutine. A soft budget only triggers OnSlow; the
// job keeps running until it finishes or is cancelled.
func Submit[T any](r *Runner, t Task[T]) *Job {
	ctx, cancel := context.WithCancel(r.ctx)
	job := &Job{ID: uuid.NewString()[:8], Name: t.Name, cancel: cancel, done: make(chan struct{})}
	log := r.log.WithFields(logrus.Fields{"job": job.ID, "task": t.Name})

	r.mu.Lock()
	r.active[job.ID] = job
	r.mu.Unlock()

	var slow *time.Timer
	if t.Budget > 0 && t.OnSlow != nil {
		slow = time.AfterFunc(t.Budget, func() {
			log.WithField("budget", t.Budget).Warn("Job is over its time budget")
			r.dispatch.Post(t.OnSlow)
		})
	}

	log.Debug("Job started")
	r.group.Go(func() error {
		defer close(job.done)
		defer cancel()
		start := time.Now()

		result, err := run(ctx, t.Run)
		if slow != nil {
			slow.Stop()
		}

		entry := log.WithField("elapsed", time.Since(start).Round(time.Millisecond))
		switch {
		case err == nil:
			entry.Debug("Job finished")
		case ctx.Err() != nil:
			entry.WithError(err).Info("Job cancelled")
		default:
			entry.WithError(err).Warn("Job failed")
		}

		r.mu.Lock()
		delete(r.active, job.ID)
		r.mu.Unlock()

		if t.OnDone != nil {
			r.dispatch.Post(func() { t.OnDone(result, err) })
		}
		return nil
	})
	return job
}

// run converts a panic in fn into an error so one bad job cannot take the
// application down.
func run[T any](ctx context.Context, fn func(context.Context) (T, error)) (result T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return fn(ctx)
}

// CancelAll cancels every running job without waiting.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.active {
		job.Cancel()
	}
}

// Active returns the number of running jobs.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Wait blocks until every submitted job has returned.
func (r *Runner) Wait() {
	_ = r.group.Wait()
}

// Shutdown cancels all jobs and waits for them.
func (r *Runner) Shutdown() {
	r.stop()
	r.Wait()
}

// Checkpoint returns ctx.Err(); long jobs call it between stages.
func Checkpoint(ctx context.Context) error {
	return ctx.Err()
}
