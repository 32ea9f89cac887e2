// Package worker runs the fixed-size ticker-driven pool that claims pending
// jobs and dispatches them to the graph, history-mining, and index-ingest
// engines.
package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"codeintel-clone/internal/eventbus"
	"codeintel-clone/internal/jobqueue"
	"codeintel-clone/internal/repository"
)

// EventKindJob is the eventbus.Event.Kind published for every job lifecycle
// transition a Worker observes.
const EventKindJob = "job"

// Dispatcher runs one claimed job to completion, returning an error if the
// job should be recorded as failed.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *repository.Job) error
}

// Worker is one independent periodic claim-and-dispatch loop. Workers share
// no in-process state beyond the database and filesystem cache.
type Worker struct {
	id           string
	queue        *jobqueue.Queue
	dispatcher   Dispatcher
	pollInterval time.Duration
	bus          *eventbus.Bus
}

// New returns a Worker identified by id, polling queue every pollInterval.
// bus may be nil, in which case job transitions are not published.
func New(id string, queue *jobqueue.Queue, dispatcher Dispatcher, pollInterval time.Duration, bus *eventbus.Bus) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{id: id, queue: queue, dispatcher: dispatcher, pollInterval: pollInterval, bus: bus}
}

func (w *Worker) publish(job *repository.Job, status string) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(eventbus.Event{
		Kind:   EventKindJob,
		JobID:  strconv.FormatInt(job.ID, 10),
		Status: status,
		At:     time.Now(),
		Data:   job,
	})
}

// Start launches the worker's poll loop in a new goroutine; it returns
// immediately.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[%s] starting worker", w.id)
	go w.runLoop(ctx)
}

func (w *Worker) runLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] stopping", w.id)
			return
		case <-ticker.C:
			w.tryClaimAndDispatch(ctx)
		}
	}
}

// tryClaimAndDispatch claims at most one job per tick and runs it to
// completion before returning to the poll loop.
func (w *Worker) tryClaimAndDispatch(ctx context.Context) {
	job, err := w.queue.ClaimNext(ctx)
	if err != nil {
		log.Printf("[%s] claim failed: %v", w.id, err)
		return
	}
	if job == nil {
		return
	}

	log.Printf("[%s] claimed job %d (%s) for %s", w.id, job.ID, job.Kind, job.RepoURL)
	w.publish(job, string(repository.JobStatusProcessing))

	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job body: %v", r)
			}
		}()
		return w.dispatcher.Dispatch(ctx, job)
	}()
	if err != nil {
		log.Printf("[%s] job %d failed: %v", w.id, job.ID, err)
		if ferr := w.queue.Fail(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("[%s] failed to record failure for job %d: %v", w.id, job.ID, ferr)
		}
		w.publish(job, string(repository.JobStatusFailed))
		return
	}

	succeedErr := w.queue.Succeed(ctx, job.ID)
	if succeedErr != nil {
		log.Printf("[%s] failed to record success for job %d: %v", w.id, job.ID, succeedErr)
	}

	// Payload files are retained on failure for diagnostics and only removed
	// once the job they fed is durably marked done.
	if succeedErr == nil && job.PayloadPath != nil && *job.PayloadPath != "" {
		if err := os.Remove(*job.PayloadPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[%s] failed to remove payload file for job %d: %v", w.id, job.ID, err)
		}
	}

	w.publish(job, string(repository.JobStatusDone))
}

// Pool is a fixed-size set of Workers, all polling the same queue.
type Pool struct {
	workers []*Worker
}

// NewPool builds count workers named "worker-0".."worker-N", all sharing
// queue, dispatcher, and bus.
func NewPool(count int, queue *jobqueue.Queue, dispatcher Dispatcher, pollInterval time.Duration, bus *eventbus.Bus) *Pool {
	if count <= 0 {
		count = 1
	}
	workers := make([]*Worker, count)
	for i := range workers {
		workers[i] = New(fmt.Sprintf("worker-%d", i), queue, dispatcher, pollInterval, bus)
	}
	return &Pool{workers: workers}
}

// Start launches every worker in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		w.Start(ctx)
	}
}

// StaleSweeper periodically releases jobs stuck in processing past a
// threshold back to pending, so a worker that died mid-tick doesn't strand
// its claim forever.
type StaleSweeper struct {
	queue     *jobqueue.Queue
	interval  time.Duration
	threshold int
}

// NewStaleSweeper returns a sweeper that runs every interval, releasing jobs
// processing longer than thresholdSeconds.
func NewStaleSweeper(queue *jobqueue.Queue, interval time.Duration, thresholdSeconds int) *StaleSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StaleSweeper{queue: queue, interval: interval, threshold: thresholdSeconds}
}

// Start launches the sweep loop, running one sweep immediately so jobs
// orphaned by a previous process's crash are released on startup.
func (s *StaleSweeper) Start(ctx context.Context) {
	go s.runLoop(ctx)
}

func (s *StaleSweeper) runLoop(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *StaleSweeper) sweep(ctx context.Context) {
	n, err := s.queue.SweepStale(ctx, s.threshold)
	if err != nil {
		log.Printf("[sweeper] sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[sweeper] released %d stale job(s)", n)
	}
}
