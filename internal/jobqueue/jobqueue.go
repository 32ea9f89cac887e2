// Package jobqueue is a thin typed wrapper over the job-table operations in
// internal/repository, giving the HTTP surface and the worker pool a
// narrower, domain-named contract than the full Repository.
package jobqueue

import (
	"context"
	"strings"

	"codeintel-clone/internal/repository"
)

// maxFailureMessageLen bounds the error text persisted on a failed job:
// long enough for context, short enough that a stack-trace-shaped error
// doesn't bloat the jobs table.
const maxFailureMessageLen = 500

// Store is the subset of repository.Repository the queue needs.
type Store interface {
	Enqueue(ctx context.Context, userID int64, repoURL string, kind repository.JobKind, payload, payloadPath *string) (int64, error)
	ClaimNext(ctx context.Context, kinds []repository.JobKind) (*repository.Job, error)
	Complete(ctx context.Context, jobID int64, status repository.JobStatus, errMsg *string) error
	SweepStaleJobs(ctx context.Context, thresholdSeconds int) (int64, error)
	GetJob(ctx context.Context, userID, jobID int64) (*repository.Job, error)
}

// Queue wraps Store with the enqueue/claim/complete contract.
type Queue struct {
	store Store
}

// New returns a Queue backed by store.
func New(store Store) *Queue {
	return &Queue{store: store}
}

// Enqueue inserts a pending job for userID against repoURL.
func (q *Queue) Enqueue(ctx context.Context, userID int64, repoURL string, kind repository.JobKind, payload, payloadPath *string) (int64, error) {
	return q.store.Enqueue(ctx, userID, repoURL, kind, payload, payloadPath)
}

// ClaimNext claims the oldest pending job of any of kinds, or every kind if
// kinds is empty.
func (q *Queue) ClaimNext(ctx context.Context, kinds ...repository.JobKind) (*repository.Job, error) {
	return q.store.ClaimNext(ctx, kinds)
}

// Succeed marks a job done.
func (q *Queue) Succeed(ctx context.Context, jobID int64) error {
	return q.store.Complete(ctx, jobID, repository.JobStatusDone, nil)
}

// Fail marks a job failed with msg, truncated to its first line and a
// bounded length so a deeply wrapped or multi-line error doesn't bloat the
// stored job row.
func (q *Queue) Fail(ctx context.Context, jobID int64, msg string) error {
	msg = truncateFailureMessage(msg)
	return q.store.Complete(ctx, jobID, repository.JobStatusFailed, &msg)
}

func truncateFailureMessage(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if len(msg) > maxFailureMessageLen {
		msg = msg[:maxFailureMessageLen]
	}
	return msg
}

// SweepStale releases jobs stuck in processing past thresholdSeconds back to
// pending, for a worker that died mid-tick.
func (q *Queue) SweepStale(ctx context.Context, thresholdSeconds int) (int64, error) {
	return q.store.SweepStaleJobs(ctx, thresholdSeconds)
}

// Status returns a job scoped to its owning user, for the HTTP status
// endpoint.
func (q *Queue) Status(ctx context.Context, userID, jobID int64) (*repository.Job, error) {
	return q.store.GetJob(ctx, userID, jobID)
}
