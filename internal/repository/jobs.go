package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Enqueue inserts a new pending job and returns its id.
func (r *Repository) Enqueue(ctx context.Context, userID int64, repoURL string, kind JobKind, payload, payloadPath *string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO app.jobs (user_id, repo_url, job_type, status, payload, payload_path)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING id`,
		userID, repoURL, string(kind), payload, payloadPath,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// ClaimNext atomically transitions the oldest pending job matching kinds to
// processing and returns it. Concurrent callers never observe the same row:
// the row lock is taken with FOR UPDATE SKIP LOCKED, so a caller that loses
// the race simply skips past the row another transaction already holds.
// A nil kinds filter matches every kind. Returns (nil, nil) if no job is
// available.
func (r *Repository) ClaimNext(ctx context.Context, kinds []JobKind) (*Job, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim next: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var kindFilter []string
	for _, k := range kinds {
		kindFilter = append(kindFilter, string(k))
	}

	row := tx.QueryRow(ctx, `
		SELECT id, user_id, repo_url, job_type, status, payload_path, payload, error_msg, created_at, started_at, finished_at
		FROM app.jobs
		WHERE status = 'pending'
		  AND ($1::text[] IS NULL OR job_type = ANY($1))
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`,
		kindFilter,
	)

	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next: scan: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE app.jobs SET status = 'processing', started_at = NOW() WHERE id = $1`,
		job.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("claim next: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("claim next: commit: %w", err)
	}

	job.Status = JobStatusProcessing
	return job, nil
}

// Complete marks a job done or failed and records the terminal timestamp.
func (r *Repository) Complete(ctx context.Context, jobID int64, status JobStatus, errMsg *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE app.jobs
		SET status = $2, error_msg = $3, finished_at = NOW()
		WHERE id = $1`,
		jobID, string(status), errMsg,
	)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", jobID, err)
	}
	return nil
}

// SweepStaleJobs re-marks processing jobs older than thresholdSeconds back
// to pending, releasing leases abandoned by a worker that died mid-tick.
// Returns the number of rows swept.
func (r *Repository) SweepStaleJobs(ctx context.Context, thresholdSeconds int) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE app.jobs
		SET status = 'pending', started_at = NULL
		WHERE status = 'processing'
		  AND started_at < NOW() - ($1 || ' seconds')::interval`,
		thresholdSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetJob fetches a job by id, scoped to the owning user.
func (r *Repository) GetJob(ctx context.Context, userID, jobID int64) (*Job, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, repo_url, job_type, status, payload_path, payload, error_msg, created_at, started_at, finished_at
		FROM app.jobs
		WHERE id = $1 AND user_id = $2`,
		jobID, userID,
	)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}
	return job, nil
}

// ResetJob forces a job back to pending regardless of its current status,
// used by the operator tool to un-stick a job the sweep hasn't reached yet.
func (r *Repository) ResetJob(ctx context.Context, jobID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE app.jobs SET status = 'pending', started_at = NULL, finished_at = NULL, error_msg = NULL
		WHERE id = $1`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("reset job %d: %w", jobID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var kind string
	var status string
	err := row.Scan(&j.ID, &j.UserID, &j.RepoURL, &kind, &status, &j.PayloadPath, &j.Payload, &j.ErrorMsg, &j.CreatedAt, &j.StartedAt, &j.FinishedAt)
	if err != nil {
		return nil, err
	}
	j.Kind = JobKind(kind)
	j.Status = JobStatus(status)
	return &j, nil
}
