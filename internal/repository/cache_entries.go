package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RecordCacheClone upserts a RepoCacheEntry row after a fresh clone.
func (r *Repository) RecordCacheClone(ctx context.Context, fingerprint, repoURL string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO app.repo_cache_entries (fingerprint, repo_url, cloned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (fingerprint) DO UPDATE SET repo_url = EXCLUDED.repo_url`,
		fingerprint, repoURL,
	)
	if err != nil {
		return fmt.Errorf("record cache clone %s: %w", fingerprint, err)
	}
	return nil
}

// RecordCacheFetch records the outcome of a fetch attempt against an
// existing cache entry.
func (r *Repository) RecordCacheFetch(ctx context.Context, fingerprint string, fetchErr error) error {
	var errMsg *string
	if fetchErr != nil {
		msg := fetchErr.Error()
		errMsg = &msg
	}
	_, err := r.db.Exec(ctx, `
		UPDATE app.repo_cache_entries
		SET last_fetch_at = NOW(), last_fetch_err = $2
		WHERE fingerprint = $1`,
		fingerprint, errMsg,
	)
	if err != nil {
		return fmt.Errorf("record cache fetch %s: %w", fingerprint, err)
	}
	return nil
}

// MarkCacheFullHistory flags a cache entry as upgraded to full (unshallow)
// history. The flag is diagnostic: EnsureFullHistory does not read it, and
// every git_mine job still runs the unshallow step (a no-op once complete).
func (r *Repository) MarkCacheFullHistory(ctx context.Context, fingerprint string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE app.repo_cache_entries SET full_history = TRUE WHERE fingerprint = $1`,
		fingerprint,
	)
	if err != nil {
		return fmt.Errorf("mark cache full history %s: %w", fingerprint, err)
	}
	return nil
}

// CacheStats summarizes the repo_cache_entries table for the status
// endpoint: how many distinct repos have been cloned, how many have been
// upgraded to full history, and the most recent fetch attempt's outcome.
type CacheStats struct {
	TotalEntries     int
	FullHistoryCount int
	LastFetchErr     *string
}

// GetCacheStats aggregates the cache-entry audit trail for reporting.
func (r *Repository) GetCacheStats(ctx context.Context) (CacheStats, error) {
	var s CacheStats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE full_history),
			(SELECT last_fetch_err FROM app.repo_cache_entries
			 WHERE last_fetch_at IS NOT NULL
			 ORDER BY last_fetch_at DESC LIMIT 1)
		FROM app.repo_cache_entries`,
	).Scan(&s.TotalEntries, &s.FullHistoryCount, &s.LastFetchErr)
	if err != nil {
		return CacheStats{}, fmt.Errorf("get cache stats: %w", err)
	}
	return s, nil
}

// GetCacheEntry fetches a cache entry by fingerprint, or nil if unseen.
func (r *Repository) GetCacheEntry(ctx context.Context, fingerprint string) (*RepoCacheEntry, error) {
	var e RepoCacheEntry
	e.Fingerprint = fingerprint
	err := r.db.QueryRow(ctx, `
		SELECT repo_url, cloned_at, last_fetch_at, last_fetch_err, full_history
		FROM app.repo_cache_entries WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&e.RepoURL, &e.ClonedAt, &e.LastFetchAt, &e.LastFetchErr, &e.FullHistory)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s: %w", fingerprint, err)
	}
	return &e, nil
}
