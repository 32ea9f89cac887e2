package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
)

// ChurnRateFloor is the minimum linesAdded proxy used in the churn-rate
// denominator, preventing divide-by-tiny blow-ups for brand new files.
// The formula itself is a documented heuristic preserved verbatim from the
// source system: linesAdded is a stand-in for file size, which is wrong for
// files that are mostly deletions.
const ChurnRateFloor = 50

// UpsertChurnBucket folds (addedDelta, deletedDelta, commitDelta) into the
// stored (linesAdded, linesDeleted, commitCount) for (userID, repoURL,
// filePath, weekStart), additively. The read-then-write is done under a row
// lock so concurrent aggregations for the same bucket serialize instead of
// lost-update racing; callers are additionally expected to serialize at the
// Worker Pool claim level.
func (r *Repository) UpsertChurnBucket(ctx context.Context, userID int64, repoURL, filePath string, weekStart string, addedDelta, deletedDelta, commitDelta int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("upsert churn bucket: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var added, deleted, commits int
	err = tx.QueryRow(ctx, `
		SELECT lines_added, lines_deleted, commit_count
		FROM app.file_churn_stats
		WHERE user_id = $1 AND repo_url = $2 AND file_path = $3 AND week_start = $4
		FOR UPDATE`,
		userID, repoURL, filePath, weekStart,
	).Scan(&added, &deleted, &commits)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("upsert churn bucket: select: %w", err)
	}

	added += addedDelta
	deleted += deletedDelta
	commits += commitDelta
	rate := ChurnRate(added, deleted)

	_, err = tx.Exec(ctx, `
		INSERT INTO app.file_churn_stats (user_id, repo_url, file_path, week_start, lines_added, lines_deleted, commit_count, churn_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, repo_url, file_path, week_start) DO UPDATE SET
			lines_added = EXCLUDED.lines_added,
			lines_deleted = EXCLUDED.lines_deleted,
			commit_count = EXCLUDED.commit_count,
			churn_rate = EXCLUDED.churn_rate`,
		userID, repoURL, filePath, weekStart, added, deleted, commits, rate,
	)
	if err != nil {
		return fmt.Errorf("upsert churn bucket: write: %w", err)
	}

	return tx.Commit(ctx)
}

// ChurnRate computes the documented heuristic churn-rate percentage:
// (added+deleted) * 100 / max(linesAdded, ChurnRateFloor), rounded to 2
// decimal places.
func ChurnRate(linesAdded, linesDeleted int) float64 {
	denom := linesAdded
	if denom < ChurnRateFloor {
		denom = ChurnRateFloor
	}
	rate := float64(linesAdded+linesDeleted) * 100 / float64(denom)
	return math.Round(rate*100) / 100
}

// FileTrend returns weekly churn rows for filePath within window, ordered by weekStart ascending.
func (r *Repository) FileTrend(ctx context.Context, userID int64, repoURL, filePath string, windowWeeks int) ([]FileChurnStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT file_path, week_start, lines_added, lines_deleted, commit_count, churn_rate
		FROM app.file_churn_stats
		WHERE user_id = $1 AND repo_url = $2 AND file_path = $3
		  AND week_start >= (CURRENT_DATE - ($4 || ' weeks')::interval)
		ORDER BY week_start ASC`,
		userID, repoURL, filePath, windowWeeks,
	)
	if err != nil {
		return nil, fmt.Errorf("file trend: %w", err)
	}
	defer rows.Close()

	var stats []FileChurnStat
	for rows.Next() {
		s := FileChurnStat{UserID: userID, RepoURL: repoURL}
		if err := rows.Scan(&s.FilePath, &s.WeekStart, &s.LinesAdded, &s.LinesDeleted, &s.CommitCount, &s.ChurnRate); err != nil {
			return nil, fmt.Errorf("file trend: scan: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Hotspots returns the raw weekly rows within window whose churnRate exceeds
// threshold. Grouping by file, averaging, sorting, and capping at 20 is done
// by internal/query, which is the only caller that needs that shape.
func (r *Repository) Hotspots(ctx context.Context, userID int64, repoURL string, windowWeeks int, threshold float64) ([]FileChurnStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT file_path, week_start, lines_added, lines_deleted, commit_count, churn_rate
		FROM app.file_churn_stats
		WHERE user_id = $1 AND repo_url = $2
		  AND week_start >= (CURRENT_DATE - ($3 || ' weeks')::interval)
		  AND churn_rate > $4
		ORDER BY file_path, week_start ASC`,
		userID, repoURL, windowWeeks, threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("hotspots: %w", err)
	}
	defer rows.Close()

	var stats []FileChurnStat
	for rows.Next() {
		s := FileChurnStat{UserID: userID, RepoURL: repoURL}
		if err := rows.Scan(&s.FilePath, &s.WeekStart, &s.LinesAdded, &s.LinesDeleted, &s.CommitCount, &s.ChurnRate); err != nil {
			return nil, fmt.Errorf("hotspots: scan: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
