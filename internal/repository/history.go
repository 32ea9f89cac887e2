package repository

import (
	"context"
	"fmt"
)

// InsertCommitSummaryOnce inserts a CommitSummary row if one does not already
// exist for (userID, repoURL, commitHash). Returns true if a row was
// inserted, false if it already existed (no fields are ever updated after
// first insert).
func (r *Repository) InsertCommitSummaryOnce(ctx context.Context, c CommitSummary) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO app.commit_summaries (
			user_id, repo_url, commit_hash, author_email, message,
			committed_at, files_changed, insertions, deletions
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, repo_url, commit_hash) DO NOTHING`,
		c.UserID, c.RepoURL, c.CommitHash, c.AuthorEmail, c.Message,
		c.CommittedAt, c.FilesChanged, c.Insertions, c.Deletions,
	)
	if err != nil {
		return false, fmt.Errorf("insert commit summary %s: %w", c.CommitHash, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExistingCommitHashes returns the subset of hashes already recorded for
// (userID, repoURL), so the History Miner can filter its mined stream to
// "not already in CommitSummary" before handing records to the Churn
// Aggregator, preventing double-count on overlapping git_mine windows.
func (r *Repository) ExistingCommitHashes(ctx context.Context, userID int64, repoURL string, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT commit_hash FROM app.commit_summaries
		WHERE user_id = $1 AND repo_url = $2 AND commit_hash = ANY($3)`,
		userID, repoURL, hashes,
	)
	if err != nil {
		return nil, fmt.Errorf("existing commit hashes: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool, len(hashes))
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("existing commit hashes: scan: %w", err)
		}
		seen[h] = true
	}
	return seen, rows.Err()
}
