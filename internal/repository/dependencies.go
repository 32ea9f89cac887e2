package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReplaceFileDependencies atomically replaces the entire edge set for
// (userID, repoURL): delete-then-insert inside one transaction, so two
// concurrent graph_build runs produce exactly one winner (last commit).
func (r *Repository) ReplaceFileDependencies(ctx context.Context, userID int64, repoURL string, edges []FileDependency) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace file dependencies: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM app.file_dependencies WHERE user_id = $1 AND repo_url = $2`, userID, repoURL)
	if err != nil {
		return fmt.Errorf("replace file dependencies: delete: %w", err)
	}

	if len(edges) > 0 {
		batch := &pgx.Batch{}
		for _, e := range edges {
			kind := e.Kind
			if kind == "" {
				kind = "import"
			}
			batch.Queue(`
				INSERT INTO app.file_dependencies (user_id, repo_url, source_file, target_file, kind)
				VALUES ($1, $2, $3, $4, $5)`,
				userID, repoURL, e.SourceFile, e.TargetFile, kind,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < len(edges); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("replace file dependencies: insert edge %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("replace file dependencies: close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace file dependencies: commit: %w", err)
	}
	return nil
}

// ListFileDependencies returns the full edge set for (userID, repoURL).
func (r *Repository) ListFileDependencies(ctx context.Context, userID int64, repoURL string) ([]FileDependency, error) {
	rows, err := r.db.Query(ctx, `
		SELECT source_file, target_file, kind
		FROM app.file_dependencies
		WHERE user_id = $1 AND repo_url = $2`,
		userID, repoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("list file dependencies: %w", err)
	}
	defer rows.Close()

	var edges []FileDependency
	for rows.Next() {
		e := FileDependency{UserID: userID, RepoURL: repoURL}
		if err := rows.Scan(&e.SourceFile, &e.TargetFile, &e.Kind); err != nil {
			return nil, fmt.Errorf("list file dependencies: scan: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// OutgoingDependencies returns edges whose source is sourceFile, used by the
// graph-of-repo BFS traversal.
func (r *Repository) OutgoingDependencies(ctx context.Context, userID int64, repoURL, sourceFile string) ([]FileDependency, error) {
	rows, err := r.db.Query(ctx, `
		SELECT source_file, target_file, kind
		FROM app.file_dependencies
		WHERE user_id = $1 AND repo_url = $2 AND source_file = $3`,
		userID, repoURL, sourceFile,
	)
	if err != nil {
		return nil, fmt.Errorf("outgoing dependencies: %w", err)
	}
	defer rows.Close()

	var edges []FileDependency
	for rows.Next() {
		e := FileDependency{UserID: userID, RepoURL: repoURL}
		if err := rows.Scan(&e.SourceFile, &e.TargetFile, &e.Kind); err != nil {
			return nil, fmt.Errorf("outgoing dependencies: scan: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
