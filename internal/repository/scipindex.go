package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UpsertIndexDocument upserts an IndexDocument keyed by (userID, repoURL,
// relativePath), updating language, and returns its id.
func (r *Repository) UpsertIndexDocument(ctx context.Context, userID int64, repoURL, relativePath, language string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO app.index_documents (user_id, repo_url, relative_path, language, indexed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, repo_url, relative_path) DO UPDATE SET
			language = EXCLUDED.language,
			indexed_at = EXCLUDED.indexed_at
		RETURNING id`,
		userID, repoURL, relativePath, language,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert index document %s: %w", relativePath, err)
	}
	return id, nil
}

// ReplaceOccurrences deletes existing Occurrence rows for documentID and
// bulk-inserts the new set, inside one transaction per document so a
// malformed document aborts only its own ingest.
func (r *Repository) ReplaceOccurrences(ctx context.Context, documentID int64, occurrences []Occurrence) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace occurrences: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM app.occurrences WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("replace occurrences: delete: %w", err)
	}

	if len(occurrences) > 0 {
		batch := &pgx.Batch{}
		for _, o := range occurrences {
			batch.Queue(`
				INSERT INTO app.occurrences (document_id, symbol, start_line, start_char, end_line, end_char, role_flags)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				documentID, o.Symbol, o.StartLine, o.StartChar, o.EndLine, o.EndChar, o.RoleFlags,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < len(occurrences); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("replace occurrences: insert %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("replace occurrences: close batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// UpsertSymbolInfo upserts a SymbolInfo row, overwriting fields only when
// the incoming value is non-empty (so a later sparse record never clobbers
// a previously-populated field with blank data).
func (r *Repository) UpsertSymbolInfo(ctx context.Context, s SymbolInfo) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO app.symbol_infos (user_id, repo_url, symbol, display_name, signature_doc, documentation)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, repo_url, symbol) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE app.symbol_infos.display_name END,
			signature_doc = CASE WHEN EXCLUDED.signature_doc <> '' THEN EXCLUDED.signature_doc ELSE app.symbol_infos.signature_doc END,
			documentation = CASE WHEN EXCLUDED.documentation <> '' THEN EXCLUDED.documentation ELSE app.symbol_infos.documentation END`,
		s.UserID, s.RepoURL, s.Symbol, s.DisplayName, s.SignatureDoc, s.Documentation,
	)
	if err != nil {
		return fmt.Errorf("upsert symbol info %s: %w", s.Symbol, err)
	}
	return nil
}

// OccurrencesCoveringPosition returns occurrences in relativePath's document
// whose range covers (line, character), ordered by range size ascending so
// the innermost cover is first.
func (r *Repository) OccurrencesCoveringPosition(ctx context.Context, userID int64, repoURL, relativePath string, line, character int) ([]Occurrence, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.document_id, o.symbol, o.start_line, o.start_char, o.end_line, o.end_char, o.role_flags
		FROM app.occurrences o
		JOIN app.index_documents d ON d.id = o.document_id
		WHERE d.user_id = $1 AND d.repo_url = $2 AND d.relative_path = $3
		  AND (o.start_line < $4 OR (o.start_line = $4 AND o.start_char <= $5))
		  AND (o.end_line > $4 OR (o.end_line = $4 AND o.end_char >= $5))
		ORDER BY (o.end_line - o.start_line) ASC, (o.end_char - o.start_char) ASC`,
		userID, repoURL, relativePath, line, character,
	)
	if err != nil {
		return nil, fmt.Errorf("occurrences covering position: %w", err)
	}
	defer rows.Close()

	var occs []Occurrence
	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.DocumentID, &o.Symbol, &o.StartLine, &o.StartChar, &o.EndLine, &o.EndChar, &o.RoleFlags); err != nil {
			return nil, fmt.Errorf("occurrences covering position: scan: %w", err)
		}
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

// OccurrencesBySymbol returns every occurrence of symbol across documents
// owned by (userID, repoURL), ordered by (filePath, startLine).
func (r *Repository) OccurrencesBySymbol(ctx context.Context, userID int64, repoURL, symbol string) ([]struct {
	Occurrence
	RelativePath string
}, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.relative_path, o.document_id, o.symbol, o.start_line, o.start_char, o.end_line, o.end_char, o.role_flags
		FROM app.occurrences o
		JOIN app.index_documents d ON d.id = o.document_id
		WHERE d.user_id = $1 AND d.repo_url = $2 AND o.symbol = $3
		ORDER BY d.relative_path ASC, o.start_line ASC`,
		userID, repoURL, symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("occurrences by symbol: %w", err)
	}
	defer rows.Close()

	var results []struct {
		Occurrence
		RelativePath string
	}
	for rows.Next() {
		var row struct {
			Occurrence
			RelativePath string
		}
		if err := rows.Scan(&row.RelativePath, &row.DocumentID, &row.Symbol, &row.StartLine, &row.StartChar, &row.EndLine, &row.EndChar, &row.RoleFlags); err != nil {
			return nil, fmt.Errorf("occurrences by symbol: scan: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// GetSymbolInfo fetches SymbolInfo by symbol, scoped to (userID, repoURL).
func (r *Repository) GetSymbolInfo(ctx context.Context, userID int64, repoURL, symbol string) (*SymbolInfo, error) {
	var s SymbolInfo
	s.UserID, s.RepoURL, s.Symbol = userID, repoURL, symbol
	err := r.db.QueryRow(ctx, `
		SELECT display_name, signature_doc, documentation
		FROM app.symbol_infos
		WHERE user_id = $1 AND repo_url = $2 AND symbol = $3`,
		userID, repoURL, symbol,
	).Scan(&s.DisplayName, &s.SignatureDoc, &s.Documentation)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get symbol info %s: %w", symbol, err)
	}
	return &s, nil
}
