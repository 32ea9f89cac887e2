package scipindex

import (
	"context"
	"fmt"
	"log"

	"codeintel-clone/internal/repository"
)

// Store is the subset of repository.Repository the ingester needs.
type Store interface {
	UpsertIndexDocument(ctx context.Context, userID int64, repoURL, relativePath, language string) (int64, error)
	ReplaceOccurrences(ctx context.Context, documentID int64, occurrences []repository.Occurrence) error
	UpsertSymbolInfo(ctx context.Context, s repository.SymbolInfo) error
}

// Result summarizes one ingest run.
type Result struct {
	DocumentsOK     int
	DocumentsFailed int
}

// Ingest parses data as an Index message and projects every Document and
// ExternalSymbol into the index tables for (userID, repoURL). A malformed
// document is logged, counted, and skipped; it does not abort the run.
func Ingest(ctx context.Context, store Store, userID int64, repoURL string, data []byte) (Result, error) {
	idx, err := ParseIndex(data)
	if err != nil {
		return Result{}, fmt.Errorf("scipindex: ingest: %w", err)
	}

	var result Result
	for i, body := range idx.DocumentBodies {
		if err := ingestDocument(ctx, store, userID, repoURL, body); err != nil {
			log.Printf("scipindex: document %d malformed, skipping: %v", i, err)
			result.DocumentsFailed++
			continue
		}
		result.DocumentsOK++
	}

	for _, ext := range idx.ExternalSymbols {
		if ext.Symbol == "" {
			continue
		}
		if err := store.UpsertSymbolInfo(ctx, repository.SymbolInfo{
			UserID:        userID,
			RepoURL:       repoURL,
			Symbol:        ext.Symbol,
			DisplayName:   ext.DisplayName,
			Documentation: ext.Documentation,
		}); err != nil {
			log.Printf("scipindex: external symbol %q failed, skipping: %v", ext.Symbol, err)
		}
	}

	return result, nil
}

// ingestDocument decodes and persists one Document inside its own logical
// unit of work: UpsertIndexDocument, ReplaceOccurrences, and any inline
// SymbolInfo upserts. Each repository call is already transactional at the
// statement or batch level; a failure partway through still isolates to
// this document, since nothing here touches another document's rows.
func ingestDocument(ctx context.Context, store Store, userID int64, repoURL string, body []byte) error {
	doc, err := DecodeDocument(body)
	if err != nil {
		return err
	}
	if doc.RelativePath == "" {
		return fmt.Errorf("document missing relativePath")
	}

	docID, err := store.UpsertIndexDocument(ctx, userID, repoURL, doc.RelativePath, doc.Language)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.RelativePath, err)
	}

	occs := make([]repository.Occurrence, 0, len(doc.Occurrences))
	for _, o := range doc.Occurrences {
		occs = append(occs, repository.Occurrence{
			DocumentID: docID,
			Symbol:     o.Symbol,
			StartLine:  o.Range.StartLine,
			StartChar:  o.Range.StartChar,
			EndLine:    o.Range.EndLine,
			EndChar:    o.Range.EndChar,
			RoleFlags:  o.RoleFlags,
		})
	}
	if err := store.ReplaceOccurrences(ctx, docID, occs); err != nil {
		return fmt.Errorf("replace occurrences for %s: %w", doc.RelativePath, err)
	}

	for _, s := range doc.Symbols {
		if s.Symbol == "" {
			continue
		}
		if err := store.UpsertSymbolInfo(ctx, repository.SymbolInfo{
			UserID:        userID,
			RepoURL:       repoURL,
			Symbol:        s.Symbol,
			DisplayName:   s.DisplayName,
			Documentation: s.Documentation,
		}); err != nil {
			return fmt.Errorf("upsert inline symbol %s: %w", s.Symbol, err)
		}
	}

	return nil
}
