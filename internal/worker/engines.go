package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"codeintel-clone/internal/apperr"
	"codeintel-clone/internal/churn"
	"codeintel-clone/internal/depgraph"
	"codeintel-clone/internal/gitcache"
	"codeintel-clone/internal/historymine"
	"codeintel-clone/internal/repository"
	"codeintel-clone/internal/scipindex"
)

// Repository is the subset of repository.Repository the engines need,
// narrowed across depgraph.Store, churn.Store, and scipindex.Store.
type Repository interface {
	depgraph.Store
	scipindex.Store
	churn.Store
	ExistingCommitHashes(ctx context.Context, userID int64, repoURL string, hashes []string) (map[string]bool, error)
	InsertCommitSummaryOnce(ctx context.Context, c repository.CommitSummary) (bool, error)
}

// Engines wires the three job kinds (graph_build, git_mine, scip_index) to
// their respective packages, implementing worker.Dispatcher.
type Engines struct {
	cache *gitcache.Cache
	store Repository
}

// NewEngines returns a Dispatcher backed by cache and store.
func NewEngines(cache *gitcache.Cache, store Repository) *Engines {
	return &Engines{cache: cache, store: store}
}

// Dispatch routes job to the engine matching its kind.
func (e *Engines) Dispatch(ctx context.Context, job *repository.Job) error {
	switch job.Kind {
	case repository.JobKindGraphBuild:
		return e.dispatchGraphBuild(ctx, job)
	case repository.JobKindGitMine:
		return e.dispatchGitMine(ctx, job)
	case repository.JobKindScipIndex:
		return e.dispatchScipIndex(ctx, job)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (e *Engines) dispatchGraphBuild(ctx context.Context, job *repository.Job) error {
	handle, err := e.cache.Open(ctx, job.RepoURL, nil)
	if err != nil {
		return fmt.Errorf("open repo cache: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "graph-build-*")
	if err != nil {
		return fmt.Errorf("create checkout dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := handle.Checkout(ctx, tmpDir); err != nil {
		return fmt.Errorf("checkout working tree: %w", err)
	}

	n, err := depgraph.Build(ctx, e.store, job.UserID, job.RepoURL, tmpDir)
	if err != nil {
		return fmt.Errorf("build dependency graph: %w", err)
	}
	log.Printf("graph_build job %d: wrote %d edge(s) for %s", job.ID, n, job.RepoURL)
	return nil
}

// gitMinePayload is the optional JSON payload for a git_mine job.
type gitMinePayload struct {
	WindowDays int `json:"windowDays"`
}

const defaultGitMineWindowDays = 90

func (e *Engines) dispatchGitMine(ctx context.Context, job *repository.Job) error {
	handle, err := e.cache.Open(ctx, job.RepoURL, nil)
	if err != nil {
		return fmt.Errorf("open repo cache: %w", err)
	}
	if err := handle.EnsureFullHistory(ctx); err != nil {
		return fmt.Errorf("ensure full history: %w", err)
	}

	windowDays := defaultGitMineWindowDays
	if job.Payload != nil && *job.Payload != "" {
		var p gitMinePayload
		if err := json.Unmarshal([]byte(*job.Payload), &p); err == nil && p.WindowDays > 0 {
			windowDays = p.WindowDays
		}
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	miner := historymine.New(handle.Dir)
	records, err := miner.Mine(ctx, handle, since)
	if err != nil {
		return fmt.Errorf("mine history: %w", err)
	}

	newRecords, err := e.recordNewCommits(ctx, job.UserID, job.RepoURL, records)
	if err != nil {
		return fmt.Errorf("record commit summaries: %w", err)
	}

	buckets := churn.Fold(newRecords)
	if err := churn.Apply(ctx, e.store, job.UserID, job.RepoURL, buckets); err != nil {
		return fmt.Errorf("apply churn buckets: %w", err)
	}
	return nil
}

// recordNewCommits upserts a CommitSummary exactly once per commit hash and
// returns only the records that were newly inserted, since churn deltas for
// an already-recorded commit were already folded into the stored buckets by
// the run that first inserted it. ExistingCommitHashes batch-filters the
// common case (a re-run over an overlapping window, mostly already-seen
// commits) before falling through to InsertCommitSummaryOnce's per-row
// conflict check, which remains the source of truth against a concurrent
// insert of the same hash.
func (e *Engines) recordNewCommits(ctx context.Context, userID int64, repoURL string, records []historymine.CommitRecord) ([]historymine.CommitRecord, error) {
	hashes := make([]string, len(records))
	for i, rec := range records {
		hashes[i] = rec.Hash
	}
	alreadySeen, err := e.store.ExistingCommitHashes(ctx, userID, repoURL, hashes)
	if err != nil {
		return nil, err
	}

	var fresh []historymine.CommitRecord
	for _, rec := range records {
		if alreadySeen[rec.Hash] {
			continue
		}

		filesChanged := len(rec.Deltas)
		insertions, deletions := 0, 0
		for _, d := range rec.Deltas {
			insertions += d.Added
			deletions += d.Deleted
		}

		inserted, err := e.store.InsertCommitSummaryOnce(ctx, repository.CommitSummary{
			UserID:       userID,
			RepoURL:      repoURL,
			CommitHash:   rec.Hash,
			AuthorEmail:  rec.AuthorEmail,
			Message:      rec.Message,
			CommittedAt:  rec.AuthoredAt,
			FilesChanged: filesChanged,
			Insertions:   insertions,
			Deletions:    deletions,
		})
		if err != nil {
			return nil, err
		}
		if inserted {
			fresh = append(fresh, rec)
		}
	}
	return fresh, nil
}

func (e *Engines) dispatchScipIndex(ctx context.Context, job *repository.Job) error {
	if job.PayloadPath == nil || *job.PayloadPath == "" {
		return fmt.Errorf("scip_index job %d missing payload_path", job.ID)
	}
	data, err := os.ReadFile(*job.PayloadPath)
	if err != nil {
		return fmt.Errorf("read index file: %w", err)
	}

	result, err := scipindex.Ingest(ctx, e.store, job.UserID, job.RepoURL, data)
	if err != nil {
		return fmt.Errorf("ingest index: %w", err)
	}
	if result.DocumentsFailed > 0 {
		log.Printf("scip_index job %d: %d document(s) malformed, %d ingested", job.ID, result.DocumentsFailed, result.DocumentsOK)
	}
	if result.DocumentsOK == 0 && result.DocumentsFailed > 0 {
		return apperr.Wrap(apperr.IndexMalformed, fmt.Sprintf("scip_index job %d: every document malformed", job.ID), nil)
	}
	return nil
}
