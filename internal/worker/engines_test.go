package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"codeintel-clone/internal/apperr"
	"codeintel-clone/internal/historymine"
	"codeintel-clone/internal/repository"
)

// fakeRepo implements worker.Repository with an in-memory commit-hash set,
// enough to exercise recordNewCommits' dedup behavior without a database.
type fakeRepo struct {
	seen map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{seen: make(map[string]bool)}
}

func (f *fakeRepo) ReplaceFileDependencies(ctx context.Context, userID int64, repoURL string, edges []repository.FileDependency) error {
	return nil
}
func (f *fakeRepo) UpsertIndexDocument(ctx context.Context, userID int64, repoURL, relativePath, language string) (int64, error) {
	return 0, nil
}
func (f *fakeRepo) ReplaceOccurrences(ctx context.Context, documentID int64, occurrences []repository.Occurrence) error {
	return nil
}
func (f *fakeRepo) UpsertSymbolInfo(ctx context.Context, s repository.SymbolInfo) error { return nil }
func (f *fakeRepo) UpsertChurnBucket(ctx context.Context, userID int64, repoURL, filePath, weekStart string, addedDelta, deletedDelta, commitDelta int) error {
	return nil
}
func (f *fakeRepo) ExistingCommitHashes(ctx context.Context, userID int64, repoURL string, hashes []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, h := range hashes {
		if f.seen[h] {
			out[h] = true
		}
	}
	return out, nil
}
func (f *fakeRepo) InsertCommitSummaryOnce(ctx context.Context, c repository.CommitSummary) (bool, error) {
	if f.seen[c.CommitHash] {
		return false, nil
	}
	f.seen[c.CommitHash] = true
	return true, nil
}

// TestRecordNewCommits_SkipsAlreadySeenHashes covers R2: re-running over an
// overlapping window does not insert duplicate CommitSummary rows and does
// not re-count already-observed commits in churn.
func TestRecordNewCommits_SkipsAlreadySeenHashes(t *testing.T) {
	repo := newFakeRepo()
	e := NewEngines(nil, repo)
	ctx := context.Background()

	record := historymine.CommitRecord{
		Hash:       "abc123",
		AuthoredAt: time.Now(),
		Deltas:     []historymine.FileDelta{{FilePath: "a.go", Added: 5, Deleted: 1}},
	}

	first, err := e.recordNewCommits(ctx, 1, "repo", []historymine.CommitRecord{record})
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 fresh commit on first pass, got %d", len(first))
	}

	// Simulate a re-run over an overlapping window: the same commit appears
	// again, alongside a genuinely new one.
	second, err := e.recordNewCommits(ctx, 1, "repo", []historymine.CommitRecord{
		record,
		{Hash: "def456", AuthoredAt: time.Now(), Deltas: []historymine.FileDelta{{FilePath: "b.go", Added: 2, Deleted: 0}}},
	})
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(second) != 1 || second[0].Hash != "def456" {
		t.Fatalf("expected only the new commit to be fresh on the second pass, got %+v", second)
	}
}

// TestDispatchScipIndex_AllDocumentsMalformedFails covers spec.md §4.6: a
// scip_index job where every document is malformed must fail rather than be
// marked done. The payload here is two well-formed "document" wire fields
// (tag 0x1A = field 3, wireBytes) each with an empty body, which decodes to
// a Document missing relativePath and so is rejected by ingestDocument.
func TestDispatchScipIndex_AllDocumentsMalformedFails(t *testing.T) {
	f, err := os.CreateTemp("", "scip-payload-*")
	if err != nil {
		t.Fatalf("create temp payload: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte{0x1A, 0x00, 0x1A, 0x00}); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	f.Close()

	path := f.Name()
	job := &repository.Job{ID: 1, UserID: 1, RepoURL: "repo", Kind: repository.JobKindScipIndex, PayloadPath: &path}

	e := NewEngines(nil, newFakeRepo())
	err = e.Dispatch(context.Background(), job)
	if err == nil {
		t.Fatal("expected an error when every document is malformed, got nil")
	}
	if !apperr.Is(err, apperr.IndexMalformed) {
		t.Fatalf("expected error classified as apperr.IndexMalformed, got %v", err)
	}
}
