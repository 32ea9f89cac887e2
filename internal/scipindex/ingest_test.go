package scipindex

import (
	"context"
	"testing"

	"codeintel-clone/internal/repository"
)

// fakeStore mimics the UPSERT/REPLACE semantics of the repository layer
// closely enough to exercise re-ingest idempotence: documents are keyed by
// relativePath alone (each test uses a single userID and repoURL, so this
// stands in for the (userID, repoURL, relativePath) key) and occurrences are wholesale-replaced per
// document, matching UpsertIndexDocument/ReplaceOccurrences.
type fakeStore struct {
	nextDocID   int64
	docIDs      map[string]int64
	occurrences map[int64][]repository.Occurrence
	symbols     map[string]repository.SymbolInfo
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docIDs:      make(map[string]int64),
		occurrences: make(map[int64][]repository.Occurrence),
		symbols:     make(map[string]repository.SymbolInfo),
	}
}

func (f *fakeStore) UpsertIndexDocument(ctx context.Context, userID int64, repoURL, relativePath, language string) (int64, error) {
	key := relativePath
	if id, ok := f.docIDs[key]; ok {
		return id, nil
	}
	f.nextDocID++
	f.docIDs[key] = f.nextDocID
	return f.nextDocID, nil
}

func (f *fakeStore) ReplaceOccurrences(ctx context.Context, documentID int64, occurrences []repository.Occurrence) error {
	f.occurrences[documentID] = occurrences
	return nil
}

func (f *fakeStore) UpsertSymbolInfo(ctx context.Context, s repository.SymbolInfo) error {
	f.symbols[s.Symbol] = s
	return nil
}

func buildSampleIndex() []byte {
	occ := buildOccurrence("pkg.Foo", [4]int{10, 2, 12, 5}, 1)
	doc := buildDocument("src/foo.go", "go", [][]byte{occ})
	var index []byte
	index = appendMessage(index, fieldIndexDocument, doc)
	return index
}

// TestIngest_ReingestIsIdempotent covers R1: re-ingesting the same binary
// index for the same (u, r) yields the same document, occurrence, and
// symbol row sets, ignoring primary-key values.
func TestIngest_ReingestIsIdempotent(t *testing.T) {
	data := buildSampleIndex()
	store := newFakeStore()
	ctx := context.Background()

	first, err := Ingest(ctx, store, 1, "repo", data)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.DocumentsOK != 1 || first.DocumentsFailed != 0 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	docID := store.docIDs["src/foo.go"]
	firstOccs := append([]repository.Occurrence(nil), store.occurrences[docID]...)

	second, err := Ingest(ctx, store, 1, "repo", data)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.DocumentsOK != 1 || second.DocumentsFailed != 0 {
		t.Fatalf("unexpected second result: %+v", second)
	}

	if len(store.docIDs) != 1 {
		t.Fatalf("expected document to be upserted in place, got %d distinct documents", len(store.docIDs))
	}
	secondOccs := store.occurrences[docID]
	if len(firstOccs) != len(secondOccs) {
		t.Fatalf("occurrence set changed across re-ingest: first=%d second=%d", len(firstOccs), len(secondOccs))
	}
	for i := range firstOccs {
		if firstOccs[i].Symbol != secondOccs[i].Symbol || firstOccs[i].StartLine != secondOccs[i].StartLine {
			t.Fatalf("occurrence %d differs across re-ingest: %+v vs %+v", i, firstOccs[i], secondOccs[i])
		}
	}
}

// TestIngest_MalformedDocumentSkipped covers the "malformed document is
// logged, counted, and skipped; run is not aborted" rule.
func TestIngest_MalformedDocumentSkipped(t *testing.T) {
	good := buildDocument("src/ok.go", "go", nil)
	var badBody []byte // missing relativePath entirely

	var index []byte
	index = appendMessage(index, fieldIndexDocument, good)
	index = appendMessage(index, fieldIndexDocument, badBody)

	store := newFakeStore()
	result, err := Ingest(context.Background(), store, 1, "repo", index)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.DocumentsOK != 1 || result.DocumentsFailed != 1 {
		t.Fatalf("expected 1 ok + 1 failed, got %+v", result)
	}
}

// TestIngest_AllDocumentsMalformed covers the "job must fail when zero
// documents ingest" rule: Ingest itself doesn't fail the run (it never
// aborts on a single bad document), but it must report zero successes so the
// caller can fail the overall job.
func TestIngest_AllDocumentsMalformed(t *testing.T) {
	var badOne, badTwo []byte // both missing relativePath

	var index []byte
	index = appendMessage(index, fieldIndexDocument, badOne)
	index = appendMessage(index, fieldIndexDocument, badTwo)

	store := newFakeStore()
	result, err := Ingest(context.Background(), store, 1, "repo", index)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.DocumentsOK != 0 || result.DocumentsFailed != 2 {
		t.Fatalf("expected 0 ok + 2 failed, got %+v", result)
	}
}
