package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codeintel-clone/internal/repository"
)

type fakeStore struct {
	calls [][]repository.FileDependency
}

func (f *fakeStore) ReplaceFileDependencies(ctx context.Context, userID int64, repoURL string, edges []repository.FileDependency) error {
	cp := append([]repository.FileDependency(nil), edges...)
	f.calls = append(f.calls, cp)
	return nil
}

// TestBuild_ReplacesWholeEdgeSetInOneCall covers P2: after graph_build
// succeeds for (u, r), the edge set is exactly the set produced by that run,
// written via a single replace call rather than incremental inserts that
// could leave stale edges behind.
func TestBuild_ReplacesWholeEdgeSetInOneCall(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.ts"), `import {x} from "./b";`)
	mustWrite(t, filepath.Join(root, "b.ts"), `export const x = 1;`)

	store := &fakeStore{}
	n, err := Build(context.Background(), store, 1, "repo", root)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 edge, got %d", n)
	}
	if len(store.calls) != 1 {
		t.Fatalf("expected exactly one ReplaceFileDependencies call, got %d", len(store.calls))
	}
	if len(store.calls[0]) != 1 || store.calls[0][0].TargetFile != "b.ts" {
		t.Fatalf("unexpected edge set: %+v", store.calls[0])
	}
}

// TestBuild_EmptyRepoStillReplaces covers the "no stale edges remain" half of
// P2: a run over a repo with no resolvable imports must still call replace
// with an empty set, clearing anything from a prior run.
func TestBuild_EmptyRepoStillReplaces(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.ts"), `export const x = 1;`)

	store := &fakeStore{}
	n, err := Build(context.Background(), store, 1, "repo", root)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 edges, got %d", n)
	}
	if len(store.calls) != 1 {
		t.Fatalf("expected exactly one ReplaceFileDependencies call even with an empty result, got %d", len(store.calls))
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
