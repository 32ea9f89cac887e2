package query

import (
	"context"
	"fmt"
	"testing"

	"codeintel-clone/internal/repository"
)

type fakeStore struct {
	outgoing map[string][]repository.FileDependency
	all      []repository.FileDependency
	hotspots []repository.FileChurnStat
	covering []repository.Occurrence
	symbols  map[string]repository.SymbolInfo

	seenUserIDs []int64
}

func (f *fakeStore) OccurrencesCoveringPosition(ctx context.Context, userID int64, repoURL, relativePath string, line, character int) ([]repository.Occurrence, error) {
	f.seenUserIDs = append(f.seenUserIDs, userID)
	return f.covering, nil
}
func (f *fakeStore) GetSymbolInfo(ctx context.Context, userID int64, repoURL, symbol string) (*repository.SymbolInfo, error) {
	f.seenUserIDs = append(f.seenUserIDs, userID)
	if f.symbols == nil {
		return nil, nil
	}
	sym, ok := f.symbols[symbol]
	if !ok {
		return nil, nil
	}
	return &sym, nil
}
func (f *fakeStore) OccurrencesBySymbol(ctx context.Context, userID int64, repoURL, symbol string) ([]struct {
	repository.Occurrence
	RelativePath string
}, error) {
	f.seenUserIDs = append(f.seenUserIDs, userID)
	return nil, nil
}
func (f *fakeStore) ListFileDependencies(ctx context.Context, userID int64, repoURL string) ([]repository.FileDependency, error) {
	f.seenUserIDs = append(f.seenUserIDs, userID)
	return f.all, nil
}
func (f *fakeStore) OutgoingDependencies(ctx context.Context, userID int64, repoURL, sourceFile string) ([]repository.FileDependency, error) {
	f.seenUserIDs = append(f.seenUserIDs, userID)
	return f.outgoing[sourceFile], nil
}
func (f *fakeStore) Hotspots(ctx context.Context, userID int64, repoURL string, windowWeeks int, threshold float64) ([]repository.FileChurnStat, error) {
	f.seenUserIDs = append(f.seenUserIDs, userID)
	return f.hotspots, nil
}
func (f *fakeStore) FileTrend(ctx context.Context, userID int64, repoURL, filePath string, windowWeeks int) ([]repository.FileChurnStat, error) {
	f.seenUserIDs = append(f.seenUserIDs, userID)
	return nil, nil
}

// TestGraph_BFSMarksCycle covers a->b->c->a: the edge c->a must be marked
// IsCycle since it closes back to an already-visited node.
func TestGraph_BFSMarksCycle(t *testing.T) {
	store := &fakeStore{
		outgoing: map[string][]repository.FileDependency{
			"a.go": {{SourceFile: "a.go", TargetFile: "b.go", Kind: "import"}},
			"b.go": {{SourceFile: "b.go", TargetFile: "c.go", Kind: "import"}},
			"c.go": {{SourceFile: "c.go", TargetFile: "a.go", Kind: "import"}},
		},
	}
	f := New(store)
	g, err := f.Graph(context.Background(), 1, "repo", "a.go", 20)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d: %+v", len(g.Nodes), g.Nodes)
	}
	var cycleEdges int
	for _, e := range g.Edges {
		if e.IsCycle {
			cycleEdges++
			if e.From != slugID("c.go") || e.To != slugID("a.go") {
				t.Fatalf("expected cycle edge c->a, got %+v", e)
			}
		}
	}
	if cycleEdges != 1 {
		t.Fatalf("expected exactly 1 cycle edge, got %d", cycleEdges)
	}
}

// TestHover_ReturnsInnermostFirst covers P4/scenario 5: hover at (4,2) inside
// nested occurrences outer=(1,0)-(10,0) and inner=(3,0)-(5,0) returns inner,
// given the store already orders covers innermost-first (as the repository
// layer's range-size ORDER BY does).
func TestHover_ReturnsInnermostFirst(t *testing.T) {
	inner := repository.Occurrence{Symbol: "inner", StartLine: 3, StartChar: 0, EndLine: 5, EndChar: 0}
	outer := repository.Occurrence{Symbol: "outer", StartLine: 1, StartChar: 0, EndLine: 10, EndChar: 0}
	store := &fakeStore{
		covering: []repository.Occurrence{inner, outer},
		symbols: map[string]repository.SymbolInfo{
			"inner": {Symbol: "inner", DisplayName: "inner"},
		},
	}
	f := New(store)
	res, err := f.Hover(context.Background(), 1, "repo", "x.ts", 4, 2)
	if err != nil {
		t.Fatalf("Hover: %v", err)
	}
	if res == nil || res.Occurrence.Symbol != "inner" {
		t.Fatalf("expected innermost occurrence 'inner', got %+v", res)
	}
	if res.Occurrence.StartLine != 3 || res.Occurrence.EndLine != 5 {
		t.Fatalf("expected range (3,0)-(5,0), got (%d,%d)-(%d,%d)",
			res.Occurrence.StartLine, res.Occurrence.StartChar, res.Occurrence.EndLine, res.Occurrence.EndChar)
	}
	if res.Symbol == nil || res.Symbol.DisplayName != "inner" {
		t.Fatalf("expected symbol info for inner, got %+v", res.Symbol)
	}
}

// TestHover_NoCoverReturnsNil covers the miss path: no occurrence covers the
// position.
func TestHover_NoCoverReturnsNil(t *testing.T) {
	f := New(&fakeStore{})
	res, err := f.Hover(context.Background(), 1, "repo", "x.ts", 0, 0)
	if err != nil {
		t.Fatalf("Hover: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil result on no cover, got %+v", res)
	}
}

// TestFacade_ForwardsCallerUserIDUnmodified covers the facade side of P5:
// every operation must pass the caller's exact userID down to the store,
// which is where the (user_id, repo_url) predicate actually scopes rows.
// A facade that dropped, zeroed, or substituted the caller's userID would
// defeat isolation regardless of what the store enforces.
func TestFacade_ForwardsCallerUserIDUnmodified(t *testing.T) {
	const callerID = int64(42)
	store := &fakeStore{}
	f := New(store)
	ctx := context.Background()

	f.Hover(ctx, callerID, "repo", "x.ts", 0, 0)
	f.References(ctx, callerID, "repo", "sym")
	f.Graph(ctx, callerID, "repo", "", 0)
	f.Graph(ctx, callerID, "repo", "a.go", 1)
	f.Hotspots(ctx, callerID, "repo", 12, 25)
	f.FileTrend(ctx, callerID, "repo", "a.go", 12)

	if len(store.seenUserIDs) == 0 {
		t.Fatalf("expected store to observe userID calls")
	}
	for _, got := range store.seenUserIDs {
		if got != callerID {
			t.Fatalf("facade forwarded userID %d, want caller's %d", got, callerID)
		}
	}
}

func TestSlugID_NonAlnumToUnderscore(t *testing.T) {
	got := slugID("src/pkg-one/file.go")
	want := "src_pkg_one_file_go"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

// TestHotspots_GroupsSortsAndCaps covers grouping by file, averaging churn,
// sorting descending, and the 20-group cap.
func TestHotspots_GroupsSortsAndCaps(t *testing.T) {
	rows := []repository.FileChurnStat{
		{FilePath: "a.go", ChurnRate: 30, LinesAdded: 10, LinesDeleted: 2, CommitCount: 1},
		{FilePath: "a.go", ChurnRate: 50, LinesAdded: 5, LinesDeleted: 1, CommitCount: 1},
		{FilePath: "b.go", ChurnRate: 90, LinesAdded: 20, LinesDeleted: 0, CommitCount: 2},
	}
	f := New(&fakeStore{hotspots: rows})
	groups, err := f.Hotspots(context.Background(), 1, "repo", 12, 25)
	if err != nil {
		t.Fatalf("Hotspots: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].FilePath != "b.go" {
		t.Fatalf("expected b.go first (highest average churn), got %s", groups[0].FilePath)
	}
	if groups[1].AverageChurn != 40 {
		t.Fatalf("expected a.go average churn 40, got %f", groups[1].AverageChurn)
	}

	many := make([]repository.FileChurnStat, 0, 25)
	for i := 0; i < 25; i++ {
		many = append(many, repository.FileChurnStat{FilePath: fmt.Sprintf("f%02d.go", i), ChurnRate: float64(30 + i)})
	}
	capped, err := New(&fakeStore{hotspots: many}).Hotspots(context.Background(), 1, "repo", 12, 25)
	if err != nil {
		t.Fatalf("Hotspots: %v", err)
	}
	if len(capped) != 20 {
		t.Fatalf("expected 25 groups capped to 20, got %d", len(capped))
	}
}
