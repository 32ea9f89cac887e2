// Package query implements the five read operations exposed over the
// indexed data: hover, references, repo graph, hotspots, and file trend.
// Every operation is scoped by (userID, repoURL); none cross user
// boundaries.
package query

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"codeintel-clone/internal/repository"
)

// Store is the subset of repository.Repository the facade reads from.
type Store interface {
	OccurrencesCoveringPosition(ctx context.Context, userID int64, repoURL, relativePath string, line, character int) ([]repository.Occurrence, error)
	GetSymbolInfo(ctx context.Context, userID int64, repoURL, symbol string) (*repository.SymbolInfo, error)
	OccurrencesBySymbol(ctx context.Context, userID int64, repoURL, symbol string) ([]struct {
		repository.Occurrence
		RelativePath string
	}, error)
	ListFileDependencies(ctx context.Context, userID int64, repoURL string) ([]repository.FileDependency, error)
	OutgoingDependencies(ctx context.Context, userID int64, repoURL, sourceFile string) ([]repository.FileDependency, error)
	Hotspots(ctx context.Context, userID int64, repoURL string, windowWeeks int, threshold float64) ([]repository.FileChurnStat, error)
	FileTrend(ctx context.Context, userID int64, repoURL, filePath string, windowWeeks int) ([]repository.FileChurnStat, error)
}

// Facade wraps Store with the read-side query shapes.
type Facade struct {
	store Store
}

// New returns a Facade backed by store.
func New(store Store) *Facade {
	return &Facade{store: store}
}

// HoverResult is the occurrence/symbol pair found at a position, if any.
type HoverResult struct {
	Occurrence repository.Occurrence
	Symbol     *repository.SymbolInfo
}

// Hover returns the innermost occurrence covering (line, character) in
// relativePath, joined to its SymbolInfo, or nil if nothing covers it.
func (f *Facade) Hover(ctx context.Context, userID int64, repoURL, relativePath string, line, character int) (*HoverResult, error) {
	occs, err := f.store.OccurrencesCoveringPosition(ctx, userID, repoURL, relativePath, line, character)
	if err != nil {
		return nil, fmt.Errorf("hover: %w", err)
	}
	if len(occs) == 0 {
		return nil, nil
	}
	occ := occs[0] // already ordered innermost-first by the repository layer

	sym, err := f.store.GetSymbolInfo(ctx, userID, repoURL, occ.Symbol)
	if err != nil {
		return nil, fmt.Errorf("hover: symbol info: %w", err)
	}
	return &HoverResult{Occurrence: occ, Symbol: sym}, nil
}

// Reference is one occurrence of a symbol, with its owning file.
type Reference struct {
	RelativePath string
	Occurrence   repository.Occurrence
}

// References returns every occurrence of symbol, ordered by (filePath, startLine).
func (f *Facade) References(ctx context.Context, userID int64, repoURL, symbol string) ([]Reference, error) {
	rows, err := f.store.OccurrencesBySymbol(ctx, userID, repoURL, symbol)
	if err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}
	refs := make([]Reference, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, Reference{RelativePath: r.RelativePath, Occurrence: r.Occurrence})
	}
	return refs, nil
}

// GraphNode is one file in the repo graph result.
type GraphNode struct {
	ID       string
	Label    string
	Path     string
	Language string
}

// GraphEdge is one dependency edge in the repo graph result.
type GraphEdge struct {
	ID      string
	From    string
	To      string
	Kind    string
	IsCycle bool
}

// Graph is the language-neutral repo graph result.
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// slugID turns a file path into a stable node id.
func slugID(filePath string) string {
	return nonAlnum.ReplaceAllString(filePath, "_")
}

var extLanguage = map[string]string{
	".ts": "typescript", ".tsx": "typescript", ".js": "javascript", ".jsx": "javascript",
	".mjs": "javascript", ".cjs": "javascript", ".py": "python", ".java": "java",
	".kt": "kotlin", ".go": "go", ".rs": "rust", ".cs": "csharp",
	".cpp": "cpp", ".cc": "cpp", ".c": "c", ".h": "c", ".hpp": "cpp",
}

func languageFor(filePath string) string {
	if lang, ok := extLanguage[strings.ToLower(path.Ext(filePath))]; ok {
		return lang
	}
	return "unknown"
}

// Graph returns the full edge set if rootFile is empty, or a BFS from
// rootFile over outgoing edges up to depth otherwise, marking edges that
// close a cycle back to an already-visited node.
func (f *Facade) Graph(ctx context.Context, userID int64, repoURL, rootFile string, depth int) (*Graph, error) {
	if rootFile == "" {
		return f.fullGraph(ctx, userID, repoURL)
	}
	return f.bfsGraph(ctx, userID, repoURL, rootFile, depth)
}

func (f *Facade) fullGraph(ctx context.Context, userID int64, repoURL string) (*Graph, error) {
	edges, err := f.store.ListFileDependencies(ctx, userID, repoURL)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return buildGraph(edges, nil), nil
}

func (f *Facade) bfsGraph(ctx context.Context, userID int64, repoURL, rootFile string, depth int) (*Graph, error) {
	if depth <= 0 {
		depth = 20
	}
	visited := map[string]bool{rootFile: true}
	var edges []repository.FileDependency

	frontier := []string{rootFile}
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, node := range frontier {
			outgoing, err := f.store.OutgoingDependencies(ctx, userID, repoURL, node)
			if err != nil {
				return nil, fmt.Errorf("graph: bfs: %w", err)
			}
			for _, e := range outgoing {
				edges = append(edges, e)
				if !visited[e.TargetFile] {
					visited[e.TargetFile] = true
					next = append(next, e.TargetFile)
				}
			}
		}
		frontier = next
	}

	return buildGraph(edges, visited), nil
}

// buildGraph assembles nodes and edges from a flat edge list, marking an
// edge as closing a cycle when its target was already visited before the
// edge itself was traversed (i.e. it points back into the explored set
// rather than extending the frontier). seenOrder, when non-nil, restricts
// node membership to that explored set (the BFS case); nil means "every
// file mentioned in edges is a node" (the full-graph case).
func buildGraph(edges []repository.FileDependency, seenOrder map[string]bool) *Graph {
	nodeSet := make(map[string]bool)
	firstSeenAt := make(map[string]int)
	var orderedEdges []repository.FileDependency

	for i, e := range edges {
		if seenOrder != nil {
			if !seenOrder[e.SourceFile] && !seenOrder[e.TargetFile] {
				continue
			}
		}
		orderedEdges = append(orderedEdges, e)
		if !nodeSet[e.SourceFile] {
			nodeSet[e.SourceFile] = true
			firstSeenAt[e.SourceFile] = i
		}
		if !nodeSet[e.TargetFile] {
			nodeSet[e.TargetFile] = true
			firstSeenAt[e.TargetFile] = i
		}
	}

	nodeNames := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodeNames = append(nodeNames, n)
	}
	sort.Strings(nodeNames)

	nodes := make([]GraphNode, 0, len(nodeNames))
	for _, n := range nodeNames {
		nodes = append(nodes, GraphNode{
			ID:       slugID(n),
			Label:    path.Base(n),
			Path:     n,
			Language: languageFor(n),
		})
	}

	visitedSoFar := make(map[string]bool)
	graphEdges := make([]GraphEdge, 0, len(orderedEdges))
	for i, e := range orderedEdges {
		isCycle := visitedSoFar[e.TargetFile]
		visitedSoFar[e.SourceFile] = true
		graphEdges = append(graphEdges, GraphEdge{
			ID:      fmt.Sprintf("e%d", i),
			From:    slugID(e.SourceFile),
			To:      slugID(e.TargetFile),
			Kind:    e.Kind,
			IsCycle: isCycle,
		})
		visitedSoFar[e.TargetFile] = true
	}

	return &Graph{Nodes: nodes, Edges: graphEdges}
}

// HotspotGroup is one file's churn summary across the requested window.
type HotspotGroup struct {
	FilePath     string
	TotalAdded   int
	TotalDeleted int
	TotalCommits int
	AverageChurn float64
	Weekly       []repository.FileChurnStat
}

const hotspotCap = 20

// Hotspots groups the window's above-threshold rows by file, sorted by
// average churn descending, capped at 20 groups.
func (f *Facade) Hotspots(ctx context.Context, userID int64, repoURL string, windowWeeks int, threshold float64) ([]HotspotGroup, error) {
	rows, err := f.store.Hotspots(ctx, userID, repoURL, windowWeeks, threshold)
	if err != nil {
		return nil, fmt.Errorf("hotspots: %w", err)
	}

	order := make([]string, 0)
	groups := make(map[string]*HotspotGroup)
	for _, r := range rows {
		g, ok := groups[r.FilePath]
		if !ok {
			g = &HotspotGroup{FilePath: r.FilePath}
			groups[r.FilePath] = g
			order = append(order, r.FilePath)
		}
		g.TotalAdded += r.LinesAdded
		g.TotalDeleted += r.LinesDeleted
		g.TotalCommits += r.CommitCount
		g.Weekly = append(g.Weekly, r)
	}

	result := make([]HotspotGroup, 0, len(order))
	for _, filePath := range order {
		g := groups[filePath]
		if len(g.Weekly) > 0 {
			var sum float64
			for _, w := range g.Weekly {
				sum += w.ChurnRate
			}
			g.AverageChurn = sum / float64(len(g.Weekly))
		}
		result = append(result, *g)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AverageChurn > result[j].AverageChurn
	})
	if len(result) > hotspotCap {
		result = result[:hotspotCap]
	}
	return result, nil
}

// FileTrend returns weekly churn rows for filePath, ordered by weekStart.
func (f *Facade) FileTrend(ctx context.Context, userID int64, repoURL, filePath string, windowWeeks int) ([]repository.FileChurnStat, error) {
	stats, err := f.store.FileTrend(ctx, userID, repoURL, filePath, windowWeeks)
	if err != nil {
		return nil, fmt.Errorf("file trend: %w", err)
	}
	return stats, nil
}
