package depgraph

import (
	"path"
	"runtime"
	"strings"
	"sync"
)

// Edge is a deduplicated, resolved dependency edge.
type Edge struct {
	Source string
	Target string
	Kind   string
}

// resolutionIndex is built once from the full file set, then read-only
// during resolution, mirroring the "build an index, then resolve against
// it" shape used for cross-package call resolution elsewhere in the corpus.
type resolutionIndex struct {
	byPath     map[string]bool   // every in-repo path, exact
	byBaseName map[string]string // basename-without-extension -> first match in enumeration order
}

func buildIndex(files []SourceFile) *resolutionIndex {
	idx := &resolutionIndex{
		byPath:     make(map[string]bool, len(files)),
		byBaseName: make(map[string]string),
	}
	for _, f := range files {
		idx.byPath[f.Path] = true
		base := baseWithoutExt(f.Path)
		if _, ok := idx.byBaseName[base]; !ok {
			idx.byBaseName[base] = f.Path
		}
	}
	return idx
}

func baseWithoutExt(p string) string {
	base := path.Base(p)
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

var indexExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// candidateExtensions lists every RecognizedExtensions entry in a fixed
// order, so extension probing is deterministic.
var candidateExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	".py", ".java", ".kt", ".go", ".rs", ".cs",
	".cpp", ".cc", ".c", ".h", ".hpp",
}

// resolve implements the §4.3 step-4 resolution algorithm: relative
// specifiers are normalized against the source file's directory and tried
// as-is, then with each recognized extension, then with an /index.*
// suffix; absolute specifiers fall back to a last-path-segment basename
// match, ambiguity resolving to the first match in enumeration order.
func resolve(idx *resolutionIndex, sourcePath string, spec Specifier) (string, bool) {
	if spec.Relative {
		sourceDir := path.Dir(sourcePath)
		candidate := path.Clean(path.Join(sourceDir, spec.Value))
		if idx.byPath[candidate] {
			return candidate, true
		}
		for _, ext := range candidateExtensions {
			if idx.byPath[candidate+ext] {
				return candidate + ext, true
			}
		}
		for _, ext := range indexExtensions {
			withIndex := candidate + "/index" + ext
			if idx.byPath[withIndex] {
				return withIndex, true
			}
		}
		return "", false
	}

	lastSegment := spec.Value
	if i := strings.LastIndex(spec.Value, "/"); i >= 0 {
		lastSegment = spec.Value[i+1:]
	}
	if i := strings.LastIndex(lastSegment, "."); i >= 0 {
		lastSegment = lastSegment[:i]
	}
	if target, ok := idx.byBaseName[lastSegment]; ok {
		return target, true
	}
	return "", false
}

// BuildEdges walks files, extracts specifiers per language, resolves them
// against the in-repo path set, and returns the deduplicated, self-loop-free
// edge set ordered by first occurrence. Resolution runs in parallel once the
// candidate specifier count exceeds a threshold, matching the
// build-index-then-resolve-in-parallel shape used elsewhere in the corpus
// for large result sets.
func BuildEdges(files []SourceFile, readSource func(SourceFile) (string, bool)) []Edge {
	idx := buildIndex(files)

	type rawEdge struct {
		source string
		spec   Specifier
	}

	var raw []rawEdge
	for _, f := range files {
		extractor := extractorFor(strings.ToLower(path.Ext(f.Path)))
		if extractor == nil {
			continue
		}
		source, ok := readSource(f)
		if !ok {
			continue
		}
		for _, spec := range extractor(source) {
			raw = append(raw, rawEdge{source: f.Path, spec: spec})
		}
	}

	type resolved struct {
		source string
		target string
		ok     bool
	}

	resolveOne := func(re rawEdge) resolved {
		target, ok := resolve(idx, re.source, re.spec)
		return resolved{source: re.source, target: target, ok: ok}
	}

	var results []resolved
	const parallelThreshold = 1000
	if len(raw) < parallelThreshold {
		results = make([]resolved, len(raw))
		for i, re := range raw {
			results[i] = resolveOne(re)
		}
	} else {
		numWorkers := runtime.NumCPU()
		if numWorkers > 8 {
			numWorkers = 8
		}
		results = make([]resolved, len(raw))
		jobs := make(chan int, len(raw))
		var wg sync.WaitGroup
		for w := 0; w < numWorkers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = resolveOne(raw[i])
				}
			}()
		}
		for i := range raw {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	seen := make(map[string]bool)
	var edges []Edge
	for _, r := range results {
		if !r.ok || r.target == r.source {
			continue
		}
		key := r.source + "\x00" + r.target
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, Edge{Source: r.source, Target: r.target, Kind: "import"})
	}
	return edges
}
