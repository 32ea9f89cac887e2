package depgraph

import "testing"

func sourceSet(paths ...string) []SourceFile {
	files := make([]SourceFile, len(paths))
	for i, p := range paths {
		files[i] = SourceFile{Path: p, Abs: p}
	}
	return files
}

// TestBuildEdges_RelativeImport covers TS-relative import resolution:
// src/a.ts importing "./b" resolves to src/b.ts.
func TestBuildEdges_RelativeImport(t *testing.T) {
	files := sourceSet("src/a.ts", "src/b.ts")
	sources := map[string]string{
		"src/a.ts": `import { thing } from "./b";`,
		"src/b.ts": `export const thing = 1;`,
	}
	edges := BuildEdges(files, func(f SourceFile) (string, bool) {
		s, ok := sources[f.Path]
		return s, ok
	})
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d: %+v", len(edges), edges)
	}
	if edges[0].Source != "src/a.ts" || edges[0].Target != "src/b.ts" {
		t.Fatalf("unexpected edge: %+v", edges[0])
	}
}

// TestBuildEdges_RelativeImportIndexFallback covers resolution of a
// directory import against an index file.
func TestBuildEdges_RelativeImportIndexFallback(t *testing.T) {
	files := sourceSet("src/a.ts", "src/widgets/index.ts")
	sources := map[string]string{
		"src/a.ts":             `import { W } from "./widgets";`,
		"src/widgets/index.ts": `export class W {}`,
	}
	edges := BuildEdges(files, func(f SourceFile) (string, bool) {
		s, ok := sources[f.Path]
		return s, ok
	})
	if len(edges) != 1 || edges[0].Target != "src/widgets/index.ts" {
		t.Fatalf("expected fallback to index.ts, got %+v", edges)
	}
}

// TestBuildEdges_JavaImport covers Java import resolution: a dotted package
// import resolves to the matching basename in the enumerated file set.
func TestBuildEdges_JavaImport(t *testing.T) {
	files := sourceSet("src/main/java/com/acme/Widget.java", "src/main/java/com/acme/App.java")
	sources := map[string]string{
		"src/main/java/com/acme/App.java":    "import com.acme.Widget;\nclass App {}",
		"src/main/java/com/acme/Widget.java": "package com.acme;\nclass Widget {}",
	}
	edges := BuildEdges(files, func(f SourceFile) (string, bool) {
		s, ok := sources[f.Path]
		return s, ok
	})
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d: %+v", len(edges), edges)
	}
	if edges[0].Source != "src/main/java/com/acme/App.java" || edges[0].Target != "src/main/java/com/acme/Widget.java" {
		t.Fatalf("unexpected edge: %+v", edges[0])
	}
}

// TestBuildEdges_DropsSelfLoop ensures an import resolving to its own file
// (e.g. a self-referential re-export) never produces an edge.
func TestBuildEdges_DropsSelfLoop(t *testing.T) {
	files := sourceSet("src/a.ts")
	sources := map[string]string{
		"src/a.ts": `import { x } from "./a";`,
	}
	edges := BuildEdges(files, func(f SourceFile) (string, bool) {
		s, ok := sources[f.Path]
		return s, ok
	})
	if len(edges) != 0 {
		t.Fatalf("expected no self-loop edges, got %+v", edges)
	}
}

// TestBuildEdges_DedupesRepeatedImport ensures two import statements between
// the same pair of files collapse to a single edge.
func TestBuildEdges_DedupesRepeatedImport(t *testing.T) {
	files := sourceSet("src/a.ts", "src/b.ts")
	sources := map[string]string{
		"src/a.ts": "import { one } from \"./b\";\nimport { two } from \"./b\";",
		"src/b.ts": "export const one = 1; export const two = 2;",
	}
	edges := BuildEdges(files, func(f SourceFile) (string, bool) {
		s, ok := sources[f.Path]
		return s, ok
	})
	if len(edges) != 1 {
		t.Fatalf("expected deduped single edge, got %d: %+v", len(edges), edges)
	}
}

// TestBuildEdges_UnresolvableImportDropped covers a relative import that
// matches nothing in the enumerated set: it must not produce an edge.
func TestBuildEdges_UnresolvableImportDropped(t *testing.T) {
	files := sourceSet("src/a.ts")
	sources := map[string]string{
		"src/a.ts": `import { x } from "./missing";`,
	}
	edges := BuildEdges(files, func(f SourceFile) (string, bool) {
		s, ok := sources[f.Path]
		return s, ok
	})
	if len(edges) != 0 {
		t.Fatalf("expected no edges for unresolvable import, got %+v", edges)
	}
}
