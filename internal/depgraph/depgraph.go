package depgraph

import (
	"context"

	"codeintel-clone/internal/repository"
)

// Store is the subset of repository.Repository the builder needs, narrowed
// so this package can be tested without a live database.
type Store interface {
	ReplaceFileDependencies(ctx context.Context, userID int64, repoURL string, edges []repository.FileDependency) error
}

// Build walks root, extracts import specifiers from every recognized file,
// resolves them to in-repo targets, and replaces the stored edge set for
// (userID, repoURL) with the result. It returns the number of edges written.
func Build(ctx context.Context, store Store, userID int64, repoURL, root string) (int, error) {
	files, err := Walk(root)
	if err != nil {
		return 0, err
	}

	edges := BuildEdges(files, func(f SourceFile) (string, bool) {
		return readFileIfSmall(f.Abs)
	})

	rows := make([]repository.FileDependency, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, repository.FileDependency{
			UserID:     userID,
			RepoURL:    repoURL,
			SourceFile: e.Source,
			TargetFile: e.Target,
			Kind:       e.Kind,
		})
	}

	if err := store.ReplaceFileDependencies(ctx, userID, repoURL, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
