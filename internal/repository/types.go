package repository

import "time"

// JobKind identifies which engine a Job dispatches to.
type JobKind string

const (
	JobKindGraphBuild JobKind = "graph_build"
	JobKindGitMine    JobKind = "git_mine"
	JobKindScipIndex  JobKind = "scip_index"
)

// JobStatus is the single-row status machine a Job moves through.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// Job is a unit of work enqueued by the HTTP surface and claimed by a worker.
type Job struct {
	ID          int64
	UserID      int64
	RepoURL     string
	Kind        JobKind
	Status      JobStatus
	PayloadPath *string
	Payload     *string
	ErrorMsg    *string
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// FileDependency is a directed edge of the import graph.
type FileDependency struct {
	UserID     int64
	RepoURL    string
	SourceFile string
	TargetFile string
	Kind       string
}

// CommitSummary is a single mined commit recorded once per (user, repo, hash).
type CommitSummary struct {
	UserID       int64
	RepoURL      string
	CommitHash   string
	AuthorEmail  string
	Message      string
	CommittedAt  time.Time
	FilesChanged int
	Insertions   int
	Deletions    int
	RecordedAt   time.Time
}

// FileChurnStat is the weekly churn bucket for one file.
type FileChurnStat struct {
	UserID       int64
	RepoURL      string
	FilePath     string
	WeekStart    time.Time
	LinesAdded   int
	LinesDeleted int
	CommitCount  int
	ChurnRate    float64
}

// IndexDocument is one source file ingested from a code-intelligence index.
type IndexDocument struct {
	ID           int64
	UserID       int64
	RepoURL      string
	RelativePath string
	Language     string
	IndexedAt    time.Time
}

// Occurrence is a tagged range within an IndexDocument.
type Occurrence struct {
	DocumentID int64
	Symbol     string
	StartLine  int
	StartChar  int
	EndLine    int
	EndChar    int
	RoleFlags  int
}

// SymbolInfo is cross-document metadata about one symbol.
type SymbolInfo struct {
	UserID        int64
	RepoURL       string
	Symbol        string
	DisplayName   string
	SignatureDoc  string
	Documentation string
}

// RepoCacheEntry is a diagnostic record of a repository cache directory's
// last-known fingerprint and fetch state, supplementing the filesystem
// cache with a queryable audit trail.
type RepoCacheEntry struct {
	Fingerprint  string
	RepoURL      string
	ClonedAt     time.Time
	LastFetchAt  *time.Time
	LastFetchErr *string
	FullHistory  bool
}
