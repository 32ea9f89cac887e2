// Package gitcache implements the content-addressed local repository cache:
// a directory of bare clones keyed by a hash of the clone URL, opened or
// cloned on demand and kept current with best-effort fetches.
package gitcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"codeintel-clone/internal/apperr"
	"codeintel-clone/internal/gitexec"
	"codeintel-clone/internal/repository"
)

// Credential is an optional per-user Git access token, passed once per
// operation and never written to disk.
type Credential struct {
	Username string
	Token    string
}

// Store is the subset of repository.Repository the cache uses to keep a
// queryable audit trail of clone/fetch outcomes alongside the filesystem
// cache itself.
type Store interface {
	RecordCacheClone(ctx context.Context, fingerprint, repoURL string) error
	RecordCacheFetch(ctx context.Context, fingerprint string, fetchErr error) error
	MarkCacheFullHistory(ctx context.Context, fingerprint string) error
	GetCacheEntry(ctx context.Context, fingerprint string) (*repository.RepoCacheEntry, error)
}

// Cache manages bare clones under a base directory, one per fingerprinted
// clone URL, serializing concurrent access to the same entry.
type Cache struct {
	baseDir string
	store   Store

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New returns a Cache rooted at baseDir, creating the directory if absent.
// store may be nil, in which case clone/fetch outcomes are tracked on disk
// only, with no queryable audit trail.
func New(baseDir string, store Store) (*Cache, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "create cache base dir", err)
	}
	return &Cache{baseDir: baseDir, store: store, locks: make(map[string]*sync.Mutex)}, nil
}

// Entry returns the recorded cache-entry diagnostics for repoURL, or nil if
// the cache has no store attached or has not yet seen this URL.
func (c *Cache) Entry(ctx context.Context, repoURL string) (*repository.RepoCacheEntry, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.GetCacheEntry(ctx, Fingerprint(repoURL))
}

// Fingerprint returns the cache directory name for a clone URL: the first
// 16 hex characters of SHA-256(repoURL).
func Fingerprint(repoURL string) string {
	sum := sha256.Sum256([]byte(repoURL))
	return hex.EncodeToString(sum[:])[:16]
}

// Handle is an open bare clone, ready for tree reads, diffing, and blame.
type Handle struct {
	RepoURL     string
	Fingerprint string
	Dir         string

	cache *Cache
	repo  *git.Repository
	cred  *Credential
}

func (c *Cache) entryLock(fingerprint string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	l, ok := c.locks[fingerprint]
	if !ok {
		l = &sync.Mutex{}
		c.locks[fingerprint] = l
	}
	return l
}

// Open returns a handle over the bare clone for repoURL, cloning (shallow,
// depth 1) if the cache entry does not exist yet, or opening and
// best-effort fetching if it does. Two concurrent Open calls for the same
// URL serialize on a per-entry lock.
func (c *Cache) Open(ctx context.Context, repoURL string, cred *Credential) (*Handle, error) {
	fp := Fingerprint(repoURL)
	lock := c.entryLock(fp)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(c.baseDir, fp)
	h := &Handle{RepoURL: repoURL, Fingerprint: fp, Dir: dir, cache: c, cred: cred}

	if dirNonEmpty(dir) {
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return nil, apperr.Wrap(apperr.RepoUnavailable, "open cached clone", err)
		}
		h.repo = repo
		_ = h.Fetch(ctx) // best-effort, outcome recorded by Fetch itself
		return h, nil
	}

	repo, err := git.PlainCloneContext(ctx, dir, true, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
		Auth:  authMethod(cred),
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, apperr.Wrap(apperr.RepoUnavailable, "clone repository", err)
	}
	h.repo = repo
	if c.store != nil {
		if err := c.store.RecordCacheClone(ctx, fp, repoURL); err != nil {
			log.Printf("gitcache: record clone %s: %v", fp, err)
		}
	}
	return h, nil
}

// Fetch performs a best-effort fetch of the default remote. A clean
// already-up-to-date response is not an error.
func (h *Handle) Fetch(ctx context.Context) error {
	fetchErr := h.repo.FetchContext(ctx, &git.FetchOptions{Auth: authMethod(h.cred)})
	if fetchErr != nil && fetchErr == git.NoErrAlreadyUpToDate {
		fetchErr = nil
	}

	if h.cache.store != nil {
		if err := h.cache.store.RecordCacheFetch(ctx, h.Fingerprint, fetchErr); err != nil {
			log.Printf("gitcache: record fetch %s: %v", h.Fingerprint, err)
		}
	}

	if fetchErr != nil {
		return apperr.Wrap(apperr.RepoUnavailable, "fetch repository", fetchErr)
	}
	return nil
}

// EnsureFullHistory upgrades a shallow cache entry to full history, required
// before a git_mine job can walk the complete commit graph. go-git does not
// cleanly support unshallowing an existing clone, so this shells out to the
// system git binary, the same go-git-first/CLI-fallback shape used for
// diffing in internal/historymine.
func (h *Handle) EnsureFullHistory(ctx context.Context) error {
	runner := gitexec.New(h.Dir)
	if _, err := runner.Run(ctx, "fetch", "--unshallow", "origin"); err != nil {
		if strings.Contains(err.Error(), "already a complete repository") ||
			strings.Contains(err.Error(), "does not make sense") {
			return nil
		}
		return apperr.Wrap(apperr.RepoUnavailable, "unshallow repository", err)
	}

	repo, err := git.PlainOpen(h.Dir)
	if err != nil {
		return apperr.Wrap(apperr.RepoUnavailable, "reopen after unshallow", err)
	}
	h.repo = repo

	if h.cache.store != nil {
		if err := h.cache.store.MarkCacheFullHistory(ctx, h.Fingerprint); err != nil {
			log.Printf("gitcache: mark full history %s: %v", h.Fingerprint, err)
		}
	}
	return nil
}

// Repository exposes the underlying go-git repository for tree/commit walks.
func (h *Handle) Repository() *git.Repository {
	return h.repo
}

// Checkout materializes HEAD's working tree into destDir via a local clone
// of the bare cache entry, for engines (the import extractor) that need
// files on disk rather than git objects. Callers own destDir's lifecycle.
func (h *Handle) Checkout(ctx context.Context, destDir string) error {
	_, err := git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
		URL:   h.Dir,
		Depth: 1,
	})
	if err != nil {
		return apperr.Wrap(apperr.RepoUnavailable, "checkout working tree", err)
	}
	return nil
}

func authMethod(cred *Credential) *http.BasicAuth {
	if cred == nil || cred.Token == "" {
		return nil
	}
	username := cred.Username
	if username == "" {
		username = "oauth2"
	}
	return &http.BasicAuth{Username: username, Password: cred.Token}
}

func dirNonEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}
