// Package historymine walks a cached repository's commit graph and produces
// per-file line-change deltas for the Churn Aggregator, plus one
// CommitSummary row per commit.
package historymine

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"codeintel-clone/internal/apperr"
	"codeintel-clone/internal/gitexec"
)

// emptyTreeHash is git's well-known hash of the empty tree, used as the
// diff base for root commits.
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// FileDelta is one file's line-change contribution within a single commit.
type FileDelta struct {
	FilePath string
	Added    int
	Deleted  int
}

// CommitRecord is one mined commit: its summary fields plus the per-file
// deltas feeding the Churn Aggregator.
type CommitRecord struct {
	Hash        string
	AuthorEmail string
	Message     string
	AuthoredAt  time.Time
	Deltas      []FileDelta
}

// Repository is the subset of a gitcache.Handle the miner needs.
type Repository interface {
	Repository() *git.Repository
}

// Miner walks commit history via go-git and computes first-parent diffs via
// the system git binary, since go-git's object-diff API has no equivalent of
// git's rename detection or whitespace-insensitive comparison.
type Miner struct {
	runner *gitexec.Runner
}

// New returns a Miner that shells diffs out against repoDir.
func New(repoDir string) *Miner {
	return &Miner{runner: gitexec.New(repoDir)}
}

// Mine walks commits reachable from HEAD whose author time falls within
// [since, now], returning one CommitRecord per commit, ordered by descending
// commit time. The aggregator consuming these records is commutative, so
// this order is for convenience only, not a correctness requirement.
func (m *Miner) Mine(ctx context.Context, repo Repository, since time.Time) ([]CommitRecord, error) {
	head, err := repo.Repository().Head()
	if err != nil {
		return nil, apperr.Wrap(apperr.RepoUnavailable, "resolve head", err)
	}

	commitIter, err := repo.Repository().Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.RepoUnavailable, "walk commit log", err)
	}
	defer commitIter.Close()

	var records []CommitRecord
	err = commitIter.ForEach(func(c *object.Commit) error {
		if c.Author.When.Before(since) {
			return nil
		}

		base := emptyTreeHash
		if c.NumParents() > 0 {
			parent, perr := c.Parent(0)
			if perr != nil {
				return fmt.Errorf("resolve first parent of %s: %w", c.Hash.String(), perr)
			}
			base = parent.Hash.String()
		}

		deltas, derr := m.diffNumstat(ctx, base, c.Hash.String())
		if derr != nil {
			return fmt.Errorf("diff commit %s: %w", c.Hash.String(), derr)
		}

		records = append(records, CommitRecord{
			Hash:        c.Hash.String(),
			AuthorEmail: c.Author.Email,
			Message:     c.Message,
			AuthoredAt:  c.Author.When.UTC(),
			Deltas:      deltas,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// diffNumstat runs `git diff --numstat` with rename detection enabled and
// whitespace-only changes ignored, between base and head, and returns one
// FileDelta per non-empty, non-binary file.
func (m *Miner) diffNumstat(ctx context.Context, base, head string) ([]FileDelta, error) {
	out, err := m.runner.Run(ctx, "diff", "--numstat", "-M", "--ignore-all-space", base, head)
	if err != nil {
		return nil, err
	}

	var deltas []FileDelta
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		if fields[0] == "-" || fields[1] == "-" {
			// Binary file; numstat reports "-" for both counts.
			continue
		}
		added, aerr := strconv.Atoi(fields[0])
		deleted, derr := strconv.Atoi(fields[1])
		if aerr != nil || derr != nil {
			continue
		}
		if added+deleted == 0 {
			continue
		}
		deltas = append(deltas, FileDelta{
			FilePath: canonicalRenamePath(fields[2]),
			Added:    added,
			Deleted:  deleted,
		})
	}
	return deltas, scanner.Err()
}

// canonicalRenamePath extracts the post-rename path from a numstat path
// field, which may be a plain path, an "old => new" full rename, or a
// "common/{old => new}/suffix" partial rename.
func canonicalRenamePath(raw string) string {
	if !strings.Contains(raw, "=>") {
		return raw
	}
	if i := strings.Index(raw, "{"); i >= 0 {
		j := strings.Index(raw, "}")
		if j > i {
			prefix := raw[:i]
			suffix := raw[j+1:]
			inner := raw[i+1 : j]
			parts := strings.SplitN(inner, "=>", 2)
			if len(parts) == 2 {
				return prefix + strings.TrimSpace(parts[1]) + suffix
			}
		}
	}
	parts := strings.SplitN(raw, "=>", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1])
	}
	return raw
}
