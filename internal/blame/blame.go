// Package blame computes per-line attribution for a file at the current
// head revision by parsing `git blame --line-porcelain` output.
package blame

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codeintel-clone/internal/apperr"
	"codeintel-clone/internal/gitexec"
)

// Line is one attributed line of a blamed file.
type Line struct {
	LineNo      int
	CommitHash  string
	AuthorEmail string
	CommittedAt time.Time
	Content     string
}

type commitMeta struct {
	authorEmail string
	committedAt time.Time
}

// Blame runs `git blame --line-porcelain` against repoDir (a prior git_mine
// cache entry) for filePath at HEAD. A missing cache directory returns a
// RepoUnavailable error; a file absent from the tree returns an empty slice.
func Blame(ctx context.Context, repoDir, filePath string) ([]Line, error) {
	if _, err := os.Stat(repoDir); err != nil {
		return nil, apperr.Wrap(apperr.RepoUnavailable, "repository not cached", err)
	}

	runner := gitexec.New(repoDir)
	out, err := runner.Run(ctx, "blame", "--line-porcelain", "HEAD", "--", filepath.ToSlash(filePath))
	if err != nil {
		if strings.Contains(err.Error(), "no such path") || strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("blame %s: %w", filePath, err)
	}

	return parsePorcelain(out)
}

func parsePorcelain(output string) ([]Line, error) {
	var lines []Line
	known := make(map[string]*commitMeta)

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var currentHash string
	var currentFinalLine int
	var pending commitMeta

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "\t"):
			meta := known[currentHash]
			if meta == nil {
				meta = &commitMeta{authorEmail: pending.authorEmail, committedAt: pending.committedAt}
				known[currentHash] = meta
			}
			lines = append(lines, Line{
				LineNo:      currentFinalLine,
				CommitHash:  currentHash,
				AuthorEmail: meta.authorEmail,
				CommittedAt: meta.committedAt,
				Content:     strings.TrimPrefix(line, "\t"),
			})
			pending = commitMeta{}
		case isBlameHeader(line):
			fields := strings.Fields(line)
			currentHash = fields[0]
			if len(fields) >= 3 {
				if n, err := strconv.Atoi(fields[2]); err == nil {
					currentFinalLine = n
				}
			}
		case strings.HasPrefix(line, "author-mail "):
			email := strings.TrimPrefix(line, "author-mail ")
			pending.authorEmail = strings.Trim(email, "<>")
		case strings.HasPrefix(line, "committer-time "):
			tsStr := strings.TrimPrefix(line, "committer-time ")
			if ts, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
				pending.committedAt = time.Unix(ts, 0).UTC()
			}
		}
	}
	return lines, scanner.Err()
}

// isBlameHeader matches a porcelain blame header line: a 40-char hex sha
// followed by the original and final line numbers (and optionally a group
// size on the first occurrence of a hunk).
func isBlameHeader(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return false
	}
	if len(fields[0]) != 40 {
		return false
	}
	for _, c := range fields[0] {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isHex {
			return false
		}
	}
	for _, f := range fields[1:] {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}
