package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"codeintel-clone/internal/gitcache"
	"codeintel-clone/internal/repository"
)

// Benchmarks repository-cache clone and fetch latency against a list of
// repo URLs, mirroring the per-node timing sweep cmd/tools/bench_rpc ran
// against Flow access nodes.
func main() {
	var reposFlag string
	flag.StringVar(&reposFlag, "repos", "", "comma-separated repo URLs to benchmark")
	flag.Parse()

	if reposFlag == "" {
		reposFlag = os.Getenv("BENCH_CLONE_REPOS")
	}
	if reposFlag == "" {
		log.Fatal("-repos or BENCH_CLONE_REPOS is required")
	}

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "/tmp/codeintel-bench-cache"
	}

	// DATABASE_URL is optional here: without it the benchmark still runs, it
	// just can't report the persisted cache-entry audit trail alongside the
	// raw timings.
	var store gitcache.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		repo, err := repository.NewRepository(dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer repo.Close()
		store = repo
	}

	cache, err := gitcache.New(cacheDir, store)
	if err != nil {
		log.Fatalf("Failed to init cache at %s: %v", cacheDir, err)
	}

	ctx := context.Background()
	for _, repoURL := range strings.Split(reposFlag, ",") {
		repoURL = strings.TrimSpace(repoURL)
		if repoURL == "" {
			continue
		}
		runBench(ctx, cache, repoURL)
	}
}

func runBench(ctx context.Context, cache *gitcache.Cache, repoURL string) {
	fmt.Printf("\n========== %s ==========\n", repoURL)

	t0 := time.Now()
	handle, err := cache.Open(ctx, repoURL, nil)
	d1 := time.Since(t0)
	if err != nil {
		fmt.Printf("  Open (clone or reuse): FAIL (%v) [%v]\n", err, d1)
		return
	}
	fmt.Printf("  Open (clone or reuse): OK [%v] fingerprint=%s\n", d1, handle.Fingerprint)

	t0 = time.Now()
	err = handle.Fetch(ctx)
	d2 := time.Since(t0)
	if err != nil {
		fmt.Printf("  Fetch: FAIL (%v) [%v]\n", err, d2)
	} else {
		fmt.Printf("  Fetch: OK [%v]\n", d2)
	}

	tmpDir, err := os.MkdirTemp("", "bench-clone-checkout-*")
	if err != nil {
		fmt.Printf("  Checkout: FAIL creating temp dir: %v\n", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	t0 = time.Now()
	err = handle.Checkout(ctx, tmpDir)
	d3 := time.Since(t0)
	if err != nil {
		fmt.Printf("  Checkout: FAIL (%v) [%v]\n", err, d3)
	} else {
		fmt.Printf("  Checkout: OK [%v]\n", d3)
	}

	entry, err := cache.Entry(ctx, repoURL)
	if err != nil {
		fmt.Printf("  Cache entry: FAIL (%v)\n", err)
	} else if entry != nil {
		fmt.Printf("  Cache entry: cloned=%s full_history=%v last_fetch_err=%v\n",
			entry.ClonedAt.Format(time.RFC3339), entry.FullHistory, entry.LastFetchErr)
	}
}
