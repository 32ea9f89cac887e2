package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"codeintel-clone/internal/churn"
	"codeintel-clone/internal/gitcache"
	"codeintel-clone/internal/historymine"
	"codeintel-clone/internal/repository"
)

// Recomputes FileChurnStat buckets for a repo over an explicit window by
// re-walking the already-cached commit history and re-folding deltas,
// mirroring cmd/tools/backfill_daily_stats's explicit-range recompute shape.
func main() {
	var (
		userID     int64
		repoURL    string
		windowDays int
	)
	flag.Int64Var(&userID, "user-id", 0, "owning user id")
	flag.StringVar(&repoURL, "repo", "", "repo URL to recompute churn for")
	flag.IntVar(&windowDays, "window-days", 90, "lookback window in days")
	flag.Parse()

	if userID <= 0 || repoURL == "" {
		log.Fatal("-user-id and -repo are required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "/var/lib/codeintel-clone/repocache"
	}

	repo, err := repository.NewRepository(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	cache, err := gitcache.New(cacheDir, repo)
	if err != nil {
		log.Fatalf("Failed to init repository cache at %s: %v", cacheDir, err)
	}

	ctx := context.Background()
	started := time.Now()

	handle, err := cache.Open(ctx, repoURL, nil)
	if err != nil {
		log.Fatalf("[backfill_churn] open repo cache: %v", err)
	}
	if err := handle.EnsureFullHistory(ctx); err != nil {
		log.Fatalf("[backfill_churn] ensure full history: %v", err)
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	miner := historymine.New(handle.Dir)
	records, err := miner.Mine(ctx, handle, since)
	if err != nil {
		log.Fatalf("[backfill_churn] mine history: %v", err)
	}
	log.Printf("[backfill_churn] mined %d commit(s) in [%s, now)", len(records), since.Format("2006-01-02"))

	buckets := churn.Fold(records)
	if err := churn.Apply(ctx, repo, userID, repoURL, buckets); err != nil {
		log.Fatalf("[backfill_churn] apply churn buckets: %v", err)
	}

	log.Printf("[backfill_churn] recomputed %d bucket(s) in %s", len(buckets), time.Since(started).Truncate(time.Second))
}
