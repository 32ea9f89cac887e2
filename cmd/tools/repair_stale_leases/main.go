package main

import (
	"context"
	"flag"
	"log"
	"os"

	"codeintel-clone/internal/jobqueue"
	"codeintel-clone/internal/repository"
)

// Force-sweeps processing jobs older than the stale threshold back to
// pending, mirroring cmd/tools/repair_indexing_anomalies's
// find-then-repair-and-report shape, here without a worker retry loop since
// a swept job is simply picked up again by the normal pool.
func main() {
	var thresholdSeconds int
	flag.IntVar(&thresholdSeconds, "threshold-seconds", 600, "processing jobs older than this are released back to pending")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	repo, err := repository.NewRepository(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	queue := jobqueue.New(repo)

	swept, err := queue.SweepStale(context.Background(), thresholdSeconds)
	if err != nil {
		log.Fatalf("[repair_stale_leases] sweep failed: %v", err)
	}

	if swept == 0 {
		log.Println("[repair_stale_leases] no stale leases found")
	} else {
		log.Printf("[repair_stale_leases] released %d stale lease(s) back to pending", swept)
	}
}
