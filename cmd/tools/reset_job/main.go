package main

import (
	"context"
	"flag"
	"log"
	"os"

	"codeintel-clone/internal/repository"
)

func main() {
	var jobID int64
	flag.Int64Var(&jobID, "job-id", 0, "job id to force back to pending")
	flag.Parse()

	if jobID <= 0 {
		log.Fatal("-job-id is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	repo, err := repository.NewRepository(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	if err := repo.ResetJob(context.Background(), jobID); err != nil {
		log.Fatalf("Failed to reset job %d: %v", jobID, err)
	}
	log.Printf("Job %d reset to pending regardless of its prior status.", jobID)
}
