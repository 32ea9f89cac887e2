package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"codeintel-clone/internal/api"
	"codeintel-clone/internal/config"
	"codeintel-clone/internal/eventbus"
	"codeintel-clone/internal/gitcache"
	"codeintel-clone/internal/jobqueue"
	"codeintel-clone/internal/query"
	"codeintel-clone/internal/repository"
	"codeintel-clone/internal/worker"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Initializing codeintel-clone...")
	log.Printf("DB: %s", redactDatabaseURL(cfg.DatabaseURL))
	log.Printf("Cache dir: %s", cfg.CacheDir)
	log.Printf("API Port: %d", cfg.APIPort)

	repo, err := repository.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	if os.Getenv("SKIP_MIGRATION") == "true" {
		log.Println("Database Migration SKIPPED (SKIP_MIGRATION=true)")
	} else {
		terminated, termErr := repo.TerminateIdleConnections(context.Background())
		if termErr != nil {
			log.Printf("Warning: failed to terminate idle connections: %v", termErr)
		} else if terminated > 0 {
			log.Printf("Terminated %d idle connection(s) before migration", terminated)
		}

		log.Println("Running Database Migration...")
		if err := repo.Migrate("internal/repository/schema.sql"); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Database Migration Complete.")
	}

	cache, err := gitcache.New(cfg.CacheDir, repo)
	if err != nil {
		log.Fatalf("Failed to initialize repository cache: %v", err)
	}

	queue := jobqueue.New(repo)
	facade := query.New(repo)
	bus := eventbus.New()
	defer bus.Close()

	engines := worker.NewEngines(cache, repo)
	pool := worker.NewPool(cfg.WorkerCount, queue, engines, cfg.PollInterval, bus)
	sweeper := worker.NewStaleSweeper(queue, cfg.StaleSweepInterval, int(cfg.StaleLeaseThreshold.Seconds()))

	auth := api.NewJWTAuthenticator(cfg.JWTSecret)
	api.BuildCommit = BuildCommit
	server := api.NewServer(queue, facade, bus, auth, repo, strconv.Itoa(cfg.APIPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	sweeper.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting API Server on :%d", cfg.APIPort)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API Server failed: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	cancel()
}

func redactDatabaseURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		if u.User != nil {
			user := u.User.Username()
			if user == "" {
				user = "user"
			}
			u.User = url.UserPassword(user, "****")
		}
		u.RawQuery = ""
		return u.String()
	}

	re := regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/?#]+):([^@]+)@`)
	if re.MatchString(raw) {
		return re.ReplaceAllString(raw, `$1:****@`)
	}
	return raw
}
