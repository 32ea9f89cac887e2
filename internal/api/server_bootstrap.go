package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"codeintel-clone/internal/eventbus"
	"codeintel-clone/internal/jobqueue"
	"codeintel-clone/internal/query"
	"codeintel-clone/internal/repository"

	"github.com/gorilla/mux"
)

// BuildCommit is set by main to the git commit hash baked in at build time.
var BuildCommit = "dev"

// CacheStatsReader is the subset of repository.Repository the status
// endpoint reads to report on the repository cache's audit trail.
type CacheStatsReader interface {
	GetCacheStats(ctx context.Context) (repository.CacheStats, error)
}

// Server is the HTTP surface over the job queue and query facade: enqueue
// and status endpoints, the five read-only query operations, and a
// websocket stream of job lifecycle events.
type Server struct {
	queue      *jobqueue.Queue
	facade     *query.Facade
	bus        *eventbus.Bus
	auth       Authenticator
	cacheStats CacheStatsReader
	httpServer *http.Server
	hub        *Hub

	statusCache struct {
		mu        sync.Mutex
		payload   []byte
		expiresAt time.Time
	}
}

// NewServer wires the mux router over queue, facade, bus, and auth, and
// listens on port. cacheStats may be nil, in which case /status omits the
// cache section.
func NewServer(queue *jobqueue.Queue, facade *query.Facade, bus *eventbus.Bus, auth Authenticator, cacheStats CacheStatsReader, port string) *Server {
	r := mux.NewRouter()

	s := &Server{
		queue:      queue,
		facade:     facade,
		bus:        bus,
		auth:       auth,
		cacheStats: cacheStats,
		hub:        newHub(),
	}
	if s.bus != nil {
		s.bus.Subscribe(eventKindJob, s.hub.events)

		invalidations := make(chan eventbus.Event, 64)
		s.bus.Subscribe(eventKindJob, invalidations)
		go func() {
			for evt := range invalidations {
				if evt.Status != "done" {
					continue
				}
				if job, ok := evt.Data.(*repository.Job); ok {
					apiCache.invalidateRepo(job.RepoURL)
				}
			}
		}()
	}
	go s.hub.run()

	r.Use(commonMiddleware)
	r.Use(rateLimitMiddleware)

	registerRoutes(r, s)

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	return s
}

// Start begins serving. It blocks until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
