package api

import (
	"time"

	"github.com/gorilla/mux"
)

// queryCacheTTL bounds how long a query response may be served stale before
// the Worker Pool's next job completion invalidates it anyway.
const queryCacheTTL = 30 * time.Second

// registerRoutes wires the health/status endpoints, the job queue endpoints,
// the five read-only query operations, and the websocket event stream.
func registerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/status", s.handleStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET", "OPTIONS")

	r.HandleFunc("/jobs", s.requireAuth(s.handleEnqueueJob)).Methods("POST", "OPTIONS")
	r.HandleFunc("/jobs/{id}", s.requireAuth(s.handleJobStatus)).Methods("GET", "OPTIONS")

	r.HandleFunc("/graph/{repo}", s.requireAuth(cachedHandler(queryCacheTTL, s.handleGraph))).Methods("GET", "OPTIONS")
	r.HandleFunc("/hover", s.requireAuth(cachedHandler(queryCacheTTL, s.handleHover))).Methods("GET", "OPTIONS")
	r.HandleFunc("/references", s.requireAuth(cachedHandler(queryCacheTTL, s.handleReferences))).Methods("GET", "OPTIONS")
	r.HandleFunc("/hotspots", s.requireAuth(cachedHandler(queryCacheTTL, s.handleHotspots))).Methods("GET", "OPTIONS")
	r.HandleFunc("/trend/{file}", s.requireAuth(cachedHandler(queryCacheTTL, s.handleFileTrend))).Methods("GET", "OPTIONS")
}
