package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"codeintel-clone/internal/repository"

	"github.com/gorilla/mux"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	s.statusCache.mu.Lock()
	if now.Before(s.statusCache.expiresAt) && len(s.statusCache.payload) > 0 {
		cached := append([]byte(nil), s.statusCache.payload...)
		s.statusCache.mu.Unlock()
		w.Write(cached)
		return
	}
	s.statusCache.mu.Unlock()

	body := map[string]interface{}{
		"status":       "ok",
		"build_commit": BuildCommit,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if s.cacheStats != nil {
		if stats, err := s.cacheStats.GetCacheStats(r.Context()); err == nil {
			body["cache"] = map[string]interface{}{
				"total_entries":      stats.TotalEntries,
				"full_history_count": stats.FullHistoryCount,
				"last_fetch_err":     stats.LastFetchErr,
			}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.statusCache.mu.Lock()
	s.statusCache.payload = payload
	s.statusCache.expiresAt = time.Now().Add(3 * time.Second)
	s.statusCache.mu.Unlock()

	w.Write(payload)
}

type enqueueRequest struct {
	RepoURL     string  `json:"repoURL"`
	Kind        string  `json:"kind"`
	Payload     *string `json:"payload"`
	PayloadPath *string `json:"payloadPath"`
}

type enqueueResponse struct {
	JobID int64 `json:"jobId"`
}

// handleEnqueueJob validates the kind-specific payload shape per the
// enqueue-inputs table and inserts a pending job owned by the caller.
func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	if req.RepoURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "repoURL is required")
		return
	}

	kind := repository.JobKind(req.Kind)
	switch kind {
	case repository.JobKindGraphBuild, repository.JobKindGitMine:
		// no payload required
	case repository.JobKindScipIndex:
		if req.PayloadPath == nil || *req.PayloadPath == "" {
			writeError(w, http.StatusBadRequest, "invalid_input", "scip_index jobs require payloadPath")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_input", "unknown job kind")
		return
	}

	userID, _ := userIDFromContext(r.Context())

	id, err := s.queue.Enqueue(r.Context(), userID, req.RepoURL, kind, req.Payload, req.PayloadPath)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}

	json.NewEncoder(w).Encode(enqueueResponse{JobID: id})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid job id")
		return
	}

	userID, _ := userIDFromContext(r.Context())

	job, err := s.queue.Status(r.Context(), userID, jobID)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}

	json.NewEncoder(w).Encode(job)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

func pathVarUnescaped(r *http.Request, name string) string {
	raw := mux.Vars(r)[name]
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
