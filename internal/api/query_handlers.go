package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// repoAndUser pulls the repoURL query parameter and the authenticated user
// id shared by every query endpoint.
func repoAndUser(r *http.Request) (userID int64, repoURL string) {
	userID, _ = userIDFromContext(r.Context())
	repoURL = r.URL.Query().Get("repo")
	return
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	userID, repoURL := repoAndUser(r)
	path := r.URL.Query().Get("path")
	line, _ := strconv.Atoi(r.URL.Query().Get("line"))
	character, _ := strconv.Atoi(r.URL.Query().Get("character"))

	result, err := s.facade.Hover(r.Context(), userID, repoURL, path, line, character)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	userID, repoURL := repoAndUser(r)
	symbol := r.URL.Query().Get("symbol")

	refs, err := s.facade.References(r.Context(), userID, repoURL, symbol)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	json.NewEncoder(w).Encode(refs)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	repoURL := pathVarUnescaped(r, "repo")
	root := r.URL.Query().Get("root")
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))

	graph, err := s.facade.Graph(r.Context(), userID, repoURL, root, depth)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	json.NewEncoder(w).Encode(graph)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	userID, repoURL := repoAndUser(r)
	windowWeeks, _ := strconv.Atoi(r.URL.Query().Get("window"))
	if windowWeeks <= 0 {
		windowWeeks = 12
	}
	threshold, _ := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64)

	groups, err := s.facade.Hotspots(r.Context(), userID, repoURL, windowWeeks, threshold)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	json.NewEncoder(w).Encode(groups)
}

func (s *Server) handleFileTrend(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	repoURL := r.URL.Query().Get("repo")
	filePath := pathVarUnescaped(r, "file")
	windowWeeks, _ := strconv.Atoi(r.URL.Query().Get("window"))
	if windowWeeks <= 0 {
		windowWeeks = 12
	}

	stats, err := s.facade.FileTrend(r.Context(), userID, repoURL, filePath, windowWeeks)
	if err != nil {
		writeClassifiedError(w, err)
		return
	}
	json.NewEncoder(w).Encode(stats)
}
