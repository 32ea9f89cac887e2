package api

import (
	"net/http"

	"codeintel-clone/internal/apperr"
)

// statusForError classifies err against the apperr taxonomy and returns the
// HTTP status and error code it maps to, per the error-kind-to-status table.
func statusForError(err error) (status int, code string) {
	switch {
	case apperr.Is(err, apperr.NotAuthorized):
		// Same status as NotFound: a 403 here would tell a caller a repo they
		// don't own exists at all, the exact existence leak §7 rules out.
		return http.StatusNotFound, "not_found"
	case apperr.Is(err, apperr.NotFound):
		return http.StatusNotFound, "not_found"
	case apperr.Is(err, apperr.InvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case apperr.Is(err, apperr.RepoUnavailable):
		return http.StatusBadGateway, "repo_unavailable"
	case apperr.Is(err, apperr.IndexMalformed):
		return http.StatusUnprocessableEntity, "index_malformed"
	case apperr.Is(err, apperr.Transient):
		return http.StatusServiceUnavailable, "transient"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeClassifiedError(w http.ResponseWriter, err error) {
	status, code := statusForError(err)
	writeError(w, status, code, err.Error())
}
