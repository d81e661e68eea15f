package server

import (
	"encoding/json"
	"net/http"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/pkg/hash"
	"github.com/fusesearch/fuse-search/internal/pkg/security"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// defaultMaxResults applies when the caller omits max_results.
const defaultMaxResults = 10

// handleRetrieve serves POST /v1/retrieve.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errors.WriteError(w, errors.InvalidRequestError("method not allowed, use POST"))
		return
	}

	var req retrieval.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid JSON body"))
		return
	}
	if req.MaxResults == 0 {
		req.MaxResults = defaultMaxResults
	}
	req.Query = security.SanitizeQuery(req.Query)
	if err := security.ValidateQuery(req.Query); err != nil {
		errors.WriteError(w, errors.InvalidRequestError(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		errors.WriteError(w, err)
		return
	}

	s.log.Debug("retrieval request",
		"query", security.SanitizeForLog(req.Query),
		"max_results", req.MaxResults,
		"context", security.MaskSensitiveMap(req.Context),
	)

	ctx := r.Context()
	key := hash.QueryKey(req.Query, req.MaxResults)

	if cached, _ := s.cache.Get(ctx, key); cached != nil {
		if s.metrics != nil {
			s.metrics.ObserveCacheLookup(true)
		}
		writeJSON(w, http.StatusOK, cached)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveCacheLookup(false)
	}

	resp := s.orch.Retrieve(ctx, req)

	// Only successful responses with content are worth caching; failures
	// should be retried by the next identical query.
	if resp.Method == retrieval.MethodOrchestratedHybrid && resp.TotalResults > 0 {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			s.log.Warn("response cache write failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth serves GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	lanes := make(map[string]string)
	for l, status := range s.orch.LaneStatuses() {
		lanes[string(l)] = string(status)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"lanes":   lanes,
	})
}

// handleVersion serves GET /v1/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
