package api

import (
	"net/http"
)

func (s *Server) handleGenerationStats(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil || s.orchestrator.Stats() == nil {
		jsonError(w, "generation stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.orchestrator.Stats().Snapshot(),
	})
}
