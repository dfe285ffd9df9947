package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleViewStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "view stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"window": s.cfg.ViewStatsWindow.String(),
		"views":  s.stats.Snapshot(),
	})
}
