package handlers

import (
	"net/http"
)

// HandleHealth reports service liveness
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}
