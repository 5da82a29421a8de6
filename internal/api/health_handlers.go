package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/quizkeeper/internal/logger"
)

// handleHealth is the liveness probe; it never touches the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady reports 503 while the database cannot be queried.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := s.touch(r.Context()); err != nil {
		log.Warn("readiness check failed - database: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Database unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// handleKeepalive is pinged by quiz clients so the hosted database and
// server stay warm during long attempts.
func (s *Server) handleKeepalive(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := s.touch(r.Context()); err != nil {
		log.Error("keepalive failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Error: " + err.Error()))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) touch(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.DB.Touch(ctx)
}
