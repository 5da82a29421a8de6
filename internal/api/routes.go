package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/keepalive/", s.handleKeepalive)

	r.Route("/api", func(r chi.Router) {
		r.Use(timeoutMiddleware(15 * time.Second))
		r.Get("/subjects", s.handleSubjects)
		r.Get("/subjects/{id}/chapters", s.handleChapters)
		r.Get("/chapters/{id}/quiz", s.handleQuiz)
		r.Post("/chapters/{id}/submissions", s.handleSubmit)
		r.Get("/submissions/{id}", s.handleSubmission)
	})
	return r
}
