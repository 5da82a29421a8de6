package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/quizkeeper/internal/errors"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
)

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.CatalogService.ListSubjects(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subjects)
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	chapters, err := s.CatalogService.ListChapters(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chapters)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	quiz, err := s.QuizService.BuildQuiz(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, quiz)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req models.SubmissionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		log.Warn("malformed submission body: %v", err)
		handleError(w, r, errors.NewBadRequestError("malformed submission body"))
		return
	}

	sub, err := s.SubmissionService.Record(r.Context(), id, req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, sub)
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.SubmissionService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}
