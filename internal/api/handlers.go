package api

import (
	"context"

	"github.com/vytor/quizkeeper/internal/services"
)

// Toucher checks the database with a real query.
type Toucher interface {
	Touch(ctx context.Context) error
}

type Server struct {
	DB                Toucher
	CatalogService    services.CatalogService
	QuizService       services.QuizService
	SubmissionService services.SubmissionService
}
