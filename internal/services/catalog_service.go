package services

import (
	"context"

	"github.com/vytor/quizkeeper/internal/errors"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/repository"
)

// CatalogService lists subjects and their chapters
type CatalogService interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error)
}

type catalogService struct {
	subjectRepo repository.SubjectRepository
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(subjectRepo repository.SubjectRepository) CatalogService {
	return &catalogService{subjectRepo: subjectRepo}
}

func (s *catalogService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing subjects")

	subjects, err := s.subjectRepo.ListSubjects(ctx)
	if err != nil {
		log.Error("failed to list subjects: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

func (s *catalogService) ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing chapters: subject_id=%d", subjectID)

	subject, err := s.subjectRepo.GetSubject(ctx, subjectID)
	if err != nil {
		log.Error("failed to get subject: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if subject == nil {
		return nil, errors.NewNotFoundError("subject", subjectID)
	}

	chapters, err := s.subjectRepo.ListChapters(ctx, subjectID)
	if err != nil {
		log.Error("failed to list chapters: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if chapters == nil {
		chapters = []models.Chapter{}
	}
	return chapters, nil
}
