package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/quizkeeper/internal/errors"
	"github.com/vytor/quizkeeper/internal/form"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/repository"
)

// SubmissionService records finished attempts. Submissions are stored as
// given; nothing is graded.
type SubmissionService interface {
	Record(ctx context.Context, chapterID int64, req models.SubmissionRequest) (*models.Submission, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
}

type submissionService struct {
	subjectRepo    repository.SubjectRepository
	submissionRepo repository.SubmissionRepository
	now            func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(subjectRepo repository.SubjectRepository, submissionRepo repository.SubmissionRepository) SubmissionService {
	return &submissionService{subjectRepo: subjectRepo, submissionRepo: submissionRepo, now: time.Now}
}

var validOptions = map[string]bool{"A": true, "B": true, "C": true, "D": true}

// Record validates and stores req. Re-posting a submission id that is
// already stored returns the stored submission.
func (s *submissionService) Record(ctx context.Context, chapterID int64, req models.SubmissionRequest) (*models.Submission, error) {
	log := logger.FromContext(ctx).WithField("chapter_id", chapterID)

	sub, err := s.validate(chapterID, req)
	if err != nil {
		return nil, err
	}
	log = log.WithField("submission_id", sub.ID)

	chapter, err := s.subjectRepo.GetChapter(ctx, chapterID)
	if err != nil {
		log.Error("failed to get chapter: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if chapter == nil {
		return nil, errors.NewNotFoundError("chapter", chapterID)
	}

	if err := s.submissionRepo.Insert(ctx, *sub); err != nil {
		if !stderrors.Is(err, repository.ErrDuplicate) {
			log.Error("failed to store submission: %v", err)
			return nil, errors.NewInternalError(err)
		}
		existing, getErr := s.submissionRepo.Get(ctx, sub.ID)
		if getErr != nil || existing == nil || existing.ChapterID != chapterID {
			return nil, errors.NewConflictError("submission id already used")
		}
		log.Info("duplicate submission, returning stored copy")
		return existing, nil
	}

	log.Info("recorded %s submission from %q with %d answers", sub.Reason, sub.Name, len(sub.Answers))
	return sub, nil
}

func (s *submissionService) validate(chapterID int64, req models.SubmissionRequest) (*models.Submission, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.NewValidationError("name", "cannot be empty")
	}

	reason := req.Reason
	if reason == "" {
		reason = models.ReasonManual
	}
	if reason != models.ReasonManual && reason != models.ReasonExpired {
		return nil, errors.NewValidationError("reason", "must be manual or expired")
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewValidationError("id", "must be a uuid")
	}

	answers := make(map[string]string, len(req.Answers))
	for field, value := range req.Answers {
		qid := field
		if parsed, ok := form.ParseFieldName(field); ok {
			qid = parsed
		}
		if !validOptions[value] {
			return nil, errors.NewValidationError("answers", "option for question "+qid+" must be A, B, C or D")
		}
		answers[qid] = value
	}

	at := req.SubmittedAt
	if at.IsZero() {
		at = s.now()
	}

	return &models.Submission{
		ID:          id,
		ChapterID:   chapterID,
		Name:        name,
		Answers:     answers,
		Reason:      reason,
		SubmittedAt: at.UTC(),
	}, nil
}

func (s *submissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	log := logger.FromContext(ctx)

	sub, err := s.submissionRepo.Get(ctx, id)
	if err != nil {
		log.Error("failed to get submission: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("submission", id)
	}
	return sub, nil
}
