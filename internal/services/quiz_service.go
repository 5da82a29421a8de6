package services

import (
	"context"
	"time"

	"github.com/vytor/quizkeeper/internal/errors"
	"github.com/vytor/quizkeeper/internal/form"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/repository"
)

// QuizService builds the form served for a chapter attempt
type QuizService interface {
	BuildQuiz(ctx context.Context, chapterID int64) (*models.QuizForm, error)
}

type quizService struct {
	subjectRepo  repository.SubjectRepository
	questionRepo repository.QuestionRepository
	perQuiz      int
	duration     time.Duration
}

// NewQuizService creates a new QuizService that samples at most perQuiz
// questions per attempt.
func NewQuizService(subjectRepo repository.SubjectRepository, questionRepo repository.QuestionRepository, perQuiz int, duration time.Duration) QuizService {
	return &quizService{
		subjectRepo:  subjectRepo,
		questionRepo: questionRepo,
		perQuiz:      perQuiz,
		duration:     duration,
	}
}

func (s *quizService) BuildQuiz(ctx context.Context, chapterID int64) (*models.QuizForm, error) {
	log := logger.FromContext(ctx).WithField("chapter_id", chapterID)
	log.Debug("building quiz")

	chapter, err := s.subjectRepo.GetChapter(ctx, chapterID)
	if err != nil {
		log.Error("failed to get chapter: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if chapter == nil {
		return nil, errors.NewNotFoundError("chapter", chapterID)
	}

	subjectName := ""
	subject, err := s.subjectRepo.GetSubject(ctx, chapter.SubjectID)
	if err != nil {
		log.Warn("failed to get subject %d: %v", chapter.SubjectID, err)
	} else if subject != nil {
		subjectName = subject.Name
	}

	questions, err := s.questionRepo.Sample(ctx, chapterID, s.perQuiz)
	if err != nil {
		log.Error("failed to sample questions: %v", err)
		return nil, errors.NewInternalError(err)
	}

	out := &models.QuizForm{
		ChapterID:       chapter.ID,
		Chapter:         chapter.Name,
		Subject:         subjectName,
		DurationSeconds: int(s.duration / time.Second),
		Questions:       make([]form.Question, 0, len(questions)),
	}
	for _, q := range questions {
		out.Questions = append(out.Questions, q.FormQuestion())
	}
	log.Info("quiz built with %d questions", len(out.Questions))
	return out, nil
}
