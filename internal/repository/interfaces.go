package repository

import (
	"context"
	"errors"

	"github.com/vytor/quizkeeper/internal/models"
)

// SubjectRepository handles subject and chapter data access
type SubjectRepository interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error)
	GetChapter(ctx context.Context, id int64) (*models.Chapter, error)
}

// QuestionRepository handles question data access
type QuestionRepository interface {
	// Sample returns up to limit questions of the chapter in random order.
	Sample(ctx context.Context, chapterID int64, limit int) ([]models.Question, error)
	CountByChapter(ctx context.Context, chapterID int64) (int, error)
}

// SubmissionRepository handles submission data access
type SubmissionRepository interface {
	Insert(ctx context.Context, sub models.Submission) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	ListByChapter(ctx context.Context, chapterID int64, limit int) ([]models.Submission, error)
}

// ErrDuplicate is returned when an insert collides with an existing key.
var ErrDuplicate = errors.New("repository: duplicate key")
