package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/repository"
)

type submissionRepository struct {
	db *sql.DB
}

// NewSubmissionRepository creates a new SubmissionRepository implementation
func NewSubmissionRepository(db *sql.DB) repository.SubmissionRepository {
	return &submissionRepository{db: db}
}

var submissionColumns = []string{"id", "chapter_id", "name", "answers", "reason", "submitted_at", "created_at"}

func (r *submissionRepository) Insert(ctx context.Context, sub models.Submission) error {
	log := logger.FromContext(ctx).WithPrefix("submission_repo").WithField("submission_id", sub.ID)

	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	query, args, err := sqlBuilder.Insert("submissions").
		Columns("id", "chapter_id", "name", "answers", "reason", "submitted_at").
		Values(sub.ID, sub.ChapterID, sub.Name, string(answers), sub.Reason, sub.SubmittedAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to insert submission: %v", err)
		return translate(err)
	}
	log.Debug("submission stored with %d answers", len(sub.Answers))
	return nil
}

func (r *submissionRepository) Get(ctx context.Context, id string) (*models.Submission, error) {
	query, args, err := sqlBuilder.Select(submissionColumns...).From("submissions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

func (r *submissionRepository) ListByChapter(ctx context.Context, chapterID int64, limit int) ([]models.Submission, error) {
	query := sqlBuilder.Select(submissionColumns...).
		From("submissions").
		Where(squirrel.Eq{"chapter_id": chapterID}).
		OrderBy("submitted_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		sub     models.Submission
		answers string
	)
	if err := row.Scan(&sub.ID, &sub.ChapterID, &sub.Name, &answers, &sub.Reason, &sub.SubmittedAt, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of %s: %w", sub.ID, err)
	}
	return &sub, nil
}
