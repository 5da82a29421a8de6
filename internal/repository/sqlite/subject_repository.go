package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/repository"
)

type subjectRepository struct {
	db *sql.DB
}

// NewSubjectRepository creates a new SubjectRepository implementation
func NewSubjectRepository(db *sql.DB) repository.SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")

	query, args, err := sqlBuilder.Select("id", "name").From("subjects").OrderBy("name").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list subjects: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.Subject
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	log.Debug("listed %d subjects", len(out))
	return out, rows.Err()
}

func (r *subjectRepository) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	query, args, err := sqlBuilder.Select("id", "name").From("subjects").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var s models.Subject
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subjectRepository) ListChapters(ctx context.Context, subjectID int64) ([]models.Chapter, error) {
	log := logger.FromContext(ctx).WithPrefix("subject_repo").WithField("subject_id", subjectID)

	query, args, err := sqlBuilder.Select("id", "subject_id", "name").
		From("chapters").
		Where(squirrel.Eq{"subject_id": subjectID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list chapters: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.Chapter
	for rows.Next() {
		var c models.Chapter
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *subjectRepository) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	query, args, err := sqlBuilder.Select("id", "subject_id", "name").From("chapters").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var c models.Chapter
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.SubjectID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
