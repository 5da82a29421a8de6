package sqlite

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/repository"
)

type questionRepository struct {
	db *sql.DB
}

// NewQuestionRepository creates a new QuestionRepository implementation
func NewQuestionRepository(db *sql.DB) repository.QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Sample(ctx context.Context, chapterID int64, limit int) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo").WithField("chapter_id", chapterID)

	query := sqlBuilder.Select(
		"id", "chapter_id", "text", "option_a", "option_b", "option_c", "option_d", "correct_option",
	).From("questions").
		Where(squirrel.Eq{"chapter_id": chapterID}).
		OrderBy("RANDOM()")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to sample questions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.ChapterID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	log.Debug("sampled %d questions (limit %d)", len(out), limit)
	return out, nil
}

func (r *questionRepository) CountByChapter(ctx context.Context, chapterID int64) (int, error) {
	query, args, err := sqlBuilder.Select("COUNT(*)").From("questions").Where(squirrel.Eq{"chapter_id": chapterID}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
