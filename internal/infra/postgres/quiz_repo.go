package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"clicker-quiz-service/internal/domain"
)

// QuizRepo persists quizzes.
type QuizRepo struct {
	db *bun.DB
}

func NewQuizRepo(db *bun.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

func (r *QuizRepo) Create(ctx context.Context, quiz *domain.Quiz) error {
	if _, err := r.db.NewInsert().Model(quiz).Returning("*").Exec(ctx); err != nil {
		return wrap("insert quiz", err)
	}
	return nil
}

// ByID loads a quiz with its questions ordered by order index.
func (r *QuizRepo) ByID(ctx context.Context, id int64) (*domain.Quiz, error) {
	quiz := new(domain.Quiz)
	err := r.db.NewSelect().Model(quiz).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("order_index ASC")
		}).
		Where("q.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuizNotFound
	}
	if err != nil {
		return nil, wrap("select quiz", err)
	}
	return quiz, nil
}

func (r *QuizRepo) All(ctx context.Context) ([]*domain.Quiz, error) {
	var quizzes []*domain.Quiz
	err := r.db.NewSelect().Model(&quizzes).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("order_index ASC")
		}).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, wrap("select quizzes", err)
	}
	return quizzes, nil
}

func (r *QuizRepo) Update(ctx context.Context, quiz *domain.Quiz) error {
	quiz.UpdatedAt = time.Now().UTC()
	res, err := r.db.NewUpdate().Model(quiz).WherePK().Exec(ctx)
	if err != nil {
		return wrap("update quiz", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// Delete removes the quiz; questions and their answers cascade in the schema.
func (r *QuizRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*domain.Quiz)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return wrap("delete quiz", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
