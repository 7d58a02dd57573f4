package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"clicker-quiz-service/internal/domain"
)

// QuestionRepo persists questions.
type QuestionRepo struct {
	db *bun.DB
}

func NewQuestionRepo(db *bun.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

func (r *QuestionRepo) Create(ctx context.Context, question *domain.Question) error {
	if _, err := r.db.NewInsert().Model(question).Returning("*").Exec(ctx); err != nil {
		return wrap("insert question", err)
	}
	return nil
}

func (r *QuestionRepo) ByID(ctx context.Context, id int64) (*domain.Question, error) {
	question := new(domain.Question)
	err := r.db.NewSelect().Model(question).Where("q.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, wrap("select question", err)
	}
	return question, nil
}

// ByQuiz returns the quiz's questions in sequencing order.
func (r *QuestionRepo) ByQuiz(ctx context.Context, quizID int64) ([]*domain.Question, error) {
	var questions []*domain.Question
	err := r.db.NewSelect().Model(&questions).
		Where("quiz_id = ?", quizID).
		Order("order_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap("select questions", err)
	}
	return questions, nil
}

func (r *QuestionRepo) Update(ctx context.Context, question *domain.Question) error {
	res, err := r.db.NewUpdate().Model(question).WherePK().Exec(ctx)
	if err != nil {
		return wrap("update question", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// Delete removes the question; its answers cascade in the schema.
func (r *QuestionRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*domain.Question)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return wrap("delete question", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}
