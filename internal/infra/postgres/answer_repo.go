package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"clicker-quiz-service/internal/domain"
)

// AnswerRepo is the submission hot path. It runs on pgxpool rather than the
// ORM: the conditional upsert below is what actually enforces the
// one-answer-per-(clicker,question) invariant under concurrent submissions.
type AnswerRepo struct {
	pool *pgxpool.Pool
}

func NewAnswerRepo(pool *pgxpool.Pool) *AnswerRepo {
	return &AnswerRepo{pool: pool}
}

// Upsert inserts the answer or, when a row for (clicker_id, question_id)
// already exists, overwrites its selection, correctness, and response time.
// The model's ID and CreatedAt are populated from the winning row. An
// existing participant link is never cleared by a later anonymous update.
func (r *AnswerRepo) Upsert(ctx context.Context, a *domain.Answer) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO answers (question_id, participant_id, clicker_id, selected_answer, is_correct, response_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (clicker_id, question_id) DO UPDATE
		SET selected_answer = EXCLUDED.selected_answer,
		    is_correct      = EXCLUDED.is_correct,
		    response_time   = EXCLUDED.response_time,
		    participant_id  = COALESCE(answers.participant_id, EXCLUDED.participant_id)
		RETURNING id, participant_id, created_at`,
		a.QuestionID, a.ParticipantID, a.ClickerID, a.SelectedAnswer, a.IsCorrect, a.ResponseTime,
	).Scan(&a.ID, &a.ParticipantID, &a.CreatedAt)
	if err != nil {
		return wrap("upsert answer", err)
	}
	return nil
}

// ByClickerAndQuestion returns (nil, nil) when the clicker has not answered
// the question.
func (r *AnswerRepo) ByClickerAndQuestion(ctx context.Context, clickerID string, questionID int64) (*domain.Answer, error) {
	a := new(domain.Answer)
	err := r.pool.QueryRow(ctx, `
		SELECT id, question_id, participant_id, clicker_id, selected_answer, is_correct, response_time, created_at
		FROM answers
		WHERE clicker_id = $1 AND question_id = $2`,
		clickerID, questionID,
	).Scan(&a.ID, &a.QuestionID, &a.ParticipantID, &a.ClickerID, &a.SelectedAnswer, &a.IsCorrect, &a.ResponseTime, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("select answer", err)
	}
	return a, nil
}

// ByQuestion returns the deduplicated answers for a question, oldest first.
func (r *AnswerRepo) ByQuestion(ctx context.Context, questionID int64) ([]*domain.Answer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, question_id, participant_id, clicker_id, selected_answer, is_correct, response_time, created_at
		FROM answers
		WHERE question_id = $1
		ORDER BY created_at ASC`,
		questionID,
	)
	if err != nil {
		return nil, wrap("select answers", err)
	}
	defer rows.Close()

	var answers []*domain.Answer
	for rows.Next() {
		a := new(domain.Answer)
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.ParticipantID, &a.ClickerID, &a.SelectedAnswer, &a.IsCorrect, &a.ResponseTime, &a.CreatedAt); err != nil {
			return nil, wrap("scan answer", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate answers", err)
	}
	return answers, nil
}
