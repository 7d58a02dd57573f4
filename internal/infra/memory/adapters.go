package memory

import (
	"context"

	"clicker-quiz-service/internal/domain"
)

// The adapters below present the single Store as the four per-entity stores
// the engine expects, mirroring the postgres repo split.

type Quizzes struct{ s *Store }

func (s *Store) Quizzes() *Quizzes { return &Quizzes{s: s} }

func (q *Quizzes) Create(ctx context.Context, quiz *domain.Quiz) error { return q.s.Create(ctx, quiz) }
func (q *Quizzes) ByID(ctx context.Context, id int64) (*domain.Quiz, error) {
	return q.s.ByID(ctx, id)
}
func (q *Quizzes) All(ctx context.Context) ([]*domain.Quiz, error)     { return q.s.All(ctx) }
func (q *Quizzes) Update(ctx context.Context, quiz *domain.Quiz) error { return q.s.Update(ctx, quiz) }
func (q *Quizzes) Delete(ctx context.Context, id int64) error          { return q.s.Delete(ctx, id) }

type Questions struct{ s *Store }

func (s *Store) Questions() *Questions { return &Questions{s: s} }

func (q *Questions) Create(ctx context.Context, question *domain.Question) error {
	return q.s.CreateQuestion(ctx, question)
}
func (q *Questions) ByID(ctx context.Context, id int64) (*domain.Question, error) {
	return q.s.QuestionByID(ctx, id)
}
func (q *Questions) ByQuiz(ctx context.Context, quizID int64) ([]*domain.Question, error) {
	return q.s.QuestionsByQuiz(ctx, quizID)
}
func (q *Questions) Update(ctx context.Context, question *domain.Question) error {
	return q.s.UpdateQuestion(ctx, question)
}
func (q *Questions) Delete(ctx context.Context, id int64) error {
	return q.s.DeleteQuestion(ctx, id)
}

type Answers struct{ s *Store }

func (s *Store) Answers() *Answers { return &Answers{s: s} }

func (a *Answers) Upsert(ctx context.Context, answer *domain.Answer) error {
	return a.s.Upsert(ctx, answer)
}
func (a *Answers) ByClickerAndQuestion(ctx context.Context, clickerID string, questionID int64) (*domain.Answer, error) {
	return a.s.ByClickerAndQuestion(ctx, clickerID, questionID)
}
func (a *Answers) ByQuestion(ctx context.Context, questionID int64) ([]*domain.Answer, error) {
	return a.s.ByQuestion(ctx, questionID)
}

type Participants struct{ s *Store }

func (s *Store) Participants() *Participants { return &Participants{s: s} }

func (p *Participants) Create(ctx context.Context, participant *domain.Participant) error {
	return p.s.CreateParticipant(ctx, participant)
}
func (p *Participants) ByID(ctx context.Context, id int64) (*domain.Participant, error) {
	return p.s.ParticipantByID(ctx, id)
}
func (p *Participants) ByClickerID(ctx context.Context, clickerID string) (*domain.Participant, error) {
	return p.s.ParticipantByClickerID(ctx, clickerID)
}
func (p *Participants) WithAnswers(ctx context.Context, clickerID string) (*domain.Participant, error) {
	return p.s.ParticipantWithAnswers(ctx, clickerID)
}
func (p *Participants) All(ctx context.Context) ([]*domain.Participant, error) {
	return p.s.AllParticipants(ctx)
}
func (p *Participants) Update(ctx context.Context, participant *domain.Participant) error {
	return p.s.UpdateParticipant(ctx, participant)
}
func (p *Participants) Delete(ctx context.Context, id int64) error {
	return p.s.DeleteParticipant(ctx, id)
}
