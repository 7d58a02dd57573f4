// Package app contains the real-time state engine: quiz/question/answer
// lifecycle, answer ingestion and scoring, live tallies, and leaderboard
// maintenance. Durable stores are authoritative for finalized rows; the live
// store is authoritative only for "is this question accepting answers" and
// for sub-second tallies.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"clicker-quiz-service/internal/domain"
	"clicker-quiz-service/internal/pkg/logger"
)

// QuizStore persists quizzes.
type QuizStore interface {
	Create(ctx context.Context, quiz *domain.Quiz) error
	ByID(ctx context.Context, id int64) (*domain.Quiz, error)
	All(ctx context.Context) ([]*domain.Quiz, error)
	Update(ctx context.Context, quiz *domain.Quiz) error
	Delete(ctx context.Context, id int64) error
}

// QuestionStore persists questions.
type QuestionStore interface {
	Create(ctx context.Context, question *domain.Question) error
	ByID(ctx context.Context, id int64) (*domain.Question, error)
	ByQuiz(ctx context.Context, quizID int64) ([]*domain.Question, error)
	Update(ctx context.Context, question *domain.Question) error
	Delete(ctx context.Context, id int64) error
}

// AnswerStore persists answers. Upsert must enforce the
// one-row-per-(clicker,question) invariant atomically; the engine's
// check-then-write is only an optimization around it.
type AnswerStore interface {
	Upsert(ctx context.Context, answer *domain.Answer) error
	ByClickerAndQuestion(ctx context.Context, clickerID string, questionID int64) (*domain.Answer, error)
	ByQuestion(ctx context.Context, questionID int64) ([]*domain.Answer, error)
}

// ParticipantStore persists participants.
type ParticipantStore interface {
	Create(ctx context.Context, participant *domain.Participant) error
	ByID(ctx context.Context, id int64) (*domain.Participant, error)
	ByClickerID(ctx context.Context, clickerID string) (*domain.Participant, error)
	WithAnswers(ctx context.Context, clickerID string) (*domain.Participant, error)
	All(ctx context.Context) ([]*domain.Participant, error)
	Update(ctx context.Context, participant *domain.Participant) error
	Delete(ctx context.Context, id int64) error
}

// LiveStore is the fast shared state layer (snapshots, pointers, tallies,
// leaderboard, participant sets). Every call is a network round trip and
// independently failable.
type LiveStore interface {
	SetQuizState(ctx context.Context, st domain.QuizState, ttl time.Duration) error
	QuizState(ctx context.Context, quizID int64) (*domain.QuizState, error)
	SetActiveQuiz(ctx context.Context, quizID int64) error
	ActiveQuiz(ctx context.Context) (int64, bool, error)
	ClearActiveQuiz(ctx context.Context, quizID int64) error
	SetQuestionState(ctx context.Context, st domain.QuestionState, ttl time.Duration) error
	QuestionState(ctx context.Context, questionID int64) (*domain.QuestionState, error)
	DeactivateQuestion(ctx context.Context, questionID int64) error
	SetCurrentQuestion(ctx context.Context, quizID, questionID int64, ttl time.Duration) error
	CurrentQuestion(ctx context.Context, quizID int64) (int64, bool, error)
	ClearCurrentQuestion(ctx context.Context, quizID int64) error
	ResetQuestionTally(ctx context.Context, questionID int64) error
	AppendAnswer(ctx context.Context, questionID int64, entry domain.AnswerLogEntry) error
	AnswerLog(ctx context.Context, questionID int64) ([]domain.AnswerLogEntry, error)
	IncrOption(ctx context.Context, questionID int64, o domain.AnswerOption) (int64, error)
	Stats(ctx context.Context, questionID int64) (domain.QuestionStats, error)
	IncrScore(ctx context.Context, quizID int64, clickerID string, delta int) error
	EnsureScore(ctx context.Context, quizID int64, clickerID string) error
	RemoveScore(ctx context.Context, quizID int64, clickerID string) error
	Leaderboard(ctx context.Context, quizID int64, limit int) ([]domain.LeaderboardEntry, error)
	Rank(ctx context.Context, quizID int64, clickerID string) (rank, score int, ok bool, err error)
	AddParticipant(ctx context.Context, quizID int64, clickerID string) error
	RemoveParticipant(ctx context.Context, quizID int64, clickerID string) error
	Participants(ctx context.Context, quizID int64) ([]string, error)
	ParticipantCount(ctx context.Context, quizID int64) (int, error)
	PurgeQuiz(ctx context.Context, quizID int64, questionIDs []int64) error
}

// Publisher fans events out to every server instance's connected sessions.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Stores bundles the durable stores for construction.
type Stores struct {
	Quizzes      QuizStore
	Questions    QuestionStore
	Answers      AnswerStore
	Participants ParticipantStore
}

// Service is the state engine.
type Service struct {
	quizzes      QuizStore
	questions    QuestionStore
	answers      AnswerStore
	participants ParticipantStore
	live         LiveStore
	bus          Publisher
	log          *logger.Logger
	validate     *validator.Validate

	snapshotTTL      time.Duration
	leaderboardLimit int
	sf               singleflight.Group
	now              func() time.Time
}

// Option tweaks Service construction.
type Option func(*Service)

// WithSnapshotTTL bounds quiz snapshot lifetime. Zero means no expiry.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(s *Service) { s.snapshotTTL = ttl }
}

// WithLeaderboardLimit sets the page size for broadcast leaderboards.
func WithLeaderboardLimit(limit int) Option {
	return func(s *Service) { s.leaderboardLimit = limit }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(stores Stores, live LiveStore, bus Publisher, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		quizzes:          stores.Quizzes,
		questions:        stores.Questions,
		answers:          stores.Answers,
		participants:     stores.Participants,
		live:             live,
		bus:              bus,
		log:              log.With("component", "engine"),
		validate:         validator.New(),
		leaderboardLimit: 10,
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkInput runs struct-tag validation and converts the first failure into a
// domain ValidationError, before any store is touched.
func (s *Service) checkInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return domain.NewValidationError(first.Field(), fmt.Sprintf("failed %q constraint", first.Tag()))
	}
	return domain.NewValidationError("", err.Error())
}

// publish sends a broadcast event. Failures are logged, not propagated: the
// durable mutation already happened and delivery is at-least-once only for
// reachable instances.
func (s *Service) publish(ctx context.Context, channel string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.log.Warn("broadcast publish failed", "channel", channel, "error", err)
	}
}

// CreateQuizInput carries the fields for a new quiz.
type CreateQuizInput struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description"`
	Status      domain.QuizStatus `json:"status" validate:"omitempty,oneof=draft active completed archived"`
}

// UpdateQuizInput carries partial quiz updates; nil fields are untouched.
type UpdateQuizInput struct {
	Title             *string            `json:"title" validate:"omitempty,min=1,max=255"`
	Description       *string            `json:"description"`
	Status            *domain.QuizStatus `json:"status" validate:"omitempty,oneof=draft active completed archived"`
	CurrentQuestionID *int64             `json:"currentQuestionId" validate:"omitempty,min=1"`
}

// CreateQuestionInput carries the fields for a new question. TimeLimit zero
// defaults to 30 seconds.
type CreateQuestionInput struct {
	QuizID        int64               `json:"quizId" validate:"required,min=1"`
	Text          string              `json:"text" validate:"required"`
	OptionA       string              `json:"optionA" validate:"required,max=255"`
	OptionB       string              `json:"optionB" validate:"required,max=255"`
	OptionC       string              `json:"optionC" validate:"required,max=255"`
	OptionD       string              `json:"optionD" validate:"required,max=255"`
	CorrectAnswer domain.AnswerOption `json:"correctAnswer" validate:"required,oneof=A B C D"`
	TimeLimit     int                 `json:"timeLimit" validate:"omitempty,min=5,max=300"`
	OrderIndex    int                 `json:"orderIndex" validate:"required,min=1"`
}

// UpdateQuestionInput carries partial question updates.
type UpdateQuestionInput struct {
	Text          *string              `json:"text" validate:"omitempty,min=1"`
	OptionA       *string              `json:"optionA" validate:"omitempty,min=1,max=255"`
	OptionB       *string              `json:"optionB" validate:"omitempty,min=1,max=255"`
	OptionC       *string              `json:"optionC" validate:"omitempty,min=1,max=255"`
	OptionD       *string              `json:"optionD" validate:"omitempty,min=1,max=255"`
	CorrectAnswer *domain.AnswerOption `json:"correctAnswer" validate:"omitempty,oneof=A B C D"`
	TimeLimit     *int                 `json:"timeLimit" validate:"omitempty,min=5,max=300"`
	OrderIndex    *int                 `json:"orderIndex" validate:"omitempty,min=1"`
}

// SubmitAnswerInput is one clicker submission.
type SubmitAnswerInput struct {
	ClickerID      string              `json:"clickerId" validate:"required,max=10"`
	QuestionID     int64               `json:"questionId" validate:"required,min=1"`
	SelectedAnswer domain.AnswerOption `json:"selectedAnswer" validate:"required,oneof=A B C D"`
	ResponseTime   *float64            `json:"responseTime" validate:"omitempty,gte=0"`
}

// RegisterParticipantInput registers or refreshes a clicker identity.
type RegisterParticipantInput struct {
	ClickerID string `json:"clickerId" validate:"required,max=10"`
	Name      string `json:"name" validate:"omitempty,max=100"`
}
