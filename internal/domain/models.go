package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// QuizStatus is the durable lifecycle state of a quiz.
type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizActive    QuizStatus = "active"
	QuizCompleted QuizStatus = "completed"
	QuizArchived  QuizStatus = "archived"
)

// IsActive reports whether the quiz is currently live.
func (s QuizStatus) IsActive() bool { return s == QuizActive }

// IsCompleted reports whether the quiz has finished.
func (s QuizStatus) IsCompleted() bool { return s == QuizCompleted }

// Valid reports whether the status is one of the known states.
func (s QuizStatus) Valid() bool {
	switch s {
	case QuizDraft, QuizActive, QuizCompleted, QuizArchived:
		return true
	}
	return false
}

// AnswerOption identifies one of the four choices of a question.
type AnswerOption string

const (
	OptionA AnswerOption = "A"
	OptionB AnswerOption = "B"
	OptionC AnswerOption = "C"
	OptionD AnswerOption = "D"
)

// Options lists every answer option in display order.
func Options() []AnswerOption {
	return []AnswerOption{OptionA, OptionB, OptionC, OptionD}
}

// Valid reports whether the option is within A-D.
func (o AnswerOption) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// ParticipantStatus is the durable state of a participant record.
type ParticipantStatus string

const (
	ParticipantActive   ParticipantStatus = "active"
	ParticipantInactive ParticipantStatus = "inactive"
	ParticipantBanned   ParticipantStatus = "banned"
)

// Quiz is a titled, ordered collection of questions driven by an operator.
type Quiz struct {
	bun.BaseModel `bun:"table:quizzes" json:"-"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id"`
	Title             string     `bun:"title,notnull" json:"title"`
	Description       string     `bun:"description" json:"description,omitempty"`
	Status            QuizStatus `bun:"status,notnull,default:'draft'" json:"status"`
	CurrentQuestionID *int64     `bun:"current_question_id" json:"currentQuestionId"`
	CreatedAt         time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt         time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`

	Questions []*Question `bun:"rel:has-many,join:id=quiz_id" json:"questions,omitempty"`
}

// Question is a four-option multiple-choice question within a quiz.
// OrderIndex is unique per quiz and drives sequencing.
type Question struct {
	bun.BaseModel `bun:"table:questions" json:"-"`

	ID            int64        `bun:"id,pk,autoincrement" json:"id"`
	QuizID        int64        `bun:"quiz_id,notnull" json:"quizId"`
	Text          string       `bun:"question_text,notnull" json:"text"`
	OptionA       string       `bun:"option_a,notnull" json:"optionA"`
	OptionB       string       `bun:"option_b,notnull" json:"optionB"`
	OptionC       string       `bun:"option_c,notnull" json:"optionC"`
	OptionD       string       `bun:"option_d,notnull" json:"optionD"`
	CorrectAnswer AnswerOption `bun:"correct_answer,notnull" json:"correctAnswer"`
	TimeLimit     int          `bun:"time_limit,notnull,default:30" json:"timeLimit"`
	OrderIndex    int          `bun:"order_index,notnull" json:"orderIndex"`
	CreatedAt     time.Time    `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`

	Answers []*Answer `bun:"rel:has-many,join:id=question_id" json:"answers,omitempty"`
}

// OptionText returns the display text for an option.
func (q *Question) OptionText(o AnswerOption) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// OptionMap returns the four option texts keyed by option letter.
func (q *Question) OptionMap() map[AnswerOption]string {
	return map[AnswerOption]string{
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
	}
}

// Answer is a single clicker's latest selection for a question.
// At most one row exists per (clicker_id, question_id); resubmissions
// overwrite selection, correctness, and response time.
type Answer struct {
	bun.BaseModel `bun:"table:answers" json:"-"`

	ID             int64        `bun:"id,pk,autoincrement" json:"id"`
	QuestionID     int64        `bun:"question_id,notnull" json:"questionId"`
	ParticipantID  *int64       `bun:"participant_id" json:"participantId"`
	ClickerID      string       `bun:"clicker_id,notnull" json:"clickerId"`
	SelectedAnswer AnswerOption `bun:"selected_answer,notnull" json:"selectedAnswer"`
	IsCorrect      bool         `bun:"is_correct,notnull" json:"isCorrect"`
	ResponseTime   *float64     `bun:"response_time" json:"responseTime"`
	CreatedAt      time.Time    `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// Participant is a registered clicker identity.
type Participant struct {
	bun.BaseModel `bun:"table:participants" json:"-"`

	ID        int64             `bun:"id,pk,autoincrement" json:"id"`
	ClickerID string            `bun:"clicker_id,notnull,unique" json:"clickerId"`
	Name      string            `bun:"name" json:"name,omitempty"`
	Email     string            `bun:"email" json:"email,omitempty"`
	QuizID    *int64            `bun:"quiz_id" json:"quizId"`
	Status    ParticipantStatus `bun:"status,notnull,default:'active'" json:"status"`
	CreatedAt time.Time         `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`

	Answers []*Answer `bun:"rel:has-many,join:clicker_id=clicker_id" json:"answers,omitempty"`
}
