package app

import (
	"context"

	"clicker-quiz-service/internal/domain"
)

const defaultTimeLimit = 30

// CreateQuestion stores a new question under an existing quiz.
func (s *Service) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*domain.Question, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	if _, err := s.quizzes.ByID(ctx, in.QuizID); err != nil {
		return nil, err
	}
	timeLimit := in.TimeLimit
	if timeLimit == 0 {
		timeLimit = defaultTimeLimit
	}
	question := &domain.Question{
		QuizID:        in.QuizID,
		Text:          in.Text,
		OptionA:       in.OptionA,
		OptionB:       in.OptionB,
		OptionC:       in.OptionC,
		OptionD:       in.OptionD,
		CorrectAnswer: in.CorrectAnswer,
		TimeLimit:     timeLimit,
		OrderIndex:    in.OrderIndex,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// QuestionByID loads one question.
func (s *Service) QuestionByID(ctx context.Context, id int64) (*domain.Question, error) {
	return s.questions.ByID(ctx, id)
}

// QuestionsByQuiz lists a quiz's questions in sequencing order.
func (s *Service) QuestionsByQuiz(ctx context.Context, quizID int64) ([]*domain.Question, error) {
	return s.questions.ByQuiz(ctx, quizID)
}

// UpdateQuestion applies the non-nil fields of in.
func (s *Service) UpdateQuestion(ctx context.Context, id int64, in UpdateQuestionInput) (*domain.Question, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	question, err := s.questions.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Text != nil {
		question.Text = *in.Text
	}
	if in.OptionA != nil {
		question.OptionA = *in.OptionA
	}
	if in.OptionB != nil {
		question.OptionB = *in.OptionB
	}
	if in.OptionC != nil {
		question.OptionC = *in.OptionC
	}
	if in.OptionD != nil {
		question.OptionD = *in.OptionD
	}
	if in.CorrectAnswer != nil {
		question.CorrectAnswer = *in.CorrectAnswer
	}
	if in.TimeLimit != nil {
		question.TimeLimit = *in.TimeLimit
	}
	if in.OrderIndex != nil {
		question.OrderIndex = *in.OrderIndex
	}
	if err := s.questions.Update(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// DeleteQuestion removes the question; its durable answers cascade and its
// ephemeral snapshot and tally are dropped.
func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	if err := s.questions.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.live.DeactivateQuestion(ctx, id); err != nil {
		s.log.Warn("question deactivation failed", "question_id", id, "error", err)
	}
	if err := s.live.ResetQuestionTally(ctx, id); err != nil {
		s.log.Warn("tally cleanup failed", "question_id", id, "error", err)
	}
	return nil
}

// QuestionStats returns the live per-option counters and their sum. This is
// the fast path: counters reflect submission events (answer changes increment
// the new option without decrementing the old), so the numbers can exceed the
// deduplicated answer count. QuizResults holds the authoritative
// distribution.
func (s *Service) QuestionStats(ctx context.Context, questionID int64) (domain.QuestionStats, error) {
	return s.live.Stats(ctx, questionID)
}
