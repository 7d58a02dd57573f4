package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates a quiz lookup miss.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question lookup miss.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound indicates a participant lookup miss.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrAnswerNotFound indicates an answer lookup miss.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrQuestionNotActive is returned on submissions for questions that never
	// started, already ended, or whose time limit has elapsed.
	ErrQuestionNotActive = errors.New("question is not accepting answers")
	// ErrQuestionNotInQuiz is returned when a question does not belong to the
	// quiz it is being started under.
	ErrQuestionNotInQuiz = errors.New("question does not belong to quiz")
	// ErrNoActiveQuiz indicates no quiz is currently designated as live.
	ErrNoActiveQuiz = errors.New("no active quiz")
)

// ValidationError reports malformed input rejected before any state mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
