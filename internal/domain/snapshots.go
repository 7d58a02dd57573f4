package domain

import "time"

// QuizState is the cache-resident snapshot of a quiz used for fast reads.
type QuizState struct {
	QuizID            int64      `json:"quizId"`
	Title             string     `json:"title"`
	Status            QuizStatus `json:"status"`
	CurrentQuestionID *int64     `json:"currentQuestionId"`
	TotalQuestions    int        `json:"totalQuestions"`
	StartedAt         *time.Time `json:"startedAt"`
}

// QuestionState is the cache-resident snapshot of a question. While Active is
// true (and the snapshot's TTL has not elapsed) the question accepts answers.
type QuestionState struct {
	QuestionID    int64                   `json:"questionId"`
	QuizID        int64                   `json:"quizId"`
	Text          string                  `json:"text"`
	Options       map[AnswerOption]string `json:"options"`
	CorrectAnswer AnswerOption            `json:"correctAnswer"`
	TimeLimit     int                     `json:"timeLimit"`
	StartedAt     *time.Time              `json:"startedAt"`
	Active        bool                    `json:"active"`
}

// QuestionStats holds the per-option submission counters for a question.
// Counters count submission events: a clicker changing its answer increments
// the newly selected option without decrementing the old one. The
// deduplicated distribution lives in quiz results, computed from durable rows.
type QuestionStats struct {
	A     int64 `json:"A"`
	B     int64 `json:"B"`
	C     int64 `json:"C"`
	D     int64 `json:"D"`
	Total int64 `json:"total"`
}

// Count returns the counter for a single option.
func (s QuestionStats) Count(o AnswerOption) int64 {
	switch o {
	case OptionA:
		return s.A
	case OptionB:
		return s.B
	case OptionC:
		return s.C
	case OptionD:
		return s.D
	}
	return 0
}

// LeaderboardEntry is one ranked row of a quiz leaderboard.
type LeaderboardEntry struct {
	ClickerID string `json:"clickerId"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank"`
}

// Leaderboard is the ordered scoreboard for a quiz. Ties order by clicker id
// ascending.
type Leaderboard struct {
	QuizID    int64              `json:"quizId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RankInfo is a single participant's position within a quiz leaderboard.
// Rank and Score are nil when the participant has no leaderboard entry.
// TotalParticipants comes from the participant set, not the leaderboard, so
// it includes clickers that have not scored yet.
type RankInfo struct {
	ClickerID         string `json:"clickerId"`
	Rank              *int   `json:"rank"`
	Score             *int   `json:"score"`
	TotalParticipants int    `json:"totalParticipants"`
}

// ActiveQuizInfo is the bootstrap payload sent to a freshly connected session.
type ActiveQuizInfo struct {
	Active           bool           `json:"active"`
	QuizID           *int64         `json:"quizId"`
	Quiz             *QuizState     `json:"quiz,omitempty"`
	CurrentQuestion  *QuestionState `json:"currentQuestion,omitempty"`
	ParticipantCount int            `json:"participantCount"`
}

// AnswerLogEntry is one raw submission appended to a question's cached answer
// log. The log is an append-only audit trail; dedup happens at read time.
type AnswerLogEntry struct {
	ClickerID      string       `json:"clickerId"`
	SelectedAnswer AnswerOption `json:"selectedAnswer"`
	IsCorrect      bool         `json:"isCorrect"`
	ResponseTime   *float64     `json:"responseTime"`
	Timestamp      time.Time    `json:"timestamp"`
}

// QuestionResult is the per-question breakdown within quiz results, computed
// from the deduplicated durable answer rows.
type QuestionResult struct {
	QuestionID    int64                  `json:"questionId"`
	Text          string                 `json:"text"`
	CorrectAnswer AnswerOption           `json:"correctAnswer"`
	TotalAnswers  int                    `json:"totalAnswers"`
	CorrectCount  int                    `json:"correctCount"`
	Stats         map[AnswerOption]int   `json:"stats"`
	Answers       []QuestionResultAnswer `json:"answers"`
}

// QuestionResultAnswer is a single clicker's final answer within results.
type QuestionResultAnswer struct {
	ClickerID      string       `json:"clickerId"`
	SelectedAnswer AnswerOption `json:"selectedAnswer"`
	IsCorrect      bool         `json:"isCorrect"`
	ResponseTime   *float64     `json:"responseTime"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// QuizResults is the full post-hoc breakdown for a quiz.
type QuizResults struct {
	Quiz    *Quiz            `json:"quiz"`
	Results []QuestionResult `json:"results"`
}

// ParticipantStats summarizes a single clicker's answer history.
type ParticipantStats struct {
	Participant    *Participant `json:"participant"`
	TotalAnswers   int          `json:"totalAnswers"`
	CorrectAnswers int          `json:"correctAnswers"`
	Accuracy       float64      `json:"accuracy"`
	Answers        []*Answer    `json:"answers"`
}
