package domain

import "time"

// Pub/sub channels shared by every server instance. Each instance's gateway
// subscribes to all of them and relays messages to its own connected
// sessions, so a mutation on one instance reaches every client.
const (
	ChannelAnswerReceived     = "quiz:answer:received"
	ChannelStatsUpdated       = "question:stats:updated"
	ChannelLeaderboardUpdated = "quiz:leaderboard:updated"
	ChannelQuizStateChanged   = "quiz:state:changed"
	ChannelQuestionChanged    = "quiz:question:changed"
	ChannelClickerConnected   = "clicker:connected"
	ChannelClickerGone        = "clicker:disconnected"
)

// Channels lists every broadcast channel the gateway must subscribe to.
func Channels() []string {
	return []string{
		ChannelAnswerReceived,
		ChannelStatsUpdated,
		ChannelLeaderboardUpdated,
		ChannelQuizStateChanged,
		ChannelQuestionChanged,
		ChannelClickerConnected,
		ChannelClickerGone,
	}
}

// AnswerReceivedEvent is broadcast after every accepted submission.
type AnswerReceivedEvent struct {
	QuestionID     int64        `json:"questionId"`
	ClickerID      string       `json:"clickerId"`
	SelectedAnswer AnswerOption `json:"selectedAnswer"`
	IsCorrect      bool         `json:"isCorrect"`
	ResponseTime   *float64     `json:"responseTime"`
	Timestamp      time.Time    `json:"timestamp"`
}

// StatsUpdatedEvent carries the fresh per-option counters for a question.
type StatsUpdatedEvent struct {
	QuestionID   int64         `json:"questionId"`
	Stats        QuestionStats `json:"stats"`
	TotalAnswers int64         `json:"totalAnswers"`
	Timestamp    time.Time     `json:"timestamp"`
}

// LeaderboardUpdatedEvent carries a fresh leaderboard page for a quiz.
type LeaderboardUpdatedEvent struct {
	QuizID      int64       `json:"quizId"`
	Leaderboard Leaderboard `json:"leaderboard"`
	Timestamp   time.Time   `json:"timestamp"`
}

// QuizStateChangedEvent is broadcast on quiz start/end/delete transitions.
type QuizStateChangedEvent struct {
	QuizID    int64      `json:"quizId"`
	Status    QuizStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

// QuestionChangedEvent is broadcast on question start/end transitions.
// Question is nil when the quiz no longer has a current question.
type QuestionChangedEvent struct {
	QuizID    int64          `json:"quizId"`
	Question  *QuestionState `json:"question"`
	Timestamp time.Time      `json:"timestamp"`
}

// ClickerEvent is broadcast when a clicker registers or disconnects.
type ClickerEvent struct {
	ClickerID string    `json:"clickerId"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
