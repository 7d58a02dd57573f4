package app

import (
	"context"
	"fmt"

	"clicker-quiz-service/internal/domain"
)

// SubmitAnswer is the ingestion and scoring pipeline for one clicker
// submission:
//
//  1. Gate on the cached question snapshot: absent, inactive, or expired
//     snapshots fail closed with ErrQuestionNotActive.
//  2. Score against the snapshot's correct answer.
//  3. Deduplicate by (clicker, question) in the durable store; a repeat
//     submission overwrites the prior row instead of inserting. The database
//     uniqueness constraint backs this up when two submissions race past the
//     existence check.
//  4. Lazily register the participant on a first-ever submission.
//  5. Append to the cached audit log and bump the option counter (counters
//     count submission events, including overwrites).
//  6. Award a leaderboard point when the answer turns correct; otherwise seed
//     a zero entry so every submitter ranks. Scores never decrease on a
//     correct-to-incorrect change.
//  7. Broadcast answer-received, stats-updated, and (on a scoring change)
//     leaderboard-updated events.
func (s *Service) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (*domain.Answer, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	qs, err := s.live.QuestionState(ctx, in.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("read question gate: %w", err)
	}
	if qs == nil || !qs.Active {
		return nil, domain.ErrQuestionNotActive
	}

	isCorrect := in.SelectedAnswer == qs.CorrectAnswer

	existing, err := s.answers.ByClickerAndQuestion(ctx, in.ClickerID, in.QuestionID)
	if err != nil {
		return nil, err
	}
	wasCorrect := existing != nil && existing.IsCorrect

	answer := &domain.Answer{
		QuestionID:     in.QuestionID,
		ClickerID:      in.ClickerID,
		SelectedAnswer: in.SelectedAnswer,
		IsCorrect:      isCorrect,
		ResponseTime:   in.ResponseTime,
	}
	if existing == nil {
		participant, err := s.ensureParticipant(ctx, in.ClickerID, qs.QuizID)
		if err != nil {
			return nil, err
		}
		answer.ParticipantID = &participant.ID
	} else {
		answer.ParticipantID = existing.ParticipantID
	}
	if err := s.answers.Upsert(ctx, answer); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.live.AppendAnswer(ctx, in.QuestionID, domain.AnswerLogEntry{
		ClickerID:      in.ClickerID,
		SelectedAnswer: in.SelectedAnswer,
		IsCorrect:      isCorrect,
		ResponseTime:   in.ResponseTime,
		Timestamp:      now,
	}); err != nil {
		s.log.Warn("answer log append failed", "question_id", in.QuestionID, "error", err)
	}
	if _, err := s.live.IncrOption(ctx, in.QuestionID, in.SelectedAnswer); err != nil {
		s.log.Warn("option counter bump failed", "question_id", in.QuestionID, "error", err)
	}
	if err := s.live.AddParticipant(ctx, qs.QuizID, in.ClickerID); err != nil {
		s.log.Warn("participant set add failed", "quiz_id", qs.QuizID, "error", err)
	}

	scored := isCorrect && !wasCorrect
	if scored {
		if err := s.live.IncrScore(ctx, qs.QuizID, in.ClickerID, 1); err != nil {
			s.log.Warn("score increment failed", "quiz_id", qs.QuizID, "clicker_id", in.ClickerID, "error", err)
		}
	} else if err := s.live.EnsureScore(ctx, qs.QuizID, in.ClickerID); err != nil {
		s.log.Warn("zero score seed failed", "quiz_id", qs.QuizID, "clicker_id", in.ClickerID, "error", err)
	}

	s.publish(ctx, domain.ChannelAnswerReceived, domain.AnswerReceivedEvent{
		QuestionID:     in.QuestionID,
		ClickerID:      in.ClickerID,
		SelectedAnswer: in.SelectedAnswer,
		IsCorrect:      isCorrect,
		ResponseTime:   in.ResponseTime,
		Timestamp:      now,
	})
	if stats, err := s.live.Stats(ctx, in.QuestionID); err != nil {
		s.log.Warn("stats read for broadcast failed", "question_id", in.QuestionID, "error", err)
	} else {
		s.publish(ctx, domain.ChannelStatsUpdated, domain.StatsUpdatedEvent{
			QuestionID:   in.QuestionID,
			Stats:        stats,
			TotalAnswers: stats.Total,
			Timestamp:    now,
		})
	}
	if scored {
		if lb, err := s.QuizLeaderboard(ctx, qs.QuizID, s.leaderboardLimit); err != nil {
			s.log.Warn("leaderboard read for broadcast failed", "quiz_id", qs.QuizID, "error", err)
		} else {
			s.publish(ctx, domain.ChannelLeaderboardUpdated, domain.LeaderboardUpdatedEvent{
				QuizID:      qs.QuizID,
				Leaderboard: lb,
				Timestamp:   now,
			})
		}
	}
	return answer, nil
}

// AnswersByQuestion returns the deduplicated durable answers for a question,
// oldest first. This, not the cached audit log, is the read source for
// results.
func (s *Service) AnswersByQuestion(ctx context.Context, questionID int64) ([]*domain.Answer, error) {
	return s.answers.ByQuestion(ctx, questionID)
}

// AnswerLog exposes the raw cached submission trail, newest first, including
// superseded submissions from clickers that changed their answer.
func (s *Service) AnswerLog(ctx context.Context, questionID int64) ([]domain.AnswerLogEntry, error) {
	return s.live.AnswerLog(ctx, questionID)
}

// ensureParticipant upserts the durable participant record for a clicker
// submitting for the first time.
func (s *Service) ensureParticipant(ctx context.Context, clickerID string, quizID int64) (*domain.Participant, error) {
	participant, err := s.participants.ByClickerID(ctx, clickerID)
	if err != nil {
		return nil, err
	}
	if participant != nil {
		return participant, nil
	}
	participant = &domain.Participant{
		ClickerID: clickerID,
		QuizID:    &quizID,
		Status:    domain.ParticipantActive,
	}
	if err := s.participants.Create(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}
