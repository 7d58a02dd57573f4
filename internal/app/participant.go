package app

import (
	"context"
	"math"

	"clicker-quiz-service/internal/domain"
)

// RegisterParticipant upserts a clicker identity. Re-registering with a
// different non-empty name updates the stored name. When a quiz is globally
// active the clicker joins its participant set and gets a zero leaderboard
// entry, so it ranks last immediately instead of being absent.
func (s *Service) RegisterParticipant(ctx context.Context, in RegisterParticipantInput) (*domain.Participant, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	activeQuiz, hasActive, err := s.live.ActiveQuiz(ctx)
	if err != nil {
		s.log.Warn("active quiz read failed during registration", "error", err)
		hasActive = false
	}

	participant, err := s.participants.ByClickerID(ctx, in.ClickerID)
	if err != nil {
		return nil, err
	}
	if participant != nil {
		if in.Name != "" && in.Name != participant.Name {
			participant.Name = in.Name
			if err := s.participants.Update(ctx, participant); err != nil {
				return nil, err
			}
		}
	} else {
		participant = &domain.Participant{
			ClickerID: in.ClickerID,
			Name:      in.Name,
			Status:    domain.ParticipantActive,
		}
		if hasActive {
			participant.QuizID = &activeQuiz
		}
		if err := s.participants.Create(ctx, participant); err != nil {
			return nil, err
		}
	}

	if hasActive {
		if err := s.live.AddParticipant(ctx, activeQuiz, in.ClickerID); err != nil {
			s.log.Warn("participant set add failed", "quiz_id", activeQuiz, "error", err)
		}
		if err := s.live.EnsureScore(ctx, activeQuiz, in.ClickerID); err != nil {
			s.log.Warn("zero score seed failed", "quiz_id", activeQuiz, "error", err)
		}
	}
	s.publish(ctx, domain.ChannelClickerConnected, domain.ClickerEvent{
		ClickerID: in.ClickerID,
		Name:      in.Name,
		Timestamp: s.now(),
	})
	return participant, nil
}

// Participants lists every registered participant, newest first.
func (s *Service) Participants(ctx context.Context) ([]*domain.Participant, error) {
	return s.participants.All(ctx)
}

// ParticipantStats summarizes one clicker's answer history, with accuracy
// rounded to two decimals.
func (s *Service) ParticipantStats(ctx context.Context, clickerID string) (*domain.ParticipantStats, error) {
	participant, err := s.participants.WithAnswers(ctx, clickerID)
	if err != nil {
		return nil, err
	}
	stats := &domain.ParticipantStats{
		Participant:  participant,
		TotalAnswers: len(participant.Answers),
		Answers:      participant.Answers,
	}
	for _, a := range participant.Answers {
		if a.IsCorrect {
			stats.CorrectAnswers++
		}
	}
	if stats.TotalAnswers > 0 {
		accuracy := float64(stats.CorrectAnswers) / float64(stats.TotalAnswers) * 100
		stats.Accuracy = math.Round(accuracy*100) / 100
	}
	return stats, nil
}

// DeleteParticipant removes the durable record and scrubs the clicker from
// the active quiz's participant set and leaderboard.
func (s *Service) DeleteParticipant(ctx context.Context, id int64) error {
	participant, err := s.participants.ByID(ctx, id)
	if err != nil {
		return err
	}
	if activeQuiz, ok, err := s.live.ActiveQuiz(ctx); err != nil {
		s.log.Warn("active quiz read failed during participant delete", "error", err)
	} else if ok {
		if err := s.live.RemoveParticipant(ctx, activeQuiz, participant.ClickerID); err != nil {
			s.log.Warn("participant set removal failed", "quiz_id", activeQuiz, "error", err)
		}
		if err := s.live.RemoveScore(ctx, activeQuiz, participant.ClickerID); err != nil {
			s.log.Warn("leaderboard removal failed", "quiz_id", activeQuiz, "error", err)
		}
	}
	if err := s.participants.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, domain.ChannelClickerGone, domain.ClickerEvent{
		ClickerID: participant.ClickerID,
		Timestamp: s.now(),
	})
	return nil
}

// DisconnectClicker drops a clicker from the active quiz's participant set
// when its session goes away. The durable record and leaderboard entry
// survive reconnects.
func (s *Service) DisconnectClicker(ctx context.Context, clickerID string) {
	activeQuiz, ok, err := s.live.ActiveQuiz(ctx)
	if err != nil || !ok {
		return
	}
	if err := s.live.RemoveParticipant(ctx, activeQuiz, clickerID); err != nil {
		s.log.Warn("participant set removal failed", "quiz_id", activeQuiz, "error", err)
	}
	s.publish(ctx, domain.ChannelClickerGone, domain.ClickerEvent{
		ClickerID: clickerID,
		Timestamp: s.now(),
	})
}
