package app

import (
	"context"

	"clicker-quiz-service/internal/domain"
)

// QuizLeaderboard returns the top-limit participants by cumulative correct
// answers, descending, ties by clicker id ascending. limit <= 0 returns the
// full board.
func (s *Service) QuizLeaderboard(ctx context.Context, quizID int64, limit int) (domain.Leaderboard, error) {
	entries, err := s.live.Leaderboard(ctx, quizID, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		QuizID:    quizID,
		Entries:   entries,
		UpdatedAt: s.now(),
	}, nil
}

// ParticipantRank reports a clicker's 1-indexed rank within a quiz. Rank and
// score are nil for clickers without a leaderboard entry. The total comes
// from the participant set, which can exceed the leaderboard cardinality
// while zero-score clickers have not been seeded.
func (s *Service) ParticipantRank(ctx context.Context, quizID int64, clickerID string) (domain.RankInfo, error) {
	info := domain.RankInfo{ClickerID: clickerID}

	rank, score, ok, err := s.live.Rank(ctx, quizID, clickerID)
	if err != nil {
		return info, err
	}
	if ok {
		info.Rank = &rank
		info.Score = &score
	}
	total, err := s.live.ParticipantCount(ctx, quizID)
	if err != nil {
		return info, err
	}
	info.TotalParticipants = total
	return info, nil
}
