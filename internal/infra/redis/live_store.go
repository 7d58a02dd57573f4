// Package redis implements the fast shared state layer: quiz and question
// snapshots, the global active-quiz pointer, per-question tallies, the
// per-quiz leaderboard and participant set, and the cross-instance pub/sub
// bus. All mutations use Redis atomic primitives so concurrent submissions
// from many gateway sessions never read-modify-write in the engine.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"clicker-quiz-service/internal/domain"
	"clicker-quiz-service/internal/pkg/logger"
)

// KeepTTL passed as a snapshot TTL preserves the key's remaining expiry.
const KeepTTL = time.Duration(redis.KeepTTL)

// LiveStore is the Redis-backed ephemeral state client.
type LiveStore struct {
	client *redis.Client
	log    *logger.Logger
}

func NewLiveStore(client *redis.Client, log *logger.Logger) *LiveStore {
	return &LiveStore{client: client, log: log.With("component", "livestore")}
}

// Client exposes the underlying connection for the pub/sub bus.
func (s *LiveStore) Client() *redis.Client { return s.client }

func quizStateKey(quizID int64) string { return fmt.Sprintf("quiz:%d:state", quizID) }

func questionStateKey(questionID int64) string { return fmt.Sprintf("question:%d:state", questionID) }

func currentQuestionKey(quizID int64) string { return fmt.Sprintf("quiz:%d:current_question", quizID) }

func answerLogKey(questionID int64) string { return fmt.Sprintf("answers:question:%d", questionID) }

func statKey(questionID int64, o domain.AnswerOption) string {
	return fmt.Sprintf("stats:question:%d:%s", questionID, o)
}

func leaderboardKey(quizID int64) string { return fmt.Sprintf("leaderboard:quiz:%d", quizID) }

func participantsKey(quizID int64) string { return fmt.Sprintf("participants:quiz:%d", quizID) }

const activeQuizKey = "quiz:active"

// ---- quiz snapshot ----

// SetQuizState writes the quiz snapshot. A zero ttl means no expiry.
func (s *LiveStore) SetQuizState(ctx context.Context, st domain.QuizState, ttl time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal quiz state: %w", err)
	}
	if err := s.client.Set(ctx, quizStateKey(st.QuizID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set quiz state: %w", err)
	}
	return nil
}

// QuizState reads the quiz snapshot. A cache miss returns (nil, nil).
func (s *LiveStore) QuizState(ctx context.Context, quizID int64) (*domain.QuizState, error) {
	data, err := s.client.Get(ctx, quizStateKey(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz state: %w", err)
	}
	var st domain.QuizState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal quiz state: %w", err)
	}
	return &st, nil
}

// ---- active quiz pointer ----

// SetActiveQuiz marks quizID as THE globally active quiz, evicting any prior
// pointer.
func (s *LiveStore) SetActiveQuiz(ctx context.Context, quizID int64) error {
	if err := s.client.Set(ctx, activeQuizKey, strconv.FormatInt(quizID, 10), 0).Err(); err != nil {
		return fmt.Errorf("set active quiz: %w", err)
	}
	return nil
}

// ActiveQuiz resolves the global pointer. ok is false when no quiz is active.
func (s *LiveStore) ActiveQuiz(ctx context.Context) (int64, bool, error) {
	raw, err := s.client.Get(ctx, activeQuizKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get active quiz: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse active quiz pointer %q: %w", raw, err)
	}
	return id, true, nil
}

// ClearActiveQuiz drops the global pointer if it still points at quizID.
// Another quiz taking over between the read and the delete leaves the newer
// pointer intact.
func (s *LiveStore) ClearActiveQuiz(ctx context.Context, quizID int64) error {
	current, ok, err := s.ActiveQuiz(ctx)
	if err != nil {
		return err
	}
	if !ok || current != quizID {
		return nil
	}
	if err := s.client.Del(ctx, activeQuizKey).Err(); err != nil {
		return fmt.Errorf("clear active quiz: %w", err)
	}
	return nil
}

// ---- question snapshot / current-question pointer ----

// SetQuestionState writes the question snapshot. ttl > 0 bounds the accept
// window; KeepTTL rewrites the value preserving the remaining expiry (used
// when flipping the active flag off).
func (s *LiveStore) SetQuestionState(ctx context.Context, st domain.QuestionState, ttl time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal question state: %w", err)
	}
	if err := s.client.Set(ctx, questionStateKey(st.QuestionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set question state: %w", err)
	}
	return nil
}

// QuestionState reads a question snapshot. A cache miss (including TTL
// expiry) returns (nil, nil).
func (s *LiveStore) QuestionState(ctx context.Context, questionID int64) (*domain.QuestionState, error) {
	data, err := s.client.Get(ctx, questionStateKey(questionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question state: %w", err)
	}
	var st domain.QuestionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal question state: %w", err)
	}
	return &st, nil
}

// DeactivateQuestion flips the cached snapshot's active flag off in place,
// preserving the remaining TTL. Missing snapshots are a no-op: expiry already
// closed the window.
func (s *LiveStore) DeactivateQuestion(ctx context.Context, questionID int64) error {
	st, err := s.QuestionState(ctx, questionID)
	if err != nil {
		return err
	}
	if st == nil || !st.Active {
		return nil
	}
	st.Active = false
	return s.SetQuestionState(ctx, *st, KeepTTL)
}

// SetCurrentQuestion writes the per-quiz current-question pointer with the
// question's accept-window TTL.
func (s *LiveStore) SetCurrentQuestion(ctx context.Context, quizID, questionID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, currentQuestionKey(quizID), strconv.FormatInt(questionID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("set current question: %w", err)
	}
	return nil
}

// CurrentQuestion reads the per-quiz pointer. ok is false on miss or expiry.
func (s *LiveStore) CurrentQuestion(ctx context.Context, quizID int64) (int64, bool, error) {
	raw, err := s.client.Get(ctx, currentQuestionKey(quizID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get current question: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse current question pointer %q: %w", raw, err)
	}
	return id, true, nil
}

// ClearCurrentQuestion drops the per-quiz pointer.
func (s *LiveStore) ClearCurrentQuestion(ctx context.Context, quizID int64) error {
	if err := s.client.Del(ctx, currentQuestionKey(quizID)).Err(); err != nil {
		return fmt.Errorf("clear current question: %w", err)
	}
	return nil
}

// ---- answer log and tally ----

// ResetQuestionTally clears the answer log and all four option counters.
// StartQuestion calls this so a (re)started question begins with a fresh
// tally.
func (s *LiveStore) ResetQuestionTally(ctx context.Context, questionID int64) error {
	keys := []string{answerLogKey(questionID)}
	for _, o := range domain.Options() {
		keys = append(keys, statKey(questionID, o))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset question tally: %w", err)
	}
	return nil
}

// AppendAnswer pushes a raw submission onto the question's audit log,
// newest first.
func (s *LiveStore) AppendAnswer(ctx context.Context, questionID int64, entry domain.AnswerLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal answer entry: %w", err)
	}
	if err := s.client.LPush(ctx, answerLogKey(questionID), data).Err(); err != nil {
		return fmt.Errorf("append answer: %w", err)
	}
	return nil
}

// AnswerLog returns every raw submission for a question, newest first.
func (s *LiveStore) AnswerLog(ctx context.Context, questionID int64) ([]domain.AnswerLogEntry, error) {
	raw, err := s.client.LRange(ctx, answerLogKey(questionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read answer log: %w", err)
	}
	entries := make([]domain.AnswerLogEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.AnswerLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.log.Warn("skipping bad answer log entry", "question_id", questionID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// IncrOption bumps the submission counter for one option.
func (s *LiveStore) IncrOption(ctx context.Context, questionID int64, o domain.AnswerOption) (int64, error) {
	n, err := s.client.Incr(ctx, statKey(questionID, o)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr option %s: %w", o, err)
	}
	return n, nil
}

// Stats reads the four option counters concurrently and sums them.
func (s *LiveStore) Stats(ctx context.Context, questionID int64) (domain.QuestionStats, error) {
	var counts [4]int64
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range domain.Options() {
		i, o := i, o
		g.Go(func() error {
			raw, err := s.client.Get(gctx, statKey(questionID, o)).Result()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("get stat %s: %w", o, err)
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("parse stat %s=%q: %w", o, raw, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.QuestionStats{}, err
	}
	stats := domain.QuestionStats{A: counts[0], B: counts[1], C: counts[2], D: counts[3]}
	stats.Total = stats.A + stats.B + stats.C + stats.D
	return stats, nil
}

// ---- leaderboard ----

// IncrScore adds delta to a clicker's cumulative score via ZINCRBY.
func (s *LiveStore) IncrScore(ctx context.Context, quizID int64, clickerID string, delta int) error {
	if err := s.client.ZIncrBy(ctx, leaderboardKey(quizID), float64(delta), clickerID).Err(); err != nil {
		return fmt.Errorf("incr score: %w", err)
	}
	return nil
}

// EnsureScore inserts the clicker at score 0 unless already present, so new
// registrants appear ranked-but-last immediately.
func (s *LiveStore) EnsureScore(ctx context.Context, quizID int64, clickerID string) error {
	if err := s.client.ZAddNX(ctx, leaderboardKey(quizID), redis.Z{Score: 0, Member: clickerID}).Err(); err != nil {
		return fmt.Errorf("ensure score: %w", err)
	}
	return nil
}

// RemoveScore drops the clicker from the leaderboard.
func (s *LiveStore) RemoveScore(ctx context.Context, quizID int64, clickerID string) error {
	if err := s.client.ZRem(ctx, leaderboardKey(quizID), clickerID).Err(); err != nil {
		return fmt.Errorf("remove score: %w", err)
	}
	return nil
}

// Leaderboard returns the top-limit entries ordered by score descending,
// ties by clicker id ascending, with 1-indexed ranks assigned after the
// tie-break.
func (s *LiveStore) Leaderboard(ctx context.Context, quizID int64, limit int) ([]domain.LeaderboardEntry, error) {
	// The tie-break runs over the full set before the page is cut. Redis
	// orders ties reverse-lexicographically, so truncating inside Redis
	// could drop a member that the tie-break places inside the page.
	rows, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey(quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	entries := rankEntries(rows)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Rank computes a clicker's 1-indexed rank over the full leaderboard, using
// the same tie-break as Leaderboard so the two views agree. ok is false when
// the clicker has no entry.
func (s *LiveStore) Rank(ctx context.Context, quizID int64, clickerID string) (rank, score int, ok bool, err error) {
	rows, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey(quizID), 0, -1).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("read leaderboard: %w", err)
	}
	for _, e := range rankEntries(rows) {
		if e.ClickerID == clickerID {
			return e.Rank, e.Score, true, nil
		}
	}
	return 0, 0, false, nil
}

func rankEntries(rows []redis.Z) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, z := range rows {
		clickerID, _ := z.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{
			ClickerID: clickerID,
			Score:     int(z.Score),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ClickerID < entries[j].ClickerID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// ---- participant set ----

// AddParticipant adds a clicker to the quiz's membership set.
func (s *LiveStore) AddParticipant(ctx context.Context, quizID int64, clickerID string) error {
	if err := s.client.SAdd(ctx, participantsKey(quizID), clickerID).Err(); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes a clicker from the quiz's membership set.
func (s *LiveStore) RemoveParticipant(ctx context.Context, quizID int64, clickerID string) error {
	if err := s.client.SRem(ctx, participantsKey(quizID), clickerID).Err(); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

// Participants lists every clicker in the quiz's membership set.
func (s *LiveStore) Participants(ctx context.Context, quizID int64) ([]string, error) {
	members, err := s.client.SMembers(ctx, participantsKey(quizID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	return members, nil
}

// ParticipantCount returns the membership set cardinality.
func (s *LiveStore) ParticipantCount(ctx context.Context, quizID int64) (int, error) {
	n, err := s.client.SCard(ctx, participantsKey(quizID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return int(n), nil
}

// ---- purge ----

// PurgeQuiz deletes every ephemeral key derived from the quiz, including the
// tallies and snapshots of the given questions, and drops the active pointer
// if it references the quiz. Callers supply the question ids so no keyspace
// scan is needed.
func (s *LiveStore) PurgeQuiz(ctx context.Context, quizID int64, questionIDs []int64) error {
	keys := []string{
		quizStateKey(quizID),
		currentQuestionKey(quizID),
		leaderboardKey(quizID),
		participantsKey(quizID),
	}
	for _, qid := range questionIDs {
		keys = append(keys, questionStateKey(qid), answerLogKey(qid))
		for _, o := range domain.Options() {
			keys = append(keys, statKey(qid, o))
		}
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("purge quiz: %w", err)
	}
	return s.ClearActiveQuiz(ctx, quizID)
}
