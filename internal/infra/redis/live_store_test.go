package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"clicker-quiz-service/internal/domain"
	redisinfra "clicker-quiz-service/internal/infra/redis"
	"clicker-quiz-service/internal/pkg/logger"
)

func newLiveStore(t *testing.T) (*redisinfra.LiveStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisinfra.NewLiveStore(client, logger.NewNop()), mr
}

func TestQuizStateRoundTrip(t *testing.T) {
	store, mr := newLiveStore(t)
	ctx := context.Background()

	questionID := int64(7)
	st := domain.QuizState{
		QuizID:            3,
		Title:             "Science",
		Status:            domain.QuizActive,
		CurrentQuestionID: &questionID,
		TotalQuestions:    5,
	}
	if err := store.SetQuizState(ctx, st, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("quiz:3:state") {
		t.Fatalf("expected quiz:3:state key")
	}

	got, err := store.QuizState(ctx, 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Title != "Science" || *got.CurrentQuestionID != 7 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	got, err = store.QuizState(ctx, 3)
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired snapshot to read as a miss, got %+v", got)
	}
}

func TestActiveQuizPointer(t *testing.T) {
	store, _ := newLiveStore(t)
	ctx := context.Background()

	if _, ok, err := store.ActiveQuiz(ctx); err != nil || ok {
		t.Fatalf("expected no active quiz, ok=%v err=%v", ok, err)
	}

	if err := store.SetActiveQuiz(ctx, 5); err != nil {
		t.Fatalf("set: %v", err)
	}
	id, ok, err := store.ActiveQuiz(ctx)
	if err != nil || !ok || id != 5 {
		t.Fatalf("expected quiz 5 active, got id=%d ok=%v err=%v", id, ok, err)
	}

	// Clearing on behalf of a quiz that no longer holds the slot is a no-op.
	if err := store.SetActiveQuiz(ctx, 6); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := store.ClearActiveQuiz(ctx, 5); err != nil {
		t.Fatalf("stale clear: %v", err)
	}
	if id, ok, _ := store.ActiveQuiz(ctx); !ok || id != 6 {
		t.Fatalf("stale clear must not evict the current holder, got id=%d ok=%v", id, ok)
	}

	if err := store.ClearActiveQuiz(ctx, 6); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.ActiveQuiz(ctx); ok {
		t.Fatalf("expected cleared pointer")
	}
}

func TestQuestionStateExpiresWithTimeLimit(t *testing.T) {
	store, mr := newLiveStore(t)
	ctx := context.Background()

	st := domain.QuestionState{
		QuestionID:    11,
		QuizID:        3,
		Text:          "Pick one",
		CorrectAnswer: domain.OptionC,
		TimeLimit:     10,
		Active:        true,
	}
	if err := store.SetQuestionState(ctx, st, 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.QuestionState(ctx, 11)
	if err != nil || got == nil || !got.Active {
		t.Fatalf("expected active snapshot, got %+v err=%v", got, err)
	}

	mr.FastForward(11 * time.Second)
	got, err = store.QuestionState(ctx, 11)
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected TTL to close the window, got %+v", got)
	}
}

func TestDeactivateQuestionPreservesTTL(t *testing.T) {
	store, mr := newLiveStore(t)
	ctx := context.Background()

	st := domain.QuestionState{QuestionID: 11, QuizID: 3, TimeLimit: 30, Active: true}
	if err := store.SetQuestionState(ctx, st, 30*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.DeactivateQuestion(ctx, 11); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := store.QuestionState(ctx, 11)
	if err != nil || got == nil {
		t.Fatalf("expected snapshot to survive deactivation, got %+v err=%v", got, err)
	}
	if got.Active {
		t.Fatalf("expected inactive snapshot")
	}
	if ttl := mr.TTL("question:11:state"); ttl <= 0 || ttl > 30*time.Second {
		t.Fatalf("deactivation must keep the original expiry, got %v", ttl)
	}

	// Deactivating an absent question is not an error.
	if err := store.DeactivateQuestion(ctx, 999); err != nil {
		t.Fatalf("absent deactivate: %v", err)
	}
}

func TestStatsCountersAndReset(t *testing.T) {
	store, _ := newLiveStore(t)
	ctx := context.Background()

	for _, o := range []domain.AnswerOption{domain.OptionA, domain.OptionB, domain.OptionB, domain.OptionD} {
		if _, err := store.IncrOption(ctx, 4, o); err != nil {
			t.Fatalf("incr %s: %v", o, err)
		}
	}

	stats, err := store.Stats(ctx, 4)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.A != 1 || stats.B != 2 || stats.C != 0 || stats.D != 1 || stats.Total != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := store.ResetQuestionTally(ctx, 4); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stats, err = store.Stats(ctx, 4)
	if err != nil {
		t.Fatalf("stats after reset: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("expected zeroed counters, got %+v", stats)
	}
}

func TestAnswerLogNewestFirstSkipsGarbage(t *testing.T) {
	store, mr := newLiveStore(t)
	ctx := context.Background()

	if err := store.AppendAnswer(ctx, 4, domain.AnswerLogEntry{ClickerID: "c1", SelectedAnswer: domain.OptionA}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendAnswer(ctx, 4, domain.AnswerLogEntry{ClickerID: "c2", SelectedAnswer: domain.OptionB}); err != nil {
		t.Fatalf("append: %v", err)
	}
	mr.Lpush("answers:question:4", "not json")

	log, err := store.AnswerLog(ctx, 4)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected malformed entries skipped, got %d entries", len(log))
	}
	if log[0].ClickerID != "c2" || log[1].ClickerID != "c1" {
		t.Fatalf("expected newest first, got %+v", log)
	}
}

func TestLeaderboardOrderingAndRank(t *testing.T) {
	store, _ := newLiveStore(t)
	ctx := context.Background()

	if err := store.IncrScore(ctx, 9, "c3", 2); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if err := store.IncrScore(ctx, 9, "c2", 1); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if err := store.IncrScore(ctx, 9, "c1", 1); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if err := store.EnsureScore(ctx, 9, "c4"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// EnsureScore never resets an existing score.
	if err := store.EnsureScore(ctx, 9, "c3"); err != nil {
		t.Fatalf("ensure existing: %v", err)
	}

	entries, err := store.Leaderboard(ctx, 9, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []struct {
		clicker string
		score   int
		rank    int
	}{
		{"c3", 2, 1}, {"c1", 1, 2}, {"c2", 1, 3}, {"c4", 0, 4},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), entries)
	}
	for i, w := range want {
		e := entries[i]
		if e.ClickerID != w.clicker || e.Score != w.score || e.Rank != w.rank {
			t.Fatalf("entry %d: want %+v, got %+v", i, w, e)
		}
	}

	rank, score, ok, err := store.Rank(ctx, 9, "c2")
	if err != nil || !ok {
		t.Fatalf("rank: ok=%v err=%v", ok, err)
	}
	if rank != 3 || score != 1 {
		t.Fatalf("rank view must agree with the leaderboard, got rank=%d score=%d", rank, score)
	}
	if _, _, ok, _ := store.Rank(ctx, 9, "ghost"); ok {
		t.Fatalf("expected no rank for unknown clicker")
	}
}

func TestLeaderboardLimit(t *testing.T) {
	store, _ := newLiveStore(t)
	ctx := context.Background()

	for i, c := range []string{"c1", "c2", "c3"} {
		if err := store.IncrScore(ctx, 9, c, 3-i); err != nil {
			t.Fatalf("incr: %v", err)
		}
	}
	entries, err := store.Leaderboard(ctx, 9, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].ClickerID != "c1" || entries[1].ClickerID != "c2" {
		t.Fatalf("expected top two, got %+v", entries)
	}
}

func TestLeaderboardPageBoundaryKeepsTieBreak(t *testing.T) {
	store, _ := newLiveStore(t)
	ctx := context.Background()

	// All tied. Redis would page ties reverse-lexicographically (c3, c2),
	// but the clicker-id-ascending tie-break must win even when the page
	// cuts through the tie group.
	for _, c := range []string{"c1", "c2", "c3"} {
		if err := store.IncrScore(ctx, 9, c, 1); err != nil {
			t.Fatalf("incr: %v", err)
		}
	}
	entries, err := store.Leaderboard(ctx, 9, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].ClickerID != "c1" || entries[1].ClickerID != "c2" {
		t.Fatalf("expected c1, c2 on the page, got %+v", entries)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Fatalf("expected ranks 1 and 2, got %+v", entries)
	}

	rank, _, ok, err := store.Rank(ctx, 9, "c1")
	if err != nil || !ok {
		t.Fatalf("rank: ok=%v err=%v", ok, err)
	}
	if rank != entries[0].Rank {
		t.Fatalf("rank lookup %d disagrees with page rank %d", rank, entries[0].Rank)
	}
}

func TestParticipantSet(t *testing.T) {
	store, _ := newLiveStore(t)
	ctx := context.Background()

	if err := store.AddParticipant(ctx, 9, "c1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddParticipant(ctx, 9, "c1"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if err := store.AddParticipant(ctx, 9, "c2"); err != nil {
		t.Fatalf("add: %v", err)
	}

	count, err := store.ParticipantCount(ctx, 9)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 participants, got %d err=%v", count, err)
	}

	if err := store.RemoveParticipant(ctx, 9, "c1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	members, err := store.Participants(ctx, 9)
	if err != nil || len(members) != 1 || members[0] != "c2" {
		t.Fatalf("expected only c2, got %v err=%v", members, err)
	}
}

func TestPurgeQuizRemovesDerivedKeys(t *testing.T) {
	store, mr := newLiveStore(t)
	ctx := context.Background()

	if err := store.SetQuizState(ctx, domain.QuizState{QuizID: 9}, 0); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if err := store.SetActiveQuiz(ctx, 9); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := store.SetQuestionState(ctx, domain.QuestionState{QuestionID: 4, QuizID: 9, Active: true}, 0); err != nil {
		t.Fatalf("set question: %v", err)
	}
	if _, err := store.IncrOption(ctx, 4, domain.OptionA); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if err := store.IncrScore(ctx, 9, "c1", 1); err != nil {
		t.Fatalf("score: %v", err)
	}
	if err := store.AddParticipant(ctx, 9, "c1"); err != nil {
		t.Fatalf("participant: %v", err)
	}

	if err := store.PurgeQuiz(ctx, 9, []int64{4}); err != nil {
		t.Fatalf("purge: %v", err)
	}

	for _, key := range []string{
		"quiz:9:state",
		"quiz:9:current_question",
		"question:4:state",
		"stats:question:4:A",
		"answers:question:4",
		"leaderboard:quiz:9",
		"participants:quiz:9",
	} {
		if mr.Exists(key) {
			t.Fatalf("expected %s purged", key)
		}
	}
	if _, ok, _ := store.ActiveQuiz(ctx); ok {
		t.Fatalf("expected active pointer released")
	}
}
