package memory_test

import (
	"context"
	"errors"
	"testing"

	"clicker-quiz-service/internal/domain"
	"clicker-quiz-service/internal/infra/memory"
)

func TestAnswerUpsertOverwritesPerClickerAndQuestion(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first := &domain.Answer{QuestionID: 1, ClickerID: "c1", SelectedAnswer: domain.OptionA}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == 0 || first.CreatedAt.IsZero() {
		t.Fatalf("insert must assign id and timestamp, got %+v", first)
	}

	participantID := int64(42)
	second := &domain.Answer{QuestionID: 1, ClickerID: "c1", SelectedAnswer: domain.OptionB, IsCorrect: true, ParticipantID: &participantID}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("overwrite must keep the original row id, got %d vs %d", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("overwrite must keep the original timestamp")
	}

	got, err := store.ByClickerAndQuestion(ctx, "c1", 1)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.SelectedAnswer != domain.OptionB || !got.IsCorrect {
		t.Fatalf("expected overwritten values, got %+v", got)
	}
	if got.ParticipantID == nil || *got.ParticipantID != 42 {
		t.Fatalf("expected participant backfilled, got %+v", got.ParticipantID)
	}

	// Different clicker on the same question inserts a new row.
	other := &domain.Answer{QuestionID: 1, ClickerID: "c2", SelectedAnswer: domain.OptionC}
	if err := store.Upsert(ctx, other); err != nil {
		t.Fatalf("second clicker: %v", err)
	}
	answers, err := store.ByQuestion(ctx, 1)
	if err != nil {
		t.Fatalf("by question: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(answers))
	}
}

func TestAnswerUpsertNeverClearsParticipant(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	participantID := int64(7)
	if err := store.Upsert(ctx, &domain.Answer{QuestionID: 1, ClickerID: "c1", SelectedAnswer: domain.OptionA, ParticipantID: &participantID}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	resubmit := &domain.Answer{QuestionID: 1, ClickerID: "c1", SelectedAnswer: domain.OptionB}
	if err := store.Upsert(ctx, resubmit); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if resubmit.ParticipantID == nil || *resubmit.ParticipantID != 7 {
		t.Fatalf("overwrite with nil participant must keep the stored link, got %+v", resubmit.ParticipantID)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	quiz := &domain.Quiz{Title: "Doomed"}
	if err := store.Create(ctx, quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question := &domain.Question{QuizID: quiz.ID, Text: "q", OrderIndex: 1, CorrectAnswer: domain.OptionA}
	if err := store.CreateQuestion(ctx, question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := store.Upsert(ctx, &domain.Answer{QuestionID: question.ID, ClickerID: "c1", SelectedAnswer: domain.OptionA}); err != nil {
		t.Fatalf("create answer: %v", err)
	}

	if err := store.Delete(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := store.QuestionByID(ctx, question.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected cascaded question delete, got %v", err)
	}
	answers, err := store.ByQuestion(ctx, question.ID)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("expected cascaded answer delete, got %+v", answers)
	}
}

func TestQuizQuestionsOrderedByIndex(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	quiz := &domain.Quiz{Title: "Ordered"}
	if err := store.Create(ctx, quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for _, idx := range []int{3, 1, 2} {
		if err := store.CreateQuestion(ctx, &domain.Question{QuizID: quiz.ID, Text: "q", OrderIndex: idx, CorrectAnswer: domain.OptionA}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	got, err := store.ByID(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i, q := range got.Questions {
		if q.OrderIndex != i+1 {
			t.Fatalf("expected questions in sequencing order, got %+v", got.Questions)
		}
	}
}

func TestCreateParticipantReusesClickerID(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first := &domain.Participant{ClickerID: "c1", Name: "Ana"}
	if err := store.CreateParticipant(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &domain.Participant{ClickerID: "c1", Name: "Other"}
	if err := store.CreateParticipant(ctx, dup); err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if dup.ID != first.ID || dup.Name != "Ana" {
		t.Fatalf("duplicate create must return the existing record, got %+v", dup)
	}
}

func TestParticipantWithAnswers(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	p := &domain.Participant{ClickerID: "c1"}
	if err := store.CreateParticipant(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	for q := int64(1); q <= 2; q++ {
		if err := store.Upsert(ctx, &domain.Answer{QuestionID: q, ClickerID: "c1", SelectedAnswer: domain.OptionA}); err != nil {
			t.Fatalf("answer %d: %v", q, err)
		}
	}

	got, err := store.ParticipantWithAnswers(ctx, "c1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}
	if _, err := store.ParticipantWithAnswers(ctx, "ghost"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}
