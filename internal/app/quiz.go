package app

import (
	"context"
	"fmt"
	"time"

	"clicker-quiz-service/internal/domain"
)

// CreateQuiz stores a new quiz, defaulting to draft status.
func (s *Service) CreateQuiz(ctx context.Context, in CreateQuizInput) (*domain.Quiz, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = domain.QuizDraft
	}
	quiz := &domain.Quiz{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Quizzes lists every quiz with its questions.
func (s *Service) Quizzes(ctx context.Context) ([]*domain.Quiz, error) {
	return s.quizzes.All(ctx)
}

// QuizByID loads one quiz with its questions in sequencing order.
func (s *Service) QuizByID(ctx context.Context, id int64) (*domain.Quiz, error) {
	return s.quizzes.ByID(ctx, id)
}

// UpdateQuiz applies the non-nil fields of in and refreshes the cached
// snapshot if one exists.
func (s *Service) UpdateQuiz(ctx context.Context, id int64, in UpdateQuizInput) (*domain.Quiz, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		quiz.Title = *in.Title
	}
	if in.Description != nil {
		quiz.Description = *in.Description
	}
	if in.Status != nil {
		quiz.Status = *in.Status
	}
	if in.CurrentQuestionID != nil {
		quiz.CurrentQuestionID = in.CurrentQuestionID
	}
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, err
	}
	s.refreshQuizSnapshot(ctx, quiz)
	return quiz, nil
}

// DeleteQuiz removes the quiz and purges every derived ephemeral key.
// Questions and answers cascade in the durable store.
func (s *Service) DeleteQuiz(ctx context.Context, id int64) error {
	quiz, err := s.quizzes.ByID(ctx, id)
	if err != nil {
		return err
	}
	questionIDs := make([]int64, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questionIDs = append(questionIDs, q.ID)
	}
	if err := s.quizzes.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.live.PurgeQuiz(ctx, id, questionIDs); err != nil {
		s.log.Warn("purge after quiz delete failed", "quiz_id", id, "error", err)
	}
	return nil
}

// StartQuiz flips the quiz to active, selects the lowest-order question as
// current (when the quiz has questions), and designates this quiz as the
// single globally active one. Starting a second quiz silently evicts the
// first from the active slot without touching its durable status.
func (s *Service) StartQuiz(ctx context.Context, id int64) (*domain.Quiz, error) {
	quiz, err := s.quizzes.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	quiz.Status = domain.QuizActive
	quiz.CurrentQuestionID = nil
	if len(quiz.Questions) > 0 {
		first := quiz.Questions[0].ID // questions arrive ordered by order_index
		quiz.CurrentQuestionID = &first
	}
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, err
	}

	now := s.now()
	st := snapshotOf(quiz)
	st.StartedAt = &now
	if err := s.live.SetQuizState(ctx, st, s.snapshotTTL); err != nil {
		s.log.Warn("quiz snapshot write failed", "quiz_id", id, "error", err)
	}
	if err := s.live.SetActiveQuiz(ctx, id); err != nil {
		s.log.Warn("active quiz pointer write failed", "quiz_id", id, "error", err)
	}
	s.publish(ctx, domain.ChannelQuizStateChanged, domain.QuizStateChangedEvent{
		QuizID: id, Status: quiz.Status, Timestamp: now,
	})
	return quiz, nil
}

// EndQuiz marks the quiz completed, clears the current-question pointer, and
// releases the global active slot if this quiz holds it.
func (s *Service) EndQuiz(ctx context.Context, id int64) (*domain.Quiz, error) {
	quiz, err := s.quizzes.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevQuestion := quiz.CurrentQuestionID
	quiz.Status = domain.QuizCompleted
	quiz.CurrentQuestionID = nil
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, err
	}

	if prevQuestion != nil {
		if err := s.live.DeactivateQuestion(ctx, *prevQuestion); err != nil {
			s.log.Warn("question deactivation failed", "question_id", *prevQuestion, "error", err)
		}
	}
	if err := s.live.ClearCurrentQuestion(ctx, id); err != nil {
		s.log.Warn("current question clear failed", "quiz_id", id, "error", err)
	}
	if err := s.live.ClearActiveQuiz(ctx, id); err != nil {
		s.log.Warn("active quiz clear failed", "quiz_id", id, "error", err)
	}
	s.refreshQuizSnapshot(ctx, quiz)
	s.publish(ctx, domain.ChannelQuizStateChanged, domain.QuizStateChangedEvent{
		QuizID: id, Status: quiz.Status, Timestamp: s.now(),
	})
	return quiz, nil
}

// StartQuestion flips a question into the accepting-answers state: resets its
// tally, caches an active snapshot with TTL equal to its time limit, and
// points the quiz at it. The quiz's previous current question is explicitly
// deactivated so submissions against it fail even inside its original TTL
// window. Restarting the current question is idempotent and resets its tally.
func (s *Service) StartQuestion(ctx context.Context, quizID, questionID int64) (*domain.Question, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	question, err := s.questions.ByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question.QuizID != quizID {
		return nil, domain.ErrQuestionNotInQuiz
	}

	if prev := quiz.CurrentQuestionID; prev != nil && *prev != questionID {
		if err := s.live.DeactivateQuestion(ctx, *prev); err != nil {
			s.log.Warn("previous question deactivation failed", "question_id", *prev, "error", err)
		}
	}

	quiz.CurrentQuestionID = &questionID
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, err
	}

	if err := s.live.ResetQuestionTally(ctx, questionID); err != nil {
		s.log.Warn("tally reset failed", "question_id", questionID, "error", err)
	}

	now := s.now()
	ttl := time.Duration(question.TimeLimit) * time.Second
	st := domain.QuestionState{
		QuestionID:    question.ID,
		QuizID:        quizID,
		Text:          question.Text,
		Options:       question.OptionMap(),
		CorrectAnswer: question.CorrectAnswer,
		TimeLimit:     question.TimeLimit,
		StartedAt:     &now,
		Active:        true,
	}
	if err := s.live.SetQuestionState(ctx, st, ttl); err != nil {
		return nil, fmt.Errorf("activate question: %w", err)
	}
	if err := s.live.SetCurrentQuestion(ctx, quizID, questionID, ttl); err != nil {
		s.log.Warn("current question pointer write failed", "quiz_id", quizID, "error", err)
	}
	s.refreshQuizSnapshot(ctx, quiz)
	s.publish(ctx, domain.ChannelQuestionChanged, domain.QuestionChangedEvent{
		QuizID: quizID, Question: &st, Timestamp: now,
	})
	return question, nil
}

// EndQuestion closes the quiz's current question. A quiz with no current
// question is a no-op, not an error. The cached deactivation is best-effort;
// TTL expiry reaches the same end state if this step is lost.
func (s *Service) EndQuestion(ctx context.Context, quizID int64) (*domain.Quiz, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.CurrentQuestionID == nil {
		return quiz, nil
	}
	ended := *quiz.CurrentQuestionID
	quiz.CurrentQuestionID = nil
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, err
	}

	if err := s.live.DeactivateQuestion(ctx, ended); err != nil {
		s.log.Warn("question deactivation failed", "question_id", ended, "error", err)
	}
	if err := s.live.ClearCurrentQuestion(ctx, quizID); err != nil {
		s.log.Warn("current question clear failed", "quiz_id", quizID, "error", err)
	}
	s.refreshQuizSnapshot(ctx, quiz)
	s.publish(ctx, domain.ChannelQuestionChanged, domain.QuestionChangedEvent{
		QuizID: quizID, Question: nil, Timestamp: s.now(),
	})
	return quiz, nil
}

// NextQuestion advances the quiz: StartQuestion on the next order-index
// question, or EndQuiz when the sequence is exhausted. With no current
// question it starts from the beginning of the sequence.
func (s *Service) NextQuestion(ctx context.Context, quizID int64) (*domain.Question, *domain.Quiz, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if len(quiz.Questions) == 0 {
		ended, err := s.EndQuiz(ctx, quizID)
		return nil, ended, err
	}

	next := quiz.Questions[0]
	if cur := quiz.CurrentQuestionID; cur != nil {
		next = nil
		currentIdx := -1
		for i, q := range quiz.Questions {
			if q.ID == *cur {
				currentIdx = i
				break
			}
		}
		if currentIdx >= 0 && currentIdx+1 < len(quiz.Questions) {
			next = quiz.Questions[currentIdx+1]
		}
	}
	if next == nil {
		ended, err := s.EndQuiz(ctx, quizID)
		return nil, ended, err
	}
	question, err := s.StartQuestion(ctx, quizID, next.ID)
	return question, nil, err
}

// ActiveQuizInfo resolves the global pointer into the bootstrap payload for a
// newly connected session. A missing pointer yields the explicit inactive
// shape.
func (s *Service) ActiveQuizInfo(ctx context.Context) (domain.ActiveQuizInfo, error) {
	quizID, ok, err := s.live.ActiveQuiz(ctx)
	if err != nil {
		return domain.ActiveQuizInfo{}, err
	}
	if !ok {
		return domain.ActiveQuizInfo{Active: false}, nil
	}

	st, err := s.quizSnapshot(ctx, quizID)
	if err != nil {
		return domain.ActiveQuizInfo{}, err
	}
	info := domain.ActiveQuizInfo{
		Active: true,
		QuizID: &quizID,
		Quiz:   st,
	}
	if st.CurrentQuestionID != nil {
		qst, err := s.live.QuestionState(ctx, *st.CurrentQuestionID)
		if err != nil {
			s.log.Warn("question snapshot read failed", "question_id", *st.CurrentQuestionID, "error", err)
		} else {
			info.CurrentQuestion = qst
		}
	}
	count, err := s.live.ParticipantCount(ctx, quizID)
	if err != nil {
		s.log.Warn("participant count read failed", "quiz_id", quizID, "error", err)
	}
	info.ParticipantCount = count
	return info, nil
}

// QuizResults computes the per-question breakdown from the deduplicated
// durable rows, so the numbers never carry the live counters' double-count
// on answer changes.
func (s *Service) QuizResults(ctx context.Context, quizID int64) (*domain.QuizResults, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	results := make([]domain.QuestionResult, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		answers, err := s.answers.ByQuestion(ctx, question.ID)
		if err != nil {
			return nil, err
		}
		result := domain.QuestionResult{
			QuestionID:    question.ID,
			Text:          question.Text,
			CorrectAnswer: question.CorrectAnswer,
			TotalAnswers:  len(answers),
			Stats:         map[domain.AnswerOption]int{domain.OptionA: 0, domain.OptionB: 0, domain.OptionC: 0, domain.OptionD: 0},
			Answers:       make([]domain.QuestionResultAnswer, 0, len(answers)),
		}
		for _, a := range answers {
			result.Stats[a.SelectedAnswer]++
			if a.IsCorrect {
				result.CorrectCount++
			}
			result.Answers = append(result.Answers, domain.QuestionResultAnswer{
				ClickerID:      a.ClickerID,
				SelectedAnswer: a.SelectedAnswer,
				IsCorrect:      a.IsCorrect,
				ResponseTime:   a.ResponseTime,
				CreatedAt:      a.CreatedAt,
			})
		}
		results = append(results, result)
	}
	return &domain.QuizResults{Quiz: quiz, Results: results}, nil
}

// quizSnapshot reads the cached quiz snapshot, rebuilding it from the durable
// store on a miss. Rebuilds collapse through singleflight so a thundering
// herd of connects after expiry issues one durable read.
func (s *Service) quizSnapshot(ctx context.Context, quizID int64) (*domain.QuizState, error) {
	st, err := s.live.QuizState(ctx, quizID)
	if err != nil {
		s.log.Warn("quiz snapshot read failed, rebuilding", "quiz_id", quizID, "error", err)
	}
	if st != nil {
		return st, nil
	}

	result, err, _ := s.sf.Do(fmt.Sprintf("quiz-snapshot-%d", quizID), func() (interface{}, error) {
		quiz, err := s.quizzes.ByID(ctx, quizID)
		if err != nil {
			return nil, err
		}
		rebuilt := snapshotOf(quiz)
		if err := s.live.SetQuizState(ctx, rebuilt, s.snapshotTTL); err != nil {
			s.log.Warn("quiz snapshot rewrite failed", "quiz_id", quizID, "error", err)
		}
		return &rebuilt, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.QuizState), nil
}

// refreshQuizSnapshot rewrites the cached snapshot after a durable mutation.
// Failures are logged and left for the read-through rebuild to repair.
func (s *Service) refreshQuizSnapshot(ctx context.Context, quiz *domain.Quiz) {
	st := snapshotOf(quiz)
	if prev, err := s.live.QuizState(ctx, quiz.ID); err == nil && prev != nil {
		st.StartedAt = prev.StartedAt
		if st.TotalQuestions == 0 {
			st.TotalQuestions = prev.TotalQuestions
		}
	}
	if err := s.live.SetQuizState(ctx, st, s.snapshotTTL); err != nil {
		s.log.Warn("quiz snapshot refresh failed", "quiz_id", quiz.ID, "error", err)
	}
}

func snapshotOf(quiz *domain.Quiz) domain.QuizState {
	return domain.QuizState{
		QuizID:            quiz.ID,
		Title:             quiz.Title,
		Status:            quiz.Status,
		CurrentQuestionID: quiz.CurrentQuestionID,
		TotalQuestions:    len(quiz.Questions),
	}
}
