// Package memory holds in-memory durable stores used by unit tests and by
// dev mode when no postgres is configured. The answer store enforces the same
// one-row-per-(clicker,question) invariant the postgres schema does.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"clicker-quiz-service/internal/domain"
)

// Store implements every durable store interface over mutexed maps.
type Store struct {
	mu sync.Mutex

	quizzes      map[int64]*domain.Quiz
	questions    map[int64]*domain.Question
	answers      map[int64]*domain.Answer
	participants map[int64]*domain.Participant

	nextQuizID        int64
	nextQuestionID    int64
	nextAnswerID      int64
	nextParticipantID int64
}

func NewStore() *Store {
	return &Store{
		quizzes:      make(map[int64]*domain.Quiz),
		questions:    make(map[int64]*domain.Question),
		answers:      make(map[int64]*domain.Answer),
		participants: make(map[int64]*domain.Participant),
	}
}

// ---- quizzes ----

func (s *Store) Create(ctx context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuizID++
	quiz.ID = s.nextQuizID
	now := time.Now().UTC()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	if quiz.Status == "" {
		quiz.Status = domain.QuizDraft
	}
	stored := *quiz
	s.quizzes[quiz.ID] = &stored
	return nil
}

func (s *Store) ByID(ctx context.Context, id int64) (*domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.quizzes[id]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	quiz := *stored
	quiz.Questions = s.questionsOfLocked(id)
	return &quiz, nil
}

func (s *Store) All(ctx context.Context) ([]*domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quizzes := make([]*domain.Quiz, 0, len(s.quizzes))
	for id, stored := range s.quizzes {
		quiz := *stored
		quiz.Questions = s.questionsOfLocked(id)
		quizzes = append(quizzes, &quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

func (s *Store) Update(ctx context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	quiz.UpdatedAt = time.Now().UTC()
	stored := *quiz
	stored.Questions = nil
	s.quizzes[quiz.ID] = &stored
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	for qid, q := range s.questions {
		if q.QuizID == id {
			delete(s.questions, qid)
			s.deleteAnswersOfLocked(qid)
		}
	}
	return nil
}

func (s *Store) questionsOfLocked(quizID int64) []*domain.Question {
	var questions []*domain.Question
	for _, q := range s.questions {
		if q.QuizID == quizID {
			cp := *q
			questions = append(questions, &cp)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
	return questions
}

// ---- questions ----

func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuestionID++
	question.ID = s.nextQuestionID
	question.CreatedAt = time.Now().UTC()
	stored := *question
	s.questions[question.ID] = &stored
	return nil
}

func (s *Store) QuestionByID(ctx context.Context, id int64) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	question := *stored
	return &question, nil
}

func (s *Store) QuestionsByQuiz(ctx context.Context, quizID int64) ([]*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionsOfLocked(quizID), nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	stored := *question
	stored.Answers = nil
	s.questions[question.ID] = &stored
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	s.deleteAnswersOfLocked(id)
	return nil
}

func (s *Store) deleteAnswersOfLocked(questionID int64) {
	for id, a := range s.answers {
		if a.QuestionID == questionID {
			delete(s.answers, id)
		}
	}
}

// ---- answers ----

// Upsert mirrors the postgres conditional upsert: a second submission for the
// same (clicker, question) overwrites in place instead of inserting.
func (s *Store) Upsert(ctx context.Context, a *domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.answers {
		if existing.ClickerID == a.ClickerID && existing.QuestionID == a.QuestionID {
			existing.SelectedAnswer = a.SelectedAnswer
			existing.IsCorrect = a.IsCorrect
			existing.ResponseTime = a.ResponseTime
			if existing.ParticipantID == nil {
				existing.ParticipantID = a.ParticipantID
			}
			a.ID = existing.ID
			a.ParticipantID = existing.ParticipantID
			a.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	s.nextAnswerID++
	a.ID = s.nextAnswerID
	a.CreatedAt = time.Now().UTC()
	stored := *a
	s.answers[a.ID] = &stored
	return nil
}

func (s *Store) ByClickerAndQuestion(ctx context.Context, clickerID string, questionID int64) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.answers {
		if a.ClickerID == clickerID && a.QuestionID == questionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ByQuestion(ctx context.Context, questionID int64) ([]*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var answers []*domain.Answer
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			cp := *a
			answers = append(answers, &cp)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].CreatedAt.Equal(answers[j].CreatedAt) {
			return answers[i].ID < answers[j].ID
		}
		return answers[i].CreatedAt.Before(answers[j].CreatedAt)
	})
	return answers, nil
}

// ---- participants ----

func (s *Store) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.participants {
		if existing.ClickerID == p.ClickerID {
			*p = *existing
			return nil
		}
	}
	s.nextParticipantID++
	p.ID = s.nextParticipantID
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = domain.ParticipantActive
	}
	stored := *p
	s.participants[p.ID] = &stored
	return nil
}

func (s *Store) ParticipantByID(ctx context.Context, id int64) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.participants[id]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	p := *stored
	return &p, nil
}

func (s *Store) ParticipantByClickerID(ctx context.Context, clickerID string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.participants {
		if stored.ClickerID == clickerID {
			p := *stored
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) ParticipantWithAnswers(ctx context.Context, clickerID string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.participants {
		if stored.ClickerID == clickerID {
			p := *stored
			for _, a := range s.answers {
				if a.ClickerID == clickerID {
					cp := *a
					p.Answers = append(p.Answers, &cp)
				}
			}
			sort.Slice(p.Answers, func(i, j int) bool {
				return p.Answers[i].ID < p.Answers[j].ID
			})
			return &p, nil
		}
	}
	return nil, domain.ErrParticipantNotFound
}

func (s *Store) AllParticipants(ctx context.Context) ([]*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	participants := make([]*domain.Participant, 0, len(s.participants))
	for _, stored := range s.participants {
		p := *stored
		participants = append(participants, &p)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ID > participants[j].ID
	})
	return participants, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID]; !ok {
		return domain.ErrParticipantNotFound
	}
	stored := *p
	stored.Answers = nil
	s.participants[p.ID] = &stored
	return nil
}

func (s *Store) DeleteParticipant(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[id]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.participants, id)
	return nil
}
