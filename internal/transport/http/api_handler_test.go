package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"clicker-quiz-service/internal/domain"
)

func doJSON(t *testing.T, server *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func TestQuizLifecycleOverREST(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, server, http.MethodPost, "/api/quizzes", map[string]any{
		"title": "Capitals", "description": "Geography round",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create quiz: status %d body %s", resp.StatusCode, body)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(body, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if quiz.Status != domain.QuizDraft {
		t.Fatalf("expected draft quiz, got %+v", quiz)
	}

	resp, body = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/questions", quiz.ID), map[string]any{
		"text": "Capital of France?", "optionA": "Lyon", "optionB": "Paris",
		"optionC": "Nice", "optionD": "Lille",
		"correctAnswer": "B", "timeLimit": 20, "orderIndex": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create question: status %d body %s", resp.StatusCode, body)
	}
	var question domain.Question
	if err := json.Unmarshal(body, &question); err != nil {
		t.Fatalf("decode question: %v", err)
	}

	resp, body = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/start", quiz.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start quiz: status %d body %s", resp.StatusCode, body)
	}
	resp, body = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/questions/%d/start", quiz.ID, question.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start question: status %d body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, server, http.MethodPost, "/api/answers", map[string]any{
		"clickerId": "c1", "questionId": question.ID, "selectedAnswer": "B",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", resp.StatusCode, body)
	}
	var answer domain.Answer
	if err := json.Unmarshal(body, &answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if !answer.IsCorrect {
		t.Fatalf("expected correct answer, got %+v", answer)
	}

	resp, body = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/quizzes/%d/leaderboard", quiz.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: status %d body %s", resp.StatusCode, body)
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(body, &lb); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].ClickerID != "c1" || lb.Entries[0].Score != 1 {
		t.Fatalf("expected c1 with 1 point, got %+v", lb.Entries)
	}

	resp, body = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/quizzes/%d/rank/c1", quiz.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rank: status %d body %s", resp.StatusCode, body)
	}
	var rank domain.RankInfo
	if err := json.Unmarshal(body, &rank); err != nil {
		t.Fatalf("decode rank: %v", err)
	}
	if rank.Rank == nil || *rank.Rank != 1 {
		t.Fatalf("expected rank 1, got %+v", rank)
	}

	resp, body = doJSON(t, server, http.MethodGet, "/api/quizzes/active", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("active: status %d body %s", resp.StatusCode, body)
	}
	var info domain.ActiveQuizInfo
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatalf("decode active: %v", err)
	}
	if !info.Active || info.CurrentQuestion == nil {
		t.Fatalf("expected active quiz with current question, got %+v", info)
	}

	resp, body = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/end", quiz.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end quiz: status %d body %s", resp.StatusCode, body)
	}
	resp, body = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/quizzes/%d/results", quiz.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results: status %d body %s", resp.StatusCode, body)
	}
	var results domain.QuizResults
	if err := json.Unmarshal(body, &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results.Results) != 1 || results.Results[0].CorrectCount != 1 {
		t.Fatalf("expected one correct answer in results, got %+v", results.Results)
	}
}

func TestRESTErrorMapping(t *testing.T) {
	server, service := newTestServer(t)

	resp, _ := doJSON(t, server, http.MethodGet, "/api/quizzes/999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing quiz: expected 404, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, server, http.MethodPost, "/api/quizzes", map[string]any{"description": "no title"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid input: expected 400, got %d", resp.StatusCode)
	}

	question := seedActiveQuestion(t, service)
	if _, err := service.EndQuestion(context.Background(), question.QuizID); err != nil {
		t.Fatalf("end question: %v", err)
	}
	resp, _ = doJSON(t, server, http.MethodPost, "/api/answers", map[string]any{
		"clickerId": "c1", "questionId": question.ID, "selectedAnswer": "A",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("closed question: expected 409, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, server, http.MethodGet, "/api/participants/ghost/stats", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing participant: expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, server, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: status %d body %s", resp.StatusCode, body)
	}
}
