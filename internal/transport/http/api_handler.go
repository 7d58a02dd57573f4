package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"clicker-quiz-service/internal/app"
	"clicker-quiz-service/internal/domain"
	"clicker-quiz-service/internal/pkg/logger"
)

// APIHandler exposes the quiz use cases over REST. The same operations are
// reachable over the websocket gateway; both surfaces share the service layer
// so validation and broadcasting behave identically.
type APIHandler struct {
	service *app.Service
	log     *logger.Logger
}

func NewAPIHandler(service *app.Service, log *logger.Logger) *APIHandler {
	return &APIHandler{service: service, log: log.With("component", "api")}
}

// NewRouter wires the REST routes and the websocket endpoint.
func NewRouter(api *APIHandler, ws *WSHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS)

	s := r.PathPrefix("/api").Subrouter()

	s.HandleFunc("/quizzes", api.CreateQuiz).Methods(http.MethodPost)
	s.HandleFunc("/quizzes", api.ListQuizzes).Methods(http.MethodGet)
	s.HandleFunc("/quizzes/active", api.ActiveQuiz).Methods(http.MethodGet)
	s.HandleFunc("/quizzes/{id:[0-9]+}", api.GetQuiz).Methods(http.MethodGet)
	s.HandleFunc("/quizzes/{id:[0-9]+}", api.UpdateQuiz).Methods(http.MethodPut)
	s.HandleFunc("/quizzes/{id:[0-9]+}", api.DeleteQuiz).Methods(http.MethodDelete)
	s.HandleFunc("/quizzes/{id:[0-9]+}/start", api.StartQuiz).Methods(http.MethodPost)
	s.HandleFunc("/quizzes/{id:[0-9]+}/end", api.EndQuiz).Methods(http.MethodPost)
	s.HandleFunc("/quizzes/{id:[0-9]+}/next-question", api.NextQuestion).Methods(http.MethodPost)
	s.HandleFunc("/quizzes/{id:[0-9]+}/end-question", api.EndQuestion).Methods(http.MethodPost)
	s.HandleFunc("/quizzes/{id:[0-9]+}/questions", api.CreateQuestion).Methods(http.MethodPost)
	s.HandleFunc("/quizzes/{id:[0-9]+}/questions", api.ListQuestions).Methods(http.MethodGet)
	s.HandleFunc("/quizzes/{quizId:[0-9]+}/questions/{id:[0-9]+}/start", api.StartQuestion).Methods(http.MethodPost)
	s.HandleFunc("/quizzes/{id:[0-9]+}/leaderboard", api.Leaderboard).Methods(http.MethodGet)
	s.HandleFunc("/quizzes/{id:[0-9]+}/rank/{clickerId}", api.Rank).Methods(http.MethodGet)
	s.HandleFunc("/quizzes/{id:[0-9]+}/results", api.Results).Methods(http.MethodGet)

	s.HandleFunc("/questions/{id:[0-9]+}", api.GetQuestion).Methods(http.MethodGet)
	s.HandleFunc("/questions/{id:[0-9]+}", api.UpdateQuestion).Methods(http.MethodPut)
	s.HandleFunc("/questions/{id:[0-9]+}", api.DeleteQuestion).Methods(http.MethodDelete)
	s.HandleFunc("/questions/{id:[0-9]+}/stats", api.QuestionStats).Methods(http.MethodGet)
	s.HandleFunc("/questions/{id:[0-9]+}/answers", api.QuestionAnswers).Methods(http.MethodGet)

	s.HandleFunc("/answers", api.SubmitAnswer).Methods(http.MethodPost)

	s.HandleFunc("/participants", api.RegisterParticipant).Methods(http.MethodPost)
	s.HandleFunc("/participants", api.ListParticipants).Methods(http.MethodGet)
	s.HandleFunc("/participants/{clickerId}/stats", api.ParticipantStats).Methods(http.MethodGet)
	s.HandleFunc("/participants/{id:[0-9]+}", api.DeleteParticipant).Methods(http.MethodDelete)

	return r
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var input app.CreateQuizInput
	if !decode(w, r, &input) {
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *APIHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.Quizzes(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *APIHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.QuizByID(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var input app.UpdateQuizInput
	if !decode(w, r, &input) {
		return
	}
	quiz, err := h.service.UpdateQuiz(r.Context(), pathID(r, "id"), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuiz(r.Context(), pathID(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.StartQuiz(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) EndQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.EndQuiz(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	question, quiz, err := h.service.NextQuestion(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quiz":     quiz,
		"question": question,
		"finished": question == nil,
	})
}

func (h *APIHandler) EndQuestion(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.EndQuestion(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) StartQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.StartQuestion(r.Context(), pathID(r, "quizId"), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *APIHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var input app.CreateQuestionInput
	if !decode(w, r, &input) {
		return
	}
	input.QuizID = pathID(r, "id")
	question, err := h.service.CreateQuestion(r.Context(), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *APIHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.QuestionsByQuiz(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *APIHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.QuestionByID(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *APIHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var input app.UpdateQuestionInput
	if !decode(w, r, &input) {
		return
	}
	question, err := h.service.UpdateQuestion(r.Context(), pathID(r, "id"), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *APIHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuestion(r.Context(), pathID(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) QuestionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.QuestionStats(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) QuestionAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := h.service.AnswersByQuestion(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *APIHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var input app.SubmitAnswerInput
	if !decode(w, r, &input) {
		return
	}
	answer, err := h.service.SubmitAnswer(r.Context(), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

func (h *APIHandler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	var input app.RegisterParticipantInput
	if !decode(w, r, &input) {
		return
	}
	participant, err := h.service.RegisterParticipant(r.Context(), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

func (h *APIHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.Participants(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

func (h *APIHandler) ParticipantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ParticipantStats(r.Context(), mux.Vars(r)["clickerId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteParticipant(r.Context(), pathID(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ActiveQuiz(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.ActiveQuizInfo(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	lb, err := h.service.QuizLeaderboard(r.Context(), pathID(r, "id"), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) Rank(w http.ResponseWriter, r *http.Request) {
	rank, err := h.service.ParticipantRank(r.Context(), pathID(r, "id"), mux.Vars(r)["clickerId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}

func (h *APIHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.QuizResults(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// fail translates service errors into HTTP status codes.
func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrAnswerNotFound),
		errors.Is(err, domain.ErrNoActiveQuiz):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuestionNotActive),
		errors.Is(err, domain.ErrQuestionNotInQuiz):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) int64 {
	// The route patterns constrain these vars to digits.
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
