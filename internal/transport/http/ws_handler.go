package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"clicker-quiz-service/internal/app"
	"clicker-quiz-service/internal/domain"
	"clicker-quiz-service/internal/pkg/logger"
)

type WSHandler struct {
	service  *app.Service
	hub      *Hub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, hub *Hub, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		log:     log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type registerPayload struct {
	ClickerID string `json:"clickerId"`
	Name      string `json:"name"`
}

type statsRequestPayload struct {
	QuestionID int64 `json:"questionId"`
}

type leaderboardRequestPayload struct {
	QuizID int64 `json:"quizId"`
	Limit  int   `json:"limit"`
}

type submitResultPayload struct {
	AnswerID   int64 `json:"answerId"`
	QuestionID int64 `json:"questionId"`
	IsCorrect  bool  `json:"isCorrect"`
}

type connectionEstablishedPayload struct {
	SessionID string                 `json:"sessionId"`
	Quiz      *domain.ActiveQuizInfo `json:"quiz,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// use cases. Broadcast events arrive via the hub; request/response pairs are
// handled on the reading goroutine and queued onto the same send channel so
// the connection has a single writer.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := &session{
		id:   uuid.NewString(),
		send: make(chan outbound, 32),
	}
	h.hub.add(sess)
	defer h.hub.remove(sess.id)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range sess.send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "session_id", sess.id, "error", err)
				return
			}
		}
	}()

	h.reply(sess, "connection:established", connectionEstablishedPayload{
		SessionID: sess.id,
		Quiz:      h.activeQuizOrNil(r.Context()),
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r.Context(), sess, inbound)
	}

	if sess.clickerID != "" {
		h.service.DisconnectClicker(context.Background(), sess.clickerID)
	}

	// The hub owns the send channel's close; detaching first guarantees no
	// broadcast can still reach the channel when it closes.
	h.hub.remove(sess.id)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, sess *session, inbound inboundMessage) {
	switch inbound.Type {
	case "answer:submit":
		var payload app.SubmitAnswerInput
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.replyError(sess, "answer:submit:error", "invalid answer payload")
			return
		}
		answer, err := h.service.SubmitAnswer(ctx, payload)
		if err != nil {
			h.replyError(sess, "answer:submit:error", err.Error())
			return
		}
		if sess.clickerID == "" {
			sess.clickerID = payload.ClickerID
		}
		h.reply(sess, "answer:submit:success", submitResultPayload{
			AnswerID:   answer.ID,
			QuestionID: answer.QuestionID,
			IsCorrect:  answer.IsCorrect,
		})

	case "clicker:register":
		var payload registerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.replyError(sess, "clicker:register:error", "invalid register payload")
			return
		}
		participant, err := h.service.RegisterParticipant(ctx, app.RegisterParticipantInput{
			ClickerID: payload.ClickerID,
			Name:      payload.Name,
		})
		if err != nil {
			h.replyError(sess, "clicker:register:error", err.Error())
			return
		}
		sess.clickerID = participant.ClickerID
		h.reply(sess, "clicker:register:success", participant)

	case "quiz:get-status":
		info, err := h.service.ActiveQuizInfo(ctx)
		if err != nil {
			h.replyError(sess, "error", err.Error())
			return
		}
		h.reply(sess, "quiz:status", info)

	case "question:get-stats":
		var payload statsRequestPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.replyError(sess, "error", "invalid stats request")
			return
		}
		stats, err := h.service.QuestionStats(ctx, payload.QuestionID)
		if err != nil {
			h.replyError(sess, "error", err.Error())
			return
		}
		h.reply(sess, "question:stats", stats)

	case "leaderboard:get":
		var payload leaderboardRequestPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.replyError(sess, "error", "invalid leaderboard request")
			return
		}
		lb, err := h.service.QuizLeaderboard(ctx, payload.QuizID, payload.Limit)
		if err != nil {
			h.replyError(sess, "error", err.Error())
			return
		}
		h.reply(sess, "leaderboard:data", lb)

	default:
		h.replyError(sess, "error", "unsupported message type")
	}
}

// activeQuizOrNil fetches the current quiz snapshot for the welcome message.
// A lookup failure degrades to no snapshot rather than failing the connect.
func (h *WSHandler) activeQuizOrNil(ctx context.Context) *domain.ActiveQuizInfo {
	info, err := h.service.ActiveQuizInfo(ctx)
	if err != nil {
		h.log.Warn("active quiz lookup failed on connect", "error", err)
		return nil
	}
	return &info
}

func (h *WSHandler) reply(sess *session, msgType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal reply", "type", msgType, "error", err)
		return
	}
	select {
	case sess.send <- outbound{Type: msgType, Payload: raw}:
	default:
		h.log.Warn("dropping reply for stalled session", "session_id", sess.id, "type", msgType)
	}
}

func (h *WSHandler) replyError(sess *session, msgType, message string) {
	h.reply(sess, msgType, errorPayload{Message: message})
}
