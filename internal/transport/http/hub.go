package http

import (
	"context"
	"encoding/json"
	"sync"

	"clicker-quiz-service/internal/domain"
	"clicker-quiz-service/internal/pkg/logger"
)

// outbound is the wire envelope sent to websocket clients.
type outbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Forwarder delivers cross-instance bus messages to a callback.
type Forwarder interface {
	StartForwarder(ctx context.Context, channels []string, onMsg func(channel string, payload []byte)) error
}

// Hub tracks this instance's connected sessions and fans bus events out to
// all of them. Delivery is at-least-once and unordered across event types;
// clients treat every event as a snapshot, not a delta.
type Hub struct {
	log *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id        string
	clickerID string
	send      chan outbound
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:      log.With("component", "hub"),
		sessions: make(map[string]*session),
	}
}

// StartForwarding subscribes the hub to every broadcast channel and relays
// messages to all local sessions until ctx is canceled.
func (h *Hub) StartForwarding(ctx context.Context, bus Forwarder) error {
	return bus.StartForwarder(ctx, domain.Channels(), func(channel string, payload []byte) {
		h.broadcast(eventName(channel), payload)
	})
}

// eventName maps a bus channel to the client-facing event type.
func eventName(channel string) string {
	if channel == domain.ChannelAnswerReceived {
		return "answer:received"
	}
	return channel
}

func (h *Hub) add(sess *session) {
	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
}

// remove detaches the session and closes its send channel. Closing happens
// under the write lock so it can never interleave with a broadcast holding
// the read lock; removing an unknown id is a no-op, so remove is safe to
// call twice.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	if sess, ok := h.sessions[id]; ok {
		delete(h.sessions, id)
		close(sess.send)
	}
	h.mu.Unlock()
}

// broadcast delivers an event to every connected session. Sessions with a
// full send buffer drop their oldest pending message rather than blocking
// the fan-out on a slow client.
func (h *Hub) broadcast(msgType string, payload []byte) {
	msg := outbound{Type: msgType, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sess := range h.sessions {
		select {
		case sess.send <- msg:
		default:
			select {
			case <-sess.send:
			default:
			}
			select {
			case sess.send <- msg:
			default:
				h.log.Warn("dropping event for stalled session", "session_id", sess.id, "type", msgType)
			}
		}
	}
}
