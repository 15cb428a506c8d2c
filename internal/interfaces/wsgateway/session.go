package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/broadcaster"
	"skillstream/services/chat-api/internal/infrastructure/metrics"
)

var errInvalidRegister = errors.New("first frame must be a register frame")

// maxFrameSize bounds inbound frames; clients only send register frames
// and pongs, so anything large is a protocol violation.
const maxFrameSize = 4096

// session is one live WebSocket connection after registration.
type session struct {
	gateway *Gateway
	conn    *websocket.Conn
	sub     broadcaster.Subscription
	userID  string

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
	log       zerolog.Logger
}

func newSession(g *Gateway, conn *websocket.Conn, sub broadcaster.Subscription, userID string) *session {
	return &session{
		gateway: g,
		conn:    conn,
		sub:     sub,
		userID:  userID,
		send:    make(chan []byte, g.cfg.SendQueueSize),
		done:    make(chan struct{}),
		log:     g.log.With().Str("user_id", userID).Logger(),
	}
}

// run blocks until the session ends.
func (s *session) run() {
	metrics.RecordSessionConnected()
	s.log.Info().Msg("session connected")

	go s.writePump()
	go s.dispatch()
	s.readPump()

	s.close("read_closed")
}

func (s *session) close(reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.sub.Close()
		s.conn.Close()
		metrics.RecordSessionDisconnected(reason)
		s.log.Info().Str("reason", reason).Msg("session closed")
	})
}

// readPump consumes inbound frames. The protocol is server-push after
// registration; inbound traffic only keeps the connection alive.
func (s *session) readPump() {
	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.gateway.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.gateway.cfg.PongTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("unexpected close")
			}
			return
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings.
func (s *session) writePump() {
	pingPeriod := s.gateway.cfg.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.gateway.cfg.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.close("write_failed")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.gateway.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close("ping_failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

// dispatch forwards broadcast deliveries to the send queue and keeps
// the channel set aligned with the user's membership.
func (s *session) dispatch() {
	for {
		select {
		case delivery, ok := <-s.sub.Deliveries():
			if !ok {
				return
			}
			s.handleDelivery(delivery)
		case <-s.done:
			return
		}
	}
}

func (s *session) handleDelivery(delivery broadcaster.Delivery) {
	event := delivery.Event
	s.followMembership(event)

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode event")
		return
	}

	select {
	case s.send <- payload:
	default:
		// The queue is full. A missed message.created would leave the
		// client silently out of date, so those force a reconnect; the
		// client recovers the rest from history on its next fetch.
		if event.Type.Critical() {
			s.close("backpressure")
			return
		}
		metrics.EventsDropped.Inc()
		s.log.Debug().Str("event_type", string(event.Type)).Msg("dropping event on slow session")
	}
}

// followMembership adjusts subscriptions when this user is added to or
// removed from a conversation.
func (s *session) followMembership(event *chat.Event) {
	if event.UserID != s.userID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.gateway.cfg.WriteTimeout)
	defer cancel()

	switch event.Type {
	case chat.EventParticipantAdded:
		if err := s.sub.Subscribe(ctx, chat.ConversationChannel(event.ConversationID)); err != nil {
			s.log.Warn().Err(err).Str("conversation_id", event.ConversationID).Msg("failed to follow conversation")
		}
	case chat.EventParticipantRemoved:
		if err := s.sub.Unsubscribe(ctx, chat.ConversationChannel(event.ConversationID)); err != nil {
			s.log.Warn().Err(err).Str("conversation_id", event.ConversationID).Msg("failed to unfollow conversation")
		}
	}
}
