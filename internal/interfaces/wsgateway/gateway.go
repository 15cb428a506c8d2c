// Package wsgateway serves live chat sessions over WebSocket. Each
// session holds a broadcaster subscription covering its user channel and
// the channels of its current conversations, and follows membership
// changes by resubscribing in place.
package wsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/broadcaster"
)

// ConversationLister resolves the conversations a session should follow
// at registration time.
type ConversationLister interface {
	ActiveConversationIDs(ctx context.Context, userID string) ([]string, error)
}

// Config holds gateway timeouts and buffer sizes.
type Config struct {
	// WriteTimeout bounds one frame write.
	WriteTimeout time.Duration
	// PongTimeout is how long a connection may go without a pong
	// before it is considered dead.
	PongTimeout time.Duration
	// SendQueueSize bounds the per-session outbound queue.
	SendQueueSize int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:  10 * time.Second,
		PongTimeout:   60 * time.Second,
		SendQueueSize: 64,
	}
}

// registerTimeout bounds how long a fresh connection may take to send
// its register frame.
const registerTimeout = 10 * time.Second

// registerFrame is the first frame a client must send after connecting.
type registerFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// Gateway upgrades HTTP connections into live chat sessions.
type Gateway struct {
	broadcaster broadcaster.Broadcaster
	lister      ConversationLister
	cfg         Config
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

// New creates a gateway.
func New(b broadcaster.Broadcaster, lister ConversationLister, cfg Config, log zerolog.Logger) *Gateway {
	if cfg.SendQueueSize <= 0 {
		cfg = DefaultConfig()
	}
	return &Gateway{
		broadcaster: b,
		lister:      lister,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin enforcement happens at the platform edge.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws-gateway").Logger(),
	}
}

// Handle serves GET /ws.
func (g *Gateway) Handle(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	userID, err := g.readRegister(conn)
	if err != nil {
		g.log.Warn().Err(err).Msg("session registration failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "registration required"),
			time.Now().Add(g.cfg.WriteTimeout))
		conn.Close()
		return
	}

	sub, err := g.broadcaster.Open(c.Request.Context())
	if err != nil {
		g.log.Error().Err(err).Msg("failed to open broadcast subscription")
		conn.Close()
		return
	}

	channels := []string{chat.UserChannel(userID)}
	conversationIDs, err := g.lister.ActiveConversationIDs(context.Background(), userID)
	if err != nil {
		g.log.Warn().Err(err).Str("user_id", userID).Msg("failed to list conversations, session starts with user channel only")
	} else {
		for _, id := range conversationIDs {
			channels = append(channels, chat.ConversationChannel(id))
		}
	}
	if err := sub.Subscribe(context.Background(), channels...); err != nil {
		g.log.Error().Err(err).Msg("failed to subscribe session channels")
		sub.Close()
		conn.Close()
		return
	}

	session := newSession(g, conn, sub, userID)
	session.run()
}

func (g *Gateway) readRegister(conn *websocket.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(registerTimeout)); err != nil {
		return "", err
	}

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	var frame registerFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return "", err
	}
	if frame.Type != "register" || frame.UserID == "" {
		return "", errInvalidRegister
	}
	return frame.UserID, nil
}
