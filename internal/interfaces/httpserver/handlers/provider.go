package handlers

import (
	"github.com/google/wire"

	"skillstream/services/chat-api/internal/domain/chat"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Conversation *ConversationHandler
	Message      *MessageHandler
}

// NewProvider creates a new handler provider.
func NewProvider(chatService chat.Service) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(chatService),
		Message:      NewMessageHandler(chatService),
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewConversationHandler,
	NewMessageHandler,
	NewProvider,
)
