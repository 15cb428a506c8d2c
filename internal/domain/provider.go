package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/broadcaster"
)

// ProvideChatService provides the chat service.
func ProvideChatService(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	b broadcaster.Broadcaster,
	log zerolog.Logger,
) chat.Service {
	return chat.NewService(conversations, messages, b, log)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideChatService,
)
