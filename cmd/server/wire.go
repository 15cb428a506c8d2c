//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"skillstream/services/chat-api/internal/config"
	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/broadcaster"
	"skillstream/services/chat-api/internal/infrastructure/ratelimit"
	"skillstream/services/chat-api/internal/infrastructure/repository/chatrepo"
	"skillstream/services/chat-api/internal/interfaces/httpserver"
	"skillstream/services/chat-api/internal/interfaces/wsgateway"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideConversationRepository,
	ProvideMessageRepository,
	ProvideBroadcaster,
	ProvideSendLimiter,

	// Domain providers
	ProvideChatService,

	// Interface providers
	ProvideGateway,
	httpserver.New,

	// Application
	NewApplication,
)

// ProvideConversationRepository provides the conversation repository.
func ProvideConversationRepository(db *gorm.DB) chat.ConversationRepository {
	return chatrepo.NewConversationRepository(db)
}

// ProvideMessageRepository provides the message repository.
func ProvideMessageRepository(db *gorm.DB) chat.MessageRepository {
	return chatrepo.NewMessageRepository(db)
}

// ProvideBroadcaster provides the event broadcaster.
func ProvideBroadcaster(client redis.UniversalClient, log zerolog.Logger) broadcaster.Broadcaster {
	if client != nil {
		return broadcaster.NewRedis(client, log)
	}
	return broadcaster.NewMemory(log)
}

// ProvideSendLimiter provides the message send limiter.
func ProvideSendLimiter(client redis.UniversalClient, cfg *config.Config) ratelimit.Limiter {
	limitCfg := ratelimit.Config{Limit: cfg.SendRateLimit, Window: cfg.SendRateWindow}
	if client != nil {
		return ratelimit.NewRedis(client, limitCfg)
	}
	return ratelimit.NewMemory(limitCfg)
}

// ProvideChatService provides the chat service.
func ProvideChatService(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	b broadcaster.Broadcaster,
	log zerolog.Logger,
) chat.Service {
	return chat.NewService(conversations, messages, b, log)
}

// ProvideGateway provides the live session gateway.
func ProvideGateway(b broadcaster.Broadcaster, svc chat.Service, cfg *config.Config, log zerolog.Logger) *wsgateway.Gateway {
	return wsgateway.New(b, svc, wsgateway.Config{
		WriteTimeout:  cfg.WSWriteTimeout,
		PongTimeout:   cfg.WSPongTimeout,
		SendQueueSize: cfg.WSSendQueueSize,
	}, log)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	cfg *config.Config,
	log zerolog.Logger,
	db *gorm.DB,
	redisClient redis.UniversalClient,
) (*Application, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
