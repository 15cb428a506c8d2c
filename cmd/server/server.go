package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/config"
	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/broadcaster"
	"skillstream/services/chat-api/internal/infrastructure/database"
	"skillstream/services/chat-api/internal/infrastructure/logger"
	"skillstream/services/chat-api/internal/infrastructure/observability"
	"skillstream/services/chat-api/internal/infrastructure/ratelimit"
	"skillstream/services/chat-api/internal/infrastructure/redisclient"
	"skillstream/services/chat-api/internal/infrastructure/repository/chatrepo"
	"skillstream/services/chat-api/internal/interfaces/httpserver"
	"skillstream/services/chat-api/internal/interfaces/wsgateway"
)

// Application holds the main application components.
type Application struct {
	httpServer  *httpserver.HTTPServer
	broadcaster broadcaster.Broadcaster
	redisClient redis.UniversalClient
	log         zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(
	httpServer *httpserver.HTTPServer,
	b broadcaster.Broadcaster,
	redisClient redis.UniversalClient,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer:  httpServer,
		broadcaster: b,
		redisClient: redisClient,
		log:         log,
	}
}

// Start runs the application.
func (a *Application) Start(ctx context.Context) error {
	// Run HTTP server (blocks until context cancelled)
	err := a.httpServer.Run(ctx)

	if closeErr := a.broadcaster.Close(); closeErr != nil {
		a.log.Error().Err(closeErr).Msg("failed to close broadcaster")
	}
	if a.redisClient != nil {
		if closeErr := a.redisClient.Close(); closeErr != nil {
			a.log.Error().Err(closeErr).Msg("failed to close redis client")
		}
	}

	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup observability
	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	// Connect the database and apply migrations
	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Redis backs the broadcaster and the rate limiter when configured;
	// without it both fall back to process-local implementations.
	var redisClient redis.UniversalClient
	if cfg.UseRedis() {
		redisClient, err = redisclient.New(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
	}

	var eventBroadcaster broadcaster.Broadcaster
	var sendLimiter ratelimit.Limiter
	limitCfg := ratelimit.Config{Limit: cfg.SendRateLimit, Window: cfg.SendRateWindow}
	if redisClient != nil {
		eventBroadcaster = broadcaster.NewRedis(redisClient, log)
		sendLimiter = ratelimit.NewRedis(redisClient, limitCfg)
		log.Info().Msg("using redis broadcast backend")
	} else {
		eventBroadcaster = broadcaster.NewMemory(log)
		sendLimiter = ratelimit.NewMemory(limitCfg)
		log.Warn().Msg("using in-memory broadcast backend, events stay within this instance")
	}

	// Repositories and the chat core
	conversationRepo := chatrepo.NewConversationRepository(db)
	messageRepo := chatrepo.NewMessageRepository(db)
	chatService := chat.NewService(conversationRepo, messageRepo, eventBroadcaster, log)

	// Live session gateway
	gateway := wsgateway.New(eventBroadcaster, chatService, wsgateway.Config{
		WriteTimeout:  cfg.WSWriteTimeout,
		PongTimeout:   cfg.WSPongTimeout,
		SendQueueSize: cfg.WSSendQueueSize,
	}, log)

	// Initialize HTTP server
	httpServer := httpserver.New(cfg, log, chatService, sendLimiter, gateway)

	// Create and start application
	app := NewApplication(httpServer, eventBroadcaster, redisClient, log)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
