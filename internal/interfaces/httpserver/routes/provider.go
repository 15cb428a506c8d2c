package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"skillstream/services/chat-api/internal/interfaces/httpserver/handlers"
	"skillstream/services/chat-api/internal/interfaces/httpserver/middlewares"
	v1 "skillstream/services/chat-api/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	V1 *v1.Routes
	// requestTimeout bounds every API request context so store calls
	// cannot hang past the deadline.
	requestTimeout time.Duration
}

// NewProvider creates a new route provider.
func NewProvider(handlerProvider *handlers.Provider, sendLimiter gin.HandlerFunc, requestTimeout time.Duration) *Provider {
	return &Provider{
		V1:             v1.NewRoutes(handlerProvider, sendLimiter),
		requestTimeout: requestTimeout,
	}
}

// Register registers all routes on the engine.
func (p *Provider) Register(engine *gin.Engine) {
	p.V1.Register(engine, middlewares.RequestTimeout(p.requestTimeout), middlewares.Identity())
}

// RouteProvider provides all routes for wire.
var RouteProvider = wire.NewSet(
	NewProvider,
)
