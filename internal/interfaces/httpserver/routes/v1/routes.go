package v1

import (
	"github.com/gin-gonic/gin"

	"skillstream/services/chat-api/internal/interfaces/httpserver/handlers"
)

// Routes holds the v1 route configuration.
type Routes struct {
	handlers *handlers.Provider
	// sendLimiter throttles message sends; applied only to the send
	// endpoint, never to reads.
	sendLimiter gin.HandlerFunc
}

// NewRoutes creates a new v1 routes instance.
func NewRoutes(handlerProvider *handlers.Provider, sendLimiter gin.HandlerFunc) *Routes {
	return &Routes{
		handlers:    handlerProvider,
		sendLimiter: sendLimiter,
	}
}

// Register registers all v1 routes on the engine. The given group
// middlewares apply to the whole group, in order.
func (r *Routes) Register(engine *gin.Engine, groupMiddlewares ...gin.HandlerFunc) {
	v1 := engine.Group("/v1")
	v1.Use(groupMiddlewares...)
	RegisterChatRoutes(v1, r.handlers, r.sendLimiter)
}
