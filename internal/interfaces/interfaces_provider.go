package interfaces

import (
	"github.com/google/wire"

	"skillstream/services/chat-api/internal/interfaces/httpserver"
	"skillstream/services/chat-api/internal/interfaces/httpserver/handlers"
	"skillstream/services/chat-api/internal/interfaces/httpserver/routes"
)

// InterfacesProvider provides all interface dependencies.
var InterfacesProvider = wire.NewSet(
	handlers.HandlerProvider,
	routes.RouteProvider,
	httpserver.New,
)
