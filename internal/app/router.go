package app

import (
	httpx "github.com/plateful/plateful-backend/internal/http"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlerset Handlers, middleware Middleware, serviceName string) *httpx.Server {
	return httpx.NewServer(httpx.RouterConfig{
		Log:                log,
		IdentityMiddleware: middleware.Identity,
		FeedHandler:        handlerset.Feed,
		InteractionHandler: handlerset.Interaction,
		HealthHandler:      handlerset.Health,
		ServiceName:        serviceName,
	})
}
