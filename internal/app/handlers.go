package app

import (
	httpH "github.com/plateful/plateful-backend/internal/http/handlers"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

type Handlers struct {
	Feed        *httpH.FeedHandler
	Interaction *httpH.InteractionHandler
	Health      *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	return Handlers{
		Feed:        httpH.NewFeedHandler(log, serviceset.Feed),
		Interaction: httpH.NewInteractionHandler(log, serviceset.Preference),
		Health:      httpH.NewHealthHandler(),
	}
}
