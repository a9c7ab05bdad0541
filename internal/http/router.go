package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/plateful/plateful-backend/internal/http/handlers"
	httpMW "github.com/plateful/plateful-backend/internal/http/middleware"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	IdentityMiddleware *httpMW.IdentityMiddleware

	FeedHandler        *httpH.FeedHandler
	InteractionHandler *httpH.InteractionHandler
	HealthHandler      *httpH.HealthHandler

	ServiceName string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.CORS())

	// Health (no identity resolution)
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.IdentityMiddleware != nil {
		api.Use(cfg.IdentityMiddleware.Attach())
	}
	api.Use(httpMW.RequestLogger(cfg.Log))
	{
		// Feed (guests allowed)
		if cfg.FeedHandler != nil {
			api.GET("/feed", cfg.FeedHandler.GetFeed)
			api.DELETE("/feed/pool", cfg.FeedHandler.ClearPool)
		}
	}

	protected := api.Group("/")
	{
		if cfg.IdentityMiddleware != nil {
			protected.Use(cfg.IdentityMiddleware.RequireUser())
		}

		if cfg.FeedHandler != nil {
			protected.GET("/feed/personal", cfg.FeedHandler.GetPersonal)
		}

		if cfg.InteractionHandler != nil {
			protected.POST("/restaurants/:id/swipe", cfg.InteractionHandler.Swipe)
			protected.POST("/restaurants/:id/bookmark", cfg.InteractionHandler.AddBookmark)
			protected.DELETE("/restaurants/:id/bookmark", cfg.InteractionHandler.RemoveBookmark)
			protected.POST("/restaurants/:id/view", cfg.InteractionHandler.View)
			protected.POST("/restaurants/:id/share", cfg.InteractionHandler.Share)
			protected.POST("/restaurants/:id/visit-feedback", cfg.InteractionHandler.VisitFeedback)

			protected.GET("/me/last-selected", cfg.InteractionHandler.LastSelected)
			protected.GET("/me/bookmarks", cfg.InteractionHandler.Bookmarks)
		}
	}

	return r
}
