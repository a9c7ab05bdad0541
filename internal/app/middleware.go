package app

import (
	httpMW "github.com/plateful/plateful-backend/internal/http/middleware"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

type Middleware struct {
	Identity *httpMW.IdentityMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	return Middleware{
		Identity: httpMW.NewIdentityMiddleware(log, cfg.JWTSecretKey),
	}
}
