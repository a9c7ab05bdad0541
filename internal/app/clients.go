package app

import (
	redisclient "github.com/plateful/plateful-backend/internal/clients/redis"
	"github.com/plateful/plateful-backend/internal/clients/scoreengine"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

type Clients struct {
	ScoreEngine scoreengine.Client
	PoolCache   redisclient.PoolCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	poolCache, err := redisclient.NewPoolCache(log)
	if err != nil {
		return Clients{}, err
	}
	return Clients{
		ScoreEngine: scoreengine.NewClient(log),
		PoolCache:   poolCache,
	}, nil
}
