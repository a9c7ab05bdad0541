package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/envutil"
	"github.com/plateful/plateful-backend/internal/platform/logger"
	"github.com/plateful/plateful-backend/internal/requestdata"
)

const (
	userKeyPrefix = "feed:pool:user:"
	anonKeyPrefix = "feed:pool:anon:"

	UserPoolTTL = time.Hour
	AnonPoolTTL = 30 * time.Minute
)

var (
	// ErrMiss means no pool is cached under the key.
	ErrMiss = errors.New("pool cache miss")
	// ErrCorrupt means the cached value did not deserialize; callers
	// delete and regenerate, never surface it.
	ErrCorrupt = errors.New("pool cache corrupt")
)

// DeriveKey maps a caller identity to its pool cache key.
func DeriveKey(rd *requestdata.RequestData) string {
	if rd.Authenticated() {
		return userKeyPrefix + rd.UserID.String()
	}
	return anonKeyPrefix + rd.AnonID
}

// TTLFor picks the pool lifetime for a caller identity.
func TTLFor(rd *requestdata.RequestData) time.Duration {
	if rd.Authenticated() {
		return UserPoolTTL
	}
	return AnonPoolTTL
}

type PoolCache interface {
	Get(ctx context.Context, key string) ([]types.PoolEntry, error)
	// Set serializes the whole pool before a single SET, so readers
	// only ever observe a complete pool.
	Set(ctx context.Context, key string, entries []types.PoolEntry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type poolCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewPoolCache(log *logger.Logger) (PoolCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(envutil.Str("REDIS_ADDR", ""))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &poolCache{
		log: log.With("client", "RedisPoolCache"),
		rdb: rdb,
	}, nil
}

// NewPoolCacheWithClient is used by tests with a miniredis-style client.
func NewPoolCacheWithClient(log *logger.Logger, rdb *goredis.Client) PoolCache {
	return &poolCache{log: log.With("client", "RedisPoolCache"), rdb: rdb}
}

func (pc *poolCache) Get(ctx context.Context, key string) ([]types.PoolEntry, error) {
	raw, err := pc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("pool cache get: %w", err)
	}

	var entries []types.PoolEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	if entries == nil {
		return nil, ErrCorrupt
	}
	return entries, nil
}

func (pc *poolCache) Set(ctx context.Context, key string, entries []types.PoolEntry, ttl time.Duration) error {
	if entries == nil {
		entries = []types.PoolEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("pool cache encode: %w", err)
	}
	return pc.rdb.Set(ctx, key, raw, ttl).Err()
}

func (pc *poolCache) Delete(ctx context.Context, key string) error {
	return pc.rdb.Del(ctx, key).Err()
}

func (pc *poolCache) Close() error {
	if pc == nil || pc.rdb == nil {
		return nil
	}
	return pc.rdb.Close()
}
