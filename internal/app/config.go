package app

import (
	"github.com/plateful/plateful-backend/internal/platform/envutil"
)

type Config struct {
	Port         string
	Environment  string
	Version      string
	JWTSecretKey string
	ScoreAPIBase string
	RedisAddr    string
}

func LoadConfig() Config {
	return Config{
		Port:         envutil.Str("PORT", "8080"),
		Environment:  envutil.Str("APP_ENV", "development"),
		Version:      envutil.Str("APP_VERSION", "dev"),
		JWTSecretKey: envutil.Str("JWT_SECRET_KEY", "defaultsecret"),
		ScoreAPIBase: envutil.Str("SCORE_API_BASE", "http://localhost:8000"),
		RedisAddr:    envutil.Str("REDIS_ADDR", ""),
	}
}
