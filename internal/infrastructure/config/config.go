package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth      AuthConfig
	RateLimit RateLimitConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type AuthConfig struct {
	// JWTSecret signs both token types. Required outside development.
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
	// OpTimeout bounds each record-store and hashing call.
	OpTimeout time.Duration `env:"AUTH_OP_TIMEOUT, default=5s"`
}

type RateLimitConfig struct {
	LoginAttempts    int64         `env:"RATE_LIMIT_LOGIN_ATTEMPTS,    default=5"`
	LoginWindow      time.Duration `env:"RATE_LIMIT_LOGIN_WINDOW,      default=15m"`
	RegisterAttempts int64         `env:"RATE_LIMIT_REGISTER_ATTEMPTS, default=3"`
	RegisterWindow   time.Duration `env:"RATE_LIMIT_REGISTER_WINDOW,   default=1h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=subscription_tracker"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
