// Package ratelimit guards the public API with fiber's limiter, sharing its
// counters across instances through Redis.
package ratelimit

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/fitcoach/fitcoach/internal/pkg/cache"
	"github.com/fitcoach/fitcoach/internal/pkg/constants"
	"github.com/fitcoach/fitcoach/internal/pkg/env"
)

// Config holds the limiter window. Storage nil means in-process memory.
type Config struct {
	Max        int
	Expiration time.Duration
	Storage    fiber.Storage
}

func ConfigFromEnv() Config {
	return Config{
		Max:        env.GetEnvInt("RATE_LIMIT_MAX", 60),
		Expiration: time.Duration(env.GetEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		Storage:    NewRedisStorage(),
	}
}

// NewRedisStorage points fiber storage at the cache server, database 1.
func NewRedisStorage() fiber.Storage {
	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1, // cache uses DB 0
		Reset:    false,
	})
}

// New returns the limiter middleware. Stripe webhooks are never limited.
func New(cfg Config) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 60
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Expiration,
		Storage:    cfg.Storage,
		Next: func(c *fiber.Ctx) bool {
			return isWebhook(c.Path())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, slow down",
			})
		},
	})
}

// isWebhook matches the webhook route the way fiber's default routing does:
// trailing slashes and letter case are ignored.
func isWebhook(path string) bool {
	trimmed := strings.TrimRight(path, "/")
	return strings.EqualFold(trimmed, constants.WebhookPath)
}
