package session

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/commune-app/commune/internal/pkg/cache"
	"github.com/commune-app/commune/internal/pkg/env"
)

// Redis databases used next to the cache (DB 0).
const (
	DatabaseOAuth   = 2
	DatabaseLimiter = 3
)

// NewRedisStorage returns fiber storage on the cache server, using a
// separate database so keys never collide with the cache.
func NewRedisStorage(database int) *redis.Storage {
	host := "localhost"
	port := 6379
	username := ""
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		opts := cacheClient.Options()
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		username = opts.Username
		// Prefer password from the underlying client if present
		if opts.Password != "" {
			password = opts.Password
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Database: database,
		Reset:    false,
	})
}

// NewOAuthStore holds third-party OAuth state between redirect and callback.
func NewOAuthStore(cookieName string) *session.Store {
	return session.New(session.Config{
		Storage:        NewRedisStorage(DatabaseOAuth),
		KeyLookup:      "cookie:" + cookieName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})
}
