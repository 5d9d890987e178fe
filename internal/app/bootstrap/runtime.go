package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/carepulse/internal/config"
	"github.com/wolfman30/carepulse/internal/viewcache"
	"github.com/wolfman30/carepulse/pkg/logging"
)

const redisPingTimeout = 2 * time.Second

// redisOptions accepts either host:port or a redis:// / rediss:// URL.
// REDIS_PASSWORD and REDIS_TLS override whatever the URL carries.
func redisOptions(cfg *appconfig.Config) (*redis.Options, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: parse REDIS_ADDR: %w", err)
		}
		opts = parsed
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisTLS && opts.TLSConfig == nil {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	// The cache is an optimisation; fail fast rather than stall a request.
	opts.DialTimeout = time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond
	return opts, nil
}

// BuildRedisClient returns a client for the dashboard cache, or nil when
// REDIS_ADDR is unset, unparsable, or (with verify) unreachable.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		logger.Warn("redis disabled", "error", err)
		return nil
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not available; dashboard cache disabled", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildViewCache wraps the Redis client in the dashboard view cache. A nil
// client yields a nil cache, which every caller treats as a permanent miss.
func BuildViewCache(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) *viewcache.Cache {
	if client == nil || cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("dashboard view cache enabled", "ttl", cfg.DashboardCacheTTL.String())
	return viewcache.New(client, cfg.DashboardCacheTTL)
}
