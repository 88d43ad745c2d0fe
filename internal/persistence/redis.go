package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/config"
	"github.com/spec-kit/helpdesk-sla/internal/scheduler"
)

// Redis holds the client behind the breach-scan lease. Nothing else is kept
// in Redis, so an outage only costs scan coordination between replicas.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis builds the client and checks connectivity once. An unreachable
// server is logged, not fatal.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
		PoolSize:    cfg.PoolSize,
	})
	r := &Redis{client: client, logger: logger.With(zap.String("redis_addr", cfg.Addr))}

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		r.logger.Warn("unable to reach redis; breach scans will run without a lease", zap.Error(err))
	} else {
		r.logger.Info("connected to redis")
	}
	return r
}

// ScanLease returns the lease replicas use to take turns scanning.
func (r *Redis) ScanLease(key string, ttl time.Duration) *scheduler.Lease {
	if r == nil || r.client == nil {
		return nil
	}
	return scheduler.NewLease(r.client, key, ttl)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.Warn("closing redis client", zap.Error(err))
		}
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}
