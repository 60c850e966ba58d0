package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

// CacheStore persists cached payloads. Misses are reported as appErrors.ErrCacheMiss.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// CacheConfig tunes the read-through cache.
type CacheConfig struct {
	Namespace  string
	DefaultTTL time.Duration
}

// CacheService namespaces keys, records hit ratios and swallows a missing backend.
// A nil store or a nil *CacheService behaves as an always-miss cache.
type CacheService struct {
	store   CacheStore
	metrics *MetricsService
	cfg     CacheConfig
	logger  *zap.Logger
}

// NewCacheService constructs a cache service.
func NewCacheService(store CacheStore, metrics *MetricsService, cfg CacheConfig, logger *zap.Logger) *CacheService {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, cfg: cfg, logger: logger}
}

// Enabled indicates whether a backing store is configured.
func (s *CacheService) Enabled() bool {
	return s != nil && s.store != nil
}

func (s *CacheService) key(key string) string {
	if s.cfg.Namespace == "" {
		return key
	}
	return s.cfg.Namespace + ":" + key
}

// Get loads key into dest and reports whether the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.store.Get(ctx, s.key(key), dest)
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	start := time.Now()
	err := s.store.Set(ctx, s.key(key), value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every entry whose key starts with prefix.
func (s *CacheService) Invalidate(ctx context.Context, prefix string) error {
	if !s.Enabled() {
		return nil
	}
	removed, err := s.store.DeletePrefix(ctx, s.key(prefix))
	if err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
		return err
	}
	s.logger.Debug("cache invalidated", zap.String("prefix", prefix), zap.Int("removed", removed))
	return nil
}

// cached reads key through the cache, calling load on a miss. The flag reports a hit.
// Cache failures never fail the read.
func cached[T any](ctx context.Context, c *CacheService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var value T
	if hit, err := c.Get(ctx, key, &value); err == nil && hit {
		return value, true, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}
	_ = c.Set(ctx, key, value, ttl)
	return value, false, nil
}
