// Package cache keeps computed reports in Redis. Entries are namespaced by a
// generation counter that every committed write bumps, so a cached report is
// never served after the data it was built from has changed.
package cache

import (
	"clinicstaff/internal/core"
	"clinicstaff/internal/reports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a report stays cached.
const DefaultTTL = 5 * time.Minute

// DefaultPrefix namespaces every key written by the cache.
const DefaultPrefix = "clinicstaff"

// summaryWindow is how long a cached summary may lag the clock. Summaries
// count upcoming shifts, which changes as time passes without any write.
const summaryWindow = time.Minute

// ReportCache caches report results in Redis.
type ReportCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger core.Logger
	now    func() time.Time
}

// Option configures a ReportCache.
type Option func(*ReportCache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *ReportCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the key namespace.
func WithPrefix(prefix string) Option {
	return func(c *ReportCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger reports Redis failures; they never fail a read.
func WithLogger(logger core.Logger) Option {
	return func(c *ReportCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock that buckets summary entries.
func WithClock(now func() time.Time) Option {
	return func(c *ReportCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache over an existing client.
func New(rdb *redis.Client, opts ...Option) (*ReportCache, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	c := &ReportCache{rdb: rdb, prefix: DefaultPrefix, ttl: DefaultTTL, logger: nopLogger{}, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dial parses a redis:// URL and connects.
func Dial(ctx context.Context, url string, opts ...Option) (*ReportCache, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb, opts...)
}

// Close closes the Redis connection.
func (c *ReportCache) Close() error { return c.rdb.Close() }

// Ping verifies Redis connectivity.
func (c *ReportCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *ReportCache) generationKey() string {
	return c.prefix + ":reports:generation"
}

func (c *ReportCache) entryKey(kind string, gen int64, q reports.Query) string {
	return fmt.Sprintf("%s:reports:%d:%s:%s", c.prefix, gen, kind, q.Key())
}

// Generation returns the current data generation. A missing counter is 0.
func (c *ReportCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Invalidate bumps the generation, orphaning every cached entry. Orphans
// expire through their TTL.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.generationKey()).Err()
}

// NotifyChange implements core.ChangeNotifier.
func (c *ReportCache) NotifyChange(ctx context.Context, operation string) {
	if err := c.Invalidate(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("report cache invalidation failed", "operation", operation, "error", err)
	}
}

// Wrap returns a reports.Source that serves from the cache and falls back to src.
func (c *ReportCache) Wrap(src reports.Source) reports.Source {
	return &cachedSource{cache: c, src: src}
}

type cachedSource struct {
	cache *ReportCache
	src   reports.Source
}

func (s *cachedSource) Productivity(ctx context.Context, q reports.Query) (reports.Report, error) {
	return lookup(ctx, s.cache, "productivity", s.cache.ttl, q, s.src.Productivity)
}

// Summary entries are bucketed by the minute they were computed in.
func (s *cachedSource) Summary(ctx context.Context, q reports.Query) (reports.Summary, error) {
	bucket := s.cache.now().UTC().Truncate(summaryWindow)
	ttl := min(s.cache.ttl, summaryWindow)
	return lookup(ctx, s.cache, "summary@"+bucket.Format("200601021504"), ttl, q, s.src.Summary)
}

// lookup reads kind/q at the current generation or computes and stores it.
// Redis errors degrade to a direct computation.
func lookup[T any](ctx context.Context, c *ReportCache, kind string, ttl time.Duration, q reports.Query, compute func(context.Context, reports.Query) (T, error)) (T, error) {
	norm, err := q.Normalize()
	if err != nil {
		var zero T
		return zero, err
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		c.logger.Warn("report cache unavailable", "kind", kind, "error", err)
		return compute(ctx, norm)
	}
	key := c.entryKey(kind, gen, norm)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out T
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			c.logger.Debug("report cache hit", "kind", kind, "key", key)
			return out, nil
		}
		c.logger.Warn("report cache entry corrupt", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("report cache read failed", "key", key, "error", err)
	}

	out, err := compute(ctx, norm)
	if err != nil {
		return out, err
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return out, nil
	}
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.Warn("report cache write failed", "key", key, "error", err)
	}
	return out, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
