package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-hris-leave/internal/shared/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const BalanceCacheKeyPrefix = "leave:balances:"

// BalanceCache holds the read projection served by GET /leaves/balances.
// It is never consulted by the lifecycle; writes invalidate it after commit.
type BalanceCache interface {
	Get(ctx context.Context, organizationID, employeeID string, year int) ([]BalanceResponse, bool)
	Set(ctx context.Context, organizationID, employeeID string, year int, balances []BalanceResponse)
	Invalidate(ctx context.Context, organizationID, employeeID string, year int)
}

func balanceCacheKey(organizationID, employeeID string, year int) string {
	if year <= 0 {
		return fmt.Sprintf("%s%s:%s:all", BalanceCacheKeyPrefix, organizationID, employeeID)
	}
	return fmt.Sprintf("%s%s:%s:%d", BalanceCacheKeyPrefix, organizationID, employeeID, year)
}

// cacheGenerations counts invalidations per (organization, employee). A read
// that saw a different generation before and after loading does not write
// its result back.
type cacheGenerations struct {
	mu  sync.Mutex
	gen map[string]uint64
}

func (g *cacheGenerations) current(organizationID, employeeID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen[organizationID+":"+employeeID]
}

func (g *cacheGenerations) bump(organizationID, employeeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen == nil {
		g.gen = map[string]uint64{}
	}
	g.gen[organizationID+":"+employeeID]++
}

type redisBalanceCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisBalanceCache(rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) BalanceCache {
	l := zap.L().Named("leave.cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.cache")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisBalanceCache{rdb: rdb, ttl: ttl, logger: l}
}

func (c *redisBalanceCache) Get(ctx context.Context, organizationID, employeeID string, year int) ([]BalanceResponse, bool) {
	cached, err := c.rdb.Get(ctx, balanceCacheKey(organizationID, employeeID, year)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.BalanceCacheLookups.WithLabelValues("error").Inc()
			c.logger.Warn("balance cache get failed", zap.Error(err))
			return nil, false
		}
		metrics.BalanceCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var resp []BalanceResponse
	if err := json.Unmarshal([]byte(cached), &resp); err != nil {
		metrics.BalanceCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.BalanceCacheLookups.WithLabelValues("hit").Inc()
	return resp, true
}

func (c *redisBalanceCache) Set(ctx context.Context, organizationID, employeeID string, year int, balances []BalanceResponse) {
	payload, err := json.Marshal(balances)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, balanceCacheKey(organizationID, employeeID, year), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("balance cache set failed", zap.Error(err))
	}
}

// Invalidate drops the per-year entry and the all-years entry.
func (c *redisBalanceCache) Invalidate(ctx context.Context, organizationID, employeeID string, year int) {
	keys := []string{
		balanceCacheKey(organizationID, employeeID, year),
		balanceCacheKey(organizationID, employeeID, 0),
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("balance cache invalidate failed",
			zap.String("employee_id", employeeID),
			zap.Int("year", year),
			zap.Error(err),
		)
	}
}

type noopBalanceCache struct{}

func (noopBalanceCache) Get(context.Context, string, string, int) ([]BalanceResponse, bool) {
	return nil, false
}
func (noopBalanceCache) Set(context.Context, string, string, int, []BalanceResponse) {}
func (noopBalanceCache) Invalidate(context.Context, string, string, int)             {}
