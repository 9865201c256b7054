package authorization

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/redis"
)

const (
	cachePrefix = "fern:perm"
	allowValue  = "allow"
	denyPrefix  = "deny:"
)

// Cache memoizes element-independent authorization verdicts for a short
// TTL. It stores the deny message alongside the verdict so replayed
// denials match the uncached path exactly.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger ectologger.Logger
}

// NewCache creates a permission cache
func NewCache(client *redis.Client, ttl time.Duration, logger ectologger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%t",
		cachePrefix, req.DomainID, req.AdminID, req.Action, req.Router, req.Cascade)
}

// Get returns the memoized verdict for the request. The second return is
// the deny message when the verdict is a denial.
func (c *Cache) Get(ctx context.Context, req Request) (bool, string, bool) {
	value, err := c.client.Get(ctx, cacheKey(req))
	if err != nil {
		if !redis.IsMiss(err) {
			c.logger.WithContext(ctx).WithError(err).Warn("permission cache lookup failed")
		}
		metrics.RecordPermissionCache("miss")
		return false, "", false
	}

	metrics.RecordPermissionCache("hit")
	if value == allowValue {
		return true, "", true
	}
	if message, ok := strings.CutPrefix(value, denyPrefix); ok {
		return false, message, true
	}
	return false, "", false
}

// Set memoizes a verdict
func (c *Cache) Set(ctx context.Context, req Request, allowed bool, denyMessage string) {
	value := allowValue
	if !allowed {
		value = denyPrefix + denyMessage
	}
	if err := c.client.Set(ctx, cacheKey(req), value, c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("permission cache store failed")
	}
}

// InvalidateDomain drops every memoized verdict for the domain. Wired as
// the repositories' invalidation hook for team and role mutations.
func (c *Cache) InvalidateDomain(ctx context.Context, domainID uuid.UUID) {
	pattern := fmt.Sprintf("%s:%s:*", cachePrefix, domainID)
	if err := c.client.DelPattern(ctx, pattern); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("permission cache invalidation failed")
	}
}
