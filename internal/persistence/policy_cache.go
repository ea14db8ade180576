package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/servicedesk/internal/domain"
)

const policyCacheKeyPrefix = "sla:policies:"

// PolicyCache caches each tenant's active policy list in Redis. It is a
// performance optimization only: resolution correctness never depends on
// cache freshness, and every policy write invalidates the tenant's entry.
type PolicyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPolicyCache builds a cache over the shared Redis client. A nil client
// disables caching entirely.
func NewPolicyCache(r *Redis, ttl time.Duration) *PolicyCache {
	if r == nil || r.Client == nil {
		return &PolicyCache{}
	}
	return &PolicyCache{client: r.Client, ttl: ttl}
}

// Get returns the cached active policies for a tenant, or ok=false on miss,
// decode failure, or any Redis error.
func (c *PolicyCache) Get(ctx context.Context, tenantID string) ([]domain.SLAPolicy, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, policyCacheKeyPrefix+tenantID).Bytes()
	if err != nil {
		return nil, false
	}
	var policies []domain.SLAPolicy
	if err := json.Unmarshal(raw, &policies); err != nil {
		return nil, false
	}
	return policies, true
}

// Set stores a tenant's active policies. Failures are ignored; the next
// read falls through to the database.
func (c *PolicyCache) Set(ctx context.Context, tenantID string, policies []domain.SLAPolicy) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(policies)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, policyCacheKeyPrefix+tenantID, raw, c.ttl).Err()
}

// Invalidate drops a tenant's cached policies after any policy write.
func (c *PolicyCache) Invalidate(ctx context.Context, tenantID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, policyCacheKeyPrefix+tenantID).Err()
}
