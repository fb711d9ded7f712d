package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	domain "github.com/bryanwahyu/gpolens/internal/domain/runs"
)

const keyPrefix = "gpo-analysis-session:"

// SessionCache keeps each tenant's latest analysis response so an interrupted client
// can pick it up again. Entries expire after ttl.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

func sessionKey(tenant string) string { return keyPrefix + tenant }

func (c *SessionCache) Save(ctx context.Context, tenant string, resp *analysis.Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return c.client.Set(ctx, sessionKey(tenant), b, c.ttl).Err()
}

func (c *SessionCache) Load(ctx context.Context, tenant string) (*analysis.Response, error) {
	b, err := c.client.Get(ctx, sessionKey(tenant)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var resp analysis.Response
	if err := json.Unmarshal(b, &resp); err != nil {
		// a corrupt entry is as good as none
		_ = c.client.Del(ctx, sessionKey(tenant)).Err()
		return nil, domain.ErrNotFound
	}
	return &resp, nil
}

func (c *SessionCache) Clear(ctx context.Context, tenant string) error {
	return c.client.Del(ctx, sessionKey(tenant)).Err()
}

// Ping checks the connection for readiness probes.
func (c *SessionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
