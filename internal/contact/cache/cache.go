// Package cache keeps a TTL-bounded Redis cache of consolidation views keyed
// by the exact (email, phoneNumber) pair. A hit means the pair was resolved
// recently and the stored view can be served without touching PostgreSQL;
// merges triggered by other pairs may lag by at most the TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"contactgraph/internal/contact"
	"contactgraph/internal/platform/redis"
)

// ViewCache caches consolidated views in Redis.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New constructs a view cache. Returns nil when the client is nil (Redis not
// configured) so callers can treat the cache as absent.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ViewCache {
	if client == nil {
		return nil
	}
	return &ViewCache{client: client, ttl: ttl, logger: logger}
}

// key length-prefixes the email so no character in either value can make two
// distinct pairs collide.
func key(email, phoneNumber string) string {
	return fmt.Sprintf("contact:view:%d:%s:%s", len(email), email, phoneNumber)
}

// Get returns the cached view for the pair, if present. Cache failures are
// logged and treated as misses so Redis never blocks resolution.
func (c *ViewCache) Get(ctx context.Context, email, phoneNumber string) (*contact.ConsolidatedContact, bool) {
	payload, err := c.client.Get(ctx, key(email, phoneNumber)).Bytes()
	if err != nil {
		return nil, false
	}

	var view contact.ConsolidatedContact
	if err := json.Unmarshal(payload, &view); err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "corrupt view cache entry", "error", err)
		}
		return nil, false
	}
	return &view, true
}

// Set stores the view for the pair with the configured TTL.
func (c *ViewCache) Set(ctx context.Context, email, phoneNumber string, view *contact.ConsolidatedContact) {
	payload, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(email, phoneNumber), payload, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "view cache write failed", "error", err)
	}
}

// Invalidate drops the cached view for the pair. Used on delete so a removed
// group's view cannot outlive its contacts.
func (c *ViewCache) Invalidate(ctx context.Context, email, phoneNumber string) {
	if err := c.client.Del(ctx, key(email, phoneNumber)).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "view cache invalidation failed", "error", err)
	}
}
