// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"fmt"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/aurora-mobile/pushgate/log"
)

func mustConnectCache(ctx context.Context, applicationYAMLKey string, inner TokenStore, cfg *config) TokenStore {
	opts, err := redis.ParseURL(cfg.Storage.Cache.URL)
	log.Panic(errors.Wrapf(err, "[%v] invalid cache url", applicationYAMLKey)) //nolint:revive // That's intended.
	opts.ClientName = applicationYAMLKey
	opts.ContextTimeoutEnabled = true
	opts.PoolFIFO = true
	if opts.PoolSize == 0 {
		opts.PoolSize = 10 * runtime.GOMAXPROCS(-1) //nolint:mnd,gomnd // Default connections per core.
	}
	client := redis.NewClient(opts)
	result, pErr := client.Ping(ctx).Result()
	log.Panic(errors.Wrapf(pErr, "[%v] failed to ping cache", applicationYAMLKey))
	if result != "PONG" {
		log.Panic(errors.Errorf("[%v] unexpected cache ping response: %v", applicationYAMLKey, result))
	}
	ttl := cfg.Storage.Cache.TTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &cachedStore{TokenStore: inner, cache: client, ttl: ttl}
}

// DeviceTokens is read-through: a cache miss or any cache failure falls back
// to the underlying store, a successful read repopulates the cache.
func (c *cachedStore) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	if cached, err := c.cache.Get(ctx, deviceTokensCacheKey(userID)).Result(); err == nil {
		var deviceTokens []string
		if uErr := json.Unmarshal([]byte(cached), &deviceTokens); uErr == nil {
			return deviceTokens, nil
		}
		log.Warn("undecodable device token cache entry, dropping it", "userId", userID)
		log.Error(errors.Wrapf(c.cache.Del(ctx, deviceTokensCacheKey(userID)).Err(), "failed to drop cache entry for userID:%v", userID))
	} else if !errors.Is(err, redis.Nil) {
		log.Error(errors.Wrapf(err, "device token cache read failed for userID:%v", userID))
	}
	deviceTokens, err := c.TokenStore.DeviceTokens(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck // Wrapped by the underlying store.
	}
	if encoded, mErr := json.Marshal(deviceTokens); mErr == nil {
		log.Error(errors.Wrapf(c.cache.Set(ctx, deviceTokensCacheKey(userID), encoded, c.ttl).Err(),
			"failed to cache device tokens for userID:%v", userID))
	}

	return deviceTokens, nil
}

func (c *cachedStore) AddDeviceToken(ctx context.Context, userID, deviceToken string) error {
	c.invalidate(ctx, userID)

	return c.TokenStore.AddDeviceToken(ctx, userID, deviceToken) //nolint:wrapcheck // Wrapped by the underlying store.
}

func (c *cachedStore) RemoveDeviceToken(ctx context.Context, userID, deviceToken string) error {
	c.invalidate(ctx, userID)

	return c.TokenStore.RemoveDeviceToken(ctx, userID, deviceToken) //nolint:wrapcheck // Wrapped by the underlying store.
}

func (c *cachedStore) invalidate(ctx context.Context, userID string) {
	log.Error(errors.Wrapf(c.cache.Del(ctx, deviceTokensCacheKey(userID)).Err(),
		"failed to invalidate device token cache for userID:%v", userID))
}

func (c *cachedStore) Ping(ctx context.Context) error {
	return errors.Wrap(multierror.Append( //nolint:wrapcheck // Not needed.
		c.cache.Ping(ctx).Err(),
		c.TokenStore.Ping(ctx),
	).ErrorOrNil(), "failed to ping cached token store")
}

func (c *cachedStore) Close() error {
	return errors.Wrap(multierror.Append( //nolint:wrapcheck // Not needed.
		c.cache.Close(),
		c.TokenStore.Close(),
	).ErrorOrNil(), "failed to close cached token store")
}

func deviceTokensCacheKey(userID string) string {
	return fmt.Sprintf("device_tokens:%v", userID)
}
