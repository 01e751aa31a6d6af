// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"io"
	stdlibtime "time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
)

// Public API.

type (
	// TokenStore is the registration store mapping a user to the FCM device
	// tokens of all devices they registered. It is the sole source of truth
	// for which device tokens exist.
	TokenStore interface {
		io.Closer
		// DeviceTokens returns every device token registered for the user.
		// A missing user document or a missing/malformed token field is a
		// valid `nothing registered` state, not an error.
		DeviceTokens(ctx context.Context, userID string) ([]string, error)
		// AddDeviceToken registers a device token for the user. Idempotent.
		AddDeviceToken(ctx context.Context, userID, deviceToken string) error
		// RemoveDeviceToken removes a device token from the user. Removing a
		// token that is already gone is not an error.
		RemoveDeviceToken(ctx context.Context, userID, deviceToken string) error
		Ping(ctx context.Context) error
	}
)

// Private API.

const (
	usersCollection   = "users"
	deviceTokensField = "deviceTokens"

	defaultCacheTTL = 24 * stdlibtime.Hour
)

type (
	store struct {
		client *firestore.Client
	}
	redisCache interface {
		Get(ctx context.Context, key string) *redis.StringCmd
		Set(ctx context.Context, key string, value any, expiration stdlibtime.Duration) *redis.StatusCmd
		Del(ctx context.Context, keys ...string) *redis.IntCmd
		Ping(ctx context.Context) *redis.StatusCmd
		Close() error
	}
	cachedStore struct {
		TokenStore
		cache redisCache
		ttl   stdlibtime.Duration
	}
	config struct {
		Storage struct {
			ProjectID   string `yaml:"projectId"`
			Credentials struct {
				FilePath    string `yaml:"filePath"`
				FileContent string `yaml:"fileContent"`
			} `yaml:"credentials" mapstructure:"credentials"`
			Cache struct {
				URL string              `yaml:"url"`
				TTL stdlibtime.Duration `yaml:"ttl"`
			} `yaml:"cache" mapstructure:"cache"`
		} `yaml:"storage" mapstructure:"storage"`
	}
)
