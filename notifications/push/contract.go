// SPDX-License-Identifier: MIT

package push

import (
	"context"
	"io"

	fcm "firebase.google.com/go/v4/messaging"

	"github.com/aurora-mobile/pushgate/storage"
)

// Public API.

type (
	// DeviceToken is an opaque token identifying one device's push channel.
	DeviceToken string
	// Notification is the payload delivered to every targeted device.
	Notification struct {
		Data  map[string]string `json:"data,omitempty"`
		Title string            `json:"title,omitempty"`
		Body  string            `json:"body,omitempty"`
	}
	// DispatchResult is the aggregate outcome of one dispatch call. It always
	// carries a definitive count of successes and failures for the device
	// tokens attempted; Err is set only when the whole batch call failed.
	DispatchResult struct {
		Err          error         `json:"-"`
		Message      string        `json:"message,omitempty"`
		FailedTokens []DeviceToken `json:"failedTokens,omitempty"`
		SuccessCount int           `json:"successCount"`
		FailureCount int           `json:"failureCount"`
	}
	SendOption func(*sendOptions)
	Client     interface {
		io.Closer

		// SendToUser resolves every device token registered for the user and
		// sends the notification to all of them in one batch. It never
		// returns an error: failures are reported inside the result.
		SendToUser(ctx context.Context, userID string, notif *Notification, opts ...SendOption) *DispatchResult
		// SendToDeviceTokens sends the notification to the given device
		// tokens (at most maxBatchSize, the rest is dropped with a warning).
		// Invalid token cleanup only happens when the owning user is known,
		// see WithUserID.
		SendToDeviceTokens(ctx context.Context, deviceTokens []DeviceToken, notif *Notification, opts ...SendOption) *DispatchResult
	}
)

// WithUserID scopes the dispatch to the user owning the device tokens, which
// enables removal of permanently invalid tokens from the registration store.
func WithUserID(userID string) SendOption {
	return func(opts *sendOptions) {
		opts.userID = userID
	}
}

// WithoutAutoCleanup disables removal of permanently invalid device tokens.
func WithoutAutoCleanup() SendOption {
	return func(opts *sendOptions) {
		opts.autoCleanup = false
	}
}

// Private API.

const (
	// FCM rejects multicast batches bigger than that, it is a hard external constraint.
	maxBatchSize = 500
)

type (
	failureKind uint8

	batchMessenger interface {
		SendEachForMulticast(ctx context.Context, message *fcm.MulticastMessage) (*fcm.BatchResponse, error)
	}
	push struct {
		client             batchMessenger
		tokenStore         storage.TokenStore
		applicationYAMLKey string
	}
	sendOptions struct {
		userID      string
		autoCleanup bool
	}
	sendOutcome struct {
		err         error
		deviceToken DeviceToken
		messageID   string
		kind        failureKind
		success     bool
	}
	config struct {
		PushNotifications struct {
			Credentials struct {
				FilePath    string `yaml:"filePath"`
				FileContent string `yaml:"fileContent"`
			} `yaml:"credentials" mapstructure:"credentials"`
		} `yaml:"notifications/push" mapstructure:"notifications/push"` //nolint:tagliatelle // Nope.
	}
)

const (
	failureUnknown failureKind = iota
	failureTransient
	failurePermanentInvalid
)
