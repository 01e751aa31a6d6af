// SPDX-License-Identifier: MIT

package push

import (
	"context"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	firebaseoption "google.golang.org/api/option"

	appcfg "github.com/aurora-mobile/pushgate/config"
	"github.com/aurora-mobile/pushgate/log"
	"github.com/aurora-mobile/pushgate/storage"
)

func New(ctx context.Context, applicationYAMLKey string, tokenStore storage.TokenStore) Client {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)
	cfg.setPushNotificationsCredentials(applicationYAMLKey)

	var credentialsOption firebaseoption.ClientOption
	if cfg.PushNotifications.Credentials.FileContent != "" {
		credentialsOption = firebaseoption.WithCredentialsJSON([]byte(cfg.PushNotifications.Credentials.FileContent))
	}
	if cfg.PushNotifications.Credentials.FilePath != "" {
		credentialsOption = firebaseoption.WithCredentialsFile(cfg.PushNotifications.Credentials.FilePath)
	}
	var firebaseApp *firebase.App
	var err error
	if credentialsOption != nil {
		firebaseApp, err = firebase.NewApp(ctx, nil, credentialsOption)
	} else {
		firebaseApp, err = firebase.NewApp(ctx, nil)
	}
	log.Panic(errors.Wrapf(err, "[%v] failed to build firebase app", applicationYAMLKey)) //nolint:revive // That's intended.
	fcmClient, err := firebaseApp.Messaging(ctx)
	log.Panic(errors.Wrapf(err, "[%v] failed to build FCM messaging client", applicationYAMLKey))

	return newClient(applicationYAMLKey, fcmClient, tokenStore)
}

func newClient(applicationYAMLKey string, fcmClient batchMessenger, tokenStore storage.TokenStore) Client {
	return &push{
		applicationYAMLKey: applicationYAMLKey,
		client:             fcmClient,
		tokenStore:         tokenStore,
	}
}

func (p *push) Close() error {
	log.Info("push, finished shutdown", "package", p.applicationYAMLKey)

	return nil
}

func (p *push) SendToUser(ctx context.Context, userID string, notif *Notification, opts ...SendOption) *DispatchResult {
	if userID == "" {
		return &DispatchResult{Err: errors.New("userID is required"), Message: "userID is required"}
	}
	options := applySendOptions(opts)
	options.userID = userID
	deviceTokens, err := p.tokenStore.DeviceTokens(ctx, userID)
	if err != nil {
		log.Error(errors.Wrapf(err, "[%v] failed to resolve device tokens for userID:%v", p.applicationYAMLKey, userID))

		return &DispatchResult{Err: err, Message: "failed to resolve device tokens"}
	}
	if len(deviceTokens) == 0 {
		log.Warn("no device tokens registered", "userId", userID)

		return &DispatchResult{Message: "no device tokens registered"}
	}
	targets := make([]DeviceToken, 0, len(deviceTokens))
	for _, deviceToken := range deviceTokens {
		targets = append(targets, DeviceToken(deviceToken))
	}

	return p.sendToDeviceTokens(ctx, targets, notif, options)
}

func (p *push) SendToDeviceTokens(ctx context.Context, deviceTokens []DeviceToken, notif *Notification, opts ...SendOption) *DispatchResult {
	return p.sendToDeviceTokens(ctx, deviceTokens, notif, applySendOptions(opts))
}

// sendToDeviceTokens is one atomic pass: send -> classify -> aggregate ->
// (optional) reconcile. Reconciliation starts only after every outcome of
// the batch is classified, and its failures never reach the caller.
func (p *push) sendToDeviceTokens(ctx context.Context, deviceTokens []DeviceToken, notif *Notification, options *sendOptions) *DispatchResult {
	outcomes, batchErr := p.sendBatch(ctx, deviceTokens, notif)
	result := aggregateOutcomes(outcomes, batchErr)
	if options.autoCleanup && options.userID != "" {
		if invalidTokens := permanentlyInvalidTokens(outcomes); len(invalidTokens) != 0 {
			p.reconcile(ctx, options.userID, invalidTokens)
		}
	}
	log.Info(fmt.Sprintf("dispatch finished: %v success, %v failed", result.SuccessCount, result.FailureCount),
		"package", p.applicationYAMLKey, "userId", options.userID)

	return result
}

func aggregateOutcomes(outcomes []sendOutcome, batchErr error) *DispatchResult {
	result := new(DispatchResult)
	for idx := range outcomes {
		if outcomes[idx].success {
			result.SuccessCount++
		} else {
			result.FailureCount++
			result.FailedTokens = append(result.FailedTokens, outcomes[idx].deviceToken)
		}
	}
	if batchErr != nil {
		result.Err = batchErr
		result.Message = fmt.Sprintf("failed to send batch of %v notification(s)", len(outcomes))

		return result
	}
	result.Message = fmt.Sprintf("notification sent to %v device(s)", result.SuccessCount)

	return result
}

func permanentlyInvalidTokens(outcomes []sendOutcome) []DeviceToken {
	var invalidTokens []DeviceToken
	for idx := range outcomes {
		if !outcomes[idx].success && outcomes[idx].kind == failurePermanentInvalid {
			invalidTokens = append(invalidTokens, outcomes[idx].deviceToken)
		}
	}

	return invalidTokens
}

func applySendOptions(opts []SendOption) *sendOptions {
	options := &sendOptions{autoCleanup: true}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

func (cfg *config) setPushNotificationsCredentials(applicationYAMLKey string) {
	if cfg.PushNotifications.Credentials.FileContent == "" && cfg.PushNotifications.Credentials.FilePath == "" {
		module := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(applicationYAMLKey, "-", "_"), "/", "_"))
		cfg.PushNotifications.Credentials.FileContent = os.Getenv(module + "_PUSH_NOTIFICATIONS_CREDENTIALS_FILE_CONTENT")
		if cfg.PushNotifications.Credentials.FileContent == "" {
			credentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
			if strings.HasPrefix(strings.TrimSpace(credentials), "{") {
				cfg.PushNotifications.Credentials.FileContent = credentials
			} else {
				cfg.PushNotifications.Credentials.FilePath = credentials
			}
		}
	}
}
