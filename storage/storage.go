// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	firebaseoption "google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	appcfg "github.com/aurora-mobile/pushgate/config"
	"github.com/aurora-mobile/pushgate/log"
)

func MustConnect(ctx context.Context, applicationYAMLKey string) TokenStore {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)
	if cfg.Storage.ProjectID == "" {
		cfg.Storage.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if cfg.Storage.Credentials.FileContent == "" && cfg.Storage.Credentials.FilePath == "" {
		credentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if strings.HasPrefix(strings.TrimSpace(credentials), "{") {
			cfg.Storage.Credentials.FileContent = credentials
		} else {
			cfg.Storage.Credentials.FilePath = credentials
		}
	}
	var opts []firebaseoption.ClientOption
	if cfg.Storage.Credentials.FileContent != "" {
		opts = append(opts, firebaseoption.WithCredentialsJSON([]byte(cfg.Storage.Credentials.FileContent)))
	}
	if cfg.Storage.Credentials.FilePath != "" {
		opts = append(opts, firebaseoption.WithCredentialsFile(cfg.Storage.Credentials.FilePath))
	}
	client, err := firestore.NewClient(ctx, cfg.Storage.ProjectID, opts...)
	log.Panic(errors.Wrapf(err, "[%v] failed to build firestore client", applicationYAMLKey)) //nolint:revive // That's intended.

	var tokenStore TokenStore = &store{client: client}
	if cfg.Storage.Cache.URL != "" {
		tokenStore = mustConnectCache(ctx, applicationYAMLKey, tokenStore, &cfg)
	}

	return tokenStore
}

func (s *store) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	doc, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			log.Warn("user document not found", "userId", userID)

			return nil, nil
		}

		return nil, errors.Wrapf(err, "failed to get user document for userID:%v", userID)
	}
	rawTokens, found := doc.Data()[deviceTokensField]
	if !found {
		return nil, nil
	}
	tokenList, ok := rawTokens.([]any)
	if !ok {
		log.Warn("malformed device token field, ignoring it", "userId", userID)

		return nil, nil
	}
	deviceTokens := make([]string, 0, len(tokenList))
	for _, rawToken := range tokenList {
		if deviceToken, isString := rawToken.(string); isString && deviceToken != "" {
			deviceTokens = append(deviceTokens, deviceToken)
		}
	}

	return deviceTokens, nil
}

func (s *store) AddDeviceToken(ctx context.Context, userID, deviceToken string) error {
	docRef := s.client.Collection(usersCollection).Doc(userID)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: deviceTokensField, Value: firestore.ArrayUnion(deviceToken)},
	})
	if err != nil && status.Code(err) == codes.NotFound {
		_, err = docRef.Set(ctx, map[string]any{deviceTokensField: []string{deviceToken}}, firestore.MergeAll)
	}

	return errors.Wrapf(err, "failed to add device token for userID:%v", userID)
}

func (s *store) RemoveDeviceToken(ctx context.Context, userID, deviceToken string) error {
	_, err := s.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: deviceTokensField, Value: firestore.ArrayRemove(deviceToken)},
	})
	if err != nil && status.Code(err) == codes.NotFound {
		return nil
	}

	return errors.Wrapf(err, "failed to remove device token for userID:%v", userID)
}

func (s *store) Ping(ctx context.Context) error {
	docs := s.client.Collection(usersCollection).Limit(1).Documents(ctx)
	defer docs.Stop()
	if _, err := docs.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return errors.Wrap(err, "failed to ping firestore")
	}

	return nil
}

func (s *store) Close() error {
	return errors.Wrap(s.client.Close(), "failed to close firestore client")
}
