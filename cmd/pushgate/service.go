// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/aurora-mobile/pushgate/notifications/push"
	"github.com/aurora-mobile/pushgate/server"
	"github.com/aurora-mobile/pushgate/storage"
)

func (s *service) Init(ctx context.Context, _ context.CancelFunc) {
	s.tokenStore = storage.MustConnect(ctx, applicationYamlKey)
	s.pushClient = push.New(ctx, applicationYamlKey, s.tokenStore)
}

func (s *service) Close(_ context.Context) error {
	return errors.Wrap(multierror.Append(nil,
		s.pushClient.Close(),
		s.tokenStore.Close(),
	).ErrorOrNil(), "could not close service")
}

func (s *service) RegisterRoutes(router *server.Router) {
	s.setupNotificationRoutes(router)
	s.setupUserRoutes(router)
}

func (s *service) CheckHealth(ctx context.Context) error {
	return errors.Wrap(s.tokenStore.Ping(ctx), "registration store ping failed")
}
