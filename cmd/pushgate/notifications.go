// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	stdlibtime "time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aurora-mobile/pushgate/notifications/push"
	"github.com/aurora-mobile/pushgate/server"
	"github.com/aurora-mobile/pushgate/terror"
)

func (s *service) setupNotificationRoutes(router *server.Router) {
	router.
		POST("/notifications/send", server.RootHandler(s.SendNotification)).
		POST("/notifications/send/:userId", server.RootHandler(s.SendNotificationToUser)).
		POST("/notifications/test", server.RootHandler(s.SendTestNotification)).
		PUT("/notifications/tokens", server.RootHandler(s.RegisterDeviceToken)).
		DELETE("/notifications/tokens/:token", server.RootHandler(s.UnregisterDeviceToken))
}

// SendNotification godoc
//
//	@Schemes
//	@Description	Sends a push notification to every device registered by the calling user.
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Param			Authorization	header	string				true	"Insert your access token"	default(Bearer <Add access token here>)
//	@Param			request			body	SendNotificationArg	true	"Request params"
//	@Success		200				{object}	DispatchSummary
//	@Failure		401				{object}	server.ErrorResponse	"if not authenticated"
//	@Failure		422				{object}	server.ErrorResponse	"if validation fails"
//	@Failure		500				{object}	server.ErrorResponse
//	@Failure		503				{object}	server.ErrorResponse	"if the identity provider is unreachable"
//	@Router			/notifications/send [POST].
func (s *service) SendNotification(
	ctx context.Context,
	req *server.Request[SendNotificationArg, DispatchSummary],
) (*server.Response[DispatchSummary], *server.Response[server.ErrorResponse]) {
	result := s.pushClient.SendToUser(ctx, req.AuthenticatedUser.UserID, &push.Notification{
		Data:  req.Data.Data,
		Title: req.Data.Title,
		Body:  req.Data.Body,
	})

	return dispatchSummary(result)
}

// SendNotificationToUser godoc
//
//	@Schemes
//	@Description	Sends a push notification to every device registered by the given user.
//	@Description	Any authenticated caller may target any user; restrict this route at the gateway if that is not acceptable.
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Param			Authorization	header	string						true	"Insert your access token"	default(Bearer <Add access token here>)
//	@Param			userId			path	string						true	"ID of the target user"
//	@Param			request			body	SendNotificationToUserArg	true	"Request params"
//	@Success		200				{object}	DispatchSummary
//	@Failure		401				{object}	server.ErrorResponse	"if not authenticated"
//	@Failure		422				{object}	server.ErrorResponse	"if validation fails"
//	@Failure		500				{object}	server.ErrorResponse
//	@Failure		503				{object}	server.ErrorResponse	"if the identity provider is unreachable"
//	@Router			/notifications/send/{userId} [POST].
func (s *service) SendNotificationToUser(
	ctx context.Context,
	req *server.Request[SendNotificationToUserArg, DispatchSummary],
) (*server.Response[DispatchSummary], *server.Response[server.ErrorResponse]) {
	result := s.pushClient.SendToUser(ctx, req.Data.UserID, &push.Notification{
		Data:  req.Data.Data,
		Title: req.Data.Title,
		Body:  req.Data.Body,
	})

	return dispatchSummary(result)
}

// SendTestNotification godoc
//
//	@Schemes
//	@Description	Sends a canned test notification to every device registered by the calling user.
//	@Tags			Notifications
//	@Produce		json
//	@Param			Authorization	header	string	true	"Insert your access token"	default(Bearer <Add access token here>)
//	@Success		200				{object}	TestNotificationResult
//	@Failure		401				{object}	server.ErrorResponse	"if not authenticated"
//	@Failure		500				{object}	server.ErrorResponse
//	@Failure		503				{object}	server.ErrorResponse	"if the identity provider is unreachable"
//	@Router			/notifications/test [POST].
func (s *service) SendTestNotification(
	ctx context.Context,
	req *server.Request[TestNotificationArg, TestNotificationResult],
) (*server.Response[TestNotificationResult], *server.Response[server.ErrorResponse]) {
	userID := req.AuthenticatedUser.UserID
	deviceTokens, err := s.tokenStore.DeviceTokens(ctx, userID)
	if err != nil {
		return nil, server.InternalServerError(errors.Wrapf(err, "failed to resolve device tokens for userID:%v", userID), tokenResolutionErrorCode)
	}
	result := s.pushClient.SendToUser(ctx, userID, buildTestNotification())
	if result.Err != nil {
		tErr := terror.New(result.Err, map[string]any{"tokenCount": len(deviceTokens)})

		return nil, server.InternalServerError(tErr, dispatchFailedErrorCode, tErr.Data)
	}

	return server.OK(&TestNotificationResult{
		Message:      result.Message,
		Success:      len(deviceTokens) > 0 && result.FailureCount == 0,
		TokenCount:   len(deviceTokens),
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
	}), nil
}

// RegisterDeviceToken godoc
//
//	@Schemes
//	@Description	Registers a device token for the calling user. Registering the same token twice is a no-op.
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Param			Authorization	header	string					true	"Insert your access token"	default(Bearer <Add access token here>)
//	@Param			request			body	RegisterDeviceTokenArg	true	"Request params"
//	@Success		204				"registered"
//	@Failure		401				{object}	server.ErrorResponse	"if not authenticated"
//	@Failure		422				{object}	server.ErrorResponse	"if validation fails"
//	@Failure		500				{object}	server.ErrorResponse
//	@Router			/notifications/tokens [PUT].
func (s *service) RegisterDeviceToken(
	ctx context.Context,
	req *server.Request[RegisterDeviceTokenArg, any],
) (*server.Response[any], *server.Response[server.ErrorResponse]) {
	userID := req.AuthenticatedUser.UserID
	if err := s.tokenStore.AddDeviceToken(ctx, userID, req.Data.DeviceToken); err != nil {
		return nil, server.InternalServerError(errors.Wrapf(err, "failed to register device token for userID:%v", userID), tokenRegistrationErrorCode)
	}

	return server.NoContent(), nil
}

// UnregisterDeviceToken godoc
//
//	@Schemes
//	@Description	Removes a device token from the calling user. Removing a token that is already gone is a no-op.
//	@Tags			Notifications
//	@Produce		json
//	@Param			Authorization	header	string	true	"Insert your access token"	default(Bearer <Add access token here>)
//	@Param			token			path	string	true	"the device token to remove"
//	@Success		204				"removed"
//	@Failure		401				{object}	server.ErrorResponse	"if not authenticated"
//	@Failure		500				{object}	server.ErrorResponse
//	@Router			/notifications/tokens/{token} [DELETE].
func (s *service) UnregisterDeviceToken(
	ctx context.Context,
	req *server.Request[UnregisterDeviceTokenArg, any],
) (*server.Response[any], *server.Response[server.ErrorResponse]) {
	userID := req.AuthenticatedUser.UserID
	if err := s.tokenStore.RemoveDeviceToken(ctx, userID, req.Data.DeviceToken); err != nil {
		return nil, server.InternalServerError(errors.Wrapf(err, "failed to unregister device token for userID:%v", userID), tokenRegistrationErrorCode)
	}

	return server.NoContent(), nil
}

func dispatchSummary(result *push.DispatchResult) (*server.Response[DispatchSummary], *server.Response[server.ErrorResponse]) {
	if result.Err != nil {
		tErr := terror.New(result.Err, map[string]any{"successCount": result.SuccessCount, "failureCount": result.FailureCount})

		return nil, server.InternalServerError(tErr, dispatchFailedErrorCode, tErr.Data)
	}

	return server.OK(&DispatchSummary{
		Message:      result.Message,
		FailedTokens: result.FailedTokens,
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
	}), nil
}

func buildTestNotification() *push.Notification {
	now := stdlibtime.Now().UTC()

	return &push.Notification{
		Title: testNotificationTitle,
		Body:  fmt.Sprintf("%v, sent at %v", testNotificationBody, now.Format(stdlibtime.RFC3339)),
		Data: map[string]string{
			"type":   testNotificationPayloadType,
			"testId": uuid.NewString(),
			"sentAt": now.Format(stdlibtime.RFC3339Nano),
		},
	}
}
