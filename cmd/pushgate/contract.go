// SPDX-License-Identifier: MIT

package main

import (
	"github.com/aurora-mobile/pushgate/notifications/push"
	"github.com/aurora-mobile/pushgate/storage"
)

// Public API.

type (
	SendNotificationArg struct {
		Data  map[string]string `json:"data" example:"deeplink:app://orders/123"`
		Title string            `json:"title" required:"true" binding:"required,min=1,max=100" example:"Your order shipped"`
		Body  string            `json:"body" required:"true" binding:"required,min=1,max=500" example:"Tap to track the delivery"`
	}
	SendNotificationToUserArg struct {
		UserID string            `uri:"userId" required:"true" swaggerignore:"true" allowForbiddenWriteOperation:"true"`
		Data   map[string]string `json:"data" example:"deeplink:app://orders/123"`
		Title  string            `json:"title" required:"true" binding:"required,min=1,max=100" example:"Your order shipped"`
		Body   string            `json:"body" required:"true" binding:"required,min=1,max=500" example:"Tap to track the delivery"`
	}
	TestNotificationArg struct {
		_ struct{} `json:"-" swaggerignore:"true"`
	}
	RegisterDeviceTokenArg struct {
		DeviceToken string `json:"deviceToken" required:"true" binding:"required" example:"dLq8...:APA91b..."`
	}
	UnregisterDeviceTokenArg struct {
		DeviceToken string `uri:"token" required:"true" swaggerignore:"true"`
	}
	GetUserProfileArg struct {
		_ struct{} `json:"-" swaggerignore:"true"`
	}
	DispatchSummary struct {
		Message      string             `json:"message" example:"notification sent to 2 device(s)"`
		FailedTokens []push.DeviceToken `json:"failedTokens,omitempty"`
		SuccessCount int                `json:"successCount" example:"2"`
		FailureCount int                `json:"failureCount" example:"0"`
	}
	TestNotificationResult struct {
		Message      string `json:"message" example:"notification sent to 1 device(s)"`
		Success      bool   `json:"success" example:"true"`
		TokenCount   int    `json:"tokenCount" example:"1"`
		SuccessCount int    `json:"successCount" example:"1"`
		FailureCount int    `json:"failureCount" example:"0"`
	}
	UserProfile struct {
		UserID        string `json:"userId" example:"did:ethr:0x4B73C58370AEfcEf86A6021afCDe5673511376B2"`
		Email         string `json:"email,omitempty" example:"jdoe@gmail.com"`
		Name          string `json:"name,omitempty" example:"John Doe"`
		PictureURL    string `json:"pictureUrl,omitempty"`
		Provider      string `json:"provider,omitempty" example:"firebase"`
		EmailVerified bool   `json:"emailVerified" example:"true"`
	}
)

// Private API.

const (
	applicationYamlKey = "cmd/pushgate"
	swaggerRoot        = "/notifications"

	dispatchFailedErrorCode     = "NOTIFICATION_DISPATCH_FAILED"
	tokenRegistrationErrorCode  = "DEVICE_TOKEN_REGISTRATION_FAILED"
	tokenResolutionErrorCode    = "DEVICE_TOKEN_RESOLUTION_FAILED"
	testNotificationTitle       = "Test Notification"
	testNotificationBody        = "This is a test notification from pushgate"
	testNotificationPayloadType = "test"
)

type (
	service struct {
		pushClient push.Client
		tokenStore storage.TokenStore
	}
)
