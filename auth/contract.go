// SPDX-License-Identifier: MIT

package auth

import (
	"context"

	"github.com/aurora-mobile/pushgate/auth/internal"
	firebaseauth "github.com/aurora-mobile/pushgate/auth/internal/firebase"
)

// Public API.

var (
	ErrInvalidToken = firebaseauth.ErrInvalidToken
	ErrExpiredToken = firebaseauth.ErrExpiredToken
	ErrRevokedToken = firebaseauth.ErrRevokedToken
	ErrUnavailable  = firebaseauth.ErrUnavailable
)

type (
	Token  = internal.Token
	Client interface {
		VerifyToken(ctx context.Context, token string) (*Token, error)
	}
)

// Private API.

type (
	auth struct {
		fb firebaseauth.Client
	}
)
