// SPDX-License-Identifier: MIT

package auth

import (
	"context"

	"github.com/pkg/errors"

	firebaseauth "github.com/aurora-mobile/pushgate/auth/internal/firebase"
)

func New(ctx context.Context, applicationYAMLKey string) Client {
	return &auth{
		fb: firebaseauth.New(ctx, applicationYAMLKey),
	}
}

func (a *auth) VerifyToken(ctx context.Context, token string) (*Token, error) {
	authToken, err := a.fb.VerifyToken(ctx, token)

	return authToken, errors.Wrapf(err, "can't verify firebase token")
}
