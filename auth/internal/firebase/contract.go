// SPDX-License-Identifier: MIT

package firebaseauth

import (
	"context"

	firebaseauth "firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"github.com/pkg/errors"

	"github.com/aurora-mobile/pushgate/auth/internal"
)

// Public API.

var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrUnavailable  = errors.New("token can not be verified at this time")
)

type (
	Client interface {
		VerifyToken(ctx context.Context, token string) (*internal.Token, error)
	}
)

// Private API.

const (
	claimEmail         = "email"
	claimEmailVerified = "email_verified"
	claimName          = "name"
	claimPicture       = "picture"
)

// Seams over the vendor SDK's error predicates. The SDK's error types are
// private, so tests substitute these instead of fabricating SDK errors.
//
//nolint:gochecknoglobals // Swapped only by tests.
var (
	isTokenExpired = firebaseauth.IsIDTokenExpired
	isTokenRevoked = firebaseauth.IsIDTokenRevoked
	isUnavailable  = func(err error) bool {
		return errorutils.IsUnavailable(err) || errorutils.IsInternal(err)
	}
)

type (
	tokenVerifier interface {
		VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
		VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*firebaseauth.Token, error)
	}
	auth struct {
		client tokenVerifier
	}
	config struct {
		FirebaseAuth struct {
			Credentials struct {
				FilePath    string `yaml:"filePath"`
				FileContent string `yaml:"fileContent"`
			} `yaml:"credentials" mapstructure:"credentials"`
		} `yaml:"auth/firebase" mapstructure:"auth/firebase"` //nolint:tagliatelle // Nope.
	}
)
