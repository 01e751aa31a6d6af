// SPDX-License-Identifier: MIT

package firebaseauth

import (
	"context"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-mobile/pushgate/auth/internal"
)

type fakeVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (f *fakeVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return f.token, f.err
}

func (f *fakeVerifier) VerifyIDTokenAndCheckRevoked(context.Context, string) (*firebaseauth.Token, error) {
	return f.token, f.err
}

func TestVerifyTokenExtractsClaims(t *testing.T) {
	t.Parallel()
	fb := &auth{client: &fakeVerifier{token: &firebaseauth.Token{
		UID: "user-1",
		Claims: map[string]any{
			"email":          "user@example.com",
			"email_verified": true,
			"name":           "Some User",
			"picture":        "https://example.com/picture.png",
			"custom":         "claim",
		},
	}}}

	token, err := fb.VerifyToken(t.Context(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, "user-1", token.UserID)
	assert.Equal(t, "user@example.com", token.Email)
	assert.True(t, token.EmailVerified)
	assert.Equal(t, "Some User", token.Name)
	assert.Equal(t, "https://example.com/picture.png", token.PictureURL)
	assert.Equal(t, internal.ProviderFirebase, token.Provider)
	assert.Equal(t, "claim", token.Claims["custom"])
}

func TestVerifyTokenWithoutClaims(t *testing.T) {
	t.Parallel()
	fb := &auth{client: &fakeVerifier{token: &firebaseauth.Token{UID: "user-2"}}}

	token, err := fb.VerifyToken(t.Context(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, "user-2", token.UserID)
	assert.Empty(t, token.Email)
	assert.False(t, token.EmailVerified)
}

func TestVerifyTokenClaimsWithUnexpectedTypes(t *testing.T) {
	t.Parallel()
	fb := &auth{client: &fakeVerifier{token: &firebaseauth.Token{
		UID:    "user-3",
		Claims: map[string]any{"email": 42, "email_verified": "yes"},
	}}}

	token, err := fb.VerifyToken(t.Context(), "whatever")
	require.NoError(t, err)
	assert.Empty(t, token.Email)
	assert.False(t, token.EmailVerified)
}

//nolint:paralleltest // Swaps package level seams.
func TestClassifyVerificationError(t *testing.T) {
	vendorErr := errors.New("vendor sdk says no")
	defaultExpired, defaultRevoked, defaultUnavailable := isTokenExpired, isTokenRevoked, isUnavailable
	t.Cleanup(func() {
		isTokenExpired, isTokenRevoked, isUnavailable = defaultExpired, defaultRevoked, defaultUnavailable
	})

	never := func(error) bool { return false }
	always := func(error) bool { return true }

	isTokenExpired, isTokenRevoked, isUnavailable = always, never, never
	require.ErrorIs(t, classifyVerificationError(vendorErr), ErrExpiredToken)

	isTokenExpired, isTokenRevoked, isUnavailable = never, always, never
	require.ErrorIs(t, classifyVerificationError(vendorErr), ErrRevokedToken)

	isTokenExpired, isTokenRevoked, isUnavailable = never, never, always
	require.ErrorIs(t, classifyVerificationError(vendorErr), ErrUnavailable)

	isTokenExpired, isTokenRevoked, isUnavailable = never, never, never
	require.ErrorIs(t, classifyVerificationError(vendorErr), ErrInvalidToken)
}

//nolint:paralleltest // Swaps package level seams.
func TestVerifyTokenClassifiesFailure(t *testing.T) {
	defaultExpired := isTokenExpired
	t.Cleanup(func() { isTokenExpired = defaultExpired })
	isTokenExpired = func(error) bool { return true }

	fb := &auth{client: &fakeVerifier{err: errors.New("expired")}}
	token, err := fb.VerifyToken(t.Context(), "whatever")
	require.Nil(t, token)
	require.ErrorIs(t, err, ErrExpiredToken)
}
