// SPDX-License-Identifier: MIT

package firebaseauth

import (
	"context"
	"fmt"
	"os"
	"strings"
	stdlibtime "time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	firebaseoption "google.golang.org/api/option"

	"github.com/aurora-mobile/pushgate/auth/internal"
	appcfg "github.com/aurora-mobile/pushgate/config"
	"github.com/aurora-mobile/pushgate/log"
)

func New(ctx context.Context, applicationYAMLKey string) Client {
	cfg := new(config)
	appcfg.MustLoadFromKey(applicationYAMLKey, cfg)
	cfg.setFirebaseAuthCredentialsFileContent(applicationYAMLKey)
	cfg.setFirebaseAuthCredentialsFilePath(applicationYAMLKey)

	var credentialsOption firebaseoption.ClientOption
	if cfg.FirebaseAuth.Credentials.FileContent != "" {
		credentialsOption = firebaseoption.WithCredentialsJSON([]byte(cfg.FirebaseAuth.Credentials.FileContent))
	}
	if cfg.FirebaseAuth.Credentials.FilePath != "" {
		credentialsOption = firebaseoption.WithCredentialsFile(cfg.FirebaseAuth.Credentials.FilePath)
	}
	var firebaseApp *firebase.App
	var err error
	if credentialsOption != nil {
		firebaseApp, err = firebase.NewApp(ctx, nil, credentialsOption)
	} else {
		firebaseApp, err = firebase.NewApp(ctx, nil)
	}
	log.Panic(errors.Wrapf(err, "[%v] failed to build Firebase app", applicationYAMLKey)) //nolint:revive // That's intended.
	client, err := firebaseApp.Auth(ctx)
	log.Panic(errors.Wrapf(err, "[%v] failed to build Firebase Auth client", applicationYAMLKey))

	fb := &auth{client: client}
	fb.mustProbeBootstrap(ctx, applicationYAMLKey)

	return fb
}

// mustProbeBootstrap eagerly loads the token verification certificates by
// verifying a garbage token. Cert fetch can be transiently unavailable at
// boot, hence the backoff; anything but `token is invalid` is fatal.
func (a *auth) mustProbeBootstrap(ctx context.Context, applicationYAMLKey string) {
	probeCtx, cancel := context.WithTimeout(ctx, 30*stdlibtime.Second) //nolint:mnd,gomnd // It's a one time call.
	defer cancel()
	op := func() error {
		t, err := a.client.VerifyIDTokenAndCheckRevoked(probeCtx, "invalid token")
		if t != nil || err == nil {
			return backoff.Permanent(errors.New("unexpected success"))
		}
		if firebaseauth.IsIDTokenInvalid(err) {
			return nil
		}

		return err
	}
	err := backoff.RetryNotify(
		op,
		backoff.WithContext(backoff.NewExponentialBackOff(), probeCtx),
		func(e error, next stdlibtime.Duration) {
			log.Error(errors.Wrapf(e, "[%v] bootstrap probe failed, retrying in %v... ", applicationYAMLKey, next))
		})
	log.Panic(errors.Wrapf(err, "[%v] failed to eagerly load token verification certificates", applicationYAMLKey))
}

func (a *auth) VerifyToken(ctx context.Context, token string) (*internal.Token, error) {
	firebaseToken, vErr := a.client.VerifyIDToken(ctx, token)
	if vErr != nil {
		return nil, classifyVerificationError(vErr)
	}

	return buildToken(firebaseToken), nil
}

func classifyVerificationError(err error) error {
	switch {
	case isTokenExpired(err):
		return errors.Wrap(ErrExpiredToken, err.Error())
	case isTokenRevoked(err):
		return errors.Wrap(ErrRevokedToken, err.Error())
	case isUnavailable(err):
		return errors.Wrap(ErrUnavailable, err.Error())
	default:
		return errors.Wrap(ErrInvalidToken, err.Error())
	}
}

func buildToken(firebaseToken *firebaseauth.Token) *internal.Token {
	token := &internal.Token{
		UserID:   firebaseToken.UID,
		Claims:   firebaseToken.Claims,
		Provider: internal.ProviderFirebase,
	}
	if len(firebaseToken.Claims) == 0 {
		return token
	}
	if emailInterface, found := firebaseToken.Claims[claimEmail]; found {
		token.Email, _ = emailInterface.(string) //nolint:errcheck // Not needed.
	}
	if verifiedInterface, found := firebaseToken.Claims[claimEmailVerified]; found {
		token.EmailVerified, _ = verifiedInterface.(bool) //nolint:errcheck // Not needed.
	}
	if nameInterface, found := firebaseToken.Claims[claimName]; found {
		token.Name, _ = nameInterface.(string) //nolint:errcheck // Not needed.
	}
	if pictureInterface, found := firebaseToken.Claims[claimPicture]; found {
		token.PictureURL, _ = pictureInterface.(string) //nolint:errcheck // Not needed.
	}

	return token
}

func (cfg *config) setFirebaseAuthCredentialsFileContent(applicationYAMLKey string) {
	if cfg.FirebaseAuth.Credentials.FileContent == "" {
		module := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(applicationYAMLKey, "-", "_"), "/", "_"))
		cfg.FirebaseAuth.Credentials.FileContent = os.Getenv(fmt.Sprintf("%s_AUTH_CREDENTIALS_FILE_CONTENT", module))
		if cfg.FirebaseAuth.Credentials.FileContent == "" {
			cfg.FirebaseAuth.Credentials.FileContent = os.Getenv("AUTH_CREDENTIALS_FILE_CONTENT")
		}
		if cfg.FirebaseAuth.Credentials.FileContent == "" {
			cfg.FirebaseAuth.Credentials.FileContent = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
			if !strings.HasPrefix(strings.TrimSpace(cfg.FirebaseAuth.Credentials.FileContent), "{") {
				cfg.FirebaseAuth.Credentials.FileContent = ""
			}
		}
	}
}

func (cfg *config) setFirebaseAuthCredentialsFilePath(applicationYAMLKey string) {
	if cfg.FirebaseAuth.Credentials.FilePath == "" {
		module := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(applicationYAMLKey, "-", "_"), "/", "_"))
		cfg.FirebaseAuth.Credentials.FilePath = os.Getenv(fmt.Sprintf("%s_AUTH_CREDENTIALS_FILE_PATH", module))
		if cfg.FirebaseAuth.Credentials.FilePath == "" {
			cfg.FirebaseAuth.Credentials.FilePath = os.Getenv("AUTH_CREDENTIALS_FILE_PATH")
		}
		if cfg.FirebaseAuth.Credentials.FilePath == "" {
			cfg.FirebaseAuth.Credentials.FilePath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
			if strings.HasPrefix(strings.TrimSpace(cfg.FirebaseAuth.Credentials.FilePath), "{") {
				cfg.FirebaseAuth.Credentials.FilePath = ""
			}
		}
	}
}
