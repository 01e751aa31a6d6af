// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	stdlibtime "time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-mobile/pushgate/auth"
)

//nolint:gochecknoinits // Test setup for the whole package.
func init() {
	gin.SetMode(gin.TestMode)
	cfg.DefaultEndpointTimeout = 30 * stdlibtime.Second
}

type fakeAuthClient struct {
	token *auth.Token
	err   error
}

func (f *fakeAuthClient) VerifyToken(_ context.Context, _ string) (*auth.Token, error) {
	return f.token, f.err
}

type (
	echoRequest struct {
		Title string `json:"title" binding:"required,min=1,max=100"`
	}
	echoResponse struct {
		UserID string `json:"userId"`
		Title  string `json:"title"`
	}
	openRequest struct {
		_ struct{} `allowUnauthorized:"true"` //nolint:revive // It's processed by the router.
	}
	crossUserRequest struct {
		UserID string   `uri:"userId" swaggerignore:"true" required:"true"`
		_      struct{} `allowForbiddenWriteOperation:"true"` //nolint:revive // It's processed by the router.
	}
)

func echoHandler() func(*gin.Context) {
	return RootHandler(func(ctx context.Context, req *Request[echoRequest, echoResponse]) (*Response[echoResponse], *Response[ErrorResponse]) {
		return OK(&echoResponse{UserID: RequestingUserID(ctx), Title: req.Data.Title}), nil
	})
}

func serve(t *testing.T, authClient auth.Client, registerRoutes func(*gin.Engine), method, target, body string, headers map[string]string) *httptest.ResponseRecorder { //nolint:lll // .
	t.Helper()
	router := gin.New()
	registerRoutes(router)
	var bodyReader *strings.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	} else {
		bodyReader = strings.NewReader("")
	}
	request := httptest.NewRequest(method, target, bodyReader)
	request = request.WithContext(ContextWithAuth(t.Context(), authClient))
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	return recorder
}

func TestRootHandlerMissingBearerToken(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	recorder := serve(t, &fakeAuthClient{}, func(router *gin.Engine) {
		router.POST("/notifications/send", echoHandler())
	}, http.MethodPost, "/notifications/send", `{"title":"hi"}`, map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Bearer", recorder.Header().Get("WWW-Authenticate"))
}

func TestRootHandlerInvalidToken(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	authClient := &fakeAuthClient{err: errors.Wrap(auth.ErrInvalidToken, "nope")}
	recorder := serve(t, authClient, func(router *gin.Engine) {
		router.POST("/notifications/send", echoHandler())
	}, http.MethodPost, "/notifications/send", `{"title":"hi"}`, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer bogus",
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Bearer", recorder.Header().Get("WWW-Authenticate"))
}

func TestRootHandlerAuthBackendUnavailable(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	authClient := &fakeAuthClient{err: errors.Wrap(auth.ErrUnavailable, "certs unreachable")}
	recorder := serve(t, authClient, func(router *gin.Engine) {
		router.POST("/notifications/send", echoHandler())
	}, http.MethodPost, "/notifications/send", `{"title":"hi"}`, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer whatever",
	})

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestRootHandlerAuthenticatedRequest(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	authClient := &fakeAuthClient{token: &auth.Token{UserID: "u1", Email: "u1@example.com"}}
	recorder := serve(t, authClient, func(router *gin.Engine) {
		router.POST("/notifications/send", echoHandler())
	}, http.MethodPost, "/notifications/send", `{"title":"hi"}`, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer valid",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"userId":"u1","title":"hi"}`, recorder.Body.String())
}

func TestRootHandlerTokenWithoutUserID(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	authClient := &fakeAuthClient{token: &auth.Token{}}
	recorder := serve(t, authClient, func(router *gin.Engine) {
		router.POST("/notifications/send", echoHandler())
	}, http.MethodPost, "/notifications/send", `{"title":"hi"}`, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer valid",
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRootHandlerPayloadValidation(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	authClient := &fakeAuthClient{token: &auth.Token{UserID: "u1"}}
	register := func(router *gin.Engine) {
		router.POST("/notifications/send", echoHandler())
	}
	headers := map[string]string{"Content-Type": "application/json", "Authorization": "Bearer valid"}

	recorder := serve(t, authClient, register, http.MethodPost, "/notifications/send", `{}`, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	oversized := `{"title":"` + strings.Repeat("x", 101) + `"}`
	recorder = serve(t, authClient, register, http.MethodPost, "/notifications/send", oversized, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestRootHandlerAllowUnauthorized(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	handler := RootHandler(func(context.Context, *Request[openRequest, map[string]string]) (*Response[map[string]string], *Response[ErrorResponse]) {
		return OK(&map[string]string{"status": "ok"}), nil
	})
	recorder := serve(t, &fakeAuthClient{}, func(router *gin.Engine) {
		router.GET("/health-check", handler)
	}, http.MethodGet, "/health-check", "", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRootHandlerCrossUserWriteNeedsExplicitOptIn(t *testing.T) { //nolint:paralleltest // Shares package level server config.
	authClient := &fakeAuthClient{token: &auth.Token{UserID: "caller"}}
	strictHandler := RootHandler(func(_ context.Context, req *Request[echoRequest, echoResponse]) (*Response[echoResponse], *Response[ErrorResponse]) {
		return OK(&echoResponse{Title: req.Data.Title}), nil
	})
	recorder := serve(t, authClient, func(router *gin.Engine) {
		router.POST("/notifications/send/:userId", strictHandler)
	}, http.MethodPost, "/notifications/send/somebody-else", `{"title":"hi"}`, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer valid",
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	optInHandler := RootHandler(func(_ context.Context, req *Request[crossUserRequest, map[string]string]) (*Response[map[string]string], *Response[ErrorResponse]) { //nolint:lll // .
		return OK(&map[string]string{"userId": req.Data.UserID}), nil
	})
	recorder = serve(t, authClient, func(router *gin.Engine) {
		router.POST("/notifications/send/:userId", optInHandler)
	}, http.MethodPost, "/notifications/send/somebody-else", "", map[string]string{"Authorization": "Bearer valid"})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"userId":"somebody-else"}`, recorder.Body.String())
}
