// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/goccy/go-reflect"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/aurora-mobile/pushgate/auth"
	"github.com/aurora-mobile/pushgate/log"
)

//nolint:gochecknoinits // Because we want to set it up globally.
func init() {
	if err := os.Setenv("TZ", ""); err != nil {
		log.Panic(err)
	}
}

//nolint:funlen // .
func RootHandler[REQ, RESP any](handleRequest func(context.Context, *Request[REQ, RESP]) (*Response[RESP], *Response[ErrorResponse])) func(*gin.Context) {
	return func(ginCtx *gin.Context) {
		ctx := ginCtx.Request.Context()
		if cfg.DefaultEndpointTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.DefaultEndpointTimeout)
			defer cancel()
		}
		req := new(Request[REQ, RESP]).init(ginCtx)
		if err := req.processRequest(); err != nil {
			log.Error(errors.Wrap(err.Data.InternalErr(), "endpoint processing failed"), fmt.Sprintf("%[1]T", req.Data), req, "Response", err)
			req.respondWithError(err)

			return
		}
		if err := req.authorize(ctx); err != nil {
			log.Error(errors.Wrap(err.Data.InternalErr(), "endpoint authentication failed"), fmt.Sprintf("%[1]T", req.Data), req, "Response", err)
			req.respondWithError(err)

			return
		}
		reqCtx := context.WithValue(ctx, requestingUserIDCtxValueKey, req.AuthenticatedUser.UserID) //nolint:staticcheck,revive // .
		success, failure := handleRequest(reqCtx, req)
		if failure != nil {
			log.Error(errors.Wrap(failure.Data.InternalErr(), "endpoint failed"), fmt.Sprintf("%[1]T", req.Data), req, "Response", failure)
			code, data := req.processErrorResponse(ctx, failure)
			for k, v := range failure.Headers {
				ginCtx.Header(k, v)
			}
			ginCtx.JSON(code, data)

			return
		}
		for k, v := range success.Headers {
			ginCtx.Header(k, v)
		}
		if success.Data != nil {
			ginCtx.JSON(success.Code, success.Data)
		} else {
			ginCtx.Status(success.Code)
		}
	}
}

func (req *Request[REQ, RESP]) init(ginCtx *gin.Context) *Request[REQ, RESP] {
	req.Data = new(REQ)
	req.ClientIP = net.ParseIP(ginCtx.ClientIP())
	req.ginCtx = ginCtx

	return req
}

func (req *Request[REQ, RESP]) respondWithError(err *Response[ErrorResponse]) {
	for k, v := range err.Headers {
		req.ginCtx.Header(k, v)
	}
	req.ginCtx.JSON(err.Code, err.Data)
}

//nolint:gocognit,revive // Alot of usecases.
func (req *Request[REQ, RESP]) processTags() {
	elem := reflect.TypeOf(req.Data).Elem()
	if elem.Kind() != reflect.Struct {
		log.Panic("request data's have to be structs")
	}
	const enabled = "true"
	fieldCount := elem.NumField()
	req.requiredFields = make([]string, 0, fieldCount)
	req.bindings = make(map[requestBinding]struct{}, 5) //nolint:mnd,gomnd // They're 5 possible values.
	for i := range fieldCount {
		field := elem.Field(i)
		tag := field.Tag
		if tag.Get("required") == enabled {
			req.requiredFields = append(req.requiredFields, field.Name)
		}
		if tag.Get("allowUnauthorized") == enabled {
			req.allowUnauthorized = true
		}
		if tag.Get("allowForbiddenWriteOperation") == enabled {
			req.allowForbiddenWriteOperation = true
		}
		if jsonTag := tag.Get("json"); jsonTag != "" && jsonTag != "-" {
			req.bindings[json] = struct{}{}
		}
		if tag.Get("uri") != "" {
			req.bindings[uri] = struct{}{}
		}
		if tag.Get("header") != "" {
			req.bindings[header] = struct{}{}
		}
		if tag.Get("form") != "" {
			if tag.Get("formMultipart") == "" {
				req.bindings[query] = struct{}{}
			}
		}
		if tag.Get("formMultipart") != "" {
			req.bindings[formMultipart] = struct{}{}
		}
	}
}

func (req *Request[REQ, RESP]) processRequest() *Response[ErrorResponse] {
	req.processTags()
	var errs []error
	for b := range req.bindings {
		switch b { //nolint:revive // .
		case json:
			errs = append(errs, req.ginCtx.ShouldBindJSON(req.Data))
		case uri:
			errs = append(errs, req.ginCtx.ShouldBindUri(req.Data))
		case query:
			errs = append(errs, req.ginCtx.ShouldBindQuery(req.Data))
		case header:
			errs = append(errs, req.ginCtx.ShouldBindHeader(req.Data))
		case formMultipart:
			errs = append(errs, req.ginCtx.ShouldBindWith(req.Data, binding.FormMultipart))
		}
	}
	if err := multierror.Append(nil, errs...).ErrorOrNil(); err != nil {
		return UnprocessableEntity(errors.Wrapf(err, "binding failed"), "STRUCTURE_VALIDATION_FAILED")
	}

	return req.validate()
}

func (req *Request[REQ, RESP]) validate() *Response[ErrorResponse] {
	if len(req.requiredFields) == 0 {
		return nil
	}
	value := reflect.ValueOf(req.Data).Elem()
	requiredFields := make([]string, 0, len(req.requiredFields))
	for _, field := range req.requiredFields {
		if value.FieldByName(field).IsZero() {
			requiredFields = append(requiredFields, field)
		}
	}
	if len(requiredFields) == 0 {
		return nil
	}

	return UnprocessableEntity(errors.Errorf("properties `%v` are required", strings.Join(requiredFields, ",")), "MISSING_PROPERTIES")
}

//nolint:revive // Authorization has a lot of terminal states.
func (req *Request[REQ, RESP]) authorize(ctx context.Context) *Response[ErrorResponse] {
	authToken := strings.TrimPrefix(req.ginCtx.GetHeader("Authorization"), "Bearer ")
	if authToken == "" {
		if req.allowUnauthorized {
			return nil
		}

		return Unauthorized(errors.New("missing authorization header"))
	}
	token, err := Auth(ctx).VerifyToken(ctx, authToken)
	if err != nil {
		if req.allowUnauthorized {
			return nil
		}
		if errors.Is(err, auth.ErrUnavailable) {
			return ServiceUnavailable(err, "AUTHENTICATION_UNAVAILABLE")
		}

		return Unauthorized(err)
	}
	if token.UserID == "" {
		return Unauthorized(errors.New("token has no user id"))
	}
	req.AuthenticatedUser.Token = *token
	req.AuthenticatedUser.Language = req.ginCtx.GetHeader(languageHeader)
	userID := strings.Trim(req.ginCtx.Param("userId"), " ")
	if userID != "" && userID != req.AuthenticatedUser.UserID &&
		req.ginCtx.Request.Method != http.MethodGet && !req.allowForbiddenWriteOperation {
		return Forbidden(errors.Errorf("operation not allowed. uri>%v!=token>%v", userID, req.AuthenticatedUser.UserID))
	}

	return nil
}

func (req *Request[REQ, RESP]) processErrorResponse(ctx context.Context, failure *Response[ErrorResponse]) (int, *ErrorResponse) {
	err := failure.Data.InternalErr()
	if errors.Is(err, req.ginCtx.Request.Context().Err()) {
		return http.StatusServiceUnavailable, &ErrorResponse{Error: "service is shutting down"}
	}
	if errors.Is(err, ctx.Err()) {
		return http.StatusGatewayTimeout, &ErrorResponse{Error: "request timed out"}
	}
	if failure.Code <= 0 {
		return http.StatusInternalServerError, &ErrorResponse{Error: "oops, something went wrong"}
	}

	return failure.Code, failure.Data
}

func Auth(ctx context.Context) auth.Client {
	return ctx.Value(authClientCtxValueKey).(auth.Client) //nolint:forcetypeassert,revive // We know for sure.
}

// ContextWithAuth returns a child context carrying the given auth client, the
// way the server's base context does. Meant for tests and embedded usage.
func ContextWithAuth(ctx context.Context, authClient auth.Client) context.Context {
	return context.WithValue(ctx, authClientCtxValueKey, authClient) //nolint:staticcheck,revive // .
}

// RequestingUserID returns the userID of the authenticated caller, as stored
// by RootHandler before the endpoint's handler runs.
func RequestingUserID(ctx context.Context) string {
	userID, _ := ctx.Value(requestingUserIDCtxValueKey).(string)

	return userID
}
