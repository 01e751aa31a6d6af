// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/aurora-mobile/pushgate/server"
)

func (s *service) setupUserRoutes(router *server.Router) {
	router.GET("/me", server.RootHandler(s.GetUserProfile))
}

// GetUserProfile godoc
//
//	@Schemes
//	@Description	Returns the verified identity of the calling user, as asserted by their bearer token.
//	@Tags			Users
//	@Produce		json
//	@Param			Authorization	header	string	true	"Insert your access token"	default(Bearer <Add access token here>)
//	@Success		200				{object}	UserProfile
//	@Failure		401				{object}	server.ErrorResponse	"if not authenticated"
//	@Failure		503				{object}	server.ErrorResponse	"if the identity provider is unreachable"
//	@Router			/me [GET].
func (*service) GetUserProfile(
	_ context.Context,
	req *server.Request[GetUserProfileArg, UserProfile],
) (*server.Response[UserProfile], *server.Response[server.ErrorResponse]) {
	usr := req.AuthenticatedUser

	return server.OK(&UserProfile{
		UserID:        usr.UserID,
		Email:         usr.Email,
		Name:          usr.Name,
		PictureURL:    usr.PictureURL,
		Provider:      usr.Provider,
		EmailVerified: usr.EmailVerified,
	}), nil
}
