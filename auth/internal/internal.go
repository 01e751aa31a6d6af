// SPDX-License-Identifier: MIT

package internal

// Public API.

const (
	ProviderFirebase = "firebase"
)

type (
	// Token is the verified identity extracted from a bearer ID token.
	Token struct {
		Claims        map[string]any `json:"claims,omitempty"`
		UserID        string         `json:"userId,omitempty"`
		Email         string         `json:"email,omitempty"`
		Name          string         `json:"name,omitempty"`
		PictureURL    string         `json:"pictureUrl,omitempty"`
		Provider      string         `json:"provider,omitempty"`
		EmailVerified bool           `json:"emailVerified,omitempty"`
	}
)
