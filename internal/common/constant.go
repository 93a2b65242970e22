// Package common contains shared constants and sentinel errors used across
// DocScrib client components.
package common

// Header names attached to every outbound API request.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
)

// Keys of the local metadata table. The table plays the role of the
// browser's local storage: one key per persisted value.
const (
	UserDataKey     = "user"
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)
