// Package common defines shared constants and sentinel errors used across
// client layers of DocScrib. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// ErrEmptyKey is returned by the metadata store for a blank key.
	ErrEmptyKey = errors.New("empty metadata key")

	// ErrInvalidToken means an access token is empty or not a parseable JWT.
	ErrInvalidToken = errors.New("invalid token")
)
