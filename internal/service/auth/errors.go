// Package auth provides bearer token authentication for the API surface.
// Tokens are HS256-signed JWTs carrying the principal's id and roles; they
// are issued by an external identity tool and only validated here.
package auth

import "errors"

// Authentication errors returned by the token service.
var (
	// ErrInvalidToken is returned when a token is malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrTokenNotYetValid is returned when a token's nbf claim is in the
	// future.
	ErrTokenNotYetValid = errors.New("token not yet valid")

	// ErrMissingSecret is returned when token operations are attempted
	// without a configured signing secret.
	ErrMissingSecret = errors.New("no jwt secret configured")
)
