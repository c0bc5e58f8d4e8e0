package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the credential check fails
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenGeneration is returned when signing or persisting a token pair fails.
	// The whole login attempt must be treated as failed; no tokens are handed out.
	ErrTokenGeneration = errors.New("token generation failed")
	// ErrInvalidRefreshToken covers forged, malformed, expired and revoked
	// refresh tokens alike, so callers cannot tell the cases apart
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Middleware failure taxonomy. The HTTP contract collapses most of these
	// into 401, but they stay distinguishable for logging.
	ErrMissingAuthHeader   = errors.New("missing authorization header")
	ErrMalformedAuthHeader = errors.New("invalid authorization header")
	ErrMissingToken        = errors.New("missing token")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token expired")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrUnknownUser         = errors.New("unknown or inactive user")
	ErrUnknownKey          = errors.New("unknown signing key")
)
