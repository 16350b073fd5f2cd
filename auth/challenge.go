package auth

import (
	"errors"
	"net/http"
)

// AuthenticateHeaderValue is the WWW-Authenticate value surfaced on 401
// responses. Without it, failed auth reads as 403 Permission Denied to
// well-behaved clients.
const AuthenticateHeaderValue = "Bearer: realm=api"

// Challenge describes how the HTTP layer should reject a failed
// authentication attempt: status code, optional WWW-Authenticate header and
// a detail message safe to disclose to the client.
type Challenge struct {
	Status          int
	WWWAuthenticate string
	Detail          string
}

// ChallengeFor classifies an authentication error into an HTTP challenge.
// Detail stays generic for the invalid-token class; the specific failed
// check lives in server-side logs only.
func ChallengeFor(err error) *Challenge {
	switch {
	case errors.Is(err, ErrMalformedAuthHeader):
		return &Challenge{
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		}
	case errors.Is(err, ErrKeySourceUnavailable):
		return &Challenge{
			Status: http.StatusServiceUnavailable,
			Detail: "authentication temporarily unavailable",
		}
	case errors.Is(err, ErrUserDeactivated):
		return &Challenge{
			Status:          http.StatusUnauthorized,
			WWWAuthenticate: AuthenticateHeaderValue,
			Detail:          "User deactivated",
		}
	case errors.Is(err, ErrUnsupportedTokenUse), errors.Is(err, ErrPrincipalNotFound):
		// Both messages are safe: neither names a forgeable secret.
		return &Challenge{
			Status:          http.StatusUnauthorized,
			WWWAuthenticate: AuthenticateHeaderValue,
			Detail:          err.Error(),
		}
	default:
		return &Challenge{
			Status:          http.StatusUnauthorized,
			WWWAuthenticate: AuthenticateHeaderValue,
			Detail:          "Invalid token",
		}
	}
}
