package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Error taxonomy. Every authentication failure maps to exactly one of these
// sentinels; the HTTP layer classifies with errors.Is.
var (
	// ErrMalformedAuthHeader indicates a wrong scheme or segment count in the
	// Authorization header. The message carries the expected format.
	ErrMalformedAuthHeader = errors.New("invalid auth header")

	// ErrKeySourceUnavailable indicates the upstream signing key fetch failed
	// or returned an empty set. Not retried here.
	ErrKeySourceUnavailable = errors.New("signing key source unavailable")

	// ErrInvalidToken is the single generic error returned for every
	// cryptographic, structural or claim failure. The underlying cause is
	// logged server-side only; disclosing which check failed would assist
	// token forgery.
	ErrInvalidToken = errors.New("invalid token")

	// ErrPrincipalNotFound indicates verified claims that map to no local
	// principal.
	ErrPrincipalNotFound = errors.New("unknown principal")

	// ErrUserDeactivated indicates the principal resolved but is inactive.
	ErrUserDeactivated = errors.New("user deactivated")

	// ErrUnsupportedTokenUse indicates a token_use outside {id, access}.
	ErrUnsupportedTokenUse = errors.New("unknown token_use")
)

// ErrNotFound is returned by UserStore and APIKeyStore lookups that match
// no record.
var ErrNotFound = errors.New("not found")

// User is a local user record. The identity provider is the source of truth
// for authentication, but a User must already exist locally to authenticate;
// provisioning happens elsewhere.
type User struct {
	ID       int64
	Username string
	Email    string
	IsActive bool
	IsAdmin  bool

	// ImpersonatedUser, when set on an admin, substitutes for the admin as
	// the effective principal.
	ImpersonatedUser *User
}

// APIKey ties a client_credentials OAuth client id to the user whose
// privileges the resulting access tokens receive.
type APIKey struct {
	ClientID string
	User     *User
}

// UserStore resolves users by their natural username key.
// Implementations return ErrNotFound (possibly wrapped) for missing users.
type UserStore interface {
	GetByNaturalKey(ctx context.Context, username string) (*User, error)
}

// APIKeyStore resolves API key records by client id.
// Implementations return ErrNotFound (possibly wrapped) for missing keys.
type APIKeyStore interface {
	Get(ctx context.Context, clientID string) (*APIKey, error)
}

// LoginSink receives a synchronous notification for every non-impersonated
// identity-token authentication. It never fires for access-grant or
// impersonated authentication. Implementations must tolerate being called
// once per authenticated request, not once per login session.
type LoginSink interface {
	LoginObserved(ctx context.Context, user *User)
}

// Result is a successful authentication outcome: the effective principal and
// the verified claims the decision was based on.
type Result struct {
	// Principal is the effective principal: the resolved user, or the
	// impersonated user when an admin has impersonation set.
	Principal *User

	// Claims is the verified claim set. Trusted; produced only after
	// signature and standard-claim verification.
	Claims jwt.MapClaims
}
