package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supportal/cognitoauth/internal/jwtauth"
	"github.com/supportal/cognitoauth/internal/logctx"
	"github.com/supportal/cognitoauth/keyset"
)

// Authenticator is the bearer-token authentication pipeline: signing key
// lookup, signature and claim verification, token-kind classification,
// principal resolution and the final activity/impersonation gate.
//
// It is stateless apart from the key source's own caching and safe for
// concurrent use.
type Authenticator struct {
	cfg      Config
	keys     keyset.Source
	verifier *jwtauth.Verifier
	users    UserStore
	apiKeys  APIKeyStore
	sink     LoginSink
	log      *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLoginSink attaches the login-observed notification sink. Without one,
// successful logins simply aren't reported anywhere.
func WithLoginSink(s LoginSink) Option {
	return func(a *Authenticator) { a.sink = s }
}

// WithLogger overrides the forensic logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.log = l }
}

// New builds an Authenticator. The key source, user store and API key store
// are required collaborators.
func New(cfg Config, keys keyset.Source, users UserStore, apiKeys APIKeyStore, opts ...Option) (*Authenticator, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, errors.New("auth: key source is required")
	}
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if apiKeys == nil {
		return nil, errors.New("auth: api key store is required")
	}

	verifier, err := jwtauth.NewVerifier(&jwtauth.Config{
		Issuer:      cfg.ExpectedIssuer,
		AllowedAlgs: cfg.AllowedAlgs,
		Leeway:      cfg.Leeway,
	})
	if err != nil {
		return nil, err
	}

	a := &Authenticator{
		cfg:      cfg,
		keys:     keys,
		verifier: verifier,
		users:    users,
		apiKeys:  apiKeys,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate verifies a raw bearer token and resolves it to an effective
// principal. It returns exactly one of the package's sentinel errors
// (possibly wrapped) on failure; it never returns a principal alongside an
// error and never retries.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*Result, error) {
	set, err := a.keys.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySourceUnavailable, err)
	}

	claims, err := a.verifier.Verify(rawToken, set)
	if err != nil {
		// Log the cause; a failed verification may mean someone is tampering
		// with tokens. The caller gets the generic error only.
		a.log.WarnContext(ctx, "auth.token.invalid", slog.String("err", err.Error()))
		return nil, ErrInvalidToken
	}

	kind, err := jwtauth.Classify(claims, a.cfg.LoginClientID)
	if err != nil {
		if errors.Is(err, jwtauth.ErrUnsupportedTokenUse) {
			use, _ := claims["token_use"].(string)
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedTokenUse, use)
		}
		a.log.WarnContext(ctx, "auth.claims.invalid", slog.String("err", err.Error()))
		return nil, ErrInvalidToken
	}

	switch k := kind.(type) {
	case jwtauth.IdentityToken:
		user, err := a.users.GetByNaturalKey(ctx, k.Username)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: user does not exist", ErrPrincipalNotFound)
			}
			return nil, err
		}
		return a.authorize(ctx, user, claims, true)
	case jwtauth.AccessGrant:
		key, err := a.apiKeys.Get(ctx, k.ClientID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Deliberately indistinguishable from other access token
				// failures.
				return nil, fmt.Errorf("%w: invalid access token", ErrPrincipalNotFound)
			}
			return nil, err
		}
		return a.authorize(ctx, key.User, claims, false)
	}

	return nil, ErrInvalidToken
}

// authorize applies the activity and impersonation rules and emits the
// login-observed notification where it applies.
func (a *Authenticator) authorize(ctx context.Context, user *User, claims jwt.MapClaims, loginEvent bool) (*Result, error) {
	if user == nil || !user.IsActive {
		return nil, ErrUserDeactivated
	}

	// Only admins may impersonate, and only someone other than themselves.
	if user.IsAdmin && user.ImpersonatedUser != nil && user.ImpersonatedUser.ID != user.ID {
		ctx = logctx.WithPrincipalData(ctx, &logctx.PrincipalData{
			UserID:       user.ImpersonatedUser.ID,
			Username:     user.ImpersonatedUser.Username,
			Impersonated: true,
		})
		a.log.InfoContext(ctx, "auth.impersonation",
			slog.Int64("admin_user_id", user.ID))
		// Intentionally no login-observed notification when impersonating.
		return &Result{Principal: user.ImpersonatedUser, Claims: claims}, nil
	}

	if loginEvent && a.sink != nil {
		a.sink.LoginObserved(ctx, user)
	}
	return &Result{Principal: user, Claims: claims}, nil
}
