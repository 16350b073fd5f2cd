// Package httpauth is the HTTP middleware surface of the authentication
// pipeline: it extracts the bearer token from the Authorization header,
// invokes the authenticator and either stores the result on the request
// context or rejects the request with the appropriate challenge.
package httpauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/supportal/cognitoauth/auth"
	"github.com/supportal/cognitoauth/internal/logctx"
)

// DefaultScheme is the Authorization scheme accepted by default.
const DefaultScheme = "bearer"

type resultKey struct{}

// ResultFromContext returns the authentication result stored by the
// middleware, if the request authenticated. A request that carried no
// Authorization header passes through without a result.
func ResultFromContext(ctx context.Context) (*auth.Result, bool) {
	res, ok := ctx.Value(resultKey{}).(*auth.Result)
	return res, ok
}

// Token extracts the credential from the request's Authorization header.
// An absent header means no authentication was attempted: it returns
// ("", false, nil), not an error. A header with the wrong scheme or segment
// count returns ErrMalformedAuthHeader with the expected format.
func Token(r *http.Request, scheme string) (string, bool, error) {
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", false, nil
	}
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return "", true, fmt.Errorf("%w. Format should be '%s <token>'", auth.ErrMalformedAuthHeader, scheme)
	}
	return parts[1], true, nil
}

// Middleware authenticates requests in front of an http.Handler.
type Middleware struct {
	authn  *auth.Authenticator
	scheme string
	log    *slog.Logger
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithScheme overrides the accepted Authorization scheme.
func WithScheme(scheme string) Option {
	return func(m *Middleware) { m.scheme = strings.ToLower(scheme) }
}

// WithLogger overrides the middleware's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Middleware) { m.log = l }
}

// New builds a Middleware around an Authenticator.
func New(authn *auth.Authenticator, opts ...Option) *Middleware {
	m := &Middleware{
		authn:  authn,
		scheme: DefaultScheme,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap returns a handler that authenticates requests before invoking next.
// Requests without an Authorization header pass through unauthenticated;
// everything downstream should treat a missing Result as anonymous.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
			RequestID:  requestID(r),
			Method:     r.Method,
			Path:       r.URL.Path,
			UserAgent:  r.UserAgent(),
			RemoteAddr: r.RemoteAddr,
		})

		tok, attempted, err := Token(r, m.scheme)
		if err != nil {
			m.reject(ctx, w, err)
			return
		}
		if !attempted {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		res, err := m.authn.Authenticate(ctx, tok)
		if err != nil {
			m.reject(ctx, w, err)
			return
		}

		ctx = context.WithValue(ctx, resultKey{}, res)
		ctx = logctx.WithPrincipalData(ctx, &logctx.PrincipalData{
			UserID:   res.Principal.ID,
			Username: res.Principal.Username,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) reject(ctx context.Context, w http.ResponseWriter, err error) {
	ch := auth.ChallengeFor(err)
	m.log.InfoContext(ctx, "auth.check.failed",
		slog.String("err", err.Error()),
		slog.Int("status", ch.Status))

	if ch.WWWAuthenticate != "" {
		w.Header().Set("WWW-Authenticate", ch.WWWAuthenticate)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ch.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": ch.Detail})
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
