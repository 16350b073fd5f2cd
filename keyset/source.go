package keyset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/supportal/cognitoauth/cache"
)

// DefaultCacheKey is the shared-cache key under which the fetched JWKS
// document is stored.
const DefaultCacheKey = "cognito_user_pool_jwks"

// Source yields the current signing key set.
type Source interface {
	Keys(ctx context.Context) (*Set, error)
}

// JWKSURL returns the conventional JWKS location for an issuer base URL.
func JWKSURL(issuerBase string) string {
	return strings.TrimRight(issuerBase, "/") + "/.well-known/jwks.json"
}

// ResolveJWKSURL resolves the issuer's jwks_uri via OIDC discovery. Callers
// that don't want a discovery round-trip can use JWKSURL directly; Cognito
// serves its JWKS at the conventional path.
func ResolveJWKSURL(ctx context.Context, issuer string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("oidc discovery failed: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return "", fmt.Errorf("discovery incomplete: missing jwks_uri")
	}
	return meta.JwksURI, nil
}

// HTTPSource fetches the JWKS over HTTP with a read-through shared cache and
// an in-process memoized snapshot. Concurrent first requests may each fetch
// independently; the fetch is idempotent and the memo settles on one
// snapshot.
type HTTPSource struct {
	url        string
	cacheKey   string
	httpClient *http.Client
	cache      cache.Cache
	log        *slog.Logger

	memo atomic.Pointer[Set]
}

// SourceOption configures an HTTPSource.
type SourceOption func(*HTTPSource)

// WithCache attaches a shared cache consulted before fetching upstream.
// TTL and eviction policy belong to the cache backend.
func WithCache(c cache.Cache) SourceOption {
	return func(s *HTTPSource) { s.cache = c }
}

// WithCacheKey overrides the shared-cache key.
func WithCacheKey(key string) SourceOption {
	return func(s *HTTPSource) { s.cacheKey = key }
}

// WithHTTPClient overrides the HTTP client used for the upstream fetch.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *HTTPSource) { s.httpClient = c }
}

// WithLogger attaches a logger for cache and fetch diagnostics.
func WithLogger(l *slog.Logger) SourceOption {
	return func(s *HTTPSource) { s.log = l }
}

// NewHTTPSource builds a source fetching the given JWKS URL.
func NewHTTPSource(jwksURL string, opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{
		url:        jwksURL,
		cacheKey:   DefaultCacheKey,
		httpClient: http.DefaultClient,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the current key set: memo first, then shared cache, then an
// upstream fetch. A fetch failure surfaces immediately as ErrUnavailable;
// no retries happen here.
func (s *HTTPSource) Keys(ctx context.Context) (*Set, error) {
	if set := s.memo.Load(); set != nil {
		return set, nil
	}

	if s.cache != nil {
		item, err := s.cache.Get(ctx, s.cacheKey)
		if err != nil {
			// The cache is best effort; fall through to the fetch.
			s.log.WarnContext(ctx, "keyset.cache.get_failed", slog.String("err", err.Error()))
		} else if item != nil {
			set, err := Parse(item.Data)
			if err != nil {
				s.log.WarnContext(ctx, "keyset.cache.invalid", slog.String("err", err.Error()))
			} else {
				s.memo.Store(set)
				return set, nil
			}
		}
	}

	set, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cacheKey, set.Raw()); err != nil {
			s.log.WarnContext(ctx, "keyset.cache.set_failed", slog.String("err", err.Error()))
		}
	}
	s.memo.Store(set)
	return set, nil
}

// Invalidate drops the in-process memo and the shared cache entry, forcing
// the next Keys call to fetch upstream.
func (s *HTTPSource) Invalidate(ctx context.Context) error {
	s.memo.Store(nil)
	if s.cache != nil {
		return s.cache.Delete(ctx, s.cacheKey)
	}
	return nil
}

func (s *HTTPSource) fetch(ctx context.Context) (*Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: JWKS fetch returned status %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Parse(body)
}
