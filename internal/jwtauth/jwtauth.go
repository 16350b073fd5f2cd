// Package jwtauth verifies bearer tokens against the issuer's signing key
// set and classifies verified claims into token kinds.
package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supportal/cognitoauth/keyset"
)

// ErrInvalidToken indicates the token failed cryptographic or structural
// verification. The wrapped detail is for server-side logs only; callers
// facing untrusted clients must not echo it.
var ErrInvalidToken = errors.New("jwtauth: invalid token")

// ErrUnsupportedTokenUse indicates a verified token whose token_use claim is
// neither "id" nor "access". The offending value is safe to disclose.
var ErrUnsupportedTokenUse = errors.New("jwtauth: unsupported token_use")

// Config controls token verification.
type Config struct {
	// Issuer is the exact iss value required in every token.
	Issuer string
	// AllowedAlgs lists acceptable signing algorithms. Defaults to RS256 only.
	AllowedAlgs []string
	// Leeway is the clock-skew tolerance applied to exp/iat checks.
	Leeway time.Duration
}

// Verifier performs signature and standard-claim verification. It holds no
// key material; the key set snapshot is supplied per call so key refresh
// stays under the key store's cache policy.
type Verifier struct {
	cfg *Config
}

// NewVerifier constructs a Verifier.
func NewVerifier(cfg *Config) (*Verifier, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks the token's signature, expiry, issued-at and issuer against
// the supplied key set snapshot and returns the verified claims. Audience is
// deliberately not checked here: the accepted audience differs by token kind
// and is enforced by Classify.
func (v *Verifier) Verify(raw string, keys *keyset.Set) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithLeeway(v.cfg.Leeway),
	)

	parsed, err := parser.Parse(raw, v.keyfuncFor(keys))
	if err != nil {
		return nil, fmt.Errorf("%w: token parse/verify failed: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", ErrInvalidToken)
	}
	return claims, nil
}

// keyfuncFor wraps the snapshot's key resolution with kid and alg guards.
// The unverified header is used only to pick a candidate key, never for
// authorization decisions.
func (v *Verifier) keyfuncFor(keys *keyset.Set) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		alg := t.Method.Alg()
		allowed := false
		for _, a := range v.cfg.AllowedAlgs {
			if alg == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("disallowed alg: %s", alg)
		}
		if !keys.Contains(kid) {
			// Likely a token minted against a different pool, or a rotation
			// the shared cache hasn't observed yet. A stale snapshot does not
			// self-heal mid-request.
			return nil, fmt.Errorf("kid %q not present in signing key set", kid)
		}
		return keys.Keyfunc()(t)
	}
}
