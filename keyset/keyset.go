// Package keyset fetches and caches the identity provider's public signing
// key set (JWKS). Key rotation is infrequent, so fetched sets are pushed
// through a shared cache to amortize the upstream fetch across processes,
// with an in-process memo on top of that.
package keyset

import (
	"encoding/json"
	"errors"
	"fmt"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnavailable indicates the upstream key fetch failed (network error,
// non-2xx status, or an empty/unparseable key set).
var ErrUnavailable = errors.New("keyset: key source unavailable")

// Set is an immutable snapshot of the issuer's signing keys. A Set is
// replaced wholesale on refresh, never merged.
type Set struct {
	raw  json.RawMessage
	jwks jose.JSONWebKeySet
	kf   keyfunc.Keyfunc
}

// Parse builds a Set from raw JWKS JSON. An empty key set is a failure, not
// a valid empty result.
func Parse(raw []byte) (*Set, error) {
	var jwks jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &jwks); err != nil {
		return nil, fmt.Errorf("%w: invalid JWKS document: %v", ErrUnavailable, err)
	}
	if len(jwks.Keys) == 0 {
		return nil, fmt.Errorf("%w: JWKS document contains no keys", ErrUnavailable)
	}
	kf, err := keyfunc.NewJWKSetJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unusable JWKS document: %v", ErrUnavailable, err)
	}
	dup := make(json.RawMessage, len(raw))
	copy(dup, raw)
	return &Set{raw: dup, jwks: jwks, kf: kf}, nil
}

// Raw returns the JWKS JSON this set was parsed from.
func (s *Set) Raw() json.RawMessage { return s.raw }

// Len returns the number of keys in the set.
func (s *Set) Len() int { return len(s.jwks.Keys) }

// Contains reports whether a key with the given key id is present.
func (s *Set) Contains(kid string) bool { return len(s.jwks.Key(kid)) > 0 }

// Keyfunc returns a jwt.Keyfunc resolving keys by kid within this snapshot
// only. A kid absent from the snapshot fails verification; it never triggers
// a refresh.
func (s *Set) Keyfunc() jwt.Keyfunc { return s.kf.Keyfunc }
