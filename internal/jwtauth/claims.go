package jwtauth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind is the tagged classification of a verified token. New kinds must
// be added here and handled exhaustively by consumers; an unknown token_use
// value fails closed in Classify.
type TokenKind interface {
	tokenKind()
}

// IdentityToken carries user-identifying claims from the authorization_code
// or implicit OAuth2 grants.
type IdentityToken struct {
	Username      string
	Email         string
	EmailVerified bool
}

func (IdentityToken) tokenKind() {}

// AccessGrant carries the client_credentials grant's client identifier. It
// names no user; the principal comes from the API key record.
type AccessGrant struct {
	ClientID string
}

func (AccessGrant) tokenKind() {}

// Classify applies token-kind-specific claim rules to verified claims and
// produces the tagged kind.
//
// Identity tokens must carry the configured login client id as their sole
// audience, plus a verified, non-empty email and username. Access tokens
// must carry a non-empty client_id; they have no audience to check.
func Classify(claims jwt.MapClaims, loginClientID string) (TokenKind, error) {
	use, _ := claims["token_use"].(string)
	switch use {
	case "id":
		if loginClientID == "" || !audContains(claims["aud"], loginClientID) {
			return nil, fmt.Errorf("%w: invalid id token", ErrInvalidToken)
		}
		username, _ := claims["cognito:username"].(string)
		email, _ := claims["email"].(string)
		verified := boolClaim(claims["email_verified"])
		if !verified || email == "" || username == "" {
			return nil, fmt.Errorf("%w: invalid user state", ErrInvalidToken)
		}
		return IdentityToken{Username: username, Email: email, EmailVerified: verified}, nil
	case "access":
		clientID, _ := claims["client_id"].(string)
		if clientID == "" {
			return nil, fmt.Errorf("%w: invalid access token", ErrInvalidToken)
		}
		return AccessGrant{ClientID: clientID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTokenUse, use)
	}
}

func audContains(aud any, want string) bool {
	switch v := aud.(type) {
	case string:
		return v == want
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == want {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
	}
	return false
}

// boolClaim interprets a claim that some issuers encode as a JSON bool and
// others as the string "true".
func boolClaim(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}
