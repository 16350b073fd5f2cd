package jwtauth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/supportal/cognitoauth/keyset"
)

const testIssuer = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_test"

func genRSA(t *testing.T) (*rsa.PrivateKey, string, *keyset.Set) {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	kid := "test-key"
	jwk := jose.JSONWebKey{Key: &pk.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}
	set := struct {
		Keys []jose.JSONWebKey `json:"keys"`
	}{Keys: []jose.JSONWebKey{jwk}}
	b, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	ks, err := keyset.Parse(b)
	if err != nil {
		t.Fatalf("parse jwks: %v", err)
	}
	return pk, kid, ks
}

func signToken(t *testing.T, pk *rsa.PrivateKey, method jwt.SigningMethod, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(&Config{Issuer: testIssuer})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": testIssuer,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	pk, kid, ks := genRSA(t)
	v := newVerifier(t)

	claims := baseClaims()
	claims["token_use"] = "id"
	claims["cognito:username"] = "alice"
	tok := signToken(t, pk, jwt.SigningMethodRS256, kid, claims)

	got, err := v.Verify(tok, ks)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got["cognito:username"] != "alice" {
		t.Fatalf("claims roundtrip mismatch: %v", got["cognito:username"])
	}
	if got["token_use"] != "id" {
		t.Fatalf("claims roundtrip mismatch: %v", got["token_use"])
	}
}

func TestVerify_MissingKid(t *testing.T) {
	pk, _, ks := genRSA(t)
	v := newVerifier(t)

	tok := signToken(t, pk, jwt.SigningMethodRS256, "", baseClaims())
	if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_UnknownKid(t *testing.T) {
	pk, _, ks := genRSA(t)
	v := newVerifier(t)

	tok := signToken(t, pk, jwt.SigningMethodRS256, "other-key", baseClaims())
	if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_DisallowedAlg(t *testing.T) {
	pk, kid, ks := genRSA(t)
	v := newVerifier(t)

	// A valid signature under a different RSA variant must still be rejected.
	tok := signToken(t, pk, jwt.SigningMethodRS384, kid, baseClaims())
	if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_WrongKeySignature(t *testing.T) {
	_, kid, ks := genRSA(t)
	other, _, _ := genRSA(t)
	v := newVerifier(t)

	// Signed by a different key but claiming the known kid.
	tok := signToken(t, other, jwt.SigningMethodRS256, kid, baseClaims())
	if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	pk, kid, ks := genRSA(t)
	v := newVerifier(t)

	claims := baseClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	tok := signToken(t, pk, jwt.SigningMethodRS256, kid, claims)
	if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_MissingExp(t *testing.T) {
	pk, kid, ks := genRSA(t)
	v := newVerifier(t)

	claims := baseClaims()
	delete(claims, "exp")
	tok := signToken(t, pk, jwt.SigningMethodRS256, kid, claims)
	if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	pk, kid, ks := genRSA(t)
	v := newVerifier(t)

	claims := baseClaims()
	claims["iss"] = "https://evil.example.com"
	tok := signToken(t, pk, jwt.SigningMethodRS256, kid, claims)
	if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	_, _, ks := genRSA(t)
	v := newVerifier(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c"} {
		if _, err := v.Verify(tok, ks); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: want ErrInvalidToken, got %v", tok, err)
		}
	}
}

const loginClientID = "login-client-id"

func TestClassify_IdentityToken(t *testing.T) {
	kind, err := Classify(jwt.MapClaims{
		"token_use":        "id",
		"aud":              loginClientID,
		"email_verified":   true,
		"email":            "a@b.com",
		"cognito:username": "alice",
	}, loginClientID)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	id, ok := kind.(IdentityToken)
	if !ok {
		t.Fatalf("want IdentityToken, got %T", kind)
	}
	if id.Username != "alice" || id.Email != "a@b.com" || !id.EmailVerified {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestClassify_IdentityTokenStringVerified(t *testing.T) {
	// Cognito encodes email_verified as a string in some pool configurations.
	kind, err := Classify(jwt.MapClaims{
		"token_use":        "id",
		"aud":              loginClientID,
		"email_verified":   "true",
		"email":            "a@b.com",
		"cognito:username": "alice",
	}, loginClientID)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if _, ok := kind.(IdentityToken); !ok {
		t.Fatalf("want IdentityToken, got %T", kind)
	}
}

func TestClassify_IdentityAudienceMismatch(t *testing.T) {
	_, err := Classify(jwt.MapClaims{
		"token_use":        "id",
		"aud":              "some-other-client",
		"email_verified":   true,
		"email":            "a@b.com",
		"cognito:username": "alice",
	}, loginClientID)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestClassify_IdentityMissingAudience(t *testing.T) {
	_, err := Classify(jwt.MapClaims{
		"token_use":        "id",
		"email_verified":   true,
		"email":            "a@b.com",
		"cognito:username": "alice",
	}, loginClientID)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestClassify_IdentityInvalidUserState(t *testing.T) {
	cases := map[string]jwt.MapClaims{
		"unverified email": {
			"token_use": "id", "aud": loginClientID,
			"email_verified": false, "email": "a@b.com", "cognito:username": "alice",
		},
		"missing email": {
			"token_use": "id", "aud": loginClientID,
			"email_verified": true, "cognito:username": "alice",
		},
		"missing username": {
			"token_use": "id", "aud": loginClientID,
			"email_verified": true, "email": "a@b.com",
		},
	}
	for name, claims := range cases {
		if _, err := Classify(claims, loginClientID); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: want ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestClassify_AccessGrant(t *testing.T) {
	kind, err := Classify(jwt.MapClaims{
		"token_use": "access",
		"client_id": "key123",
	}, loginClientID)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	grant, ok := kind.(AccessGrant)
	if !ok {
		t.Fatalf("want AccessGrant, got %T", kind)
	}
	if grant.ClientID != "key123" {
		t.Fatalf("unexpected client id: %q", grant.ClientID)
	}
}

func TestClassify_AccessGrantNoAudienceCheck(t *testing.T) {
	// Access tokens carry no aud that matches the login client; that's fine.
	if _, err := Classify(jwt.MapClaims{
		"token_use": "access",
		"client_id": "key123",
		"aud":       "something-else",
	}, loginClientID); err != nil {
		t.Fatalf("classify: %v", err)
	}
}

func TestClassify_AccessGrantMissingClientID(t *testing.T) {
	_, err := Classify(jwt.MapClaims{"token_use": "access"}, loginClientID)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestClassify_UnknownTokenUse(t *testing.T) {
	_, err := Classify(jwt.MapClaims{"token_use": "refresh"}, loginClientID)
	if !errors.Is(err, ErrUnsupportedTokenUse) {
		t.Fatalf("want ErrUnsupportedTokenUse, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "refresh") {
		t.Fatalf("error should name the offending value, got %q", got)
	}
}
