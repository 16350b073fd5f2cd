// Package auth authenticates bearer tokens issued by an AWS Cognito user
// pool and resolves them to local users.
//
// Two token kinds are accepted. Identity ("id") tokens originate from the
// authorization_code or implicit OAuth2 grants and carry user-identifying
// claims; they resolve to the local user with the token's Cognito username.
// Access tokens originate from the client_credentials grant, carry no user
// information, and receive the privileges of the user owning the matching
// API key record.
//
// The pipeline is: signing key lookup (cached JWKS), signature and
// standard-claim verification, token-kind classification with kind-specific
// claim rules, principal resolution through the caller-supplied stores, and
// a final gate enforcing user activity and admin impersonation.
//
// Construction:
//
//	cfg, err := auth.NewConfigFromEnv()
//	keys := keyset.NewHTTPSource(keyset.JWKSURL(cfg.IssuerBaseURL), keyset.WithCache(shared))
//	authn, err := auth.New(cfg, keys, users, apiKeys, auth.WithLoginSink(sink))
//
//	res, err := authn.Authenticate(ctx, bearerToken)
//	if errors.Is(err, auth.ErrInvalidToken) { /* 401 */ }
//
// All failures map onto the package's sentinel errors; use errors.Is and
// ChallengeFor to translate them at the HTTP boundary. For the HTTP
// middleware that performs header extraction and challenge emission, see
// the httpauth package.
package auth
