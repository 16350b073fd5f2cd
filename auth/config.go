package auth

import (
	"errors"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config describes how tokens from the identity provider are verified.
//
// A zero value is invalid; populate the required fields (or use
// NewConfigFromEnv) and rely on Normalize for defaults.
type Config struct {
	// IssuerBaseURL is the user pool base URL, e.g.
	// "https://cognito-idp.us-east-1.amazonaws.com/<pool-id>".
	// The JWKS is fetched from its /.well-known/jwks.json path.
	// ENV: COGNITO_USER_POOL_URL
	IssuerBaseURL string `env:"COGNITO_USER_POOL_URL"`

	// LoginClientID is the app client id that identity tokens must carry as
	// their audience. ENV: COGNITO_USER_LOGIN_CLIENT_ID
	LoginClientID string `env:"COGNITO_USER_LOGIN_CLIENT_ID"`

	// ExpectedIssuer is the exact iss value required in tokens. Defaults to
	// IssuerBaseURL, which is how Cognito pools behave.
	// ENV: COGNITO_EXPECTED_ISSUER
	ExpectedIssuer string `env:"COGNITO_EXPECTED_ISSUER"`

	// AllowedAlgs lists acceptable signing algorithms. Default: ["RS256"].
	AllowedAlgs []string

	// Leeway is the clock-skew tolerance for exp/iat validation.
	// Default: none. ENV: AUTH_LEEWAY
	Leeway time.Duration `env:"AUTH_LEEWAY,default=0s"`
}

// Normalize fills defaults in place.
func (c *Config) Normalize() {
	if len(c.AllowedAlgs) == 0 {
		c.AllowedAlgs = []string{"RS256"}
	}
	if c.ExpectedIssuer == "" {
		c.ExpectedIssuer = c.IssuerBaseURL
	}
}

// Validate returns an error if required fields are missing.
func (c Config) Validate() error {
	if c.IssuerBaseURL == "" {
		return errors.New("auth: issuer base URL required")
	}
	if c.LoginClientID == "" {
		return errors.New("auth: login client id required")
	}
	return nil
}

// NewConfigFromEnv populates a Config from the environment via envdecode.
func NewConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}
