// Package authgate implements the submission-boundary auth gate: a
// bearer token is verified against either a JWKS endpoint or an HMAC secret,
// then role-derived permissions and tenant scoping are checked before an
// engine-submission entry point is allowed to proceed.
package authgate

import (
	"os"
	"strings"
)

// Config holds the AUTH_* environment inputs.
type Config struct {
	Required  bool
	JWKSURL   string
	JWTSecret string
	Issuer    string
	Audience  string
}

// ConfigFromEnv reads the auth gate's configuration from the process
// environment, mirroring engine.ConfigFromEnv's env-read style.
func ConfigFromEnv() Config {
	return Config{
		Required:  strings.EqualFold(os.Getenv("AUTH_REQUIRED"), "true"),
		JWKSURL:   os.Getenv("AUTH_JWKS_URL"),
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		Issuer:    os.Getenv("AUTH_ISSUER"),
		Audience:  os.Getenv("AUTH_AUDIENCE"),
	}
}
