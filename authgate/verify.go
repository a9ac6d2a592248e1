package authgate

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"swarm1.dev/core/swarmerr"
)

// Verifier validates a bearer token against the configured JWKS endpoint or
// HMAC secret and returns the claims the gate cares about.
type Verifier struct {
	cfg  Config
	jwks *jwksCache
}

// NewVerifier builds a Verifier from cfg. A JWKS cache is only allocated
// when a JWKS URL is configured.
func NewVerifier(cfg Config) *Verifier {
	v := &Verifier{cfg: cfg}
	if cfg.JWKSURL != "" {
		v.jwks = newJWKSCache(cfg.JWKSURL)
	}
	return v
}

// Verify parses and validates tokenString, checking signature, issuer, and
// audience, and returns the extracted Claims. Any failure is an
// swarmerr.AuthFailed error.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, swarmerr.New(swarmerr.AuthFailed, "missing bearer token")
	}

	token, err := jwt.Parse(tokenString, v.keyFunc(ctx), v.parserOptions()...)
	if err != nil {
		return nil, swarmerr.Wrap(swarmerr.AuthFailed, "invalid bearer token", err)
	}
	if !token.Valid {
		return nil, swarmerr.New(swarmerr.AuthFailed, "invalid bearer token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, swarmerr.New(swarmerr.AuthFailed, "invalid bearer token claims")
	}
	return claimsFromMap(mapClaims), nil
}

func (v *Verifier) parserOptions() []jwt.ParserOption {
	var opts []jwt.ParserOption
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}
	return opts
}

// keyFunc picks the JWKS (RSA) or HMAC secret verification path depending on
// which is configured, rejecting tokens signed with the wrong family of
// algorithm the way cmd/gateway/middleware.go's validateJWT does.
func (v *Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if v.jwks != nil {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("token missing kid header")
			}
			return v.jwks.key(ctx, kid)
		}
		if v.cfg.JWTSecret != "" {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(v.cfg.JWTSecret), nil
		}
		return nil, fmt.Errorf("no JWKS or HMAC secret configured")
	}
}
