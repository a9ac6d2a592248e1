package authgate

import (
	"context"

	"swarm1.dev/core/swarmerr"
)

// Gate is the submission-boundary check wired into each engine-submission
// CLI command: when Config.Required is set, it verifies the caller's bearer
// token and checks the requested permission and tenant against the token's
// claims.
type Gate struct {
	cfg      Config
	verifier *Verifier
}

// NewGate builds a Gate from cfg.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg, verifier: NewVerifier(cfg)}
}

// Authorize checks token against perm and tenant. It returns (nil, nil)
// without verifying anything when the gate is disabled. tenant == "" skips
// tenant scoping (commands with no tenant-scoped resource).
func (g *Gate) Authorize(ctx context.Context, token string, perm Permission, tenant string) (*Claims, error) {
	if !g.cfg.Required {
		return nil, nil
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if !claims.HasPermission(perm) {
		return nil, swarmerr.Newf(swarmerr.Forbidden, "role(s) %v lack permission %q", claims.Roles, perm)
	}
	if tenant != "" && !claims.AuthorizesTenant(tenant) {
		return nil, swarmerr.Newf(swarmerr.Forbidden, "caller tenant %q not authorized for tenant %q", claims.Tenant, tenant)
	}
	return claims, nil
}
