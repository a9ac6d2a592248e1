package authgate

import (
	"github.com/golang-jwt/jwt/v5"
)

// Permission is one of the fixed set of role-derived actions.
type Permission string

const (
	PermEnqueueJobs Permission = "enqueue_jobs"
	PermViewStatus  Permission = "view_status"
)

// rolePermissions maps a role to the permissions it grants directly. The
// admin role is handled as a wildcard in Claims.HasPermission rather than
// listed here, since it covers "all" including permissions added later.
var rolePermissions = map[string][]Permission{
	"developer": {PermEnqueueJobs, PermViewStatus},
	"viewer":    {PermViewStatus},
}

// Claims is the subset of token claims the gate cares about: sub,
// roles (accepted flat or nested under realm_access.roles), and a tenant or
// org scope.
type Claims struct {
	Subject string
	Roles   []string
	Tenant  string
}

func claimsFromMap(m jwt.MapClaims) *Claims {
	c := &Claims{}
	if sub, ok := m["sub"].(string); ok {
		c.Subject = sub
	}
	c.Roles = stringSlice(m["roles"])
	if len(c.Roles) == 0 {
		if realm, ok := m["realm_access"].(map[string]interface{}); ok {
			c.Roles = stringSlice(realm["roles"])
		}
	}
	if tenant, ok := m["tenant"].(string); ok && tenant != "" {
		c.Tenant = tenant
	} else if org, ok := m["org"].(string); ok {
		c.Tenant = org
	}
	return c
}

func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Claims) isAdmin() bool {
	for _, r := range c.Roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of the claims' roles grant perm. admin
// grants every permission.
func (c *Claims) HasPermission(perm Permission) bool {
	if c.isAdmin() {
		return true
	}
	for _, r := range c.Roles {
		for _, p := range rolePermissions[r] {
			if p == perm {
				return true
			}
		}
	}
	return false
}

// AuthorizesTenant reports whether the claims permit acting on tenant.
// Admins act cross-tenant; every other role must match the token's tenant
// exactly.
func (c *Claims) AuthorizesTenant(tenant string) bool {
	if c.isAdmin() {
		return true
	}
	return c.Tenant == tenant
}
