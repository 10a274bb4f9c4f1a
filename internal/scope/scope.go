// Package scope derives the effective bearer credential for a query from the
// base secret and a request-local scope.
package scope

import (
	"fmt"
	"fqlrun/internal/types"
)

const (
	RoleAdmin  = "admin"
	RoleServer = "server"
)

// BuiltinRoles are passed through literally; any other role name is a
// user-defined role reference.
var BuiltinRoles = []string{RoleAdmin, RoleServer}

func IsBuiltinRole(role string) bool {
	return role == RoleAdmin || role == RoleServer
}

// Resolve returns the secret to authenticate with for s on top of base.
func Resolve(base string, s types.Scope) string {
	switch s.Kind {
	case types.ScopeSecret:
		return s.Value
	case types.ScopeRole:
		if IsBuiltinRole(s.Value) {
			return base + ":" + s.Value
		}
		return base + ":@role/" + s.Value
	case types.ScopeDoc:
		return base + ":@doc/" + s.Value
	case types.ScopeNone:
		return base
	default:
		panic(fmt.Sprintf("scope: unknown kind %d", s.Kind))
	}
}

// Describe returns the banner printed above results of a scoped query, or ""
// for an unscoped one.
func Describe(s types.Scope) string {
	switch s.Kind {
	case types.ScopeRole:
		return "query run with role: " + s.Value
	case types.ScopeDoc:
		return "query run with document: " + s.Value
	case types.ScopeSecret:
		// Output may leave the machine, e.g. over the HTTP API.
		return "query run with secret: " + types.Fingerprint(s.Value)
	default:
		return ""
	}
}
