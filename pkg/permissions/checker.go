// Package permissions maps roles to capability grants and checks required
// capabilities against them, with support for wildcards.
//
// Capability format:
//   - "*" - Full access (all capabilities)
//   - "resource.*" - All actions on a resource (e.g., "tasks.*")
//   - "resource.action" - Specific action (e.g., "tasks.assign")
package permissions

import (
	"strings"
)

// Role names recognised across the system.
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// roleGrants maps each role to its capability set. Employees can read and
// update work they are involved in; managers additionally create and assign
// work and read analytics; admins have full access.
var roleGrants = map[string][]string{
	RoleAdmin: {
		"*",
	},
	RoleManager: {
		"tasks.*",
		"projects.*",
		"timelogs.read",
		"comments.*",
		"analytics.read",
		"reports.*",
		"skills.*",
	},
	RoleEmployee: {
		"tasks.read",
		"tasks.update",
		"timelogs.*",
		"comments.create",
		"comments.read",
		"projects.read",
	},
}

// Can reports whether the given role has the required capability.
// Unknown roles have no capabilities.
func Can(role, required string) bool {
	return HasPermission(roleGrants[strings.ToUpper(role)], required)
}

// Grants returns the capability set for a role. The returned slice must not
// be modified.
func Grants(role string) []string {
	return roleGrants[strings.ToUpper(role)]
}

// HasPermission checks if the capability set includes the required capability.
// Supports wildcard matching:
//   - "*" matches everything
//   - "tasks.*" matches "tasks.read", "tasks.assign", etc.
//   - Exact match for specific capabilities
func HasPermission(perms []string, required string) bool {
	if required == "" {
		return true // No capability required
	}

	for _, p := range perms {
		if p == "*" {
			return true // Full admin access
		}
		if p == required {
			return true // Exact match
		}
		// Check wildcard patterns like "tasks.*"
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the capability set covers any of the required capabilities.
func HasAnyPermission(perms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(perms, req) {
			return true
		}
	}
	return false
}

// IsValidRole reports whether the role name is one of the recognised roles.
func IsValidRole(role string) bool {
	_, ok := roleGrants[strings.ToUpper(role)]
	return ok
}
