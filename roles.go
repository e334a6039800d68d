package auth

import "strings"

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleTrainer, RoleClient:
		return true
	default:
		return false
	}
}

// AllRoles returns the predefined roles.
func AllRoles() []Role {
	return []Role{RoleOwner, RoleTrainer, RoleClient}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, IsValidRole(role)
}

// DashboardPath returns the dashboard root for a role, e.g. /dashboard/trainer.
func DashboardPath(r Role) string {
	return "/dashboard/" + string(r)
}
