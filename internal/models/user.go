package models

import "strings"

// UserRole represents the roles carried in access tokens.
type UserRole string

const (
	RoleAdmin      UserRole = "Admin"
	RoleInstructor UserRole = "Instructor"
	RoleStudent    UserRole = "Student"
)

// NormalizeRole maps token role spellings ("ADMIN", "admin") onto the canonical roles.
// Unknown roles are returned trimmed but otherwise untouched.
func NormalizeRole(raw string) UserRole {
	trimmed := strings.TrimSpace(raw)
	for _, role := range []UserRole{RoleAdmin, RoleInstructor, RoleStudent} {
		if strings.EqualFold(trimmed, string(role)) {
			return role
		}
	}
	return UserRole(trimmed)
}
