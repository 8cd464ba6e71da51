package models

import (
	"fmt"
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
	RoleAdmin   UserRole = "ADMIN"
)

// Roles lists every supported role.
var Roles = []UserRole{RoleStudent, RoleTeacher, RoleAdmin}

// ParseUserRole converts free-form input into a UserRole.
func ParseUserRole(raw string) (UserRole, error) {
	switch role := UserRole(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the supported roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is a directory entry.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal returns the authenticated view of the user.
func (u User) Principal() Principal {
	return Principal{Username: u.Username, Role: u.Role}
}

// Principal is an authenticated actor.
type Principal struct {
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

// NormalizeUsername makes usernames comparable case-insensitively.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// LogName identifies the principal in request logs.
func (p Principal) LogName() string {
	return p.Username + "/" + string(p.Role)
}
