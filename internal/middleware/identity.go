package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys populated by JWTProtected.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// Roles understood by the API.
const (
	RoleFaculty = "faculty"
	RoleStudent = "student"
)

var roleAliases = map[string]string{
	"teacher": RoleFaculty,
	"faculty": RoleFaculty,
	"student": RoleStudent,
}

// UserID returns the authenticated user id bound to the request.
func UserID(c *fiber.Ctx) string {
	if value, ok := c.Locals(LocalUserID).(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// UserRole returns the normalized role bound to the request.
func UserRole(c *fiber.Ctx) string {
	if value, ok := c.Locals(LocalUserRole).(string); ok {
		return canonicalRole(value)
	}
	return ""
}

func canonicalRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if canonical, ok := roleAliases[role]; ok {
		return canonical
	}
	return role
}
