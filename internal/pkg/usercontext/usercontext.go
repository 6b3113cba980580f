package usercontext

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys shared by middlewares and controllers
const (
	KeyUserContext = "USER_CONTEXT"
	KeyUserID      = "user_id"
)

// UserContext represents the caller of a request
type UserContext struct {
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	IsLoggedIn bool   `json:"is_logged_in"`
	// IdentityUnconfigured is set when sessions cannot be verified at all.
	IdentityUnconfigured bool `json:"-"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or "" if not logged in
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}

// AuthorName is the name shown on content the caller creates.
func (u UserContext) AuthorName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if email := strings.TrimSpace(u.Email); email != "" {
		return email
	}
	return "Anonymous"
}
