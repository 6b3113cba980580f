package middleware

import (
	"github.com/commune-app/commune/internal/pkg/authz"
	"github.com/commune-app/commune/internal/pkg/constants"
	icuser "github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth ensures a signed-in browser session; redirects to /sign-in if missing.
func RequireAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return c.Redirect(constants.SignInRoute, fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISession ensures a signed-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISession(c *fiber.Ctx) error {
	uc := icuser.GetUserContext(c)
	if uc.IsLoggedIn {
		return c.Next()
	}
	if uc.IdentityUnconfigured {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Session verification is not configured",
		})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

// RequireAdmin runs after RequireAPISession. It fails closed: a policy that
// cannot be evaluated answers 503 rather than letting the request through.
func RequireAdmin(policy *authz.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch policy.Check(c.UserContext(), icuser.GetUserID(c)) {
		case authz.Authorized:
			return c.Next()
		case authz.Denied:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		default:
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Admin authorization is not configured",
			})
		}
	}
}
