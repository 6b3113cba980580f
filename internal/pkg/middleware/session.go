package middleware

import (
	"errors"

	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// SessionMiddleware resolves the caller from the session token on every
// request. Invalid or missing tokens leave the request anonymous.
func SessionMiddleware(verifier *identity.SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !verifier.Configured() {
			c.Locals(usercontext.KeyUserContext, usercontext.UserContext{IdentityUnconfigured: true})
			return c.Next()
		}

		token := identity.TokenFromRequest(c.Get(fiber.HeaderAuthorization), c.Cookies(identity.SessionCookie))
		sess, err := verifier.Verify(token)
		if err != nil {
			if !errors.Is(err, identity.ErrNoToken) {
				fiberlog.Debugf("[Session] rejected token on %s: %v", c.Path(), err)
			}
			c.Locals(usercontext.KeyUserContext, usercontext.UserContext{})
			return c.Next()
		}

		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     sess.UserID,
			SessionID:  sess.SessionID,
			Email:      sess.Email,
			Name:       sess.Name,
			IsLoggedIn: true,
		})
		c.Locals(usercontext.KeyUserID, sess.UserID)
		return c.Next()
	}
}
