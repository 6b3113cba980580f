package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/commune-app/commune/app/controllers"
	"github.com/commune-app/commune/internal/pkg/constants"
	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/middleware"
	"github.com/commune-app/commune/internal/pkg/oauth"
)

type HttpRouter struct {
	ctrl     *controllers.Controllers
	verifier *identity.SessionVerifier
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init oauth providers
	oauth.Setup()

	// Resolve the identity session for every request
	app.Use(middleware.SessionMiddleware(h.verifier))

	app.Get("/healthz", h.ctrl.Health)

	// Payment provider webhooks (signature-verified, never rate limited)
	app.Post("/api/webhooks/stripe", h.ctrl.Webhook.HandleStripeWebhook)
	app.Post("/api/webhooks", h.ctrl.Webhook.HandleStripeWebhook)

	// Social OAuth (account linking only)
	app.Get("/auth/:provider", onlyKnownProvider, middleware.RequireAuth, gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", onlyKnownProvider, h.ctrl.Integration.HandleDiscordCallback)
}

func NewHttpRouter(ctrl *controllers.Controllers, verifier *identity.SessionVerifier) *HttpRouter {
	return &HttpRouter{ctrl: ctrl, verifier: verifier}
}

func onlyKnownProvider(c *fiber.Ctx) error {
	if !oauth.Providers[c.Params("provider")] {
		return fiber.ErrNotFound
	}
	if !oauth.Configured() {
		return c.Redirect(constants.DiscordFailedRoute, fiber.StatusSeeOther)
	}
	return c.Next()
}
