package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/commune-app/commune/app/controllers"
	"github.com/commune-app/commune/internal/pkg/identity"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, ctrl *controllers.Controllers, verifier *identity.SessionVerifier) {
	// HttpRouter goes first: it installs the session middleware and the
	// webhook route, which must be matched before the rate-limited /api group.
	setup(app, NewHttpRouter(ctrl, verifier), NewApiRouter(ctrl))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
