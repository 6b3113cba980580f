package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/commune-app/commune/app/controllers"
	"github.com/commune-app/commune/internal/pkg/env"
	"github.com/commune-app/commune/internal/pkg/middleware"
	"github.com/commune-app/commune/internal/pkg/session"
)

type ApiRouter struct {
	ctrl *controllers.Controllers
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT", 120),
		Expiration: time.Minute,
		Storage:    session.NewRedisStorage(session.DatabaseLimiter),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		},
	}))

	billing := h.ctrl.Billing
	auth := middleware.RequireAPISession
	admin := middleware.RequireAdmin(h.ctrl.Policy)

	// Subscription (legacy action endpoint)
	api.Get("/subscription", auth, billing.HandleGetSubscription)
	api.Post("/subscription", auth, billing.HandleSubscriptionAction)

	// Billing
	bg := api.Group("/billing", auth)
	bg.Get("/subscription", billing.HandleGetBillingSubscription)
	bg.Post("/subscription", billing.HandleCreateBillingSubscription)
	bg.Delete("/subscription", billing.HandleCancelBillingSubscription)
	bg.Get("/payment-methods", billing.HandleListPaymentMethods)
	bg.Post("/payment-methods", billing.HandleAttachPaymentMethod)
	bg.Delete("/payment-methods", billing.HandleDetachPaymentMethod)
	bg.Get("/prices", billing.HandleListPrices)
	bg.Post("/setup-intent", billing.HandleCreateSetupIntent)
	bg.Get("/history", billing.HandleInvoiceHistory)

	// Stripe Connect
	api.Get("/stripe/connect", auth, billing.HandleConnectOnboarding)
	api.Post("/stripe/connect", auth, billing.HandleConnectRefresh)
	api.Get("/stripe/connect/status", auth, billing.HandleConnectStatus)

	// Community
	community := h.ctrl.Community
	api.Get("/community/posts", community.HandleListPosts)
	api.Post("/community/posts", auth, community.HandleCreatePost)
	api.Get("/community/members", auth, community.HandleListMembers)
	api.Get("/community-profile", community.HandleCommunityProfile)
	api.Get("/check-username", community.HandleCheckUsername)

	// Admin
	ac := h.ctrl.Admin
	api.Get("/admin/check", auth, ac.HandleAdminCheck)
	api.Get("/admin/analytics", auth, admin, ac.HandleAnalytics)
	api.Get("/admin/audit", auth, admin, ac.HandleAuditLog)
	api.Get("/admin/metrics", auth, admin, monitor.New(monitor.Config{Title: "Commune Metrics"}))
	api.Get("/users/:userId", auth, admin, ac.HandleGetUserRole)
	api.Patch("/users/:userId", auth, admin, ac.HandleUpdateUserRole)

	api.Get("/dashboard/overview", auth, ac.HandleDashboardOverview)
}

func NewApiRouter(ctrl *controllers.Controllers) *ApiRouter {
	return &ApiRouter{ctrl: ctrl}
}
