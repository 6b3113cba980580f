package controllers

import (
	"errors"
	"strings"

	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clientIP prefers proxy headers over the socket address.
func clientIP(c *fiber.Ctx) string {
	if cf := strings.TrimSpace(c.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	ip := c.IP()
	// IPv4 in IPv6 mapping (::ffff:192.168.1.1)
	if strings.HasPrefix(ip, "::ffff:") && strings.Contains(ip, ".") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	return ip
}

// pagination reads ?page= (1-based) and ?limit=.
func pagination(c *fiber.Ctx) (page, limit, offset int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit, (page - 1) * limit
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// billingError maps billing failures to a status and a caller-facing body.
// Provider errors are logged and their message forwarded.
func billingError(c *fiber.Ctx, op string, err error) error {
	status, body := billingErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		fiberlog.Errorf("[Billing] %s failed: %v", op, err)
	} else {
		fiberlog.Warnf("[Billing] %s rejected: %v", op, err)
	}
	return c.Status(status).JSON(body)
}

func billingErrorStatus(err error) (int, fiber.Map) {
	switch {
	case errors.Is(err, billing.ErrNotConfigured), errors.Is(err, billing.ErrCatalogNotConfigured):
		return fiber.StatusInternalServerError, fiber.Map{
			"error":   "Payment service configuration error",
			"details": "The payment service is not properly configured",
		}
	case errors.Is(err, billing.ErrUserRequired):
		return fiber.StatusUnauthorized, fiber.Map{"error": "Unauthorized"}
	case errors.Is(err, billing.ErrNoCustomer):
		return fiber.StatusBadRequest, fiber.Map{"error": "No billing customer found"}
	case errors.Is(err, billing.ErrNoSubscription):
		return fiber.StatusBadRequest, fiber.Map{"error": "No active subscription found"}
	case errors.Is(err, billing.ErrPriceRequired):
		return fiber.StatusBadRequest, fiber.Map{"error": "Price ID is required"}
	case errors.Is(err, billing.ErrPaymentMethodRequired):
		return fiber.StatusBadRequest, fiber.Map{"error": "Payment method ID is required"}
	case errors.Is(err, billing.ErrPaymentMethodNotOwned):
		return fiber.StatusNotFound, fiber.Map{"error": "Payment method not found"}
	case errors.Is(err, billing.ErrNoConnectAccount):
		return fiber.StatusNotFound, fiber.Map{"error": "No Stripe Connect account found"}
	case errors.Is(err, billing.ErrSubscriptionBusy):
		return fiber.StatusConflict, fiber.Map{"error": "A subscription change is already in progress"}
	}

	if se, ok := billing.ProviderError(err); ok {
		status := fiber.StatusInternalServerError
		if billing.IsInvalidRequest(err) {
			status = fiber.StatusBadRequest
			if se.Type == stripe.ErrorTypeCard {
				status = fiber.StatusPaymentRequired
			}
		}
		msg := se.Msg
		if msg == "" {
			msg = err.Error()
		}
		return status, fiber.Map{"error": msg}
	}
	return fiber.StatusInternalServerError, fiber.Map{"error": "An unexpected error occurred"}
}
