package controllers

import (
	"context"
	"errors"

	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const stripeSignatureHeader = "Stripe-Signature"

type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (*billing.WebhookResult, error)
}

type WebhookController struct {
	processor WebhookProcessor
}

func NewWebhookController(processor WebhookProcessor) *WebhookController {
	return &WebhookController{processor: processor}
}

// HandleStripeWebhook verifies and applies one provider event. Deliveries
// that fail verification are rejected with 400 before anything is written;
// processing failures answer 500 so the provider retries.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	res, err := wc.processor.Process(c.UserContext(), payload, c.Get(stripeSignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrWebhookNotConfigured), errors.Is(err, billing.ErrMissingSignature):
			return jsonError(c, fiber.StatusBadRequest, "Missing stripe signature or webhook secret")
		case errors.Is(err, billing.ErrInvalidSignature), errors.Is(err, billing.ErrInvalidEvent):
			fiberlog.Warnf("[Webhook] rejected delivery: %v", err)
			return jsonError(c, fiber.StatusBadRequest, "Webhook Error: "+err.Error())
		default:
			fiberlog.Errorf("[Webhook] processing failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "Webhook processing failed")
		}
	}

	body := fiber.Map{"received": true}
	if res.Duplicate {
		body["duplicate"] = true
	}
	return c.JSON(body)
}
