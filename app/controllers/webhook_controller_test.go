package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_controller"

func newWebhookApp(t *testing.T, secret string) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.User{ID: "user_1", StripeCustomerID: ptr("cus_1")}).Error)

	wc := NewWebhookController(billing.NewWebhookProcessor(billing.NewRepository(db), secret))
	app := fiber.New()
	app.Post("/api/webhooks/stripe", wc.HandleStripeWebhook)
	return app, db
}

func subscriptionEvent(t *testing.T, id string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        billing.EventSubscriptionUpdated,
		"created":     time.Now().Unix(),
		"api_version": stripe.APIVersion,
		"data": map[string]any{"object": map[string]any{
			"id":                   "sub_1",
			"object":               "subscription",
			"customer":             "cus_1",
			"status":               "active",
			"cancel_at_period_end": false,
			"items": map[string]any{
				"object": "list",
				"data": []any{map[string]any{
					"id":                 "si_1",
					"object":             "subscription_item",
					"current_period_end": 1767225600,
					"price":              map[string]any{"id": "price_1", "object": "price"},
				}},
			},
		}},
	})
	require.NoError(t, err)
	return b
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func signPayload(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func storedEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.StripeEvent{}).Count(&n).Error)
	return n
}

func TestStripeWebhookRejections(t *testing.T) {
	app, db := newWebhookApp(t, webhookSecret)
	payload := subscriptionEvent(t, "evt_1")

	status, body := postWebhook(t, app, payload, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Missing stripe signature or webhook secret", body["error"])

	status, body = postWebhook(t, app, payload, "t=1,v1=deadbeef")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "Webhook Error: ")

	assert.Zero(t, storedEvents(t, db))
}

func TestStripeWebhookWithoutSecret(t *testing.T) {
	app, db := newWebhookApp(t, "")
	payload := subscriptionEvent(t, "evt_1")

	status, _ := postWebhook(t, app, payload, signPayload(payload))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Zero(t, storedEvents(t, db))
}

func TestStripeWebhookAppliesOnce(t *testing.T) {
	app, db := newWebhookApp(t, webhookSecret)
	payload := subscriptionEvent(t, "evt_1")

	status, body := postWebhook(t, app, payload, signPayload(payload))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	assert.NotContains(t, body, "duplicate")

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", "user_1").Error)
	assert.Equal(t, "sub_1", u.SubscriptionRef())
	assert.Equal(t, "active", u.SubscriptionStatus)

	status, body = postWebhook(t, app, payload, signPayload(payload))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, int64(1), storedEvents(t, db))
}
