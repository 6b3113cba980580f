package controllers

import (
	"context"
	"fmt"
	"strings"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

var validate = validator.New()

// BillingService is the part of billing.Service the HTTP layer calls.
type BillingService interface {
	SubscriptionStatus(ctx context.Context, userID string) (*billing.SubscriptionStatus, error)
	SubscriptionDetails(ctx context.Context, userID string) (*billing.SubscriptionDetails, error)
	CreateSubscription(ctx context.Context, who billing.Identity, priceID string) (*billing.SubscriptionResult, error)
	CancelSubscription(ctx context.Context, userID string) (*billing.SubscriptionResult, error)
	ReactivateSubscription(ctx context.Context, userID string) (*billing.SubscriptionResult, error)
	PaymentMethods(ctx context.Context, userID string) ([]billing.CardSummary, error)
	AttachPaymentMethod(ctx context.Context, who billing.Identity, paymentMethodID string) error
	DetachPaymentMethod(ctx context.Context, userID, paymentMethodID string) error
	CreateSetupIntent(ctx context.Context, who billing.Identity) (string, error)
	InvoiceHistory(ctx context.Context, userID string) ([]billing.Invoice, error)
	SyncPrices(ctx context.Context) ([]billing.CatalogPrice, error)
	StartConnectOnboarding(ctx context.Context, who billing.Identity) (string, error)
	RefreshConnectLink(ctx context.Context, userID string) (string, error)
	ConnectStatus(ctx context.Context, userID string) (*billing.ConnectStatus, error)
}

// UserLookup fills in profile data the session token does not carry.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*identity.User, error)
}

type BillingController struct {
	billing BillingService
	users   UserLookup
	audit   repository.AuditRepository
}

// NewBillingController accepts nil users and audit.
func NewBillingController(svc BillingService, users UserLookup, audit repository.AuditRepository) *BillingController {
	return &BillingController{billing: svc, users: users, audit: audit}
}

type subscriptionActionRequest struct {
	Action  string `json:"action"`
	PriceID string `json:"priceId"`
}

type priceRequest struct {
	PriceID string `json:"priceId"`
}

type paymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

func (bc *BillingController) who(c *fiber.Ctx) billing.Identity {
	uc := usercontext.GetUserContext(c)
	who := billing.Identity{UserID: uc.UserID, Email: uc.Email, Name: uc.Name}
	if who.Email != "" || bc.users == nil {
		return who
	}
	u, err := bc.users.GetUser(c.UserContext(), uc.UserID)
	if err != nil {
		fiberlog.Warnf("[Billing] profile lookup for %s failed: %v", uc.UserID, err)
		return who
	}
	who.Email = u.PrimaryEmail()
	if who.Name == "" {
		who.Name = u.DisplayName()
	}
	return who
}

func (bc *BillingController) recordAudit(c *fiber.Ctx, action, details string) {
	if bc.audit == nil {
		return
	}
	userID := usercontext.GetUserID(c)
	entry := &models.AuditLog{
		Action:    action,
		ActorID:   userID,
		TargetID:  userID,
		Details:   details,
		IPAddress: clientIP(c),
	}
	if err := bc.audit.Create(c.UserContext(), entry); err != nil {
		fiberlog.Errorf("[Audit] failed to record %s for %s: %v", action, userID, err)
	}
}

// HandleGetSubscription returns the locally mirrored subscription state.
func (bc *BillingController) HandleGetSubscription(c *fiber.Ctx) error {
	status, err := bc.billing.SubscriptionStatus(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, "subscription status", err)
	}
	return c.JSON(status)
}

// HandleSubscriptionAction dispatches create, cancel and reactivate.
func (bc *BillingController) HandleSubscriptionAction(c *fiber.Ctx) error {
	var req subscriptionActionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	switch strings.TrimSpace(req.Action) {
	case "create":
		if strings.TrimSpace(req.PriceID) == "" {
			return jsonError(c, fiber.StatusBadRequest, "Price ID is required")
		}
		res, err := bc.createSubscription(c, req.PriceID)
		if err != nil {
			return billingError(c, "create subscription", err)
		}
		return c.JSON(fiber.Map{
			"subscriptionId": res.SubscriptionID,
			"clientSecret":   res.ClientSecret,
			"status":         res.Status,
			"updated":        res.Updated,
		})

	case "cancel":
		res, err := bc.cancelSubscription(c)
		if err != nil {
			return billingError(c, "cancel subscription", err)
		}
		return c.JSON(fiber.Map{
			"message":  "Subscription will be canceled at the end of the billing period",
			"cancelAt": res.CurrentPeriodEnd,
			"status":   res.Status,
		})

	case "reactivate":
		res, err := bc.billing.ReactivateSubscription(c.UserContext(), usercontext.GetUserID(c))
		if err != nil {
			return billingError(c, "reactivate subscription", err)
		}
		bc.recordAudit(c, models.AuditActionSubscriptionResumed, res.SubscriptionID)
		return c.JSON(fiber.Map{
			"message": "Subscription reactivated",
			"status":  res.Status,
		})

	default:
		return jsonError(c, fiber.StatusBadRequest, "Invalid action")
	}
}

func (bc *BillingController) createSubscription(c *fiber.Ctx, priceID string) (*billing.SubscriptionResult, error) {
	res, err := bc.billing.CreateSubscription(c.UserContext(), bc.who(c), strings.TrimSpace(priceID))
	if err != nil {
		return nil, err
	}
	bc.recordAudit(c, models.AuditActionSubscriptionCreated, fmt.Sprintf("%s on %s (updated=%t)", res.SubscriptionID, res.PriceID, res.Updated))
	return res, nil
}

func (bc *BillingController) cancelSubscription(c *fiber.Ctx) (*billing.SubscriptionResult, error) {
	res, err := bc.billing.CancelSubscription(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return nil, err
	}
	bc.recordAudit(c, models.AuditActionSubscriptionCanceled, res.SubscriptionID)
	return res, nil
}

// HandleGetBillingSubscription returns the provider view, or null.
func (bc *BillingController) HandleGetBillingSubscription(c *fiber.Ctx) error {
	details, err := bc.billing.SubscriptionDetails(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, "subscription details", err)
	}
	return c.JSON(fiber.Map{"subscription": details})
}

func (bc *BillingController) HandleCreateBillingSubscription(c *fiber.Ctx) error {
	var req priceRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.PriceID) == "" {
		return jsonError(c, fiber.StatusBadRequest, "Price ID is required")
	}
	res, err := bc.createSubscription(c, req.PriceID)
	if err != nil {
		return billingError(c, "create subscription", err)
	}
	return c.JSON(fiber.Map{"subscription": res, "clientSecret": res.ClientSecret})
}

func (bc *BillingController) HandleCancelBillingSubscription(c *fiber.Ctx) error {
	res, err := bc.cancelSubscription(c)
	if err != nil {
		return billingError(c, "cancel subscription", err)
	}
	return c.JSON(fiber.Map{
		"message":      "Subscription cancelled successfully",
		"subscription": res,
	})
}

func (bc *BillingController) HandleListPaymentMethods(c *fiber.Ctx) error {
	methods, err := bc.billing.PaymentMethods(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, "list payment methods", err)
	}
	return c.JSON(fiber.Map{"paymentMethods": methods})
}

func parsePaymentMethodRequest(c *fiber.Ctx) (string, error) {
	var req paymentMethodRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", billing.ErrPaymentMethodRequired
		}
	}
	if req.PaymentMethodID == "" {
		req.PaymentMethodID = c.Query("paymentMethodId")
	}
	req.PaymentMethodID = strings.TrimSpace(req.PaymentMethodID)
	if err := validate.Struct(req); err != nil {
		return "", billing.ErrPaymentMethodRequired
	}
	return req.PaymentMethodID, nil
}

func (bc *BillingController) HandleAttachPaymentMethod(c *fiber.Ctx) error {
	pmID, err := parsePaymentMethodRequest(c)
	if err != nil {
		return billingError(c, "attach payment method", err)
	}
	if err := bc.billing.AttachPaymentMethod(c.UserContext(), bc.who(c), pmID); err != nil {
		return billingError(c, "attach payment method", err)
	}
	bc.recordAudit(c, models.AuditActionPaymentMethodAdded, pmID)
	return c.JSON(fiber.Map{"success": true})
}

func (bc *BillingController) HandleDetachPaymentMethod(c *fiber.Ctx) error {
	pmID, err := parsePaymentMethodRequest(c)
	if err != nil {
		return billingError(c, "detach payment method", err)
	}
	if err := bc.billing.DetachPaymentMethod(c.UserContext(), usercontext.GetUserID(c), pmID); err != nil {
		return billingError(c, "detach payment method", err)
	}
	bc.recordAudit(c, models.AuditActionPaymentMethodRemoved, pmID)
	return c.JSON(fiber.Map{"success": true})
}

// HandleListPrices refreshes the catalog from the provider and returns the
// active prices.
func (bc *BillingController) HandleListPrices(c *fiber.Ctx) error {
	prices, err := bc.billing.SyncPrices(c.UserContext())
	if err != nil {
		return billingError(c, "list prices", err)
	}
	return c.JSON(fiber.Map{"prices": prices})
}

func (bc *BillingController) HandleCreateSetupIntent(c *fiber.Ctx) error {
	secret, err := bc.billing.CreateSetupIntent(c.UserContext(), bc.who(c))
	if err != nil {
		return billingError(c, "create setup intent", err)
	}
	return c.JSON(fiber.Map{"clientSecret": secret})
}

func (bc *BillingController) HandleInvoiceHistory(c *fiber.Ctx) error {
	invoices, err := bc.billing.InvoiceHistory(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, "invoice history", err)
	}
	return c.JSON(fiber.Map{"invoices": invoices})
}

// HandleConnectOnboarding creates (or reuses) the Connect account and
// returns a fresh onboarding link.
func (bc *BillingController) HandleConnectOnboarding(c *fiber.Ctx) error {
	url, err := bc.billing.StartConnectOnboarding(c.UserContext(), bc.who(c))
	if err != nil {
		return billingError(c, "connect onboarding", err)
	}
	bc.recordAudit(c, models.AuditActionConnectOnboarding, "")
	return c.JSON(fiber.Map{"url": url})
}

func (bc *BillingController) HandleConnectRefresh(c *fiber.Ctx) error {
	url, err := bc.billing.RefreshConnectLink(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, "connect refresh", err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func (bc *BillingController) HandleConnectStatus(c *fiber.Ctx) error {
	status, err := bc.billing.ConnectStatus(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return billingError(c, "connect status", err)
	}
	return c.JSON(status)
}
