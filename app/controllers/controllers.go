package controllers

import (
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/authz"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Dependencies wires the controllers. Users may be nil.
type Dependencies struct {
	DB        *gorm.DB
	Repos     *repository.Repositories
	Billing   BillingService
	Webhooks  WebhookProcessor
	Users     UserLookup
	Metadata  MetadataWriter
	Directory MemberDirectory
	Policy    *authz.Policy
	Stats     StatsService
}

type Controllers struct {
	Billing     *BillingController
	Webhook     *WebhookController
	Community   *CommunityController
	Admin       *AdminController
	Integration *IntegrationController
	Health      fiber.Handler
	Policy      *authz.Policy
}

func NewControllers(deps Dependencies) *Controllers {
	return &Controllers{
		Billing:     NewBillingController(deps.Billing, deps.Users, deps.Repos.Audit),
		Webhook:     NewWebhookController(deps.Webhooks),
		Community:   NewCommunityController(deps.Repos.Post, deps.Repos.User, deps.Directory),
		Admin:       NewAdminController(deps.Policy, deps.Repos, deps.Stats),
		Integration: NewIntegrationController(deps.Metadata, deps.Repos.Audit),
		Health:      HandleHealthz(deps.DB),
		Policy:      deps.Policy,
	}
}
