package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/authz"
	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/statistics"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// StatsService computes dashboard and analytics figures.
type StatsService interface {
	Overview(ctx context.Context) (*statistics.Overview, error)
	Analytics(ctx context.Context) (*statistics.Analytics, error)
}

type AdminController struct {
	policy *authz.Policy
	users  repository.UserRepository
	audit  repository.AuditRepository
	stats  StatsService
}

func NewAdminController(policy *authz.Policy, repos *repository.Repositories, stats StatsService) *AdminController {
	return &AdminController{
		policy: policy,
		users:  repos.User,
		audit:  repos.Audit,
		stats:  stats,
	}
}

type roleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=admin premium member"`
}

// HandleAdminCheck reports whether the caller is an admin. When the policy
// cannot be evaluated it answers 503 instead of claiming false.
func (ac *AdminController) HandleAdminCheck(c *fiber.Ctx) error {
	switch ac.policy.Check(c.UserContext(), usercontext.GetUserID(c)) {
	case authz.Authorized:
		return c.JSON(fiber.Map{"isAdmin": true})
	case authz.Denied:
		return c.JSON(fiber.Map{"isAdmin": false})
	default:
		return jsonError(c, fiber.StatusServiceUnavailable, "Admin authorization is not configured")
	}
}

func (ac *AdminController) HandleAnalytics(c *fiber.Ctx) error {
	analytics, err := ac.stats.Analytics(c.UserContext())
	if err != nil {
		fiberlog.Errorf("[Admin] analytics failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load analytics")
	}
	return c.JSON(fiber.Map{"analytics": analytics})
}

func (ac *AdminController) HandleAuditLog(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	logs, err := ac.audit.List(c.UserContext(), offset, limit)
	if err != nil {
		fiberlog.Errorf("[Admin] audit list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load audit log")
	}
	total, err := ac.audit.Count(c.UserContext())
	if err != nil {
		fiberlog.Errorf("[Admin] audit count failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load audit log")
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

func (ac *AdminController) HandleGetUserRole(c *fiber.Ctx) error {
	role, err := ac.users.GetRole(c.UserContext(), c.Params("userId"))
	if err != nil {
		fiberlog.Errorf("[Admin] role lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load role")
	}
	return c.JSON(fiber.Map{"role": role})
}

// HandleUpdateUserRole is mounted behind RequireAdmin.
func (ac *AdminController) HandleUpdateUserRole(c *fiber.Ctx) error {
	target := strings.TrimSpace(c.Params("userId"))
	var req roleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid role")
	}
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid role")
	}

	ctx := c.UserContext()
	previous, err := ac.users.GetRole(ctx, target)
	if err != nil {
		fiberlog.Errorf("[Admin] role lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update role")
	}
	if err := ac.users.SetRole(ctx, target, req.Role); err != nil {
		fiberlog.Errorf("[Admin] role update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update role")
	}

	entry := &models.AuditLog{
		Action:    models.AuditActionRoleChanged,
		ActorID:   usercontext.GetUserID(c),
		TargetID:  target,
		Details:   fmt.Sprintf("Changed role from %s to %s", previous, req.Role),
		IPAddress: clientIP(c),
	}
	if err := ac.audit.Create(ctx, entry); err != nil {
		fiberlog.Errorf("[Audit] failed to record role change for %s: %v", target, err)
	}
	return c.JSON(fiber.Map{"role": req.Role})
}

// HandleDashboardOverview serves the member dashboard figures.
func (ac *AdminController) HandleDashboardOverview(c *fiber.Ctx) error {
	overview, err := ac.stats.Overview(c.UserContext())
	if errors.Is(err, identity.ErrNotConfigured) {
		return identityError(c, "dashboard overview", err)
	}
	if err != nil {
		fiberlog.Errorf("[Dashboard] overview failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load dashboard overview")
	}
	return c.JSON(overview)
}
