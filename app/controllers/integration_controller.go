package controllers

import (
	"context"
	"time"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/constants"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
)

// MetadataWriter stores integration data on the identity-provider user.
type MetadataWriter interface {
	UpdateMetadata(ctx context.Context, userID string, public, private map[string]any) error
}

type IntegrationController struct {
	metadata MetadataWriter
	audit    repository.AuditRepository
	complete func(c *fiber.Ctx) (goth.User, error)
}

func NewIntegrationController(metadata MetadataWriter, audit repository.AuditRepository) *IntegrationController {
	return &IntegrationController{
		metadata: metadata,
		audit:    audit,
		complete: func(c *fiber.Ctx) (goth.User, error) {
			return gothfiber.CompleteUserAuth(c)
		},
	}
}

// HandleDiscordCallback finishes the OAuth flow and stores the tokens on the
// caller's identity. Tokens go to private metadata; only the link itself is
// public.
func (ic *IntegrationController) HandleDiscordCallback(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == "" {
		return c.Redirect(constants.DiscordFailedRoute, fiber.StatusSeeOther)
	}

	u, err := ic.complete(c)
	if err != nil {
		fiberlog.Warnf("[Discord] token exchange failed for %s: %v", userID, err)
		return c.Redirect(constants.DiscordFailedRoute, fiber.StatusSeeOther)
	}
	if u.AccessToken == "" {
		fiberlog.Warnf("[Discord] token exchange for %s returned no access token", userID)
		return c.Redirect(constants.DiscordFailedRoute, fiber.StatusSeeOther)
	}

	private := map[string]any{
		"discord_access_token":  u.AccessToken,
		"discord_refresh_token": u.RefreshToken,
	}
	if !u.ExpiresAt.IsZero() {
		private["discord_token_expires_at"] = u.ExpiresAt.UTC().Format(time.RFC3339)
	}
	public := map[string]any{
		"discord_connected": true,
		"discord_user_id":   u.UserID,
	}
	if err := ic.metadata.UpdateMetadata(c.UserContext(), userID, public, private); err != nil {
		fiberlog.Errorf("[Discord] metadata update for %s failed: %v", userID, err)
		return c.Redirect(constants.DiscordFailedRoute, fiber.StatusSeeOther)
	}

	if ic.audit != nil {
		entry := &models.AuditLog{
			Action:    models.AuditActionDiscordConnected,
			ActorID:   userID,
			TargetID:  userID,
			Details:   "discord user " + u.UserID,
			IPAddress: clientIP(c),
		}
		if err := ic.audit.Create(c.UserContext(), entry); err != nil {
			fiberlog.Errorf("[Audit] failed to record discord link for %s: %v", userID, err)
		}
	}
	return c.Redirect(constants.DiscordConnectedRoute, fiber.StatusSeeOther)
}
