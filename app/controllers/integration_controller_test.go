package controllers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/constants"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetadata struct {
	userID  string
	public  map[string]any
	private map[string]any
	err     error
}

func (r *recordedMetadata) UpdateMetadata(_ context.Context, userID string, public, private map[string]any) error {
	r.userID, r.public, r.private = userID, public, private
	return r.err
}

func discordCallback(t *testing.T, ic *IntegrationController, uc usercontext.UserContext) string {
	t.Helper()
	app := fiber.New()
	app.Get("/auth/discord/callback", asUser(uc), ic.HandleDiscordCallback)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/auth/discord/callback?code=abc", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	return resp.Header.Get(fiber.HeaderLocation)
}

func TestDiscordCallbackStoresTokensPrivately(t *testing.T) {
	db := newTestDB(t)
	meta := &recordedMetadata{}
	ic := NewIntegrationController(meta, repository.NewAuditRepository(db))
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ic.complete = func(*fiber.Ctx) (goth.User, error) {
		return goth.User{UserID: "d_42", AccessToken: "at", RefreshToken: "rt", ExpiresAt: expires}, nil
	}

	assert.Equal(t, constants.DiscordConnectedRoute, discordCallback(t, ic, ada()))
	assert.Equal(t, "user_1", meta.userID)
	assert.Equal(t, map[string]any{"discord_connected": true, "discord_user_id": "d_42"}, meta.public)
	assert.Equal(t, "at", meta.private["discord_access_token"])
	assert.Equal(t, "rt", meta.private["discord_refresh_token"])
	assert.Equal(t, "2026-01-01T00:00:00Z", meta.private["discord_token_expires_at"])
	assert.Equal(t, []string{models.AuditActionDiscordConnected}, auditActions(t, db))
}

func TestDiscordCallbackFailures(t *testing.T) {
	ok := func(*fiber.Ctx) (goth.User, error) { return goth.User{UserID: "d_1", AccessToken: "at"}, nil }

	tests := []struct {
		name     string
		uc       usercontext.UserContext
		complete func(*fiber.Ctx) (goth.User, error)
		metaErr  error
	}{
		{"anonymous", usercontext.UserContext{}, ok, nil},
		{"exchange failed", ada(), func(*fiber.Ctx) (goth.User, error) { return goth.User{}, errors.New("bad code") }, nil},
		{"no token", ada(), func(*fiber.Ctx) (goth.User, error) { return goth.User{UserID: "d_1"}, nil }, nil},
		{"metadata write failed", ada(), ok, errors.New("identity down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic := NewIntegrationController(&recordedMetadata{err: tt.metaErr}, nil)
			ic.complete = tt.complete
			assert.Equal(t, constants.DiscordFailedRoute, discordCallback(t, ic, tt.uc))
		})
	}
}
