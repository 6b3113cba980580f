package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/internal/pkg/database"
	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// asUser stands in for the session middleware.
func asUser(uc usercontext.UserContext) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if uc.UserID != "" {
			uc.IsLoggedIn = true
		}
		c.Locals(usercontext.KeyUserContext, uc)
		c.Locals(usercontext.KeyUserID, uc.UserID)
		return c.Next()
	}
}

func ada() usercontext.UserContext {
	return usercontext.UserContext{UserID: "user_1", Email: "ada@example.com", Name: "Ada"}
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func auditActions(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var logs []models.AuditLog
	require.NoError(t, db.Order("created_at asc").Find(&logs).Error)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}

func ptr[T any](v T) *T { return &v }

type stubDirectory struct {
	users []identity.User
	err   error
}

func (d stubDirectory) Users(context.Context) ([]identity.User, error) {
	return d.users, d.err
}

func (d stubDirectory) FindByUsername(_ context.Context, username string) (*identity.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	for i := range d.users {
		if strings.EqualFold(d.users[i].CommunityUsername(), username) {
			return &d.users[i], nil
		}
	}
	return nil, nil
}

type stubLookup map[string]*identity.User

func (s stubLookup) GetUser(_ context.Context, id string) (*identity.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}
