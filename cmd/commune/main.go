package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/commune-app/commune/app/controllers"
	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/authz"
	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/commune-app/commune/internal/pkg/cache"
	"github.com/commune-app/commune/internal/pkg/database"
	"github.com/commune-app/commune/internal/pkg/env"
	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/router"
	"github.com/commune-app/commune/internal/pkg/statistics"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/commune to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	ctrl, verifier := wire()
	router.InstallRouter(app, ctrl, verifier)

	return app
}

// wire builds the services from the environment. Missing provider
// credentials leave the matching service unconfigured rather than
// aborting startup; the affected endpoints answer with configuration errors.
func wire() (*controllers.Controllers, *identity.SessionVerifier) {
	db := database.GetDB()
	rdb := cache.GetClient()

	repository.InitializeFactory(db)
	repos := repository.GetGlobalFactory().GetRepositories()

	gateway := billing.NewStripeGatewayFromEnv()
	if gateway == nil {
		fiberlog.Warn("[Billing] STRIPE_SECRET_KEY is not set, billing endpoints are disabled")
	}
	billingSvc := billing.NewServiceFromDB(db, gateway, cache.NewLocker(rdb, "lock:"), billing.ConfigFromEnv())
	webhooks := billing.NewWebhookProcessor(billing.NewRepository(db), env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))

	users := identity.NewClientFromEnv()
	if !users.Configured() {
		fiberlog.Warn("[Identity] CLERK_SECRET_KEY is not set, user directory is disabled")
	}
	directory := identity.NewDirectory(users, cache.NewStore(rdb, "identity:"))

	verifier, err := identity.NewSessionVerifierFromEnv()
	if err != nil {
		log.Fatalf("invalid session verification key: %v", err)
	}
	if !verifier.Configured() {
		fiberlog.Warn("[Session] CLERK_JWT_KEY is not set, authenticated endpoints will answer 500")
	}

	policy := authz.NewAdminPolicy(repos.User)
	bootstrapAdmin(repos.User)

	stats := statistics.NewService(repos.User, repos.Post, directory, billing.ConfigFromEnv().Currency)

	ctrl := controllers.NewControllers(controllers.Dependencies{
		DB:        db,
		Repos:     repos,
		Billing:   billingSvc,
		Webhooks:  webhooks,
		Users:     users,
		Metadata:  users,
		Directory: directory,
		Policy:    policy,
		Stats:     stats,
	})
	return ctrl, verifier
}

// bootstrapAdmin grants admin to ADMIN_BOOTSTRAP_USER_ID so a fresh
// deployment has someone who can assign roles.
func bootstrapAdmin(users repository.UserRepository) {
	id := strings.TrimSpace(env.GetEnv("ADMIN_BOOTSTRAP_USER_ID", ""))
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := users.SetRole(ctx, id, models.RoleAdmin); err != nil {
		fiberlog.Errorf("[Authz] bootstrap admin %s: %v", id, err)
		return
	}
	fiberlog.Infof("[Authz] bootstrap admin granted to %s", id)
}
