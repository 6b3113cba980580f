package oauth

import (
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/discord"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/commune-app/commune/internal/pkg/env"
	"github.com/commune-app/commune/internal/pkg/session"
)

// Providers that may be started through /auth/:provider.
var Providers = map[string]bool{
	"discord": true,
}

// Setup registers the Discord provider and the OAuth state store.
// It is safe to call multiple times; providers will just be re-registered.
func Setup() {
	goth.UseProviders(
		discord.New(
			env.GetEnv("DISCORD_KEY", ""),
			env.GetEnv("DISCORD_SECRET", ""),
			env.PublicURL()+"/auth/discord/callback",
			discord.ScopeIdentify, discord.ScopeEmail,
		),
	)

	gothfiber.SessionStore = session.NewOAuthStore(gothic.SessionName)
}

// Configured reports whether Discord credentials are present.
func Configured() bool {
	return env.GetEnv("DISCORD_KEY", "") != "" && env.GetEnv("DISCORD_SECRET", "") != ""
}
