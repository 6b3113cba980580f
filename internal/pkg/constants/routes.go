package constants

// Frontend routes the API redirects browsers to
const (
	SignInRoute             = "/sign-in"
	CommunityDashboardRoute = "/dashboard/community"
	DiscordConnectedRoute   = CommunityDashboardRoute + "?discord=connected"
	DiscordFailedRoute      = CommunityDashboardRoute + "?error=discord"
)
