package repository

import (
	"context"

	"github.com/commune-app/commune/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetRole(ctx context.Context, id string) (string, error)
	SetRole(ctx context.Context, id, role string) error
	RolesByIDs(ctx context.Context, ids []string) (map[string]string, error)
	Count(ctx context.Context) (int64, error)
	GetSubscriptionStats(ctx context.Context) (*SubscriptionStats, error)
	GetRevenue(ctx context.Context, currency string) (int64, error)
}

// PostRepository defines the interface for community post operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	List(ctx context.Context, offset, limit int) ([]models.Post, error)
	Count(ctx context.Context) (int64, error)
}

// AuditRepository defines the interface for audit log operations
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, offset, limit int) ([]models.AuditLog, error)
	Count(ctx context.Context) (int64, error)
}

// SubscriptionStats counts local users by subscription state.
type SubscriptionStats struct {
	PremiumUsers  int64 `json:"premiumUsers"`
	PastDueUsers  int64 `json:"pastDueUsers"`
	CanceledUsers int64 `json:"canceledUsers"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User  UserRepository
	Post  PostRepository
	Audit AuditRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Post:  NewPostRepository(db),
		Audit: NewAuditRepository(db),
	}
}

// clampPage keeps list queries bounded.
func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
