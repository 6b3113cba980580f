package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/commune-app/commune/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetRole returns the stored role; users without a local row are members.
func (r *userRepository) GetRole(ctx context.Context, id string) (string, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id", "role").Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RoleMember, nil
	}
	if err != nil {
		return "", err
	}
	return models.NormalizeRole(user.Role), nil
}

// SetRole creates the local row when missing.
func (r *userRepository) SetRole(ctx context.Context, id, role string) error {
	if !models.IsValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&models.User{ID: id, Role: models.NormalizeRole(role)}).Error
}

// RolesByIDs only contains ids that have a local row.
func (r *userRepository) RolesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	roles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return roles, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Select("id", "role").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		roles[u.ID] = models.NormalizeRole(u.Role)
	}
	return roles, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) GetSubscriptionStats(ctx context.Context) (*SubscriptionStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("subscription_status AS status, COUNT(*) AS count").
		Group("subscription_status").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription stats: %w", err)
	}

	stats := &SubscriptionStats{}
	for _, row := range rows {
		switch row.Status {
		case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
			stats.PremiumUsers += row.Count
		case models.SubscriptionStatusPastDue:
			stats.PastDueUsers += row.Count
		case models.SubscriptionStatusCanceled:
			stats.CanceledUsers += row.Count
		}
	}
	return stats, nil
}

// GetRevenue sums the cached unit amounts (minor units) of the prices
// active and trialing subscribers are on.
func (r *userRepository) GetRevenue(ctx context.Context, currency string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(stripe_prices.unit_amount), 0)").
		Joins("JOIN stripe_prices ON stripe_prices.id = users.price_id").
		Where("users.subscription_status IN ?", []string{
			models.SubscriptionStatusActive,
			models.SubscriptionStatusTrialing,
		}).
		Where("stripe_prices.currency = ?", currency).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}
