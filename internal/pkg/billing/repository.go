package billing

import (
	"context"
	"errors"
	"time"

	"github.com/commune-app/commune/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetOrCreateUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	SetCustomerIDIfEmpty(ctx context.Context, userID, customerID string) (bool, error)
	LinkSubscription(ctx context.Context, userID, previousID string, snap SubscriptionSnapshot) (bool, error)
	UpdateLinkedSubscription(ctx context.Context, userID string, snap SubscriptionSnapshot, startedAt time.Time) (bool, error)
	ApplySubscriptionEvent(ctx context.Context, userID string, snap SubscriptionSnapshot, eventAt time.Time) error
	ClearSubscription(ctx context.Context, userID string, eventAt time.Time) error

	UpsertPrice(ctx context.Context, price *models.StripePrice) error
	ListActivePrices(ctx context.Context, productID, currency string) ([]models.StripePrice, error)

	CreateEventIfNotExists(ctx context.Context, event *models.StripeEvent) (bool, *models.StripeEvent, error)
	MarkEventProcessed(ctx context.Context, id uint, note string) error

	GetConnectByUser(ctx context.Context, userID string) (*models.StripeConnect, error)
	CreateConnect(ctx context.Context, account *models.StripeConnect) error
	UpdateConnectFlags(ctx context.Context, accountID string, flags ConnectFlags) (bool, error)
	DeleteConnect(ctx context.Context, accountID string) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) GetOrCreateUser(ctx context.Context, userID string) (*models.User, error) {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&models.User{ID: userID, Role: models.RoleMember}).Error; err != nil {
		return nil, err
	}
	return r.GetUser(ctx, userID)
}

func (r *gormRepository) GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SetCustomerIDIfEmpty writes the customer id once; a stored id is never replaced.
func (r *gormRepository) SetCustomerIDIfEmpty(ctx context.Context, userID, customerID string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = '')", userID).
		Update("stripe_customer_id", customerID)
	return tx.RowsAffected > 0, tx.Error
}

// LinkSubscription stores a newly created subscription only while the row
// still holds previousID (empty means no subscription), so a webhook that
// linked it first is not overwritten.
func (r *gormRepository) LinkSubscription(ctx context.Context, userID, previousID string, snap SubscriptionSnapshot) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID)
	if previousID == "" {
		q = q.Where("(subscription_id IS NULL OR subscription_id = '')")
	} else {
		q = q.Where("subscription_id = ?", previousID)
	}
	tx := q.Updates(snapshotColumns(snap))
	return tx.RowsAffected > 0, tx.Error
}

// UpdateLinkedSubscription refreshes the row after a provider call unless
// the linkage changed or a webhook was applied after startedAt.
func (r *gormRepository) UpdateLinkedSubscription(ctx context.Context, userID string, snap SubscriptionSnapshot, startedAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND subscription_id = ?", userID, snap.ID).
		Where("(subscription_synced_at IS NULL OR subscription_synced_at < ?)", startedAt.UTC()).
		Updates(snapshotColumns(snap))
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) ApplySubscriptionEvent(ctx context.Context, userID string, snap SubscriptionSnapshot, eventAt time.Time) error {
	cols := snapshotColumns(snap)
	cols["subscription_event_at"] = eventAt.UTC()
	cols["subscription_synced_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(cols).Error
}

func (r *gormRepository) ClearSubscription(ctx context.Context, userID string, eventAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"subscription_id":        nil,
		"price_id":               nil,
		"subscription_status":    models.SubscriptionStatusCanceled,
		"cancel_at_period_end":   false,
		"current_period_end":     nil,
		"subscription_event_at":  eventAt.UTC(),
		"subscription_synced_at": time.Now().UTC(),
	}).Error
}

func snapshotColumns(snap SubscriptionSnapshot) map[string]interface{} {
	cols := map[string]interface{}{
		"subscription_id":      snap.ID,
		"subscription_status":  snap.Status,
		"cancel_at_period_end": snap.CancelAtPeriodEnd,
		"current_period_end":   nil,
		"price_id":             nil,
	}
	if snap.PriceID != "" {
		cols["price_id"] = snap.PriceID
	}
	if snap.CurrentPeriodEnd != nil {
		cols["current_period_end"] = snap.CurrentPeriodEnd.UTC()
	}
	return cols
}

func (r *gormRepository) UpsertPrice(ctx context.Context, price *models.StripePrice) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id",
			"active",
			"currency",
			"type",
			"unit_amount",
			"billing_interval",
			"name",
			"description",
			"updated_at",
		}),
	}).Create(price).Error
}

func (r *gormRepository) ListActivePrices(ctx context.Context, productID, currency string) ([]models.StripePrice, error) {
	var prices []models.StripePrice
	err := r.db.WithContext(ctx).
		Where("active = ? AND product_id = ? AND currency = ?", true, productID, currency).
		Order("unit_amount ASC").
		Find(&prices).Error
	return prices, err
}

func (r *gormRepository) CreateEventIfNotExists(ctx context.Context, event *models.StripeEvent) (bool, *models.StripeEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.StripeEvent
	if err := r.db.WithContext(ctx).Where("stripe_event_id = ?", event.StripeEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkEventProcessed(ctx context.Context, id uint, note string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.StripeEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":    &now,
		"processing_note": note,
	}).Error
}

func (r *gormRepository) GetConnectByUser(ctx context.Context, userID string) (*models.StripeConnect, error) {
	var c models.StripeConnect
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConnect stores the account and links it on the user row.
func (r *gormRepository) CreateConnect(ctx context.Context, account *models.StripeConnect) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		res := tx.Model(&models.User{}).Where("id = ?", account.UserID).
			Update("stripe_connect_id", account.AccountID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *gormRepository) UpdateConnectFlags(ctx context.Context, accountID string, flags ConnectFlags) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.StripeConnect{}).Where("account_id = ?", accountID).
		Updates(map[string]interface{}{
			"charges_enabled":   flags.ChargesEnabled,
			"payouts_enabled":   flags.PayoutsEnabled,
			"details_submitted": flags.DetailsSubmitted,
			"updated_at":        time.Now().UTC(),
		})
	return tx.RowsAffected > 0, tx.Error
}

// DeleteConnect removes the account and clears the user link.
func (r *gormRepository) DeleteConnect(ctx context.Context, accountID string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("account_id = ?", accountID).Delete(&models.StripeConnect{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return tx.Model(&models.User{}).Where("stripe_connect_id = ?", accountID).
			Update("stripe_connect_id", nil).Error
	})
	return deleted, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
