package repository

import (
	"context"
	"errors"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormSubscriptionRepository implements the SubscriptionRepository interface
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GORM subscription repository
func NewGormSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &GormSubscriptionRepository{
		db: db,
	}
}

// Subscriptions GORM model for database mapping. The composite unique
// index rejects duplicate (user, route) pairs; keys are stored in
// canonical sorted form so equal sets compare equal.
type Subscriptions struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"column:user_id;uniqueIndex:idx_subscriptions_route"`
	KeysFrom  string `gorm:"column:keys_from;type:text;uniqueIndex:idx_subscriptions_route"`
	KeysTo    string `gorm:"column:keys_to;type:text;uniqueIndex:idx_subscriptions_route"`
	FromText  string `gorm:"column:from_text"`
	ToText    string `gorm:"column:to_text"`
	CreatedAt time.Time
}

// TableName overrides the default table name
func (Subscriptions) TableName() string {
	return "subscriptions"
}

func (m *Subscriptions) toEntity() *entity.Subscription {
	return &entity.Subscription{
		ID:        m.ID,
		UserID:    m.UserID,
		KeysFrom:  decodeKeys(m.KeysFrom),
		KeysTo:    decodeKeys(m.KeysTo),
		FromText:  m.FromText,
		ToText:    m.ToText,
		CreatedAt: m.CreatedAt,
	}
}

// Create inserts a subscription. A duplicate route for the same user
// surfaces as repository.ErrDuplicateKey.
func (r *GormSubscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	model := Subscriptions{
		UserID:   sub.UserID,
		KeysFrom: encodeKeys(sub.KeysFrom),
		KeysTo:   encodeKeys(sub.KeysTo),
		FromText: sub.FromText,
		ToText:   sub.ToText,
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateKey
		}
		return result.Error
	}

	sub.ID = model.ID
	sub.CreatedAt = model.CreatedAt
	return nil
}

// FindByUser returns the user's subscriptions, newest first
func (r *GormSubscriptionRepository) FindByUser(ctx context.Context, userID uint) ([]*entity.Subscription, error) {
	var models []Subscriptions
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	subs := make([]*entity.Subscription, 0, len(models))
	for i := range models {
		subs = append(subs, models[i].toEntity())
	}
	return subs, nil
}

// FindAll returns every standing subscription
func (r *GormSubscriptionRepository) FindAll(ctx context.Context) ([]*entity.Subscription, error) {
	var models []Subscriptions
	result := r.db.WithContext(ctx).Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	subs := make([]*entity.Subscription, 0, len(models))
	for i := range models {
		subs = append(subs, models[i].toEntity())
	}
	return subs, nil
}

// Delete removes a subscription owned by the given user
func (r *GormSubscriptionRepository) Delete(ctx context.Context, id, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Subscriptions{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
