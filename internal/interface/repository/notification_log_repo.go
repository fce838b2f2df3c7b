package repository

import (
	"context"
	"errors"
	"time"

	"poputchik-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormNotificationLogRepository implements the NotificationLogRepository
// interface. The composite unique index is the at-most-once guarantee: a
// losing concurrent insert comes back as a duplicate-key error and is
// reported as "already notified".
type GormNotificationLogRepository struct {
	db *gorm.DB
}

// NewGormNotificationLogRepository creates a new GORM notification log repository
func NewGormNotificationLogRepository(db *gorm.DB) repository.NotificationLogRepository {
	return &GormNotificationLogRepository{
		db: db,
	}
}

// NotificationLogs GORM model for database mapping
type NotificationLogs struct {
	ID          uint `gorm:"primaryKey"`
	PostID      uint `gorm:"column:post_id;uniqueIndex:idx_notification_logs_pair"`
	RecipientID uint `gorm:"column:recipient_id;uniqueIndex:idx_notification_logs_pair"`
	CreatedAt   time.Time
}

// TableName overrides the default table name
func (NotificationLogs) TableName() string {
	return "notification_logs"
}

// HasNotified reports whether an entry exists for the (post, recipient) pair
func (r *GormNotificationLogRepository) HasNotified(ctx context.Context, postID, recipientID uint) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&NotificationLogs{}).
		Where("post_id = ? AND recipient_id = ?", postID, recipientID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// RecordNotified inserts the dedup entry. Returns false when the pair was
// already recorded, which callers treat as "skip this recipient".
func (r *GormNotificationLogRepository) RecordNotified(ctx context.Context, postID, recipientID uint) (bool, error) {
	model := NotificationLogs{
		PostID:      postID,
		RecipientID: recipientID,
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return true, nil
}
