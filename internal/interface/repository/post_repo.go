package repository

import (
	"context"
	"errors"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPostRepository implements the PostRepository interface
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GORM post repository
func NewGormPostRepository(db *gorm.DB) repository.PostRepository {
	return &GormPostRepository{
		db: db,
	}
}

// Posts GORM model for database mapping. The partial unique index enforces
// the one-active-post-per-author rule at the storage layer, so concurrent or
// replayed inserts cannot leave an author with two active posts.
type Posts struct {
	ID               uint   `gorm:"primaryKey"`
	AuthorID         uint   `gorm:"column:author_id;index;uniqueIndex:idx_posts_one_active,where:status = 'active'"`
	Role             string `gorm:"column:role"`
	FromPlace        string `gorm:"column:from_place"`
	ToPlace          string `gorm:"column:to_place"`
	KeysFrom         string `gorm:"column:keys_from;type:text"`
	KeysTo           string `gorm:"column:keys_to;type:text"`
	DepartureTime    string `gorm:"column:departure_time"`
	Seats            *int   `gorm:"column:seats"`
	Price            int    `gorm:"column:price"`
	Status           string `gorm:"column:status;index:idx_posts_status_expires"`
	ChannelMessageID *int64 `gorm:"column:channel_message_id"`
	ExpiresAt        time.Time `gorm:"column:expires_at;index:idx_posts_status_expires"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName overrides the default table name
func (Posts) TableName() string {
	return "posts"
}

func (m *Posts) toEntity() *entity.Post {
	return &entity.Post{
		ID:               m.ID,
		AuthorID:         m.AuthorID,
		Role:             m.Role,
		FromPlace:        m.FromPlace,
		ToPlace:          m.ToPlace,
		KeysFrom:         decodeKeys(m.KeysFrom),
		KeysTo:           decodeKeys(m.KeysTo),
		DepartureTime:    m.DepartureTime,
		Seats:            m.Seats,
		Price:            m.Price,
		Status:           m.Status,
		ChannelMessageID: m.ChannelMessageID,
		CreatedAt:        m.CreatedAt,
		ExpiresAt:        m.ExpiresAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// Create inserts a new post and fills in the generated id and timestamps
func (r *GormPostRepository) Create(ctx context.Context, post *entity.Post) error {
	model := Posts{
		AuthorID:      post.AuthorID,
		Role:          post.Role,
		FromPlace:     post.FromPlace,
		ToPlace:       post.ToPlace,
		KeysFrom:      encodeKeys(post.KeysFrom),
		KeysTo:        encodeKeys(post.KeysTo),
		DepartureTime: post.DepartureTime,
		Seats:         post.Seats,
		Price:         post.Price,
		Status:        post.Status,
		ExpiresAt:     post.ExpiresAt,
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateKey
		}
		return result.Error
	}

	post.ID = model.ID
	post.CreatedAt = model.CreatedAt
	post.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID finds a post by primary key
func (r *GormPostRepository) GetByID(ctx context.Context, id uint) (*entity.Post, error) {
	var model Posts
	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, result.Error
	}
	return model.toEntity(), nil
}

// FindActiveByAuthor returns the author's active post, or nil when none exists
func (r *GormPostRepository) FindActiveByAuthor(ctx context.Context, authorID uint) (*entity.Post, error) {
	var model Posts
	result := r.db.WithContext(ctx).
		Where("author_id = ? AND status = ?", authorID, entity.PostStatusActive).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return model.toEntity(), nil
}

// FindActiveByRole returns all active posts of the given role
func (r *GormPostRepository) FindActiveByRole(ctx context.Context, role string) ([]*entity.Post, error) {
	var models []Posts
	result := r.db.WithContext(ctx).
		Where("role = ? AND status = ?", role, entity.PostStatusActive).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	posts := make([]*entity.Post, 0, len(models))
	for i := range models {
		posts = append(posts, models[i].toEntity())
	}
	return posts, nil
}

// UpdateStatus performs a guarded status transition
func (r *GormPostRepository) UpdateStatus(ctx context.Context, id uint, allowedFrom []string, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Posts{}).
		Where("id = ? AND status IN ?", id, allowedFrom).
		Update("status", to)
	if result.Error != nil {
		// Transitioning to active can collide with the one-active-post
		// index when the author published another post meanwhile.
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, repository.ErrDuplicateKey
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetChannelMessageID stores the channel message reference for a post
func (r *GormPostRepository) SetChannelMessageID(ctx context.Context, id uint, messageID int64) error {
	result := r.db.WithContext(ctx).
		Model(&Posts{}).
		Where("id = ?", id).
		Update("channel_message_id", messageID)
	return result.Error
}

// ExpireOverdue transitions overdue non-terminal posts to expired in one
// statement and returns the transitioned rows. Re-running it over already
// expired posts selects nothing, which makes the worker tick idempotent.
func (r *GormPostRepository) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]*entity.Post, error) {
	candidates := r.db.
		Model(&Posts{}).
		Select("id").
		Where("status IN ? AND expires_at <= ?", []string{entity.PostStatusActive, entity.PostStatusPaused}, now).
		Order("expires_at").
		Limit(limit)

	var models []Posts
	result := r.db.WithContext(ctx).
		Model(&models).
		Clauses(clause.Returning{}).
		Where("id IN (?)", candidates).
		Update("status", entity.PostStatusExpired)
	if result.Error != nil {
		return nil, result.Error
	}

	expired := make([]*entity.Post, 0, len(models))
	for i := range models {
		expired = append(expired, models[i].toEntity())
	}
	return expired, nil
}
