package repository

import (
	"context"
	"time"

	"poputchik-service/internal/domain/entity"
)

// PostRepository defines the interface for post storage operations
type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	GetByID(ctx context.Context, id uint) (*entity.Post, error)
	// FindActiveByAuthor returns the author's active post, or nil when
	// there is none. Paused posts are not returned.
	FindActiveByAuthor(ctx context.Context, authorID uint) (*entity.Post, error)
	// FindActiveByRole returns all active posts of the given role, the
	// candidate set for post-to-post matching.
	FindActiveByRole(ctx context.Context, role string) ([]*entity.Post, error)
	// UpdateStatus transitions a post to the given status only when its
	// current status is in allowedFrom, and reports whether a row changed.
	UpdateStatus(ctx context.Context, id uint, allowedFrom []string, to string) (bool, error)
	SetChannelMessageID(ctx context.Context, id uint, messageID int64) error
	// ExpireOverdue transitions up to limit non-terminal posts whose
	// expiry has passed to expired, returning the posts it transitioned.
	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]*entity.Post, error)
}
