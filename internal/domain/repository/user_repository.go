package repository

import (
	"context"

	"poputchik-service/internal/domain/entity"
)

// UserRepository defines the interface for user lookups
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*entity.User, error)
}
