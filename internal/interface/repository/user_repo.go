package repository

import (
	"context"
	"errors"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormUserRepository implements the UserRepository interface
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM user repository
func NewGormUserRepository(db *gorm.DB) repository.UserRepository {
	return &GormUserRepository{
		db: db,
	}
}

// Users GORM model for database mapping
type Users struct {
	ID             uint   `gorm:"primaryKey"`
	TelegramID     int64  `gorm:"column:telegram_id;uniqueIndex"`
	Name           string `gorm:"column:name"`
	Phone          string `gorm:"column:phone"`
	Role           string `gorm:"column:role"`
	Rating         string `gorm:"column:rating"`
	CarPhotoFileID string `gorm:"column:car_photo_file_id"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the default table name
func (Users) TableName() string {
	return "users"
}

func (m *Users) toEntity() *entity.User {
	return &entity.User{
		ID:             m.ID,
		TelegramID:     m.TelegramID,
		Name:           m.Name,
		Phone:          m.Phone,
		Role:           m.Role,
		Rating:         m.Rating,
		CarPhotoFileID: m.CarPhotoFileID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// GetByID finds a user by primary key
func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	var user Users
	result := r.db.WithContext(ctx).First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, result.Error
	}
	return user.toEntity(), nil
}

// GetByIDs resolves a batch of user ids into a lookup map
func (r *GormUserRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*entity.User, error) {
	if len(ids) == 0 {
		return map[uint]*entity.User{}, nil
	}

	var users []Users
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	byID := make(map[uint]*entity.User, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].toEntity()
	}
	return byID, nil
}
