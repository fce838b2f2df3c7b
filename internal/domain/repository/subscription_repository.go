package repository

import (
	"context"

	"poputchik-service/internal/domain/entity"
)

// SubscriptionRepository defines the interface for route subscriptions
type SubscriptionRepository interface {
	// Create inserts a subscription. A duplicate (user, route) pair is
	// rejected by the storage layer's uniqueness constraint.
	Create(ctx context.Context, sub *entity.Subscription) error
	FindByUser(ctx context.Context, userID uint) ([]*entity.Subscription, error)
	// FindAll returns every standing subscription, the candidate set for
	// subscription matching.
	FindAll(ctx context.Context) ([]*entity.Subscription, error)
	Delete(ctx context.Context, id, userID uint) error
}
