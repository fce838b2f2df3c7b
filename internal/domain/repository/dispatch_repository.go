package repository

import (
	"context"

	"poputchik-service/internal/domain/entity"
)

// DispatchRepository is the notification outbox. Enqueue is fire-and-forget
// from the publisher's point of view; the dispatch worker drains it.
type DispatchRepository interface {
	Enqueue(ctx context.Context, req *entity.DispatchRequest) error
	FindPending(ctx context.Context, limit int) ([]*entity.DispatchRequest, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, detail string) error
}
