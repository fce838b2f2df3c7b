package repository

import (
	"context"

	"poputchik-service/internal/domain/entity"
)

// TelegramRepository handles outbound delivery through the Telegram Bot API.
// All operations are best-effort from the core's point of view.
type TelegramRepository interface {
	SendMatchNotification(ctx context.Context, req *entity.DispatchRequest) error
	// PublishToChannel posts the offer to the public channel and returns
	// the channel message id for later updates.
	PublishToChannel(ctx context.Context, post *entity.Post, author *entity.User) (int64, error)
	UpdateChannelMessage(ctx context.Context, messageID int64, text string) error
}
