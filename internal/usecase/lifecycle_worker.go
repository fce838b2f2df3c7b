package usecase

import (
	"context"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"
	"poputchik-service/pkg/logger"
	"poputchik-service/pkg/metrics"
)

// LifecycleWorker expires overdue posts on a fixed interval. It never runs
// matching and never touches the dedup ledger; the only thing it owns is
// the status transition to expired.
type LifecycleWorker struct {
	postRepo     repository.PostRepository
	telegramRepo repository.TelegramRepository
	interval     time.Duration
	batchSize    int
	metrics      *metrics.Metrics
	logger       logger.Logger
	now          func() time.Time
	done         chan struct{}
}

// NewLifecycleWorker creates a new lifecycle worker
func NewLifecycleWorker(
	postRepo repository.PostRepository,
	telegramRepo repository.TelegramRepository,
	interval time.Duration,
	batchSize int,
	m *metrics.Metrics,
	log logger.Logger,
) *LifecycleWorker {
	return &LifecycleWorker{
		postRepo:     postRepo,
		telegramRepo: telegramRepo,
		interval:     interval,
		batchSize:    batchSize,
		metrics:      m,
		logger:       log,
		now:          time.Now,
		done:         make(chan struct{}),
	}
}

// Start runs the expiration loop until the context is cancelled. An
// in-flight tick finishes before the loop exits. Tick failures are logged
// and the loop continues on the next interval.
func (w *LifecycleWorker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Lifecycle worker started", "interval", w.interval, "batchSize", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Lifecycle worker stopped")
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error("Expiration tick failed", "error", err)
				w.metrics.ErrorsCount.WithLabelValues("expire_tick").Inc()
			}
		}
	}
}

// Wait blocks until the worker loop has fully exited.
func (w *LifecycleWorker) Wait() {
	<-w.done
}

// Tick runs one expiration pass. It is idempotent: already-expired posts
// are never re-selected, and a pass interrupted before commit leaves the
// posts eligible for the next tick.
func (w *LifecycleWorker) Tick(ctx context.Context) error {
	expired, err := w.postRepo.ExpireOverdue(ctx, w.now().UTC(), w.batchSize)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	w.metrics.PostsExpired.Add(float64(len(expired)))
	w.logger.Info("Posts expired", "count", len(expired))

	// The status transition above is already committed; updating the
	// published channel copy is best-effort and must not undo it.
	for _, post := range expired {
		if post.ChannelMessageID == nil {
			continue
		}
		if err := w.telegramRepo.UpdateChannelMessage(ctx, *post.ChannelMessageID, expiredChannelText(post)); err != nil {
			w.logger.Warn("Failed to update channel message for expired post",
				"postId", post.ID,
				"messageId", *post.ChannelMessageID,
				"error", err)
		}
	}
	return nil
}

func expiredChannelText(post *entity.Post) string {
	return "⌛ <b>Объявление истекло</b>\n\n📍 " + post.FromPlace + " → " + post.ToPlace
}
