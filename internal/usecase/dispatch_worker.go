package usecase

import (
	"context"
	"time"

	"poputchik-service/internal/domain/repository"
	"poputchik-service/pkg/logger"
)

// DispatchWorker drains the notification outbox and hands each request to
// the Telegram gateway. Delivery is asynchronous and unordered; failures
// are recorded on the outbox document and never reach the publisher.
type DispatchWorker struct {
	dispatchRepo repository.DispatchRepository
	telegramRepo repository.TelegramRepository
	interval     time.Duration
	batchSize    int
	logger       logger.Logger
	done         chan struct{}
}

// NewDispatchWorker creates a new dispatch worker
func NewDispatchWorker(
	dispatchRepo repository.DispatchRepository,
	telegramRepo repository.TelegramRepository,
	interval time.Duration,
	batchSize int,
	log logger.Logger,
) *DispatchWorker {
	return &DispatchWorker{
		dispatchRepo: dispatchRepo,
		telegramRepo: telegramRepo,
		interval:     interval,
		batchSize:    batchSize,
		logger:       log,
		done:         make(chan struct{}),
	}
}

// Start runs the delivery loop until the context is cancelled
func (w *DispatchWorker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Dispatch worker started", "interval", w.interval, "batchSize", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Dispatch worker stopped")
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error("Dispatch tick failed", "error", err)
			}
		}
	}
}

// Wait blocks until the worker loop has fully exited.
func (w *DispatchWorker) Wait() {
	<-w.done
}

// Tick delivers one batch of pending dispatch requests
func (w *DispatchWorker) Tick(ctx context.Context) error {
	pending, err := w.dispatchRepo.FindPending(ctx, w.batchSize)
	if err != nil {
		return err
	}

	for _, req := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.telegramRepo.SendMatchNotification(ctx, req); err != nil {
			w.logger.Error("Failed to deliver notification",
				"dispatchId", req.ID,
				"recipientTelegramId", req.RecipientTelegramID,
				"error", err)
			if err := w.dispatchRepo.MarkFailed(ctx, req.ID, err.Error()); err != nil {
				w.logger.Error("Failed to mark dispatch failed", "dispatchId", req.ID, "error", err)
			}
			continue
		}

		if err := w.dispatchRepo.MarkSent(ctx, req.ID); err != nil {
			w.logger.Error("Failed to mark dispatch sent", "dispatchId", req.ID, "error", err)
		}
	}
	return nil
}
