package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"
	"poputchik-service/pkg/logger"
	"poputchik-service/pkg/metrics"
	"poputchik-service/pkg/retry"
	"poputchik-service/pkg/routekey"
)

const (
	minSeats = 1
	maxSeats = 8
)

// CreatePostInput is the validated payload for publishing a ride offer
type CreatePostInput struct {
	AuthorID      uint
	Role          string
	FromPlace     string
	ToPlace       string
	DepartureTime string
	Seats         *int
	Price         int
}

// PostService owns the post lifecycle as seen by users: publish, pause,
// resume, withdraw, and route subscriptions. Matching runs synchronously
// inside the publish operation; notification fan-out failures never fail
// the publish.
type PostService struct {
	postRepo         repository.PostRepository
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository
	telegramRepo     repository.TelegramRepository
	matchEngine      *MatchEngine
	maxPrice         int
	lifetime         time.Duration
	metrics          *metrics.Metrics
	logger           logger.Logger
	now              func() time.Time
}

// NewPostService creates a new post service
func NewPostService(
	postRepo repository.PostRepository,
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	telegramRepo repository.TelegramRepository,
	matchEngine *MatchEngine,
	maxPrice int,
	lifetime time.Duration,
	m *metrics.Metrics,
	log logger.Logger,
) *PostService {
	return &PostService{
		postRepo:         postRepo,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		telegramRepo:     telegramRepo,
		matchEngine:      matchEngine,
		maxPrice:         maxPrice,
		lifetime:         lifetime,
		metrics:          m,
		logger:           log,
		now:              time.Now,
	}
}

// CreatePost validates and publishes a ride offer, then runs the matching
// fan-out. The post counts as published once its row commits, regardless
// of channel publishing or notification outcomes.
func (s *PostService) CreatePost(ctx context.Context, input CreatePostInput) (*entity.Post, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	keysFrom := routekey.Generate(input.FromPlace)
	keysTo := routekey.Generate(input.ToPlace)
	if len(keysFrom) == 0 || len(keysTo) == 0 {
		return nil, ErrEmptyPlace
	}

	author, err := s.userRepo.GetByID(ctx, input.AuthorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load author: %w", err)
	}

	// Paused posts do not block; only an active one does.
	var existing *entity.Post
	err = retry.Do(ctx, s.logger, "check_active_post", func() error {
		var checkErr error
		existing, checkErr = s.postRepo.FindActiveByAuthor(ctx, input.AuthorID)
		return checkErr
	})
	if err != nil {
		s.metrics.ErrorsCount.WithLabelValues("check_active_post").Inc()
		return nil, fmt.Errorf("failed to check active posts: %w", err)
	}
	if existing != nil {
		return nil, ErrActivePostExists
	}

	createdAt := s.now().UTC()
	post := &entity.Post{
		AuthorID:      input.AuthorID,
		Role:          input.Role,
		FromPlace:     input.FromPlace,
		ToPlace:       input.ToPlace,
		KeysFrom:      keysFrom,
		KeysTo:        keysTo,
		DepartureTime: input.DepartureTime,
		Seats:         input.Seats,
		Price:         input.Price,
		Status:        entity.PostStatusActive,
		ExpiresAt:     createdAt.Add(s.lifetime),
	}

	// The insert is never retried: a replay after a lost response would
	// duplicate the row. The partial unique index over active posts backs
	// the conflict check above against races and replays.
	if err := s.postRepo.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrActivePostExists
		}
		s.metrics.ErrorsCount.WithLabelValues("create_post").Inc()
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.metrics.PostsCreated.Inc()
	s.logger.Info("Post published",
		"postId", post.ID,
		"authorId", post.AuthorID,
		"role", post.Role,
		"expiresAt", post.ExpiresAt)

	s.publishToChannel(ctx, post, author)

	// Matching runs exactly once, synchronously, inside the publish
	// operation. Its errors are contained within the engine.
	s.matchEngine.NotifyMatches(ctx, post, author)

	return post, nil
}

func (s *PostService) validate(input CreatePostInput) error {
	if !entity.ValidRole(input.Role) {
		return ErrInvalidRole
	}
	if input.Price <= 0 || input.Price > s.maxPrice {
		return ErrInvalidPrice
	}
	if input.Role == entity.RoleDriver {
		if input.Seats == nil || *input.Seats < minSeats || *input.Seats > maxSeats {
			return ErrInvalidSeats
		}
	} else if input.Seats != nil {
		return ErrInvalidSeats
	}
	return nil
}

func (s *PostService) publishToChannel(ctx context.Context, post *entity.Post, author *entity.User) {
	messageID, err := s.telegramRepo.PublishToChannel(ctx, post, author)
	if err != nil {
		s.logger.Warn("Failed to publish post to channel", "postId", post.ID, "error", err)
		s.metrics.ErrorsCount.WithLabelValues("publish_channel").Inc()
		return
	}

	if err := s.postRepo.SetChannelMessageID(ctx, post.ID, messageID); err != nil {
		s.logger.Error("Failed to store channel message id", "postId", post.ID, "error", err)
		return
	}
	post.ChannelMessageID = &messageID
}

// GetActivePost returns the author's current active post, or nil
func (s *PostService) GetActivePost(ctx context.Context, authorID uint) (*entity.Post, error) {
	return s.postRepo.FindActiveByAuthor(ctx, authorID)
}

// PausePost suspends an active post. Pausing does not extend the expiry
// deadline.
func (s *PostService) PausePost(ctx context.Context, postID, userID uint) error {
	return s.transition(ctx, postID, userID, []string{entity.PostStatusActive}, entity.PostStatusPaused)
}

// ResumePost reactivates a paused post, unless the owner has published
// another active post in the meantime.
func (s *PostService) ResumePost(ctx context.Context, postID, userID uint) error {
	active, err := s.postRepo.FindActiveByAuthor(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check active posts: %w", err)
	}
	if active != nil && active.ID != postID {
		return ErrActivePostExists
	}
	return s.transition(ctx, postID, userID, []string{entity.PostStatusPaused}, entity.PostStatusActive)
}

// WithdrawPost removes a post from circulation permanently. The status
// change is the source of truth; the channel cleanup is best-effort.
func (s *PostService) WithdrawPost(ctx context.Context, postID, userID uint) error {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return err
	}

	if err := s.transition(ctx, postID, userID, []string{entity.PostStatusActive, entity.PostStatusPaused}, entity.PostStatusDeleted); err != nil {
		return err
	}

	if post.ChannelMessageID != nil {
		if err := s.telegramRepo.UpdateChannelMessage(ctx, *post.ChannelMessageID, "❌ <b>Объявление снято автором</b>"); err != nil {
			s.logger.Warn("Failed to update channel message for withdrawn post",
				"postId", postID, "error", err)
		}
	}
	return nil
}

func (s *PostService) transition(ctx context.Context, postID, userID uint, allowedFrom []string, to string) error {
	post, err := s.loadOwned(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.Terminal() {
		return ErrPostTerminal
	}

	ok, err := s.postRepo.UpdateStatus(ctx, postID, allowedFrom, to)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return ErrActivePostExists
		}
		s.metrics.ErrorsCount.WithLabelValues("update_status").Inc()
		return fmt.Errorf("failed to update post status: %w", err)
	}
	if !ok {
		// The guard matched no row: either the post is already in a state
		// the transition does not start from, or the lifecycle worker
		// expired it between the read and the update.
		current, readErr := s.postRepo.GetByID(ctx, postID)
		if readErr == nil && !current.Terminal() {
			return ErrInvalidTransition
		}
		return ErrPostTerminal
	}

	s.logger.Info("Post status changed", "postId", postID, "status", to)
	return nil
}

func (s *PostService) loadOwned(ctx context.Context, postID, userID uint) (*entity.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post.AuthorID != userID {
		return nil, ErrNotPostOwner
	}
	return post, nil
}

// Subscribe creates a standing route subscription for the user. The same
// route twice is a conflict, not a second subscription.
func (s *PostService) Subscribe(ctx context.Context, userID uint, fromText, toText string) (*entity.Subscription, error) {
	keysFrom := routekey.Generate(fromText)
	keysTo := routekey.Generate(toText)
	if len(keysFrom) == 0 || len(keysTo) == 0 {
		return nil, ErrEmptyPlace
	}

	sub := &entity.Subscription{
		UserID:   userID,
		KeysFrom: keysFrom,
		KeysTo:   keysTo,
		FromText: fromText,
		ToText:   toText,
	}

	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateSubscription
		}
		s.metrics.ErrorsCount.WithLabelValues("create_subscription").Inc()
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.logger.Info("Subscription created", "subscriptionId", sub.ID, "userId", userID)
	return sub, nil
}

// ListSubscriptions returns the user's standing subscriptions
func (s *PostService) ListSubscriptions(ctx context.Context, userID uint) ([]*entity.Subscription, error) {
	return s.subscriptionRepo.FindByUser(ctx, userID)
}

// Unsubscribe deletes one of the user's subscriptions
func (s *PostService) Unsubscribe(ctx context.Context, subscriptionID, userID uint) error {
	err := s.subscriptionRepo.Delete(ctx, subscriptionID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSubscriptionNotFound
	}
	return err
}
