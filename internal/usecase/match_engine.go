package usecase

import (
	"context"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"
	"poputchik-service/pkg/logger"
	"poputchik-service/pkg/metrics"
	"poputchik-service/pkg/routekey"
)

// MatchEngine finds the interested parties for a newly published post and
// enqueues their notifications through the dedup ledger. Matching is
// intersection-based on route key sets: the tolerance mechanism that makes
// differently spelled place names comparable.
type MatchEngine struct {
	postRepo         repository.PostRepository
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationLogRepository
	dispatchRepo     repository.DispatchRepository
	metrics          *metrics.Metrics
	logger           logger.Logger
}

// NewMatchEngine creates a new match engine
func NewMatchEngine(
	postRepo repository.PostRepository,
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationLogRepository,
	dispatchRepo repository.DispatchRepository,
	m *metrics.Metrics,
	log logger.Logger,
) *MatchEngine {
	return &MatchEngine{
		postRepo:         postRepo,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		dispatchRepo:     dispatchRepo,
		metrics:          m,
		logger:           log,
	}
}

// FindMatchingSubscriptions returns the owners of every subscription whose
// origin and destination key sets both intersect the post's. The post's
// author is excluded and each owner appears once.
func (e *MatchEngine) FindMatchingSubscriptions(ctx context.Context, post *entity.Post) ([]uint, error) {
	subs, err := e.subscriptionRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{})
	var userIDs []uint
	for _, sub := range subs {
		if sub.UserID == post.AuthorID {
			continue
		}
		if _, ok := seen[sub.UserID]; ok {
			continue
		}
		if routekey.Intersects(sub.KeysFrom, post.KeysFrom) && routekey.Intersects(sub.KeysTo, post.KeysTo) {
			seen[sub.UserID] = struct{}{}
			userIDs = append(userIDs, sub.UserID)
		}
	}
	return userIDs, nil
}

// GetUsersToNotify filters candidates through the dedup ledger and
// resolves the survivors to full user records for message composition.
func (e *MatchEngine) GetUsersToNotify(ctx context.Context, post *entity.Post, candidateIDs []uint) ([]*entity.User, error) {
	var pending []uint
	for _, id := range candidateIDs {
		notified, err := e.notificationRepo.HasNotified(ctx, post.ID, id)
		if err != nil {
			return nil, err
		}
		if notified {
			continue
		}
		pending = append(pending, id)
	}

	if len(pending) == 0 {
		return nil, nil
	}

	byID, err := e.userRepo.GetByIDs(ctx, pending)
	if err != nil {
		return nil, err
	}

	users := make([]*entity.User, 0, len(pending))
	for _, id := range pending {
		if user, ok := byID[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// FindMatchingPosts returns other active posts of the opposite role whose
// key sets intersect the new post's on both endpoints.
func (e *MatchEngine) FindMatchingPosts(ctx context.Context, post *entity.Post) ([]*entity.Post, error) {
	candidates, err := e.postRepo.FindActiveByRole(ctx, entity.OppositeRole(post.Role))
	if err != nil {
		return nil, err
	}

	var matches []*entity.Post
	for _, other := range candidates {
		if other.ID == post.ID || other.AuthorID == post.AuthorID {
			continue
		}
		if routekey.Intersects(other.KeysFrom, post.KeysFrom) && routekey.Intersects(other.KeysTo, post.KeysTo) {
			matches = append(matches, other)
		}
	}
	return matches, nil
}

// NotifyMatches runs the full fan-out for a freshly published post: the
// subscription path first, then the post-to-post path in both directions.
// Every enqueue goes through the ledger, so a recipient reachable through
// several paths still gets at most one notification per post. Errors are
// logged and swallowed; a failed fan-out never fails the publish.
func (e *MatchEngine) NotifyMatches(ctx context.Context, post *entity.Post, author *entity.User) {
	start := time.Now()
	defer func() {
		e.metrics.MatchTime.Observe(time.Since(start).Seconds())
	}()

	e.notifySubscribers(ctx, post, author)
	e.notifyPostAuthors(ctx, post, author)
}

func (e *MatchEngine) notifySubscribers(ctx context.Context, post *entity.Post, author *entity.User) {
	candidateIDs, err := e.FindMatchingSubscriptions(ctx, post)
	if err != nil {
		e.logger.Error("Failed to match subscriptions", "postId", post.ID, "error", err)
		e.metrics.ErrorsCount.WithLabelValues("match_subscriptions").Inc()
		return
	}
	if len(candidateIDs) == 0 {
		e.logger.Debug("No matching subscriptions", "postId", post.ID)
		return
	}
	e.metrics.MatchesFound.Add(float64(len(candidateIDs)))

	users, err := e.GetUsersToNotify(ctx, post, candidateIDs)
	if err != nil {
		e.logger.Error("Failed to resolve users to notify", "postId", post.ID, "error", err)
		e.metrics.ErrorsCount.WithLabelValues("resolve_recipients").Inc()
		return
	}

	for _, user := range users {
		e.enqueueGuarded(ctx, post, author, user, entity.DispatchKindSubscription)
	}
	e.logger.Info("Subscription fan-out finished",
		"postId", post.ID,
		"candidates", len(candidateIDs),
		"notified", len(users))
}

func (e *MatchEngine) notifyPostAuthors(ctx context.Context, post *entity.Post, author *entity.User) {
	matches, err := e.FindMatchingPosts(ctx, post)
	if err != nil {
		e.logger.Error("Failed to match posts", "postId", post.ID, "error", err)
		e.metrics.ErrorsCount.WithLabelValues("match_posts").Inc()
		return
	}
	if len(matches) == 0 {
		e.logger.Debug("No matching posts", "postId", post.ID)
		return
	}
	e.metrics.MatchesFound.Add(float64(len(matches)))

	authorIDs := make([]uint, 0, len(matches))
	for _, match := range matches {
		authorIDs = append(authorIDs, match.AuthorID)
	}
	matchAuthors, err := e.userRepo.GetByIDs(ctx, authorIDs)
	if err != nil {
		e.logger.Error("Failed to resolve matching post authors", "postId", post.ID, "error", err)
		e.metrics.ErrorsCount.WithLabelValues("resolve_recipients").Inc()
		return
	}

	for _, match := range matches {
		matchAuthor, ok := matchAuthors[match.AuthorID]
		if !ok {
			continue
		}

		// Tell the counterpart about the new post, and the new author
		// about the counterpart's post. Each direction is deduplicated
		// under the post the recipient is being told about.
		e.enqueueGuarded(ctx, post, author, matchAuthor, entity.DispatchKindPost)
		e.enqueueGuarded(ctx, match, matchAuthor, author, entity.DispatchKindPost)
	}
	e.logger.Info("Post-to-post fan-out finished", "postId", post.ID, "matches", len(matches))
}

// enqueueGuarded records the (post, recipient) pair in the ledger and, if
// this is the first time, enqueues the dispatch. The ledger insert is the
// atomic claim; losing it means another pass already notified.
func (e *MatchEngine) enqueueGuarded(ctx context.Context, post *entity.Post, author *entity.User, recipient *entity.User, kind string) {
	recorded, err := e.notificationRepo.RecordNotified(ctx, post.ID, recipient.ID)
	if err != nil {
		e.logger.Error("Failed to record notification",
			"postId", post.ID,
			"recipientId", recipient.ID,
			"error", err)
		e.metrics.ErrorsCount.WithLabelValues("record_notification").Inc()
		return
	}
	if !recorded {
		e.logger.Debug("Recipient already notified", "postId", post.ID, "recipientId", recipient.ID)
		e.metrics.DuplicatesSuppressed.Inc()
		return
	}

	req := &entity.DispatchRequest{
		RecipientTelegramID: recipient.TelegramID,
		RecipientID:         recipient.ID,
		Kind:                kind,
		Post: entity.PostSnapshot{
			PostID:        post.ID,
			Role:          post.Role,
			FromPlace:     post.FromPlace,
			ToPlace:       post.ToPlace,
			DepartureTime: post.DepartureTime,
			Seats:         post.Seats,
			Price:         post.Price,
		},
		Author: entity.AuthorSnapshot{
			UserID:         author.ID,
			Name:           author.Name,
			Rating:         author.Rating,
			CarPhotoFileID: author.CarPhotoFileID,
		},
	}

	if err := e.dispatchRepo.Enqueue(ctx, req); err != nil {
		e.logger.Error("Failed to enqueue dispatch",
			"postId", post.ID,
			"recipientId", recipient.ID,
			"error", err)
		e.metrics.ErrorsCount.WithLabelValues("enqueue_dispatch").Inc()
		return
	}

	e.metrics.NotificationsQueued.Inc()
	e.logger.Info("Dispatch enqueued",
		"dispatchId", req.ID,
		"postId", post.ID,
		"recipientId", recipient.ID,
		"kind", kind)
}
