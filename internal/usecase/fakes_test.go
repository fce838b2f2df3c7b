package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"
	"poputchik-service/pkg/metrics"
)

// Prometheus collectors register globally, so the test binary shares one
// metrics instance across all usecase tests.
var testMetrics = metrics.NewMetrics("poputchik_test")

type fakePostRepo struct {
	mu     sync.Mutex
	nextID uint
	posts  []*entity.Post

	// Failure injection, consumed on first use.
	createErr     error
	createCommits bool
	findActiveErr error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{nextID: 1}
}

func (r *fakePostRepo) Create(_ context.Context, post *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// One active post per author, like the partial unique index.
	if post.Status == entity.PostStatusActive {
		for _, p := range r.posts {
			if p.AuthorID == post.AuthorID && p.Status == entity.PostStatusActive {
				return repository.ErrDuplicateKey
			}
		}
	}

	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		if r.createCommits {
			r.commitLocked(post)
		}
		return err
	}

	r.commitLocked(post)
	return nil
}

func (r *fakePostRepo) commitLocked(post *entity.Post) {
	post.ID = r.nextID
	r.nextID++
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	clone := *post
	r.posts = append(r.posts, &clone)
}

func (r *fakePostRepo) GetByID(_ context.Context, id uint) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePostRepo) FindActiveByAuthor(_ context.Context, authorID uint) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findActiveErr != nil {
		err := r.findActiveErr
		r.findActiveErr = nil
		return nil, err
	}
	for _, p := range r.posts {
		if p.AuthorID == authorID && p.Status == entity.PostStatusActive {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakePostRepo) FindActiveByRole(_ context.Context, role string) ([]*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Post
	for _, p := range r.posts {
		if p.Role == role && p.Status == entity.PostStatusActive {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakePostRepo) UpdateStatus(_ context.Context, id uint, allowedFrom []string, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ID != id {
			continue
		}
		for _, from := range allowedFrom {
			if p.Status == from {
				if to == entity.PostStatusActive {
					for _, other := range r.posts {
						if other.ID != p.ID && other.AuthorID == p.AuthorID && other.Status == entity.PostStatusActive {
							return false, repository.ErrDuplicateKey
						}
					}
				}
				p.Status = to
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (r *fakePostRepo) SetChannelMessageID(_ context.Context, id uint, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ID == id {
			p.ChannelMessageID = &messageID
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakePostRepo) ExpireOverdue(_ context.Context, now time.Time, limit int) ([]*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]*entity.Post, 0)
	for _, p := range r.posts {
		if (p.Status == entity.PostStatusActive || p.Status == entity.PostStatusPaused) && p.Overdue(now) {
			candidates = append(candidates, p)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	expired := make([]*entity.Post, 0, len(candidates))
	for _, p := range candidates {
		p.Status = entity.PostStatusExpired
		clone := *p
		expired = append(expired, &clone)
	}
	return expired, nil
}

type fakeSubscriptionRepo struct {
	mu     sync.Mutex
	nextID uint
	subs   []*entity.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{nextID: 1}
}

func routeKeyOf(sub *entity.Subscription) string {
	from := append([]string(nil), sub.KeysFrom...)
	to := append([]string(nil), sub.KeysTo...)
	sort.Strings(from)
	sort.Strings(to)
	return fmt.Sprintf("%d|%s|%s", sub.UserID, strings.Join(from, ","), strings.Join(to, ","))
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := routeKeyOf(sub)
	for _, existing := range r.subs {
		if routeKeyOf(existing) == key {
			return repository.ErrDuplicateKey
		}
	}
	sub.ID = r.nextID
	r.nextID++
	clone := *sub
	r.subs = append(r.subs, &clone)
	return nil
}

func (r *fakeSubscriptionRepo) FindByUser(_ context.Context, userID uint) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.UserID == userID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) FindAll(_ context.Context) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, id, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.ID == id && s.UserID == userID {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeUserRepo struct {
	users map[uint]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	byID := make(map[uint]*entity.User)
	for _, u := range users {
		byID[u.ID] = u
	}
	return &fakeUserRepo{users: byID}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*entity.User, error) {
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []uint) (map[uint]*entity.User, error) {
	out := make(map[uint]*entity.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			clone := *u
			out[id] = &clone
		}
	}
	return out, nil
}

type pair struct {
	postID      uint
	recipientID uint
}

type fakeLedger struct {
	mu      sync.Mutex
	entries map[pair]struct{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[pair]struct{})}
}

func (r *fakeLedger) HasNotified(_ context.Context, postID, recipientID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[pair{postID, recipientID}]
	return ok, nil
}

func (r *fakeLedger) RecordNotified(_ context.Context, postID, recipientID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pair{postID, recipientID}
	if _, ok := r.entries[key]; ok {
		return false, nil
	}
	r.entries[key] = struct{}{}
	return true, nil
}

type fakeDispatchRepo struct {
	mu       sync.Mutex
	nextID   int
	requests []*entity.DispatchRequest
}

func newFakeDispatchRepo() *fakeDispatchRepo {
	return &fakeDispatchRepo{}
}

func (r *fakeDispatchRepo) Enqueue(_ context.Context, req *entity.DispatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if req.ID == "" {
		req.ID = fmt.Sprintf("dispatch-%d", r.nextID)
	}
	if req.Status == "" {
		req.Status = entity.DispatchStatusPending
	}
	clone := *req
	r.requests = append(r.requests, &clone)
	return nil
}

func (r *fakeDispatchRepo) FindPending(_ context.Context, limit int) ([]*entity.DispatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DispatchRequest
	for _, req := range r.requests {
		if req.Status != entity.DispatchStatusPending {
			continue
		}
		clone := *req
		out = append(out, &clone)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeDispatchRepo) MarkSent(_ context.Context, id string) error {
	return r.setStatus(id, entity.DispatchStatusSent, "")
}

func (r *fakeDispatchRepo) MarkFailed(_ context.Context, id string, detail string) error {
	return r.setStatus(id, entity.DispatchStatusFailed, detail)
}

func (r *fakeDispatchRepo) setStatus(id, status, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.ID == id {
			req.Status = status
			req.ErrorDetail = detail
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeDispatchRepo) all() []*entity.DispatchRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.DispatchRequest, 0, len(r.requests))
	for _, req := range r.requests {
		clone := *req
		out = append(out, &clone)
	}
	return out
}

type fakeTelegramRepo struct {
	mu             sync.Mutex
	sendErr        error
	failRecipient  int64
	publishErr     error
	updateErr      error
	sent           []*entity.DispatchRequest
	channelUpdates []int64
	nextMessageID  int64
}

func newFakeTelegramRepo() *fakeTelegramRepo {
	return &fakeTelegramRepo{nextMessageID: 100}
}

func (r *fakeTelegramRepo) SendMatchNotification(_ context.Context, req *entity.DispatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	if r.failRecipient != 0 && req.RecipientTelegramID == r.failRecipient {
		return fmt.Errorf("chat %d is unreachable", r.failRecipient)
	}
	clone := *req
	r.sent = append(r.sent, &clone)
	return nil
}

func (r *fakeTelegramRepo) PublishToChannel(_ context.Context, _ *entity.Post, _ *entity.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishErr != nil {
		return 0, r.publishErr
	}
	r.nextMessageID++
	return r.nextMessageID, nil
}

func (r *fakeTelegramRepo) UpdateChannelMessage(_ context.Context, messageID int64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.channelUpdates = append(r.channelUpdates, messageID)
	return nil
}
