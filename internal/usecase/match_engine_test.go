package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/pkg/logger"
	"poputchik-service/pkg/routekey"
)

func newTestMatchEngine(posts *fakePostRepo, subs *fakeSubscriptionRepo, users *fakeUserRepo, ledger *fakeLedger, dispatch *fakeDispatchRepo) *MatchEngine {
	return NewMatchEngine(posts, subs, users, ledger, dispatch, testMetrics, logger.NewNopLogger())
}

func makePost(id, authorID uint, role, from, to string) *entity.Post {
	return &entity.Post{
		ID:        id,
		AuthorID:  authorID,
		Role:      role,
		FromPlace: from,
		ToPlace:   to,
		KeysFrom:  routekey.Generate(from),
		KeysTo:    routekey.Generate(to),
		Price:     300,
		Status:    entity.PostStatusActive,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestFindMatchingSubscriptions(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptionRepo()

	// Matching route, different owner.
	require.NoError(t, subs.Create(ctx, &entity.Subscription{
		UserID:   2,
		KeysFrom: routekey.Generate("Дордой"),
		KeysTo:   routekey.Generate("Аламедин базар"),
	}))
	// Origin matches, destination does not.
	require.NoError(t, subs.Create(ctx, &entity.Subscription{
		UserID:   3,
		KeysFrom: routekey.Generate("Дордой"),
		KeysTo:   routekey.Generate("Политех"),
	}))
	// The post author's own subscription.
	require.NoError(t, subs.Create(ctx, &entity.Subscription{
		UserID:   1,
		KeysFrom: routekey.Generate("Дордой"),
		KeysTo:   routekey.Generate("Аламедин базар"),
	}))
	// Second matching subscription from the same owner must not double.
	require.NoError(t, subs.Create(ctx, &entity.Subscription{
		UserID:   2,
		KeysFrom: routekey.Generate("дордой рынок"),
		KeysTo:   routekey.Generate("аламедин"),
	}))

	engine := newTestMatchEngine(newFakePostRepo(), subs, newFakeUserRepo(), newFakeLedger(), newFakeDispatchRepo())
	post := makePost(10, 1, entity.RoleDriver, "дордой", "аламедин Базар")

	got, err := engine.FindMatchingSubscriptions(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, got)
}

func TestGetUsersToNotify_FiltersLedger(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo(
		&entity.User{ID: 2, TelegramID: 200, Name: "Azamat"},
		&entity.User{ID: 3, TelegramID: 300, Name: "Nurlan"},
	)
	ledger := newFakeLedger()
	engine := newTestMatchEngine(newFakePostRepo(), newFakeSubscriptionRepo(), users, ledger, newFakeDispatchRepo())

	post := makePost(10, 1, entity.RolePassenger, "Ош базар", "ЦУМ")

	// User 3 was already notified for this post.
	_, err := ledger.RecordNotified(ctx, post.ID, 3)
	require.NoError(t, err)

	got, err := engine.GetUsersToNotify(ctx, post, []uint{2, 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint(2), got[0].ID)
}

func TestFindMatchingPosts(t *testing.T) {
	ctx := context.Background()
	posts := newFakePostRepo()

	// Opposite role, intersecting on both endpoints.
	match := makePost(0, 2, entity.RolePassenger, "Дордой", "Аламедин базар")
	require.NoError(t, posts.Create(ctx, match))
	// Same role.
	require.NoError(t, posts.Create(ctx, makePost(0, 3, entity.RoleDriver, "Дордой", "Аламедин базар")))
	// Opposite role, destination differs.
	require.NoError(t, posts.Create(ctx, makePost(0, 4, entity.RolePassenger, "Дордой", "Политех")))
	// Opposite role but same author as the new post.
	require.NoError(t, posts.Create(ctx, makePost(0, 1, entity.RolePassenger, "дордой", "аламедин базар")))

	engine := newTestMatchEngine(posts, newFakeSubscriptionRepo(), newFakeUserRepo(), newFakeLedger(), newFakeDispatchRepo())
	post := makePost(99, 1, entity.RoleDriver, "дордой", "аламедин Базар")

	got, err := engine.FindMatchingPosts(ctx, post)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, match.ID, got[0].ID)
	assert.Equal(t, uint(2), got[0].AuthorID)
}

// The scenario from the product side: A subscribes to Дордой → Аламедин
// базар, B publishes the same route with different casing. A is matched
// and gets exactly one enqueue, and a repeated matching pass adds nothing.
func TestNotifyMatches_SubscriptionScenario(t *testing.T) {
	ctx := context.Background()

	userA := &entity.User{ID: 2, TelegramID: 200, Name: "A", Rating: "5.0"}
	userB := &entity.User{ID: 1, TelegramID: 100, Name: "B", Rating: "4.8"}
	users := newFakeUserRepo(userA, userB)

	subs := newFakeSubscriptionRepo()
	require.NoError(t, subs.Create(ctx, &entity.Subscription{
		UserID:   userA.ID,
		KeysFrom: routekey.Generate("Дордой"),
		KeysTo:   routekey.Generate("Аламедин базар"),
	}))

	dispatch := newFakeDispatchRepo()
	engine := newTestMatchEngine(newFakePostRepo(), subs, users, newFakeLedger(), dispatch)

	post := makePost(10, userB.ID, entity.RolePassenger, "дордой", "аламедин Базар")
	engine.NotifyMatches(ctx, post, userB)

	requests := dispatch.all()
	require.Len(t, requests, 1)
	assert.Equal(t, userA.TelegramID, requests[0].RecipientTelegramID)
	assert.Equal(t, entity.DispatchKindSubscription, requests[0].Kind)
	assert.Equal(t, post.ID, requests[0].Post.PostID)

	// A retried publish transaction runs the same pass again.
	engine.NotifyMatches(ctx, post, userB)
	assert.Len(t, dispatch.all(), 1, "second pass must not enqueue again")
}

func TestNotifyMatches_PostToPostBothDirections(t *testing.T) {
	ctx := context.Background()

	driver := &entity.User{ID: 1, TelegramID: 100, Name: "Driver", Rating: "4.9"}
	passenger := &entity.User{ID: 2, TelegramID: 200, Name: "Passenger", Rating: "5.0"}
	users := newFakeUserRepo(driver, passenger)

	posts := newFakePostRepo()
	passengerPost := makePost(0, passenger.ID, entity.RolePassenger, "Ош базар", "ЦУМ")
	require.NoError(t, posts.Create(ctx, passengerPost))

	dispatch := newFakeDispatchRepo()
	ledger := newFakeLedger()
	engine := newTestMatchEngine(posts, newFakeSubscriptionRepo(), users, ledger, dispatch)

	driverPost := makePost(0, driver.ID, entity.RoleDriver, "ош базар", "цум")
	require.NoError(t, posts.Create(ctx, driverPost))

	engine.NotifyMatches(ctx, driverPost, driver)

	requests := dispatch.all()
	require.Len(t, requests, 2)

	byRecipient := map[int64]*entity.DispatchRequest{}
	for _, req := range requests {
		byRecipient[req.RecipientTelegramID] = req
	}

	// The passenger hears about the new driver post.
	toPassenger := byRecipient[passenger.TelegramID]
	require.NotNil(t, toPassenger)
	assert.Equal(t, driverPost.ID, toPassenger.Post.PostID)
	assert.Equal(t, entity.DispatchKindPost, toPassenger.Kind)

	// The driver hears about the existing passenger post.
	toDriver := byRecipient[driver.TelegramID]
	require.NotNil(t, toDriver)
	assert.Equal(t, passengerPost.ID, toDriver.Post.PostID)

	// Re-running the pass changes nothing in either direction.
	engine.NotifyMatches(ctx, driverPost, driver)
	assert.Len(t, dispatch.all(), 2)
}

// A recipient reachable through both a subscription and their own matching
// post still gets exactly one notification about the new post.
func TestNotifyMatches_TwoPathsOneNotification(t *testing.T) {
	ctx := context.Background()

	author := &entity.User{ID: 1, TelegramID: 100, Name: "Author", Rating: "4.7"}
	other := &entity.User{ID: 2, TelegramID: 200, Name: "Other", Rating: "5.0"}
	users := newFakeUserRepo(author, other)

	subs := newFakeSubscriptionRepo()
	require.NoError(t, subs.Create(ctx, &entity.Subscription{
		UserID:   other.ID,
		KeysFrom: routekey.Generate("Дордой"),
		KeysTo:   routekey.Generate("Аламедин базар"),
	}))

	posts := newFakePostRepo()
	otherPost := makePost(0, other.ID, entity.RolePassenger, "Дордой", "Аламедин базар")
	require.NoError(t, posts.Create(ctx, otherPost))

	dispatch := newFakeDispatchRepo()
	engine := newTestMatchEngine(posts, subs, users, newFakeLedger(), dispatch)

	newPost := makePost(0, author.ID, entity.RoleDriver, "дордой", "аламедин базар")
	require.NoError(t, posts.Create(ctx, newPost))

	engine.NotifyMatches(ctx, newPost, author)

	aboutNewPost := 0
	for _, req := range dispatch.all() {
		if req.RecipientID == other.ID && req.Post.PostID == newPost.ID {
			aboutNewPost++
		}
	}
	assert.Equal(t, 1, aboutNewPost,
		"recipient matched via subscription and via own post must hear about the new post once")
}
