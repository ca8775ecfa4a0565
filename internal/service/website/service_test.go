package website

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/service/catalog"
	"github.com/sitewave/sitewave/internal/service/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	subscriptions map[int64]*subscription.Subscription
	websites      map[int64]*Website
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subscriptions: map[int64]*subscription.Subscription{},
		websites:      map[int64]*Website{},
		nextID:        1,
	}
}

func (f *fakeStore) InTx(_ context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeStore) CurrentSubscriptionForUpdate(_ context.Context, userID int64, now time.Time) (*subscription.Subscription, error) {
	var latest *subscription.Subscription
	for _, s := range f.subscriptions {
		if s.UserID == userID && s.Current(now) {
			if latest == nil || s.ID > latest.ID {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, subscription.ErrNoActiveSubscription
	}
	return latest, nil
}

func (f *fakeStore) LatestSubscriptionForUpdate(_ context.Context, userID int64) (*subscription.Subscription, error) {
	var latest *subscription.Subscription
	for _, s := range f.subscriptions {
		if s.UserID == userID {
			if latest == nil || s.ID > latest.ID {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, subscription.ErrNoActiveSubscription
	}
	return latest, nil
}

func (f *fakeStore) SetSubscriptionQuota(_ context.Context, subID int64, created, remaining int32) error {
	s := f.subscriptions[subID]
	s.WebsitesCreated = created
	s.WebsitesRemaining = remaining
	return nil
}

func (f *fakeStore) CreateWebsite(_ context.Context, w *Website) (*Website, error) {
	stored := *w
	stored.ID = f.nextID
	f.nextID++
	f.websites[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeStore) GetWebsite(_ context.Context, id int64) (*Website, error) {
	w, ok := f.websites[id]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) ListUserWebsites(_ context.Context, userID int64) ([]*Website, error) {
	var sites []*Website
	for _, w := range f.websites {
		if w.UserID == userID {
			sites = append(sites, w)
		}
	}
	return sites, nil
}

func (f *fakeStore) ListAllWebsites(context.Context) ([]*Website, error) {
	var sites []*Website
	for _, w := range f.websites {
		sites = append(sites, w)
	}
	return sites, nil
}

func (f *fakeStore) UpdateWebsite(_ context.Context, w *Website) (*Website, error) {
	if _, ok := f.websites[w.ID]; !ok {
		return nil, ErrNotFound
	}
	f.websites[w.ID] = w
	return w, nil
}

func (f *fakeStore) DeleteWebsite(_ context.Context, id int64) error {
	if _, ok := f.websites[id]; !ok {
		return ErrNotFound
	}
	delete(f.websites, id)
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) GetTemplate(_ context.Context, id int64) (*catalog.Template, error) {
	if id != 1 {
		return nil, catalog.ErrTemplateNotFound
	}
	return &catalog.Template{ID: 1, Name: "Restaurant", FilePath: "templates/restaurant.zip", ActivityID: 2}, nil
}

func (fakeCatalog) GetActivity(_ context.Context, id int64) (*catalog.Activity, error) {
	if id != 2 {
		return nil, catalog.ErrActivityNotFound
	}
	return &catalog.Activity{ID: 2, Name: "Food"}, nil
}

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

const userID = int64(1)

func setupService(store *fakeStore) *Service {
	logger := zerolog.Nop()
	return New(store, fakeCatalog{}, &logger).WithClock(func() time.Time { return testNow })
}

func seedSubscription(store *fakeStore, remaining int32) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                100,
		UserID:            userID,
		PlanID:            7,
		EndDate:           testNow.AddDate(0, 3, 0),
		WebsitesCreated:   0,
		WebsitesRemaining: remaining,
		Status:            subscription.StatusActive,
	}
	store.subscriptions[sub.ID] = sub
	return sub
}

func validProps() CreateProps {
	return CreateProps{TemplateID: 1, ActivityID: 2, DemoLink: "https://demo.example.com/1"}
}

func TestCreateWebsite(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes one quota slot", func(t *testing.T) {
		store := newFakeStore()
		sub := seedSubscription(store, 5)
		service := setupService(store)

		result, err := service.Create(ctx, userID, validProps())
		require.NoError(t, err)

		assert.Equal(t, StatusPendingReview, result.Website.Status)
		assert.Equal(t, sub.EndDate, result.Website.EndDate, "website inherits the subscription end date")
		assert.NotEmpty(t, result.Website.ProjectPath)
		assert.Equal(t, int32(1), result.Quota.WebsitesCreated)
		assert.Equal(t, int32(4), result.Quota.WebsitesRemaining)
		assert.Equal(t, int32(4), store.subscriptions[sub.ID].WebsitesRemaining)
	})

	t.Run("requires a demo link", func(t *testing.T) {
		store := newFakeStore()
		seedSubscription(store, 5)
		service := setupService(store)

		_, err := service.Create(ctx, userID, CreateProps{TemplateID: 1, ActivityID: 2})
		assert.Error(t, err)
	})

	t.Run("requires an active subscription", func(t *testing.T) {
		service := setupService(newFakeStore())

		_, err := service.Create(ctx, userID, validProps())
		assert.ErrorIs(t, err, subscription.ErrNoActiveSubscription)
	})

	t.Run("expired subscription does not count", func(t *testing.T) {
		store := newFakeStore()
		seedSubscription(store, 5).EndDate = testNow.AddDate(0, 0, -1)
		service := setupService(store)

		_, err := service.Create(ctx, userID, validProps())
		assert.ErrorIs(t, err, subscription.ErrNoActiveSubscription)
	})

	t.Run("exhausted quota", func(t *testing.T) {
		store := newFakeStore()
		seedSubscription(store, 0)
		service := setupService(store)

		_, err := service.Create(ctx, userID, validProps())
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Empty(t, store.websites)
	})

	t.Run("unknown template or activity", func(t *testing.T) {
		store := newFakeStore()
		seedSubscription(store, 5)
		service := setupService(store)

		_, err := service.Create(ctx, userID, CreateProps{TemplateID: 9, ActivityID: 2, DemoLink: "https://x"})
		assert.ErrorIs(t, err, catalog.ErrTemplateNotFound)

		_, err = service.Create(ctx, userID, CreateProps{TemplateID: 1, ActivityID: 9, DemoLink: "https://x"})
		assert.ErrorIs(t, err, catalog.ErrActivityNotFound)
	})
}

func TestDeleteWebsite(t *testing.T) {
	ctx := context.Background()

	t.Run("restores one quota slot", func(t *testing.T) {
		store := newFakeStore()
		sub := seedSubscription(store, 5)
		service := setupService(store)

		created, err := service.Create(ctx, userID, validProps())
		require.NoError(t, err)

		quota, err := service.Delete(ctx, userID, created.Website.ID)
		require.NoError(t, err)

		assert.Equal(t, int32(0), quota.WebsitesCreated)
		assert.Equal(t, int32(5), quota.WebsitesRemaining)
		assert.Empty(t, store.websites)
		assert.Equal(t, int32(5), store.subscriptions[sub.ID].WebsitesRemaining)
	})

	t.Run("restores onto the most recent subscription", func(t *testing.T) {
		// The website may predate the current subscription; the slot lands on
		// the newest one regardless.
		store := newFakeStore()
		old := seedSubscription(store, 5)
		service := setupService(store)

		created, err := service.Create(ctx, userID, validProps())
		require.NoError(t, err)

		old.Status = subscription.StatusExpired
		newer := &subscription.Subscription{
			ID:                101,
			UserID:            userID,
			PlanID:            8,
			EndDate:           testNow.AddDate(0, 1, 0),
			WebsitesCreated:   3,
			WebsitesRemaining: 17,
			Status:            subscription.StatusActive,
		}
		store.subscriptions[newer.ID] = newer

		quota, err := service.Delete(ctx, userID, created.Website.ID)
		require.NoError(t, err)

		assert.Equal(t, int32(2), quota.WebsitesCreated)
		assert.Equal(t, int32(18), quota.WebsitesRemaining)
		assert.Equal(t, int32(4), store.subscriptions[old.ID].WebsitesRemaining, "original subscription untouched")
	})

	t.Run("created counter never goes negative", func(t *testing.T) {
		store := newFakeStore()
		seedSubscription(store, 5)
		service := setupService(store)

		w, _ := store.CreateWebsite(ctx, &Website{UserID: userID})

		quota, err := service.Delete(ctx, userID, w.ID)
		require.NoError(t, err)

		assert.Equal(t, int32(0), quota.WebsitesCreated)
		assert.Equal(t, int32(6), quota.WebsitesRemaining)
	})

	t.Run("no subscription at all leaves quota empty", func(t *testing.T) {
		store := newFakeStore()
		service := setupService(store)

		w, _ := store.CreateWebsite(ctx, &Website{UserID: userID})

		quota, err := service.Delete(ctx, userID, w.ID)
		require.NoError(t, err)

		assert.Equal(t, &QuotaState{}, quota)
		assert.Empty(t, store.websites)
	})

	t.Run("ownership is enforced", func(t *testing.T) {
		store := newFakeStore()
		seedSubscription(store, 5)
		service := setupService(store)

		w, _ := store.CreateWebsite(ctx, &Website{UserID: 42})

		_, err := service.Delete(ctx, userID, w.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
		assert.Len(t, store.websites, 1)
	})
}

func TestReviewWebsite(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedSubscription(store, 5)
	service := setupService(store)

	created, err := service.Create(ctx, userID, validProps())
	require.NoError(t, err)
	id := created.Website.ID

	t.Run("approval", func(t *testing.T) {
		w, err := service.Review(ctx, id, StatusApproved, "")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, w.Status)
		assert.False(t, w.RejectedReason.Valid)
	})

	t.Run("rejection with reason", func(t *testing.T) {
		w, err := service.Review(ctx, id, StatusRejected, "broken layout")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, w.Status)
		assert.Equal(t, "broken layout", w.RejectedReason.String)
	})

	t.Run("review never touches quota", func(t *testing.T) {
		assert.Equal(t, int32(4), store.subscriptions[100].WebsitesRemaining)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := service.Review(ctx, id, StatusDemo, "")
		assert.ErrorIs(t, err, ErrBadStatus)
	})
}

func TestGetUserWebsite(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	service := setupService(store)

	w, _ := store.CreateWebsite(ctx, &Website{UserID: 42})

	_, err := service.GetUserWebsite(ctx, userID, w.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := service.GetUserWebsite(ctx, int64(42), w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}
