package subscription

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/service/payment"
	"github.com/sitewave/sitewave/internal/service/plan"
	"github.com/sitewave/sitewave/internal/service/promo"
	"github.com/sitewave/sitewave/internal/service/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps all state in memory and emulates transaction semantics:
// mutations inside a failed InTx closure are rolled back wholesale.
type fakeStore struct {
	payments      map[int64]*payment.Payment
	plans         map[int64]*plan.Plan
	users         map[int64]*user.User
	subscriptions map[int64]*Subscription
	codes         map[string]*promo.Code
	usages        map[[2]int64]bool
	nextSubID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments:      map[int64]*payment.Payment{},
		plans:         map[int64]*plan.Plan{},
		users:         map[int64]*user.User{},
		subscriptions: map[int64]*Subscription{},
		codes:         map[string]*promo.Code{},
		usages:        map[[2]int64]bool{},
		nextSubID:     1,
	}
}

func (f *fakeStore) snapshot() *fakeStore {
	clone := newFakeStore()
	clone.nextSubID = f.nextSubID
	for id, p := range f.payments {
		cp := *p
		clone.payments[id] = &cp
	}
	for id, p := range f.plans {
		cp := *p
		clone.plans[id] = &cp
	}
	for id, u := range f.users {
		cu := *u
		clone.users[id] = &cu
	}
	for id, s := range f.subscriptions {
		cs := *s
		clone.subscriptions[id] = &cs
	}
	for text, c := range f.codes {
		cc := *c
		clone.codes[text] = &cc
	}
	for k, v := range f.usages {
		clone.usages[k] = v
	}
	return clone
}

func (f *fakeStore) restore(snap *fakeStore) {
	f.payments = snap.payments
	f.plans = snap.plans
	f.users = snap.users
	f.subscriptions = snap.subscriptions
	f.codes = snap.codes
	f.usages = snap.usages
	f.nextSubID = snap.nextSubID
}

func (f *fakeStore) InTx(_ context.Context, fn func(Store) error) error {
	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) GetPaymentForUpdate(_ context.Context, id int64) (*payment.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) MarkPaymentApproved(_ context.Context, id int64) (*payment.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	if p.Status != payment.StatusPending {
		return nil, payment.ErrAlreadyDecided
	}
	p.Status = payment.StatusApproved
	return p, nil
}

func (f *fakeStore) GetPlan(_ context.Context, id int64) (*plan.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetUserForUpdate(_ context.Context, id int64) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) SetUserPlan(_ context.Context, userID, planID int64) error {
	f.users[userID].PlanID = sql.NullInt64{Int64: planID, Valid: true}
	return nil
}

func (f *fakeStore) FindActivePlanSubscriptionForUpdate(_ context.Context, userID, planID int64) (*Subscription, error) {
	var latest *Subscription
	for _, s := range f.subscriptions {
		if s.UserID == userID && s.PlanID == planID && s.Status == StatusActive {
			if latest == nil || s.ID > latest.ID {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, ErrNoActiveSubscription
	}
	return latest, nil
}

func (f *fakeStore) ExtendSubscription(_ context.Context, id int64, endDate time.Time) error {
	f.subscriptions[id].EndDate = endDate
	return nil
}

func (f *fakeStore) ExpireUserSubscriptions(_ context.Context, userID int64) error {
	for _, s := range f.subscriptions {
		if s.UserID == userID && s.Status == StatusActive {
			s.Status = StatusExpired
		}
	}
	return nil
}

func (f *fakeStore) CreateSubscription(_ context.Context, sub *Subscription) (*Subscription, error) {
	stored := *sub
	stored.ID = f.nextSubID
	f.nextSubID++
	f.subscriptions[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeStore) FindCodeForUpdate(_ context.Context, code string) (*promo.Code, error) {
	c, ok := f.codes[code]
	if !ok {
		return nil, promo.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) DecrementCodeAvailability(_ context.Context, codeID int64) error {
	for _, c := range f.codes {
		if c.ID == codeID {
			if c.AvailableUsers <= 0 {
				return promo.ErrInvalidPromo
			}
			c.AvailableUsers--
			return nil
		}
	}
	return promo.ErrNotFound
}

func (f *fakeStore) PromoUsageExists(_ context.Context, userID, codeID int64) (bool, error) {
	return f.usages[[2]int64{userID, codeID}], nil
}

func (f *fakeStore) InsertPromoUsage(_ context.Context, userID, codeID int64) error {
	f.usages[[2]int64{userID, codeID}] = true
	return nil
}

func (f *fakeStore) GetActiveSubscription(_ context.Context, userID int64, now time.Time) (*Subscription, error) {
	var latest *Subscription
	for _, s := range f.subscriptions {
		if s.UserID == userID && s.Current(now) {
			if latest == nil || s.ID > latest.ID {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, ErrNoActiveSubscription
	}
	return latest, nil
}

func (f *fakeStore) ListUserSubscriptions(_ context.Context, userID int64) ([]*Subscription, error) {
	var subs []*Subscription
	for _, s := range f.subscriptions {
		if s.UserID == userID {
			subs = append(subs, s)
		}
	}
	return subs, nil
}

func (f *fakeStore) ListAllSubscriptions(context.Context) ([]*Subscription, error) {
	var subs []*Subscription
	for _, s := range f.subscriptions {
		subs = append(subs, s)
	}
	return subs, nil
}

func (f *fakeStore) ExpireOverdueSubscriptions(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, s := range f.subscriptions {
		if s.Status == StatusActive && s.EndDate.Before(now) {
			s.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

// ===== fixtures =====

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

const (
	userID    = int64(1)
	proPlanID = int64(7)
)

func setupService(store *fakeStore) *Service {
	logger := zerolog.Nop()
	return New(store, &logger).WithClock(func() time.Time { return testNow })
}

func seedWorld(store *fakeStore) {
	store.plans[proPlanID] = &plan.Plan{
		ID:             proPlanID,
		Name:           "Pro",
		PriceQuarterly: decimal.NewNullDecimal(decimal.NewFromInt(25)),
		WebsiteLimit:   sql.NullInt32{Int32: 5, Valid: true},
	}
	store.plans[8] = &plan.Plan{
		ID:           8,
		Name:         "Business",
		PriceMonthly: decimal.NewNullDecimal(decimal.NewFromInt(40)),
		WebsiteLimit: sql.NullInt32{Int32: 20, Valid: true},
	}
	store.users[userID] = &user.User{ID: userID, Email: "owner@example.com"}
}

func seedPayment(store *fakeStore, id, planID int64, cadence plan.Cadence, code string) {
	store.payments[id] = &payment.Payment{
		ID:      id,
		UserID:  userID,
		PlanID:  planID,
		Amount:  decimal.NewFromInt(25),
		Status:  payment.StatusPending,
		Code:    sql.NullString{String: code, Valid: code != ""},
		Cadence: cadence,
	}
}

func TestApproveFirstPurchase(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)
	seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "")
	service := setupService(store)

	approved, err := service.Approve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, approved.Status)

	// a fresh subscription opened with full quota
	sub, err := store.GetActiveSubscription(ctx, userID, testNow)
	require.NoError(t, err)
	assert.Equal(t, proPlanID, sub.PlanID)
	assert.Equal(t, int64(1), sub.PaymentID)
	assert.Equal(t, testNow, sub.StartDate)
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), sub.EndDate)
	assert.Equal(t, int32(0), sub.WebsitesCreated)
	assert.Equal(t, int32(5), sub.WebsitesRemaining)

	// plan pointer set
	require.True(t, store.users[userID].PlanID.Valid)
	assert.Equal(t, proPlanID, store.users[userID].PlanID.Int64)
}

func TestApproveRenewalExtendsFromEndDate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)
	seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "")
	service := setupService(store)

	_, err := service.Approve(ctx, 1)
	require.NoError(t, err)

	sub, err := store.GetActiveSubscription(ctx, userID, testNow)
	require.NoError(t, err)
	sub.WebsitesCreated = 2
	sub.WebsitesRemaining = 3

	// renewal approved mid-term
	seedPayment(store, 2, proPlanID, plan.CadenceQuarterly, "")
	_, err = service.Approve(ctx, 2)
	require.NoError(t, err)

	renewed := store.subscriptions[sub.ID]

	// extended from the previous end date, not from now
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), renewed.EndDate)

	// same row, quota untouched
	assert.Equal(t, int32(2), renewed.WebsitesCreated)
	assert.Equal(t, int32(3), renewed.WebsitesRemaining)
	assert.Len(t, store.subscriptions, 1, "renewal must not open a second subscription")
}

func TestApprovePlanSwitchExpiresOld(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)
	seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "")
	service := setupService(store)

	_, err := service.Approve(ctx, 1)
	require.NoError(t, err)

	old, err := store.GetActiveSubscription(ctx, userID, testNow)
	require.NoError(t, err)

	// switch to the Business plan
	seedPayment(store, 2, 8, plan.CadenceMonthly, "")
	_, err = service.Approve(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, StatusExpired, store.subscriptions[old.ID].Status)

	current, err := store.GetActiveSubscription(ctx, userID, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(8), current.PlanID)
	assert.Equal(t, int32(20), current.WebsitesRemaining)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), current.EndDate)

	assert.Equal(t, int64(8), store.users[userID].PlanID.Int64)
}

func TestApproveRenewalWithoutActiveSubscriptionFails(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)

	// plan pointer promises an active Pro subscription that does not exist
	store.users[userID].PlanID = sql.NullInt64{Int64: proPlanID, Valid: true}
	seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "")
	service := setupService(store)

	_, err := service.Approve(ctx, 1)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	// everything rolled back: payment still pending
	assert.Equal(t, payment.StatusPending, store.payments[1].Status)
	assert.Empty(t, store.subscriptions)
}

func TestApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)
	seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "")
	service := setupService(store)

	_, err := service.Approve(ctx, 1)
	require.NoError(t, err)

	_, err = service.Approve(ctx, 1)
	assert.ErrorIs(t, err, payment.ErrAlreadyDecided)

	assert.Len(t, store.subscriptions, 1, "second approval must not create another subscription")
}

func TestApproveRollsBackOnInvalidCadence(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)
	seedPayment(store, 1, proPlanID, plan.Cadence("weekly"), "")
	service := setupService(store)

	_, err := service.Approve(ctx, 1)
	assert.ErrorIs(t, err, plan.ErrInvalidCadence)

	assert.Equal(t, payment.StatusPending, store.payments[1].Status)
	assert.Empty(t, store.subscriptions)
	assert.False(t, store.users[userID].PlanID.Valid)
}

func TestConfirmPromo(t *testing.T) {
	ctx := context.Background()

	seedCode := func(store *fakeStore) *promo.Code {
		code := &promo.Code{
			ID:             3,
			Code:           "SUMMER20",
			StartDate:      testNow.AddDate(0, -1, 0),
			EndDate:        testNow.AddDate(0, 1, 0),
			IsActive:       true,
			MaxUsers:       10,
			AvailableUsers: 10,
		}
		store.codes[code.Code] = code
		return code
	}

	t.Run("burns availability and keeps usage row", func(t *testing.T) {
		store := newFakeStore()
		seedWorld(store)
		code := seedCode(store)
		// reservation from payment creation
		store.usages[[2]int64{userID, code.ID}] = true
		seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "SUMMER20")
		service := setupService(store)

		_, err := service.Approve(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, int32(9), store.codes["SUMMER20"].AvailableUsers)
		assert.True(t, store.usages[[2]int64{userID, code.ID}])
	})

	t.Run("inserts usage row when reservation is missing", func(t *testing.T) {
		store := newFakeStore()
		seedWorld(store)
		code := seedCode(store)
		seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "SUMMER20")
		service := setupService(store)

		_, err := service.Approve(ctx, 1)
		require.NoError(t, err)

		assert.True(t, store.usages[[2]int64{userID, code.ID}])
	})

	t.Run("expired code is skipped without failing approval", func(t *testing.T) {
		store := newFakeStore()
		seedWorld(store)
		seedCode(store).EndDate = testNow.AddDate(0, 0, -1)
		seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "SUMMER20")
		service := setupService(store)

		approved, err := service.Approve(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, payment.StatusApproved, approved.Status)
		assert.Equal(t, int32(10), store.codes["SUMMER20"].AvailableUsers, "no availability burned")
	})

	t.Run("exhausted code is skipped without failing approval", func(t *testing.T) {
		store := newFakeStore()
		seedWorld(store)
		seedCode(store).AvailableUsers = 0
		seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "SUMMER20")
		service := setupService(store)

		_, err := service.Approve(ctx, 1)
		require.NoError(t, err)
	})

	t.Run("deleted code is skipped without failing approval", func(t *testing.T) {
		store := newFakeStore()
		seedWorld(store)
		seedPayment(store, 1, proPlanID, plan.CadenceQuarterly, "GONE")
		service := setupService(store)

		_, err := service.Approve(ctx, 1)
		require.NoError(t, err)
	})
}

func TestExpireOverdue(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)
	service := setupService(store)

	overdue, _ := store.CreateSubscription(ctx, &Subscription{
		UserID:  userID,
		PlanID:  proPlanID,
		EndDate: testNow.AddDate(0, 0, -1),
		Status:  StatusActive,
	})
	current, _ := store.CreateSubscription(ctx, &Subscription{
		UserID:  userID,
		PlanID:  proPlanID,
		EndDate: testNow.AddDate(0, 1, 0),
		Status:  StatusActive,
	})

	n, err := service.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, StatusExpired, store.subscriptions[overdue.ID].Status)
	assert.Equal(t, StatusActive, store.subscriptions[current.ID].Status)
}

func TestGetCurrentSubscription(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedWorld(store)
	service := setupService(store)

	_, err := service.GetCurrentSubscription(ctx, userID)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	// active but past its end date does not count
	_, _ = store.CreateSubscription(ctx, &Subscription{
		UserID:  userID,
		PlanID:  proPlanID,
		EndDate: testNow.AddDate(0, 0, -1),
		Status:  StatusActive,
	})
	_, err = service.GetCurrentSubscription(ctx, userID)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	sub, _ := store.CreateSubscription(ctx, &Subscription{
		UserID:  userID,
		PlanID:  proPlanID,
		EndDate: testNow.AddDate(0, 1, 0),
		Status:  StatusActive,
	})

	got, err := service.GetCurrentSubscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
}
