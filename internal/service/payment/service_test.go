package payment

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/auth"
	"github.com/sitewave/sitewave/internal/service/catalog"
	"github.com/sitewave/sitewave/internal/service/plan"
	"github.com/sitewave/sitewave/internal/service/promo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	payments map[int64]*Payment
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{payments: map[int64]*Payment{}, nextID: 1}
}

func (f *fakeStore) CreatePayment(_ context.Context, p *Payment) (*Payment, error) {
	stored := *p
	stored.ID = f.nextID
	f.nextID++
	f.payments[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeStore) GetPayment(_ context.Context, id int64) (*Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetUserPayment(_ context.Context, userID, id int64) (*Detail, error) {
	p, ok := f.payments[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	return &Detail{Payment: *p}, nil
}

func (f *fakeStore) GetPaymentDetail(_ context.Context, id int64) (*Detail, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Detail{Payment: *p}, nil
}

func (f *fakeStore) ListUserPayments(_ context.Context, userID int64) ([]*Detail, error) {
	var details []*Detail
	for _, p := range f.payments {
		if p.UserID == userID {
			details = append(details, &Detail{Payment: *p})
		}
	}
	return details, nil
}

func (f *fakeStore) ListAllPayments(context.Context) ([]*Detail, error) {
	var details []*Detail
	for _, p := range f.payments {
		details = append(details, &Detail{Payment: *p})
	}
	return details, nil
}

func (f *fakeStore) MarkPaymentRejected(_ context.Context, id int64, reason string) (*Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Status = StatusRejected
	p.RejectedReason.String = reason
	p.RejectedReason.Valid = true
	return p, nil
}

type fakePlans struct{ plans map[int64]*plan.Plan }

func (f *fakePlans) GetPlan(_ context.Context, id int64) (*plan.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	return p, nil
}

type fakeMethods struct{}

func (f *fakeMethods) GetPaymentMethod(_ context.Context, id int64) (*catalog.PaymentMethod, error) {
	if id != 1 {
		return nil, catalog.ErrMethodNotFound
	}
	return &catalog.PaymentMethod{ID: 1, Name: "Bank Transfer"}, nil
}

type fakePromos struct {
	evaluation *promo.Evaluation
	evalErr    error
	reserved   [][2]int64
}

func (f *fakePromos) Evaluate(context.Context, string, int64, *plan.Plan, decimal.Decimal, plan.Cadence) (*promo.Evaluation, error) {
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return f.evaluation, nil
}

func (f *fakePromos) Reserve(_ context.Context, userID, codeID int64) error {
	f.reserved = append(f.reserved, [2]int64{userID, codeID})
	return nil
}

type fakeBus struct {
	published []string
}

func (f *fakeBus) Publish(topic string, _ ...interface{}) {
	f.published = append(f.published, topic)
}

type fakeReconciler struct {
	store *fakeStore
	err   error
}

func (f *fakeReconciler) Approve(_ context.Context, paymentID int64) (*Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := f.store.payments[paymentID]
	p.Status = StatusApproved
	return p, nil
}

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func proPlan() *plan.Plan {
	return &plan.Plan{
		ID:             7,
		Name:           "Pro",
		PriceMonthly:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
		PriceQuarterly: decimal.NewNullDecimal(decimal.NewFromInt(25)),
	}
}

func setup() (*Service, *fakeStore, *fakePromos, *fakeBus, *fakeReconciler) {
	logger := zerolog.Nop()
	store := newFakeStore()
	promos := &fakePromos{}
	bus := &fakeBus{}
	reconciler := &fakeReconciler{store: store}

	service := New(store, &fakePlans{plans: map[int64]*plan.Plan{7: proPlan()}}, &fakeMethods{}, promos, bus, &logger).
		WithClock(func() time.Time { return testNow })
	service.SetReconciler(reconciler)

	return service, store, promos, bus, reconciler
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("records pending payment", func(t *testing.T) {
		service, store, _, _, _ := setup()

		result, err := service.Create(ctx, 1, CreateProps{
			PlanID:          7,
			PaymentMethodID: 1,
			Amount:          decimal.NewFromInt(25),
			Cadence:         plan.CadenceQuarterly,
		})
		require.NoError(t, err)

		assert.Equal(t, StatusPending, result.Payment.Status)
		assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(25)))
		assert.True(t, result.Discount.IsZero())
		assert.Equal(t, testNow, result.Payment.PaymentDate)
		assert.Len(t, store.payments, 1)
	})

	t.Run("rejects invalid cadence", func(t *testing.T) {
		service, _, _, _, _ := setup()

		_, err := service.Create(ctx, 1, CreateProps{
			PlanID:          7,
			PaymentMethodID: 1,
			Amount:          decimal.NewFromInt(10),
			Cadence:         plan.Cadence("weekly"),
		})
		assert.ErrorIs(t, err, plan.ErrInvalidCadence)
	})

	t.Run("rejects amount that matches no price point", func(t *testing.T) {
		service, store, _, _, _ := setup()

		_, err := service.Create(ctx, 1, CreateProps{
			PlanID:          7,
			PaymentMethodID: 1,
			Amount:          decimal.NewFromInt(30),
			Cadence:         plan.CadenceMonthly,
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Empty(t, store.payments)
	})

	t.Run("rejects unknown plan and method", func(t *testing.T) {
		service, _, _, _, _ := setup()

		_, err := service.Create(ctx, 1, CreateProps{
			PlanID:          99,
			PaymentMethodID: 1,
			Amount:          decimal.NewFromInt(10),
			Cadence:         plan.CadenceMonthly,
		})
		assert.ErrorIs(t, err, plan.ErrNotFound)

		_, err = service.Create(ctx, 1, CreateProps{
			PlanID:          7,
			PaymentMethodID: 99,
			Amount:          decimal.NewFromInt(10),
			Cadence:         plan.CadenceMonthly,
		})
		assert.ErrorIs(t, err, catalog.ErrMethodNotFound)
	})

	t.Run("applies and reserves promo code", func(t *testing.T) {
		service, store, promos, _, _ := setup()
		promos.evaluation = &promo.Evaluation{
			Code:     &promo.Code{ID: 3, Code: "SUMMER20"},
			Discount: decimal.NewFromInt(5),
		}

		result, err := service.Create(ctx, 1, CreateProps{
			PlanID:          7,
			PaymentMethodID: 1,
			Amount:          decimal.NewFromInt(25),
			Code:            "SUMMER20",
			Cadence:         plan.CadenceQuarterly,
		})
		require.NoError(t, err)

		// stored amount is the discounted one
		assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(20)))
		assert.True(t, result.Discount.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, "SUMMER20", result.Payment.Code.String)

		// reservation happened at creation time
		require.Len(t, promos.reserved, 1)
		assert.Equal(t, [2]int64{1, 3}, promos.reserved[0])
		assert.Len(t, store.payments, 1)
	})

	t.Run("rejects discount covering the whole amount", func(t *testing.T) {
		service, _, promos, _, _ := setup()
		promos.evaluation = &promo.Evaluation{
			Code:     &promo.Code{ID: 3},
			Discount: decimal.NewFromInt(25),
		}

		_, err := service.Create(ctx, 1, CreateProps{
			PlanID:          7,
			PaymentMethodID: 1,
			Amount:          decimal.NewFromInt(25),
			Code:            "FULLOFF",
			Cadence:         plan.CadenceQuarterly,
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Empty(t, promos.reserved, "no reservation on failed creation")
	})

	t.Run("propagates promo evaluation failure", func(t *testing.T) {
		service, store, promos, _, _ := setup()
		promos.evalErr = promo.ErrAlreadyUsed

		_, err := service.Create(ctx, 1, CreateProps{
			PlanID:          7,
			PaymentMethodID: 1,
			Amount:          decimal.NewFromInt(25),
			Code:            "SUMMER20",
			Cadence:         plan.CadenceQuarterly,
		})
		assert.ErrorIs(t, err, promo.ErrAlreadyUsed)
		assert.Empty(t, store.payments)
	})
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	admin := auth.Principal{ID: 99, Role: auth.RoleAdmin}
	regular := auth.Principal{ID: 1, Role: auth.RoleUser}

	t.Run("requires authentication", func(t *testing.T) {
		service, _, _, _, _ := setup()

		_, err := service.Decide(ctx, auth.Principal{}, 1, StatusApproved, "")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("requires admin", func(t *testing.T) {
		service, _, _, _, _ := setup()

		_, err := service.Decide(ctx, regular, 1, StatusApproved, "")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("rejects bad decision value", func(t *testing.T) {
		service, _, _, _, _ := setup()

		_, err := service.Decide(ctx, admin, 1, StatusPending, "")
		assert.ErrorIs(t, err, ErrBadDecision)
	})

	t.Run("rejection is terminal and publishes event", func(t *testing.T) {
		service, store, _, bus, _ := setup()
		id := seedPending(store, 1)

		rejected, err := service.Decide(ctx, admin, id, StatusRejected, "blurry receipt")
		require.NoError(t, err)

		assert.Equal(t, StatusRejected, rejected.Status)
		assert.Equal(t, "blurry receipt", rejected.RejectedReason.String)
		assert.Equal(t, []string{TopicRejected}, bus.published)

		// deciding again conflicts
		_, err = service.Decide(ctx, admin, id, StatusApproved, "")
		assert.ErrorIs(t, err, ErrAlreadyDecided)
	})

	t.Run("rejection without reason gets the default", func(t *testing.T) {
		service, store, _, _, _ := setup()
		id := seedPending(store, 1)

		rejected, err := service.Decide(ctx, admin, id, StatusRejected, "")
		require.NoError(t, err)
		assert.Equal(t, "No reason provided", rejected.RejectedReason.String)
	})

	t.Run("approval delegates to reconciler and publishes", func(t *testing.T) {
		service, store, _, bus, _ := setup()
		id := seedPending(store, 1)

		approved, err := service.Decide(ctx, admin, id, StatusApproved, "")
		require.NoError(t, err)

		assert.Equal(t, StatusApproved, approved.Status)
		assert.Equal(t, []string{TopicApproved}, bus.published)
	})

	t.Run("failed reconciliation leaves payment pending", func(t *testing.T) {
		service, store, _, bus, reconciler := setup()
		id := seedPending(store, 1)
		reconciler.err = plan.ErrInvalidCadence

		_, err := service.Decide(ctx, admin, id, StatusApproved, "")
		assert.Error(t, err)

		assert.Equal(t, StatusPending, store.payments[id].Status)
		assert.Empty(t, bus.published)
	})

	t.Run("unknown payment", func(t *testing.T) {
		service, _, _, _, _ := setup()

		_, err := service.Decide(ctx, admin, 404, StatusApproved, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSplitHistory(t *testing.T) {
	history := splitHistory([]*Detail{
		{Payment: Payment{ID: 1, Status: StatusPending}},
		{Payment: Payment{ID: 2, Status: StatusApproved}},
		{Payment: Payment{ID: 3, Status: StatusRejected}},
		{Payment: Payment{ID: 4, Status: StatusPending}},
	})

	assert.Len(t, history.Pending, 2)
	assert.Len(t, history.Decided, 2)
}

func TestGetPaymentDetail(t *testing.T) {
	ctx := context.Background()
	service, store, _, _, _ := setup()

	id := seedPending(store, 42)

	t.Run("returns any user's payment", func(t *testing.T) {
		detail, err := service.GetPaymentDetail(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(42), detail.UserID)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, err := service.GetPaymentDetail(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func seedPending(store *fakeStore, userID int64) int64 {
	p, _ := store.CreatePayment(context.Background(), &Payment{
		UserID:  userID,
		PlanID:  7,
		Amount:  decimal.NewFromInt(10),
		Status:  StatusPending,
		Cadence: plan.CadenceMonthly,
	})
	return p.ID
}
