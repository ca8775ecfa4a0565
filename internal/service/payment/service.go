package payment

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/auth"
	"github.com/sitewave/sitewave/internal/service/catalog"
	"github.com/sitewave/sitewave/internal/service/plan"
	"github.com/sitewave/sitewave/internal/service/promo"
)

var (
	ErrNotFound       = errors.New("payment not found")
	ErrInvalidAmount  = errors.New("invalid payment amount for this plan")
	ErrAlreadyDecided = errors.New("payment has already been decided")
	ErrBadDecision    = errors.New("decision must be approved or rejected")
)

// Store is the storage port consumed by the payment ledger.
type Store interface {
	CreatePayment(ctx context.Context, p *Payment) (*Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	GetUserPayment(ctx context.Context, userID, id int64) (*Detail, error)
	GetPaymentDetail(ctx context.Context, id int64) (*Detail, error)
	ListUserPayments(ctx context.Context, userID int64) ([]*Detail, error)
	ListAllPayments(ctx context.Context) ([]*Detail, error)
	MarkPaymentRejected(ctx context.Context, id int64, reason string) (*Payment, error)
}

// PlanCatalog resolves the plan a payment is made for.
type PlanCatalog interface {
	GetPlan(ctx context.Context, id int64) (*plan.Plan, error)
}

// MethodCatalog resolves the payment method referenced by a payment.
type MethodCatalog interface {
	GetPaymentMethod(ctx context.Context, id int64) (*catalog.PaymentMethod, error)
}

// PromoEngine evaluates and reserves promo codes at payment-creation time.
type PromoEngine interface {
	Evaluate(ctx context.Context, code string, userID int64, p *plan.Plan, amount decimal.Decimal, cadence plan.Cadence) (*promo.Evaluation, error)
	Reserve(ctx context.Context, userID, codeID int64) error
}

// Reconciler applies an approved payment to the user's subscription state.
// The whole approval, including marking the payment approved, runs inside the
// reconciler's transaction: if it fails the payment stays pending.
type Reconciler interface {
	Approve(ctx context.Context, paymentID int64) (*Payment, error)
}

// Publisher decouples the ledger from the notification layer. Events are
// published after the decision committed; a failing subscriber never rolls
// the decision back.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

type Service struct {
	store      Store
	plans      PlanCatalog
	methods    MethodCatalog
	promos     PromoEngine
	reconciler Reconciler
	bus        Publisher
	logger     *zerolog.Logger
	now        func() time.Time
}

func New(
	store Store,
	plans PlanCatalog,
	methods MethodCatalog,
	promos PromoEngine,
	bus Publisher,
	logger *zerolog.Logger,
) *Service {
	log := logger.With().Str("channel", "payment_service").Logger()
	return &Service{
		store:   store,
		plans:   plans,
		methods: methods,
		promos:  promos,
		bus:     bus,
		logger:  &log,
		now:     time.Now,
	}
}

// SetReconciler wires the subscription reconciler. Separate from New because
// the reconciler itself depends on payment types.
func (s *Service) SetReconciler(r Reconciler) {
	s.reconciler = r
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateProps are the user-supplied fields of a new payment request.
type CreateProps struct {
	PlanID          int64
	PaymentMethodID int64
	Amount          decimal.Decimal
	Code            string
	Cadence         plan.Cadence
	Photo           string
}

// CreateResult carries the stored payment plus the discount that was applied.
type CreateResult struct {
	Payment  *Payment
	Discount decimal.Decimal
}

// Create validates and records a pending payment request. If a promo code is
// supplied, it is evaluated and reserved immediately: the reservation holds
// even if the payment is later rejected.
func (s *Service) Create(ctx context.Context, userID int64, props CreateProps) (*CreateResult, error) {
	if !props.Cadence.Valid() {
		return nil, plan.ErrInvalidCadence
	}

	p, err := s.plans.GetPlan(ctx, props.PlanID)
	if err != nil {
		return nil, err
	}

	if _, err := s.methods.GetPaymentMethod(ctx, props.PaymentMethodID); err != nil {
		return nil, err
	}

	if props.Amount.LessThanOrEqual(decimal.Zero) || !p.HasPrice(props.Amount) {
		return nil, ErrInvalidAmount
	}

	discount := decimal.Zero
	if props.Code != "" {
		eval, err := s.promos.Evaluate(ctx, props.Code, userID, p, props.Amount, props.Cadence)
		if err != nil {
			return nil, err
		}

		discount = eval.Discount
		if props.Amount.Sub(discount).LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidAmount
		}

		// Reservation phase of the two-phase promo consumption. Confirmation
		// happens inside the approval transaction.
		if err := s.promos.Reserve(ctx, userID, eval.Code.ID); err != nil {
			return nil, err
		}
	}

	created, err := s.store.CreatePayment(ctx, &Payment{
		PublicID:        uuid.New(),
		UserID:          userID,
		PlanID:          p.ID,
		PaymentMethodID: props.PaymentMethodID,
		Amount:          props.Amount.Sub(discount),
		Status:          StatusPending,
		Code:            sql.NullString{String: props.Code, Valid: props.Code != ""},
		PaymentDate:     s.now(),
		Cadence:         props.Cadence,
		Photo:           props.Photo,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create payment")
	}

	s.logger.Info().
		Int64("payment_id", created.ID).
		Int64("user_id", userID).
		Str("amount", created.Amount.String()).
		Msg("payment created")

	return &CreateResult{Payment: created, Discount: discount}, nil
}

// Decide transitions a pending payment to approved or rejected. Admin only.
// Rejection is terminal and side-effect free apart from the optional reason.
// Approval delegates to the subscription reconciler; the payment is marked
// approved inside the same transaction, so a failed reconciliation leaves it
// pending.
func (s *Service) Decide(ctx context.Context, principal auth.Principal, id int64, decision Status, reason string) (*Payment, error) {
	if principal.IsZero() {
		return nil, auth.ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return nil, auth.ErrForbidden
	}

	if decision != StatusApproved && decision != StatusRejected {
		return nil, ErrBadDecision
	}

	current, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusPending {
		return nil, ErrAlreadyDecided
	}

	if decision == StatusRejected {
		if reason == "" {
			reason = "No reason provided"
		}

		rejected, err := s.store.MarkPaymentRejected(ctx, id, reason)
		if err != nil {
			return nil, errors.Wrap(err, "unable to reject payment")
		}

		s.logger.Info().Int64("payment_id", id).Str("reason", reason).Msg("payment rejected")
		s.publish(TopicRejected, rejected)

		return rejected, nil
	}

	approved, err := s.reconciler.Approve(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("payment_id", id).Msg("payment approved")
	s.publish(TopicApproved, approved)

	return approved, nil
}

func (s *Service) publish(topic string, p *Payment) {
	if s.bus != nil {
		s.bus.Publish(topic, p)
	}
}

// ===== Reads =====

func (s *Service) GetUserPayment(ctx context.Context, userID, id int64) (*Detail, error) {
	return s.store.GetUserPayment(ctx, userID, id)
}

func (s *Service) ListUserPayments(ctx context.Context, userID int64) (*History, error) {
	details, err := s.store.ListUserPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	return splitHistory(details), nil
}

func (s *Service) ListAllPayments(ctx context.Context) (*History, error) {
	details, err := s.store.ListAllPayments(ctx)
	if err != nil {
		return nil, err
	}
	return splitHistory(details), nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// GetPaymentDetail returns any user's payment with its joins. Admin listings
// and the admin detail view go through here.
func (s *Service) GetPaymentDetail(ctx context.Context, id int64) (*Detail, error) {
	return s.store.GetPaymentDetail(ctx, id)
}

func splitHistory(details []*Detail) *History {
	h := &History{
		Pending: []*Detail{},
		Decided: []*Detail{},
	}

	for _, d := range details {
		if d.Status == StatusPending {
			h.Pending = append(h.Pending, d)
		} else {
			h.Decided = append(h.Decided, d)
		}
	}

	return h
}
