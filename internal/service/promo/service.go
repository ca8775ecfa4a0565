package promo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/service/plan"
)

var (
	ErrNotFound           = errors.New("promo code not found")
	ErrInvalidPromo       = errors.New("invalid or expired promo code")
	ErrAlreadyUsed        = errors.New("promo code already used by this user")
	ErrCadenceNotEligible = errors.New("promo code does not apply to this plan or cadence")
	ErrCodeTaken          = errors.New("promo code already exists")
)

// Store is the storage port consumed by the promo engine.
type Store interface {
	FindCodeByText(ctx context.Context, code string) (*Code, error)
	GetCode(ctx context.Context, id int64) (*Code, error)
	ListCodes(ctx context.Context) ([]*Code, error)
	CreateCode(ctx context.Context, c *Code, links []*PlanLink) (*Code, error)
	UpdateCode(ctx context.Context, c *Code, links []*PlanLink) (*Code, error)
	DeleteCode(ctx context.Context, id int64) error

	FindPlanLink(ctx context.Context, codeID, planID int64) (*PlanLink, error)
	ListPlanLinks(ctx context.Context, codeID int64) ([]*PlanLink, error)

	UsageExists(ctx context.Context, userID, codeID int64) (bool, error)
	InsertUsage(ctx context.Context, userID, codeID int64) error
	ListUsages(ctx context.Context, codeID int64) ([]*Usage, error)
}

// Evaluation is the outcome of a successful eligibility check.
type Evaluation struct {
	Code     *Code
	Discount decimal.Decimal
}

type Service struct {
	store  Store
	logger *zerolog.Logger
	now    func() time.Time
}

func New(store Store, logger *zerolog.Logger) *Service {
	log := logger.With().Str("channel", "promo_service").Logger()
	return &Service{
		store:  store,
		logger: &log,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Evaluate checks eligibility of a code for the user, plan and cadence and
// computes the discount on amount. It performs no writes; callers that accept
// the evaluation reserve the code with Reserve.
//
// Availability (AvailableUsers > 0) is deliberately NOT enforced here: it is
// re-checked at approval time by the subscription reconciler.
func (s *Service) Evaluate(ctx context.Context, code string, userID int64, p *plan.Plan, amount decimal.Decimal, cadence plan.Cadence) (*Evaluation, error) {
	promoCode, err := s.store.FindCodeByText(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidPromo
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to find promo code")
	}

	if !promoCode.WithinWindow(s.now()) {
		return nil, ErrInvalidPromo
	}

	used, err := s.store.UsageExists(ctx, userID, promoCode.ID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to check promo usage")
	}
	if used {
		return nil, ErrAlreadyUsed
	}

	link, err := s.store.FindPlanLink(ctx, promoCode.ID, p.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrCadenceNotEligible
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to find promo plan link")
	}

	if !link.AppliesTo(cadence) {
		return nil, ErrCadenceNotEligible
	}

	return &Evaluation{
		Code:     promoCode,
		Discount: promoCode.DiscountOn(amount),
	}, nil
}

// Reserve records the creation-time usage of a code by a user. The
// reservation is permanent: a later rejected payment does not release it.
func (s *Service) Reserve(ctx context.Context, userID, codeID int64) error {
	if err := s.store.InsertUsage(ctx, userID, codeID); err != nil {
		return errors.Wrap(err, "unable to reserve promo code")
	}

	s.logger.Info().Int64("user_id", userID).Int64("code_id", codeID).Msg("promo code reserved")

	return nil
}

// ===== Admin CRUD =====

func (s *Service) GetCode(ctx context.Context, id int64) (*Code, error) {
	return s.store.GetCode(ctx, id)
}

func (s *Service) ListCodes(ctx context.Context) ([]*Code, error) {
	return s.store.ListCodes(ctx)
}

func (s *Service) ListPlanLinks(ctx context.Context, codeID int64) ([]*PlanLink, error) {
	if _, err := s.store.GetCode(ctx, codeID); err != nil {
		return nil, err
	}
	return s.store.ListPlanLinks(ctx, codeID)
}

func (s *Service) ListUsages(ctx context.Context, codeID int64) ([]*Usage, error) {
	if _, err := s.store.GetCode(ctx, codeID); err != nil {
		return nil, err
	}
	return s.store.ListUsages(ctx, codeID)
}

func (s *Service) CreateCode(ctx context.Context, c *Code, links []*PlanLink) (*Code, error) {
	if err := validateCode(c); err != nil {
		return nil, err
	}

	// New codes start with their full allowance.
	c.AvailableUsers = c.MaxUsers

	created, err := s.store.CreateCode(ctx, c, links)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("code_id", created.ID).Str("code", created.Code).Msg("promo code created")

	return created, nil
}

func (s *Service) UpdateCode(ctx context.Context, c *Code, links []*PlanLink) (*Code, error) {
	if err := validateCode(c); err != nil {
		return nil, err
	}

	if _, err := s.store.GetCode(ctx, c.ID); err != nil {
		return nil, err
	}

	return s.store.UpdateCode(ctx, c, links)
}

func (s *Service) DeleteCode(ctx context.Context, id int64) error {
	if _, err := s.store.GetCode(ctx, id); err != nil {
		return err
	}

	return s.store.DeleteCode(ctx, id)
}

func validateCode(c *Code) error {
	if c.Code == "" {
		return errors.New("promo code text is required")
	}
	if c.EndDate.Before(c.StartDate) {
		return errors.New("promo code end date precedes start date")
	}
	if c.DiscountType != DiscountPercentage && c.DiscountType != DiscountAmount {
		return errors.New("invalid discount type")
	}
	if c.DiscountValue.LessThanOrEqual(decimal.Zero) {
		return errors.New("discount value must be positive")
	}

	return nil
}
