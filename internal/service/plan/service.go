package plan

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound       = errors.New("plan not found")
	ErrNameTaken      = errors.New("plan name already exists")
	ErrInvalidCadence = errors.New("invalid subscription cadence")
	ErrNoPrices       = errors.New("plan requires at least one price point")
)

// Store is the storage port consumed by the plan catalog.
type Store interface {
	GetPlan(ctx context.Context, id int64) (*Plan, error)
	ListPlans(ctx context.Context) ([]*Plan, error)
	CreatePlan(ctx context.Context, p *Plan) (*Plan, error)
	UpdatePlan(ctx context.Context, p *Plan) (*Plan, error)
	DeletePlan(ctx context.Context, id int64) error
}

type Service struct {
	store  Store
	logger *zerolog.Logger
}

func New(store Store, logger *zerolog.Logger) *Service {
	log := logger.With().Str("channel", "plan_service").Logger()
	return &Service{
		store:  store,
		logger: &log,
	}
}

func (s *Service) GetPlan(ctx context.Context, id int64) (*Plan, error) {
	return s.store.GetPlan(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	return s.store.ListPlans(ctx)
}

// CreatePlan creates a new plan. Admin only; the caller guards the role.
func (s *Service) CreatePlan(ctx context.Context, p *Plan) (*Plan, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}

	created, err := s.store.CreatePlan(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("plan_id", created.ID).Str("name", created.Name).Msg("plan created")

	return created, nil
}

func (s *Service) UpdatePlan(ctx context.Context, p *Plan) (*Plan, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}

	if _, err := s.store.GetPlan(ctx, p.ID); err != nil {
		return nil, err
	}

	return s.store.UpdatePlan(ctx, p)
}

func (s *Service) DeletePlan(ctx context.Context, id int64) error {
	if _, err := s.store.GetPlan(ctx, id); err != nil {
		return err
	}

	return s.store.DeletePlan(ctx, id)
}

func validatePlan(p *Plan) error {
	if p.Name == "" {
		return errors.New("plan name is required")
	}

	hasPrice := p.PriceMonthly.Valid || p.PriceQuarterly.Valid ||
		p.PriceSemiAnnually.Valid || p.PriceAnnually.Valid
	if !hasPrice {
		return ErrNoPrices
	}

	return nil
}
