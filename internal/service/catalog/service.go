package catalog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	ErrMethodNotFound   = errors.New("payment method not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrNameTaken        = errors.New("name already exists")
)

// Store is the storage port for the reference-data catalog.
type Store interface {
	GetPaymentMethod(ctx context.Context, id int64) (*PaymentMethod, error)
	ListPaymentMethods(ctx context.Context) ([]*PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, m *PaymentMethod) (*PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, m *PaymentMethod) (*PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id int64) error

	GetActivity(ctx context.Context, id int64) (*Activity, error)
	ListActivities(ctx context.Context) ([]*Activity, error)
	CreateActivity(ctx context.Context, a *Activity) (*Activity, error)
	UpdateActivity(ctx context.Context, a *Activity) (*Activity, error)
	DeleteActivity(ctx context.Context, id int64) error

	GetTemplate(ctx context.Context, id int64) (*Template, error)
	ListTemplates(ctx context.Context) ([]*Template, error)
	CreateTemplate(ctx context.Context, t *Template) (*Template, error)
	UpdateTemplate(ctx context.Context, t *Template) (*Template, error)
	DeleteTemplate(ctx context.Context, id int64) error
}

type Service struct {
	store  Store
	logger *zerolog.Logger
}

func New(store Store, logger *zerolog.Logger) *Service {
	log := logger.With().Str("channel", "catalog_service").Logger()
	return &Service{
		store:  store,
		logger: &log,
	}
}

func (s *Service) GetPaymentMethod(ctx context.Context, id int64) (*PaymentMethod, error) {
	return s.store.GetPaymentMethod(ctx, id)
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]*PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx)
}

func (s *Service) CreatePaymentMethod(ctx context.Context, m *PaymentMethod) (*PaymentMethod, error) {
	if m.Name == "" {
		return nil, errors.New("payment method name is required")
	}
	return s.store.CreatePaymentMethod(ctx, m)
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, m *PaymentMethod) (*PaymentMethod, error) {
	if m.Name == "" {
		return nil, errors.New("payment method name is required")
	}
	return s.store.UpdatePaymentMethod(ctx, m)
}

func (s *Service) DeletePaymentMethod(ctx context.Context, id int64) error {
	return s.store.DeletePaymentMethod(ctx, id)
}

func (s *Service) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	return s.store.GetActivity(ctx, id)
}

func (s *Service) ListActivities(ctx context.Context) ([]*Activity, error) {
	return s.store.ListActivities(ctx)
}

func (s *Service) CreateActivity(ctx context.Context, a *Activity) (*Activity, error) {
	if a.Name == "" {
		return nil, errors.New("activity name is required")
	}
	return s.store.CreateActivity(ctx, a)
}

func (s *Service) UpdateActivity(ctx context.Context, a *Activity) (*Activity, error) {
	if a.Name == "" {
		return nil, errors.New("activity name is required")
	}
	return s.store.UpdateActivity(ctx, a)
}

func (s *Service) DeleteActivity(ctx context.Context, id int64) error {
	return s.store.DeleteActivity(ctx, id)
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context) ([]*Template, error) {
	return s.store.ListTemplates(ctx)
}

func (s *Service) CreateTemplate(ctx context.Context, t *Template) (*Template, error) {
	if t.Name == "" || t.FilePath == "" {
		return nil, errors.New("template name and file path are required")
	}

	if _, err := s.store.GetActivity(ctx, t.ActivityID); err != nil {
		return nil, err
	}

	return s.store.CreateTemplate(ctx, t)
}

func (s *Service) UpdateTemplate(ctx context.Context, t *Template) (*Template, error) {
	if t.Name == "" || t.FilePath == "" {
		return nil, errors.New("template name and file path are required")
	}

	if _, err := s.store.GetActivity(ctx, t.ActivityID); err != nil {
		return nil, err
	}

	return s.store.UpdateTemplate(ctx, t)
}

func (s *Service) DeleteTemplate(ctx context.Context, id int64) error {
	return s.store.DeleteTemplate(ctx, id)
}
