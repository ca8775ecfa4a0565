package website

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/service/catalog"
	"github.com/sitewave/sitewave/internal/service/subscription"
)

var (
	ErrNotFound      = errors.New("website not found")
	ErrNotOwner      = errors.New("website does not belong to this user")
	ErrQuotaExceeded = errors.New("website creation limit reached")
	ErrBadStatus     = errors.New("invalid website status")
)

// Store is the storage port consumed by the quota tracker. The ForUpdate
// lookups lock the subscription row so quota mutations never race.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	CurrentSubscriptionForUpdate(ctx context.Context, userID int64, now time.Time) (*subscription.Subscription, error)
	LatestSubscriptionForUpdate(ctx context.Context, userID int64) (*subscription.Subscription, error)
	SetSubscriptionQuota(ctx context.Context, subID int64, created, remaining int32) error

	CreateWebsite(ctx context.Context, w *Website) (*Website, error)
	GetWebsite(ctx context.Context, id int64) (*Website, error)
	ListUserWebsites(ctx context.Context, userID int64) ([]*Website, error)
	ListAllWebsites(ctx context.Context) ([]*Website, error)
	UpdateWebsite(ctx context.Context, w *Website) (*Website, error)
	DeleteWebsite(ctx context.Context, id int64) error
}

// TemplateCatalog resolves the template a website is created from.
type TemplateCatalog interface {
	GetTemplate(ctx context.Context, id int64) (*catalog.Template, error)
	GetActivity(ctx context.Context, id int64) (*catalog.Activity, error)
}

type Service struct {
	store     Store
	templates TemplateCatalog
	logger    *zerolog.Logger
	now       func() time.Time
}

func New(store Store, templates TemplateCatalog, logger *zerolog.Logger) *Service {
	log := logger.With().Str("channel", "website_service").Logger()
	return &Service{
		store:     store,
		templates: templates,
		logger:    &log,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateProps are the user-supplied fields of a new website.
type CreateProps struct {
	TemplateID int64
	ActivityID int64
	DemoLink   string
}

// CreateResult carries the new website plus the quota state after creation.
type CreateResult struct {
	Website *Website
	Quota   QuotaState
}

// Create instantiates a website from a template. The user must hold an
// active, unexpired subscription with remaining quota; the counters move
// atomically with the insert under a row lock on the subscription.
func (s *Service) Create(ctx context.Context, userID int64, props CreateProps) (*CreateResult, error) {
	if props.DemoLink == "" {
		return nil, errors.New("demo link is required")
	}

	tpl, err := s.templates.GetTemplate(ctx, props.TemplateID)
	if err != nil {
		return nil, err
	}

	if _, err := s.templates.GetActivity(ctx, props.ActivityID); err != nil {
		return nil, err
	}

	var result *CreateResult

	err = s.store.InTx(ctx, func(tx Store) error {
		now := s.now()

		sub, err := tx.CurrentSubscriptionForUpdate(ctx, userID, now)
		if err != nil {
			return err
		}

		if sub.WebsitesRemaining <= 0 {
			return ErrQuotaExceeded
		}

		publicID := uuid.New()

		created, err := tx.CreateWebsite(ctx, &Website{
			PublicID:    publicID,
			UserID:      userID,
			TemplateID:  tpl.ID,
			ActivityID:  props.ActivityID,
			DemoLink:    props.DemoLink,
			ProjectPath: projectPath(publicID, tpl.FilePath),
			Status:      StatusPendingReview,
			StartDate:   now,
			EndDate:     sub.EndDate,
		})
		if err != nil {
			return errors.Wrap(err, "unable to create website")
		}

		createdCount := sub.WebsitesCreated + 1
		remaining := sub.WebsitesRemaining - 1
		if err := tx.SetSubscriptionQuota(ctx, sub.ID, createdCount, remaining); err != nil {
			return errors.Wrap(err, "unable to update subscription quota")
		}

		result = &CreateResult{
			Website: created,
			Quota:   QuotaState{WebsitesCreated: createdCount, WebsitesRemaining: remaining},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("website_id", result.Website.ID).
		Int64("user_id", userID).
		Int32("remaining", result.Quota.WebsitesRemaining).
		Msg("website created")

	return result, nil
}

// Delete removes a user's website and restores one quota slot on the user's
// most recent subscription. The restoration deliberately ignores whether that
// subscription is expired or belongs to a different plan than the website's
// original one; see DESIGN.md.
func (s *Service) Delete(ctx context.Context, userID, websiteID int64) (*QuotaState, error) {
	var quota *QuotaState

	err := s.store.InTx(ctx, func(tx Store) error {
		w, err := tx.GetWebsite(ctx, websiteID)
		if err != nil {
			return err
		}
		if w.UserID != userID {
			return ErrNotOwner
		}

		if err := tx.DeleteWebsite(ctx, w.ID); err != nil {
			return errors.Wrap(err, "unable to delete website")
		}

		sub, err := tx.LatestSubscriptionForUpdate(ctx, userID)
		if errors.Is(err, subscription.ErrNoActiveSubscription) {
			quota = &QuotaState{}
			return nil
		}
		if err != nil {
			return err
		}

		createdCount := sub.WebsitesCreated - 1
		if createdCount < 0 {
			createdCount = 0
		}
		remaining := sub.WebsitesRemaining + 1

		if err := tx.SetSubscriptionQuota(ctx, sub.ID, createdCount, remaining); err != nil {
			return errors.Wrap(err, "unable to restore subscription quota")
		}

		quota = &QuotaState{WebsitesCreated: createdCount, WebsitesRemaining: remaining}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("website_id", websiteID).Int64("user_id", userID).Msg("website deleted, quota restored")

	return quota, nil
}

// UpdateDemoLink lets the owner change the demo link.
func (s *Service) UpdateDemoLink(ctx context.Context, userID, websiteID int64, demoLink string) (*Website, error) {
	w, err := s.store.GetWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, ErrNotOwner
	}

	if demoLink != "" {
		w.DemoLink = demoLink
	}

	return s.store.UpdateWebsite(ctx, w)
}

// Review applies an admin decision to a website. Quota is never touched here.
func (s *Service) Review(ctx context.Context, websiteID int64, status Status, reason string) (*Website, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, ErrBadStatus
	}

	w, err := s.store.GetWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}

	w.Status = status
	w.RejectedReason = sql.NullString{String: reason, Valid: status == StatusRejected && reason != ""}

	return s.store.UpdateWebsite(ctx, w)
}

func (s *Service) GetUserWebsite(ctx context.Context, userID, websiteID int64) (*Website, error) {
	w, err := s.store.GetWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, ErrNotOwner
	}
	return w, nil
}

func (s *Service) ListUserWebsites(ctx context.Context, userID int64) ([]*Website, error) {
	return s.store.ListUserWebsites(ctx, userID)
}

func (s *Service) ListAllWebsites(ctx context.Context) ([]*Website, error) {
	return s.store.ListAllWebsites(ctx)
}

func projectPath(publicID uuid.UUID, templateFile string) string {
	return fmt.Sprintf("websites/%s/%s", publicID, path.Base(templateFile))
}
