// Package app wires configuration, storage, services and transports into a
// runnable unit.
package app

import (
	"context"
	"os"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/auth"
	"github.com/sitewave/sitewave/internal/config"
	"github.com/sitewave/sitewave/internal/db"
	"github.com/sitewave/sitewave/internal/scheduler"
	httpserver "github.com/sitewave/sitewave/internal/server/http"
	"github.com/sitewave/sitewave/internal/server/http/authapi"
	"github.com/sitewave/sitewave/internal/server/http/catalogapi"
	"github.com/sitewave/sitewave/internal/server/http/paymentapi"
	"github.com/sitewave/sitewave/internal/server/http/planapi"
	"github.com/sitewave/sitewave/internal/server/http/promoapi"
	"github.com/sitewave/sitewave/internal/server/http/subscriptionapi"
	"github.com/sitewave/sitewave/internal/server/http/userapi"
	"github.com/sitewave/sitewave/internal/server/http/websiteapi"
	"github.com/sitewave/sitewave/internal/service/catalog"
	"github.com/sitewave/sitewave/internal/service/email"
	"github.com/sitewave/sitewave/internal/service/payment"
	"github.com/sitewave/sitewave/internal/service/plan"
	"github.com/sitewave/sitewave/internal/service/promo"
	"github.com/sitewave/sitewave/internal/service/subscription"
	"github.com/sitewave/sitewave/internal/service/user"
	"github.com/sitewave/sitewave/internal/service/website"
	"github.com/sitewave/sitewave/internal/storage/pg"
	"github.com/sitewave/sitewave/pkg/graceful"
)

type App struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zerolog.Logger

	server    *httpserver.Server
	scheduler *scheduler.Scheduler

	onBeforeRun []BeforeRunFn
}

type BeforeRunFn func(ctx context.Context, app *App) error

func New(ctx context.Context, cfg *config.Config) *App {
	logger := newLogger(cfg)

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}

	graceful.AddCallback(func() error {
		pool.Close()
		return nil
	})

	store := pg.NewStore(pool)
	subscriptionStore := pg.SubscriptionStore{Store: store}
	websiteStore := pg.WebsiteStore{Store: store}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// services
	userService := user.New(store, logger)
	planService := plan.New(store, logger)
	catalogService := catalog.New(store, logger)
	promoService := promo.New(store, logger)
	subscriptionService := subscription.New(subscriptionStore, logger)
	websiteService := website.New(websiteStore, catalogService, logger)

	bus := EventBus.New()

	paymentService := payment.New(store, planService, catalogService, promoService, bus, logger)
	paymentService.SetReconciler(subscriptionService)

	emailService := email.New(&email.LogSender{Logger: logger}, userService, logger)
	userService.SetNotifier(emailService)
	if err := bus.Subscribe(payment.TopicApproved, emailService.HandlePaymentApproved); err != nil {
		logger.Fatal().Err(err).Msg("unable to subscribe to payment events")
	}
	if err := bus.Subscribe(payment.TopicRejected, emailService.HandlePaymentRejected); err != nil {
		logger.Fatal().Err(err).Msg("unable to subscribe to payment events")
	}

	// transports
	server := httpserver.New(
		httpserver.Config{Address: cfg.Server.Address},
		logger,
		httpserver.WithAPI(
			tokens,
			authapi.New(userService, tokens, logger),
			planapi.New(planService, logger),
			catalogapi.New(catalogService, logger),
			promoapi.New(promoService, logger),
			paymentapi.New(paymentService, logger),
			subscriptionapi.New(subscriptionService, logger),
			websiteapi.New(websiteService, logger),
			userapi.New(userService, logger),
		),
	)

	jobs := scheduler.New(scheduler.NewHandler(subscriptionService), logger)

	return &App{
		ctx:       ctx,
		cfg:       cfg,
		logger:    logger,
		server:    server,
		scheduler: jobs,
	}
}

func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

func (a *App) OnBeforeRun(fn BeforeRunFn) {
	a.onBeforeRun = append(a.onBeforeRun, fn)
}

// RunServer starts the HTTP server in the background and registers its
// graceful shutdown.
func (a *App) RunServer() {
	for _, fn := range a.onBeforeRun {
		if err := fn(a.ctx, a); err != nil {
			a.logger.Fatal().Err(err).Msg("before-run hook failed")
		}
	}
	a.onBeforeRun = nil

	go func() {
		if err := a.server.Run(); err != nil {
			a.logger.Fatal().Err(err).Msg("http server stopped unexpectedly")
		}
	}()

	graceful.AddCallback(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return a.server.Shutdown(ctx)
	})
}

// RunScheduler starts the periodic jobs if enabled.
func (a *App) RunScheduler() {
	if !a.cfg.Scheduler.Enabled {
		a.logger.Info().Msg("scheduler disabled")
		return
	}

	if err := a.scheduler.Start(); err != nil {
		a.logger.Fatal().Err(err).Msg("unable to start scheduler")
	}

	graceful.AddCallback(a.scheduler.Stop)
}

func newLogger(cfg *config.Config) *zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.App.Env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	logger = logger.Level(level).With().Timestamp().Logger()

	return &logger
}
