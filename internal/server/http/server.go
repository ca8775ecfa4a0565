// Package http assembles the echo server and its route groups.
package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	mw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
)

type Config struct {
	Address string
}

type Server struct {
	echo   *echo.Echo
	cfg    Config
	logger *zerolog.Logger
}

type Opt func(*Server)

func New(cfg Config, logger *zerolog.Logger, opts ...Opt) *Server {
	log := logger.With().Str("channel", "http_server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Logger = lecho.From(log)
	e.Use(lecho.Middleware(lecho.Config{Logger: lecho.From(log)}))
	e.Use(mw.Recover())

	s := &Server{
		echo:   e,
		cfg:    cfg,
		logger: &log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Server) Run() error {
	s.logger.Info().Str("address", s.cfg.Address).Msg("starting http server")

	if err := s.echo.Start(s.cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "unable to start http server")
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router. Used in tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
