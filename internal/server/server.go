// Package server exposes the progress operations over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/studyquest/internal/progress"
	"github.com/example/studyquest/internal/ratelimit"
	"github.com/example/studyquest/pkg/models"
)

// Service is the progress engine the API serves
type Service interface {
	RecordOutcome(ctx context.Context, profileID, cardID int64, outcome models.Outcome) (models.OutcomeResult, error)
	GetDueCards(ctx context.Context, profileID int64, theme string, limit int) (models.DueCards, error)
	AwardAndSync(ctx context.Context, profileID int64, req models.SyncRequest) (models.SyncResponse, error)
	CompleteTest(ctx context.Context, profileID int64, testID string, score int, difficulty models.Difficulty) (models.TestCompletion, error)
	GetActiveQuests(ctx context.Context, profileID int64) ([]models.QuestView, error)
	GetTokenBalance(ctx context.Context, profileID int64) (models.TokenBalance, error)
	SetConversionRate(ctx context.Context, actor progress.Actor, profileID int64, rate float64) (models.TokenBalance, error)
}

// Server is the HTTP API
type Server struct {
	echo    *echo.Echo
	svc     Service
	auth    *Authenticator
	limiter *ratelimit.Store
	logger  *slog.Logger
}

// New builds the API. limiter guards the reward-writing endpoints per profile.
func New(svc Service, auth *Authenticator, limiter *ratelimit.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, svc: svc, auth: auth, limiter: limiter, logger: logger}
	e.HTTPErrorHandler = s.handleError
	e.Use(s.requestLogger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	v1 := e.Group("/api/v1", auth.middleware)
	p := v1.Group("/profiles/:id", s.authorizeProfile)
	p.POST("/cards/:card/answers", s.recordOutcome)
	p.GET("/cards/due", s.getDueCards)
	p.POST("/sync", s.awardAndSync, s.rateLimited)
	p.POST("/tests/complete", s.completeTest, s.rateLimited)
	p.GET("/quests", s.getActiveQuests)
	p.GET("/tokens", s.getTokenBalance)
	p.PUT("/tokens/rate", s.setConversionRate)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", slog.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("http request",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().Status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}
}
