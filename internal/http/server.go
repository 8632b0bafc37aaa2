// Package http provides the sparkd REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/logging"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
	"github.com/fyrsmithlabs/sparkd/internal/redemption"
	"github.com/fyrsmithlabs/sparkd/internal/reflection"
	"github.com/fyrsmithlabs/sparkd/internal/rewards"
)

// HeaderUserID carries the caller identity set by the upstream gateway.
const HeaderUserID = "X-User-ID"

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

// Services are the domain components behind the API.
type Services struct {
	Rewards     *rewards.Catalog
	Quests      *quest.Catalog
	Today       quest.Service
	Reflections reflection.Service
	Profiles    profile.Service
	Redemptions redemption.Manager

	// Checks are reported by GET /health, keyed by dependency name.
	Checks map[string]HealthCheck
}

func (s *Services) validate() error {
	switch {
	case s.Rewards == nil:
		return errors.New("reward catalog is required")
	case s.Quests == nil:
		return errors.New("quest catalog is required")
	case s.Today == nil:
		return errors.New("quest service is required")
	case s.Reflections == nil:
		return errors.New("reflection service is required")
	case s.Profiles == nil:
		return errors.New("profile service is required")
	case s.Redemptions == nil:
		return errors.New("redemption manager is required")
	}
	return nil
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RedeemPerMinute and RedeemBurst bound POST /rewards/redeem per user.
	// Zero disables the limit.
	RedeemPerMinute int
	RedeemBurst     int
}

// Server provides HTTP endpoints for sparkd.
type Server struct {
	echo     *echo.Echo
	services Services
	logger   *zap.Logger
	config   *Config
	metrics  *requestMetrics
	now      func() time.Time
}

// NewServer creates a new HTTP server.
func NewServer(services Services, logger *zap.Logger, cfg *Config) (*Server, error) {
	if err := services.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		services: services,
		logger:   logger,
		config:   cfg,
		metrics:  newRequestMetrics(logger),
		now:      time.Now,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(s.metrics.middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				// Resolve the status before logging it.
				c.Error(err)
			}

			logging.For(c.Request().Context(), logger).Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1", requireUser)

	v1.GET("/quests/today", s.handleQuestToday)
	v1.GET("/quests/active", s.handleQuestActive)
	v1.GET("/quests/history", s.handleQuestHistory)
	v1.POST("/quests/start", s.handleQuestStart)

	v1.POST("/reflections", s.handleSubmitReflection)
	v1.GET("/reflections", s.handleListReflections)
	v1.DELETE("/reflections/:id", s.handleDeleteReflection)

	v1.GET("/profile", s.handleGetProfile)
	v1.PUT("/profile/steps/:step", s.handleUpdateStep)
	v1.POST("/profile/steps/:step/skip", s.handleSkipStep)
	v1.POST("/profile/mood", s.handleAppendMood)

	v1.GET("/rewards", s.handleListRewards)
	v1.GET("/rewards/points", s.handlePoints)
	v1.POST("/rewards/redeem", s.handleRedeem, s.redeemLimiter()...)
	v1.GET("/rewards/history", s.handleRedemptionHistory)
	v1.GET("/rewards/active", s.handleActiveRedemptions)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth runs the dependency checks. Any failure reports 503.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	code := http.StatusOK
	if len(s.services.Checks) > 0 {
		resp.Checks = make(map[string]string, len(s.services.Checks))
	}
	for name, check := range s.services.Checks {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	return c.JSON(code, resp)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
