package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/sparkd/internal/logging"
)

// maxUserIDLength bounds the gateway-supplied identity.
const maxUserIDLength = 128

// requireUser rejects requests without a caller identity and stores it in
// the request context for logging and events.
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
		if userID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
		}
		if len(userID) > maxUserIDLength {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+HeaderUserID+" header")
		}
		ctx := logging.WithUserID(c.Request().Context(), userID)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set(userKey, userID)
		return next(c)
	}
}

const userKey = "sparkd.user_id"

// userID returns the identity set by requireUser.
func userID(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}

// redeemLimiter limits redemptions per user. It returns no middleware when
// the limit is disabled.
func (s *Server) redeemLimiter() []echo.MiddlewareFunc {
	if s.config.RedeemPerMinute <= 0 {
		return nil
	}
	burst := s.config.RedeemBurst
	if burst <= 0 {
		burst = s.config.RedeemPerMinute
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(s.config.RedeemPerMinute) / 60),
		Burst:     burst,
		ExpiresIn: 5 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return userID(c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify caller")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many redemptions, slow down")
		},
	})}
}
