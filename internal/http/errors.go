package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/logging"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor maps a domain error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, errs.ErrUpstream):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// handleError is the echo error handler. Echo errors keep their status;
// domain errors are classified by sentinel. Messages of 5xx responses are
// not echoed to the caller.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    int
		label   string
		message string
	)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		label = strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	} else {
		code, label = statusFor(err)
		message = err.Error()
	}

	if code >= http.StatusInternalServerError {
		logging.For(c.Request().Context(), s.logger).Error("request failed",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err))
		message = http.StatusText(code)
	}

	resp := ErrorResponse{
		Error:     message,
		Code:      label,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		s.logger.Warn("failed to write error response", zap.Error(err))
	}
}
