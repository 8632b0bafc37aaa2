package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
)

func (s *Server) handleGetProfile(c echo.Context) error {
	snap, err := s.services.Profiles.Get(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

// handleUpdateStep passes the raw body through; the profile service decodes
// it into the section type named by the step.
func (s *Server) handleUpdateStep(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}
	if !json.Valid(body) {
		return errs.Invalid("request body must be JSON")
	}
	snap, err := s.services.Profiles.UpdateStep(c.Request().Context(), userID(c), c.Param("step"), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleSkipStep(c echo.Context) error {
	snap, err := s.services.Profiles.SkipStep(c.Request().Context(), userID(c), c.Param("step"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleAppendMood(c echo.Context) error {
	var mood profile.Mood
	if err := c.Bind(&mood); err != nil {
		return err
	}
	if err := s.services.Profiles.AppendMood(c.Request().Context(), userID(c), mood); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
