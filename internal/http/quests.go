package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// StartQuestRequest is the request body for POST /api/v1/quests/start.
type StartQuestRequest struct {
	QuestTitle string `json:"questTitle"`
}

func (s *Server) handleQuestToday(c echo.Context) error {
	a, err := s.services.Today.Today(c.Request().Context(), userID(c), s.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleQuestActive(c echo.Context) error {
	active, err := s.services.Today.Active(c.Request().Context(), userID(c), s.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, active)
}

func (s *Server) handleQuestHistory(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	history, err := s.services.Today.History(c.Request().Context(), userID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, history)
}

func (s *Server) handleQuestStart(c echo.Context) error {
	var req StartQuestRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.QuestTitle == "" {
		return errs.Invalid("questTitle is required")
	}
	q, ok := s.services.Quests.ByTitle(req.QuestTitle)
	if !ok {
		return errs.NotFound("quest", req.QuestTitle)
	}
	r, err := s.services.Reflections.Start(c.Request().Context(), userID(c), q, s.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.Invalid("%s must be a non-negative integer", name)
	}
	return n, nil
}
