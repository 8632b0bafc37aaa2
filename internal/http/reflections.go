package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sparkd/internal/reflection"
)

func (s *Server) handleSubmitReflection(c echo.Context) error {
	var req reflection.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.UserID = userID(c)

	res, err := s.services.Reflections.Submit(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) handleListReflections(c echo.Context) error {
	items, err := s.services.Reflections.List(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleDeleteReflection(c echo.Context) error {
	if err := s.services.Reflections.Delete(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
