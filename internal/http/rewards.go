package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/redemption"
	"github.com/fyrsmithlabs/sparkd/internal/rewards"
)

// RewardsResponse is the response body for GET /api/v1/rewards.
type RewardsResponse struct {
	Version string               `json:"version"`
	Rewards []rewards.Definition `json:"rewards"`
}

// RedeemRequest is the request body for POST /api/v1/rewards/redeem.
type RedeemRequest struct {
	RewardID string `json:"rewardId"`
}

func (s *Server) handleListRewards(c echo.Context) error {
	cat := s.services.Rewards
	list := cat.All()
	if raw := c.QueryParam("category"); raw != "" {
		category := rewards.Category(raw)
		if !category.Valid() {
			return errs.Invalid("unknown reward category %q", raw)
		}
		list = cat.ByCategory(category)
	}
	return c.JSON(http.StatusOK, RewardsResponse{Version: cat.Version(), Rewards: list})
}

func (s *Server) handlePoints(c echo.Context) error {
	p, err := s.services.Redemptions.Points(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleRedeem(c echo.Context) error {
	var req RedeemRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	receipt, err := s.services.Redemptions.Redeem(c.Request().Context(), userID(c), req.RewardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, receipt)
}

func (s *Server) handleRedemptionHistory(c echo.Context) error {
	status, err := redemption.ParseStatus(c.QueryParam("status"))
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	items, err := s.services.Redemptions.History(c.Request().Context(), userID(c), status, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleActiveRedemptions(c echo.Context) error {
	items, err := s.services.Redemptions.Active(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
