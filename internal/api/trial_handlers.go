package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type trialRequest struct {
	DeviceID string `json:"deviceId"`
}

type trialResponse struct {
	Success       bool   `json:"success"`
	DaysRemaining int    `json:"daysRemaining"`
	ExpiresAt     string `json:"expiresAt"`
	IsNew         bool   `json:"isNew"`
}

func (s *Server) attachTrialRoutes(g *echo.Group) {
	g.POST("/trial/check", s.handleTrialCheck)
}

func (s *Server) handleTrialCheck(c echo.Context) error {
	var req trialRequest
	if err := c.Bind(&req); err != nil || req.DeviceID == "" {
		return fail(c, http.StatusBadRequest, codeMissingDeviceID, "Device ID is required")
	}

	status, err := s.opts.Ledger.CheckTrial(c.Request().Context(), req.DeviceID)
	if err != nil {
		return classifyLedgerError(c, "trial check", err)
	}
	return c.JSON(http.StatusOK, trialResponse{
		Success:       true,
		DaysRemaining: status.DaysRemaining,
		ExpiresAt:     isoTime(status.ExpiresAt),
		IsNew:         status.IsNew,
	})
}
