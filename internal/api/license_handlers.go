package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/usefence/licensed/internal/license"
)

type activateRequest struct {
	LicenseCode string `json:"licenseCode"`
	DeviceID    string `json:"deviceId"`
}

type activateResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	Type    string `json:"type"`
}

type storeRequest struct {
	Code          string `json:"code"`
	Email         string `json:"email"`
	Type          string `json:"type"`
	WebhookSecret string `json:"webhookSecret"`
}

type recoverResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Email   string `json:"email"`
	Type    string `json:"type"`
}

type verifyRequest struct {
	LicenseCode string `json:"licenseCode"`
}

type verifyResponse struct {
	Valid   bool                    `json:"valid"`
	Payload *license.LicensePayload `json:"payload,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func (s *Server) attachLicenseRoutes(g *echo.Group) {
	g.POST("/activate", s.handleActivate)
	g.GET("/license/recover", s.handleRecover)
	g.POST("/license/store", s.handleStore)
	g.POST("/license/verify", s.handleVerify)
}

func (s *Server) handleActivate(c echo.Context) error {
	var req activateRequest
	if err := c.Bind(&req); err != nil || req.LicenseCode == "" || req.DeviceID == "" {
		return fail(c, http.StatusBadRequest, codeMissingParams, "License code and device ID are required")
	}

	activation, err := s.opts.Ledger.Activate(c.Request().Context(), req.LicenseCode, req.DeviceID)
	if err != nil {
		return classifyLedgerError(c, "activation", err)
	}
	return c.JSON(http.StatusOK, activateResponse{
		Success: true,
		Email:   activation.Email,
		Type:    activation.Type.String(),
	})
}

func (s *Server) handleRecover(c echo.Context) error {
	deviceID := c.QueryParam("deviceId")
	if deviceID == "" {
		return fail(c, http.StatusBadRequest, codeMissingDeviceID, "Device ID is required")
	}

	rec, found, err := s.opts.Ledger.Recover(c.Request().Context(), deviceID)
	if err != nil {
		return classifyLedgerError(c, "recovery", err)
	}
	if !found {
		return fail(c, http.StatusNotFound, codeNoLicense, "No license is activated on this device")
	}
	return c.JSON(http.StatusOK, recoverResponse{
		Success: true,
		Code:    rec.Code,
		Email:   rec.Email,
		Type:    rec.Type.String(),
	})
}

func (s *Server) handleStore(c echo.Context) error {
	var req storeRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, codeMissingParams, "Invalid request body")
	}
	if !s.issuerAuthorized(req.WebhookSecret) {
		log.Warn().Str("remote_ip", c.RealIP()).Msg("license store with bad issuer secret")
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "")
	}
	if req.Code == "" || req.Email == "" || req.Type == "" {
		return fail(c, http.StatusBadRequest, codeMissingParams, "code, email and type are required")
	}
	typ, err := license.ParseLicenseType(req.Type)
	if err != nil {
		return fail(c, http.StatusBadRequest, codeInvalidType, err.Error())
	}

	if _, err := s.opts.Ledger.Store(c.Request().Context(), req.Code, req.Email, typ); err != nil {
		return classifyLedgerError(c, "license store", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) issuerAuthorized(given string) bool {
	if s.opts.IssuerSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(s.opts.IssuerSecret)) == 1
}

func (s *Server) handleVerify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil || req.LicenseCode == "" {
		return fail(c, http.StatusBadRequest, codeMissingParams, "License code is required")
	}

	payload, err := s.opts.Codec.Decode(req.LicenseCode)
	if err != nil {
		var de *license.DecodeError
		reason := "invalid"
		if errors.As(err, &de) {
			reason = de.Kind.String()
		}
		if errors.Is(err, license.ErrInvalidSignature) {
			log.Warn().Str("remote_ip", c.RealIP()).Msg("license code with forged signature")
		}
		return c.JSON(http.StatusOK, verifyResponse{Error: reason})
	}
	return c.JSON(http.StatusOK, verifyResponse{Valid: true, Payload: &payload})
}
