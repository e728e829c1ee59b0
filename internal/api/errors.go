package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/usefence/licensed/internal/license"
)

// Error codes returned to clients.
const (
	codeMissingParams    = "missing_params"
	codeMissingDeviceID  = "missing_device_id"
	codeInvalidType      = "invalid_type"
	codeInvalidKey       = "invalid_key"
	codeAlreadyActivated = "already_activated"
	codeNoLicense        = "no_license"
	codeUnauthorized     = "unauthorized"
	codeServerError      = "server_error"
	codeInvalidEmail     = "invalid_email"
	codeNotStudentEmail  = "not_student_email"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message})
}

// classifyLedgerError maps every ledger error kind to its response. op names
// the operation for the server_error log line and message.
func classifyLedgerError(c echo.Context, op string, err error) error {
	var (
		validation *license.ValidationError
		activation *license.ActivationError
	)
	switch {
	case errors.As(err, &validation):
		if validation.Field == "deviceId" {
			return fail(c, http.StatusBadRequest, codeMissingDeviceID, "Device ID is required")
		}
		return fail(c, http.StatusBadRequest, codeMissingParams, validation.Error())
	case errors.As(err, &activation):
		switch activation.Kind {
		case license.NotFound:
			return fail(c, http.StatusNotFound, codeInvalidKey, "License key not found")
		case license.AlreadyActivated:
			return fail(c, http.StatusConflict, codeAlreadyActivated, "This license key has already been activated")
		}
	}
	log.Error().Err(err).Str("op", op).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("ledger failure")
	return fail(c, http.StatusInternalServerError, codeServerError, "Server error during "+op)
}
