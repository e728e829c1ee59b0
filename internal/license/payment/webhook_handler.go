package payment

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/usefence/licensed/internal/license"
)

// SignatureHeaderName carries the event signature.
const SignatureHeaderName = "Stripe-Signature"

// Issuer persists a minted code. *license.Service implements it.
type Issuer interface {
	Store(ctx context.Context, code, email string, typ license.LicenseType) (bool, error)
}

// Notifier delivers a freshly issued code to the customer.
type Notifier interface {
	SendLicenseEmail(ctx context.Context, email, code string, typ license.LicenseType) error
}

// WebhookHandler turns completed checkouts into issued licenses.
type WebhookHandler struct {
	verifier *Verifier
	codec    *license.Codec
	issuer   Issuer
	notifier Notifier
	now      func() time.Time
}

func NewWebhookHandler(verifier *Verifier, codec *license.Codec, issuer Issuer, notifier Notifier) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		codec:    codec,
		issuer:   issuer,
		notifier: notifier,
		now:      time.Now,
	}
}

// HandleWebhook processes one signed event delivery.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
	}

	signature := c.Request().Header.Get(SignatureHeaderName)
	if signature == "" {
		log.Warn().Str("remote_ip", c.RealIP()).Msg("payment webhook without signature")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing signature"})
	}
	if err := h.verifier.Verify(body, signature, h.now()); err != nil {
		log.Warn().Err(err).Str("remote_ip", c.RealIP()).Msg("payment webhook rejected")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid signature"})
	}

	event, err := ParseEvent(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
	}
	if event.Type != EventCheckoutCompleted {
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	session, err := event.CheckoutSession()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid checkout session"})
	}
	email := session.Email()
	if email == "" {
		log.Error().Str("event_id", event.ID).Msg("checkout session without customer email")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No customer email"})
	}

	ctx := c.Request().Context()
	typ := TypeForAmount(session.AmountTotal)

	// Deriving the issue time from the event makes redeliveries mint the same
	// code, which the ledger then ignores.
	issuedAt := h.now()
	if event.Created > 0 {
		issuedAt = time.Unix(event.Created, 0)
	}
	code, err := h.codec.Encode(email, typ, issuedAt)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("encode license code")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Webhook processing failed"})
	}

	inserted, err := h.issuer.Store(ctx, code, email, typ)
	if err != nil {
		// Not acknowledging makes the provider redeliver.
		log.Error().Err(err).Str("event_id", event.ID).Msg("store issued license")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Webhook processing failed"})
	}
	if !inserted {
		log.Info().Str("event_id", event.ID).Msg("duplicate checkout delivery, license already issued")
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	log.Info().
		Str("event_id", event.ID).
		Str("type", typ.String()).
		Int64("amount", session.AmountTotal).
		Msg("license issued")

	if err := h.notifier.SendLicenseEmail(ctx, email, code, typ); err != nil {
		// The code is stored; support can resend it.
		log.Error().Err(err).Str("event_id", event.ID).Msg("send license email")
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
