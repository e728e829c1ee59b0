package payment

import (
	"encoding/json"
	"fmt"

	"github.com/usefence/licensed/internal/license"
)

// EventCheckoutCompleted is the only event type that issues a license.
const EventCheckoutCompleted = "checkout.session.completed"

// StudentPriceCeiling is the largest amount, in minor units, sold as a
// student license.
const StudentPriceCeiling = 500

// Event is the envelope of a payment-provider webhook.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the object of a checkout.session.completed event.
type CheckoutSession struct {
	ID              string `json:"id"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// Email returns the customer's email or "".
func (s *CheckoutSession) Email() string {
	if s.CustomerDetails == nil {
		return ""
	}
	return s.CustomerDetails.Email
}

// ParseEvent decodes an authenticated webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

// CheckoutSession decodes the event object as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &s, nil
}

// TypeForAmount maps a purchase amount in minor currency units to a license type.
func TypeForAmount(amount int64) license.LicenseType {
	if amount <= StudentPriceCeiling {
		return license.TypeStudent
	}
	return license.TypeStandard
}
