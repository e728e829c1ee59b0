package license

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// LicenseType is the wire tag stored in a license payload.
type LicenseType string

const (
	TypeStandard LicenseType = "std"
	TypeStudent  LicenseType = "stu"
)

// ParseLicenseType accepts only the two wire tags.
func ParseLicenseType(s string) (LicenseType, error) {
	switch LicenseType(s) {
	case TypeStandard, TypeStudent:
		return LicenseType(s), nil
	}
	return "", fmt.Errorf("license: unknown type %q", s)
}

func (t LicenseType) String() string { return string(t) }

// Label is the human readable name used in emails and logs.
func (t LicenseType) Label() string {
	switch t {
	case TypeStudent:
		return "student"
	case TypeStandard:
		return "standard"
	}
	return "unknown"
}

// LicensePayload is the signed part of a license code.
type LicensePayload struct {
	Email    string      `json:"e"`
	Type     LicenseType `json:"t"`
	IssuedAt int64       `json:"c"`
}

// Issued returns IssuedAt as a time.
func (p LicensePayload) Issued() time.Time { return time.Unix(p.IssuedAt, 0) }

// LicenseRecord is the persisted issuance/activation row.
type LicenseRecord struct {
	bun.BaseModel `bun:"table:licenses"`

	Code              string      `bun:"code,pk"`
	Email             string      `bun:"email,notnull"`
	Type              LicenseType `bun:"type,notnull"`
	ActivatedAt       *time.Time  `bun:"activated_at"`
	ActivatedByDevice *string     `bun:"activated_by_device"`
	CreatedAt         time.Time   `bun:"created_at,notnull"`
}

// IsActivated reports whether the record has left the Issued state.
func (r *LicenseRecord) IsActivated() bool { return r.ActivatedAt != nil }

// Device returns the activating device or "".
func (r *LicenseRecord) Device() string {
	if r.ActivatedByDevice == nil {
		return ""
	}
	return *r.ActivatedByDevice
}

// TrialRecord is the persisted per-device trial. It never changes once written.
type TrialRecord struct {
	bun.BaseModel `bun:"table:trials"`

	DeviceID  string    `bun:"device_id,pk"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Activation is returned by a successful Activate.
type Activation struct {
	Email string
	Type  LicenseType
}

// TrialStatus is returned by CheckTrial.
type TrialStatus struct {
	ExpiresAt     time.Time
	DaysRemaining int
	IsNew         bool
}
