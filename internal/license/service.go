package license

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is the durable side of the ledger. Implementations must make
// ActivateLicense a compare-and-swap on activated_at IS NULL and make both
// inserts no-ops when the key exists; Service relies on that instead of
// in-process locking.
type Store interface {
	InsertLicense(ctx context.Context, rec *LicenseRecord) (bool, error)
	ActivateLicense(ctx context.Context, code, deviceID string, at time.Time) (bool, error)
	GetLicense(ctx context.Context, code string) (*LicenseRecord, error)
	FindLicenseByDevice(ctx context.Context, deviceID string) (*LicenseRecord, error)
	InsertTrial(ctx context.Context, rec *TrialRecord) (bool, error)
	GetTrial(ctx context.Context, deviceID string) (*TrialRecord, error)
}

// Service is the activation ledger: license issuance and one-time activation,
// plus per-device trials.
type Service struct {
	store Store
	clock TrialClock
	now   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithNow replaces the wall clock, mainly for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, clock TrialClock, opts ...Option) *Service {
	s := &Service{store: store, clock: clock, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store records a newly issued code. Calling it again with the same code,
// whatever the email or type, leaves the original record untouched.
func (s *Service) Store(ctx context.Context, code, email string, typ LicenseType) (bool, error) {
	switch {
	case code == "":
		return false, &ValidationError{Field: "code"}
	case email == "":
		return false, &ValidationError{Field: "email"}
	}
	if _, err := ParseLicenseType(string(typ)); err != nil {
		return false, &ValidationError{Field: "type"}
	}

	rec := &LicenseRecord{Code: code, Email: email, Type: typ, CreatedAt: s.now().UTC()}
	inserted, err := s.store.InsertLicense(ctx, rec)
	if err != nil {
		return false, &TransientError{Op: "store", Err: err}
	}
	if !inserted {
		log.Debug().Str("email", email).Msg("license code already stored, ignoring")
	}
	return inserted, nil
}

// Activate binds code to deviceID. Only one caller can ever win for a code;
// every other attempt, including a retry by the winner, gets AlreadyActivated
// naming the winning device.
func (s *Service) Activate(ctx context.Context, code, deviceID string) (*Activation, error) {
	switch {
	case code == "":
		return nil, &ValidationError{Field: "licenseCode"}
	case deviceID == "":
		return nil, &ValidationError{Field: "deviceId"}
	}

	won, err := s.store.ActivateLicense(ctx, code, deviceID, s.now())
	if err != nil {
		return nil, &TransientError{Op: "activate", Err: err}
	}
	rec, err := s.store.GetLicense(ctx, code)
	if err != nil {
		return nil, &TransientError{Op: "activate", Err: err}
	}
	if rec == nil {
		return nil, &ActivationError{Kind: NotFound}
	}
	if !won {
		return nil, &ActivationError{Kind: AlreadyActivated, Device: rec.Device()}
	}

	log.Info().Str("email", rec.Email).Str("type", rec.Type.String()).Str("device", deviceID).Msg("license activated")
	return &Activation{Email: rec.Email, Type: rec.Type}, nil
}

// Recover returns the license previously activated by deviceID, if any.
func (s *Service) Recover(ctx context.Context, deviceID string) (*LicenseRecord, bool, error) {
	if deviceID == "" {
		return nil, false, &ValidationError{Field: "deviceId"}
	}
	rec, err := s.store.FindLicenseByDevice(ctx, deviceID)
	if err != nil {
		return nil, false, &TransientError{Op: "recover", Err: err}
	}
	return rec, rec != nil, nil
}

// CheckTrial returns the device's trial, creating it on first sight. The
// stored deadline is never recomputed, and concurrent first checks all see
// the single persisted row.
func (s *Service) CheckTrial(ctx context.Context, deviceID string) (*TrialStatus, error) {
	if deviceID == "" {
		return nil, &ValidationError{Field: "deviceId"}
	}
	now := s.now()

	existing, err := s.store.GetTrial(ctx, deviceID)
	if err != nil {
		return nil, &TransientError{Op: "trial check", Err: err}
	}
	if existing != nil {
		return trialStatus(existing, now, false), nil
	}

	candidate := &TrialRecord{DeviceID: deviceID, ExpiresAt: s.clock.Deadline(now).UTC(), CreatedAt: now.UTC()}
	inserted, err := s.store.InsertTrial(ctx, candidate)
	if err != nil {
		return nil, &TransientError{Op: "trial create", Err: err}
	}
	if inserted {
		log.Info().Str("device", deviceID).Time("expires_at", candidate.ExpiresAt).Msg("trial started")
		return trialStatus(candidate, now, true), nil
	}

	// Lost the race to a concurrent first check; report the winner's row.
	stored, err := s.store.GetTrial(ctx, deviceID)
	if err != nil {
		return nil, &TransientError{Op: "trial check", Err: err}
	}
	if stored == nil {
		return nil, &TransientError{Op: "trial check", Err: errTrialVanished}
	}
	return trialStatus(stored, now, false), nil
}

func trialStatus(rec *TrialRecord, now time.Time, isNew bool) *TrialStatus {
	return &TrialStatus{
		ExpiresAt:     rec.ExpiresAt,
		DaysRemaining: DaysRemaining(rec.ExpiresAt, now),
		IsNew:         isNew,
	}
}
