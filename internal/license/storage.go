package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Storage is the SQL implementation of Store. Exactly-once semantics come
// from the primary keys and the conditional UPDATE, so any number of server
// instances can share one database.
type Storage struct {
	db *bun.DB
}

func NewStorage(db *bun.DB) *Storage { return &Storage{db: db} }

// CreateSchema creates the licenses and trials tables if they are missing.
func (s *Storage) CreateSchema(ctx context.Context) error {
	for _, model := range []any{(*LicenseRecord)(nil), (*TrialRecord)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	_, err := s.db.NewCreateIndex().
		Model((*LicenseRecord)(nil)).
		Index("licenses_activated_by_device_idx").
		Column("activated_by_device").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// InsertLicense creates rec unless its code already exists.
func (s *Storage) InsertLicense(ctx context.Context, rec *LicenseRecord) (bool, error) {
	res, err := s.db.NewInsert().Model(rec).On("CONFLICT (code) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert license: %w", err)
	}
	return affectedOne(res)
}

// ActivateLicense sets the activation columns only while activated_at is NULL.
func (s *Storage) ActivateLicense(ctx context.Context, code, deviceID string, at time.Time) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*LicenseRecord)(nil)).
		Set("activated_at = ?", at.UTC()).
		Set("activated_by_device = ?", deviceID).
		Where("code = ?", code).
		Where("activated_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("activate license: %w", err)
	}
	return affectedOne(res)
}

// GetLicense returns the record for code or nil if there is none.
func (s *Storage) GetLicense(ctx context.Context, code string) (*LicenseRecord, error) {
	rec := new(LicenseRecord)
	err := s.db.NewSelect().Model(rec).Where("code = ?", code).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query license: %w", err)
	}
	return rec, nil
}

// FindLicenseByDevice returns the latest record activated by deviceID or nil.
func (s *Storage) FindLicenseByDevice(ctx context.Context, deviceID string) (*LicenseRecord, error) {
	rec := new(LicenseRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("activated_by_device = ?", deviceID).
		OrderExpr("activated_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query license by device: %w", err)
	}
	return rec, nil
}

// InsertTrial creates rec unless the device already has a trial.
func (s *Storage) InsertTrial(ctx context.Context, rec *TrialRecord) (bool, error) {
	res, err := s.db.NewInsert().Model(rec).On("CONFLICT (device_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert trial: %w", err)
	}
	return affectedOne(res)
}

// GetTrial returns the device's trial or nil.
func (s *Storage) GetTrial(ctx context.Context, deviceID string) (*TrialRecord, error) {
	rec := new(TrialRecord)
	err := s.db.NewSelect().Model(rec).Where("device_id = ?", deviceID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query trial: %w", err)
	}
	return rec, nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
