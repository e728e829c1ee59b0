package license

import (
	"bufio"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usefence/licensed/internal/database"
)

// getDatabaseURL attempts to read DATABASE_URL from env or .env file (best effort).
func getDatabaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	f, err := os.Open(".env")
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "DATABASE_URL=") {
			return strings.Trim(strings.TrimPrefix(line, "DATABASE_URL="), "\"'")
		}
	}
	return ""
}

func TestStoragePostgres(t *testing.T) {
	dsn := getDatabaseURL()
	if dsn == "" {
		t.Skip("DATABASE_URL not set (skipping DB-backed storage test)")
	}
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverPostgres, dsn)
	require.NoError(t, err)
	defer db.Close()

	st := NewStorage(db)
	require.NoError(t, st.CreateSchema(ctx))

	code := "FENCE-test-" + uuid.NewString()
	device := "device-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = db.NewDelete().Model((*LicenseRecord)(nil)).Where("code = ?", code).Exec(ctx)
		_, _ = db.NewDelete().Model((*TrialRecord)(nil)).Where("device_id = ?", device).Exec(ctx)
	})

	ok, err := st.InsertLicense(ctx, &LicenseRecord{Code: code, Email: "pg@b.com", Type: TypeStandard, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.InsertLicense(ctx, &LicenseRecord{Code: code, Email: "other@b.com", Type: TypeStudent, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, ok)

	won, err := st.ActivateLicense(ctx, code, device, time.Now())
	require.NoError(t, err)
	assert.True(t, won)
	won, err = st.ActivateLicense(ctx, code, "someone-else", time.Now())
	require.NoError(t, err)
	assert.False(t, won)

	rec, err := st.FindLicenseByDevice(ctx, device)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "pg@b.com", rec.Email)
	assert.Equal(t, device, rec.Device())

	expires := time.Now().Add(14 * 24 * time.Hour).UTC()
	ok, err = st.InsertTrial(ctx, &TrialRecord{DeviceID: device, ExpiresAt: expires, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.InsertTrial(ctx, &TrialRecord{DeviceID: device, ExpiresAt: expires.Add(time.Hour), CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, ok)

	trial, err := st.GetTrial(ctx, device)
	require.NoError(t, err)
	require.NotNil(t, trial)
	assert.WithinDuration(t, expires, trial.ExpiresAt, time.Millisecond)
}
