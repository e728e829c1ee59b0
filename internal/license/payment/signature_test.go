package payment

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usefence/licensed/internal/license"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier("whsec_test", 0)
	require.NoError(t, err)
	return v
}

func TestParseSignatureHeader(t *testing.T) {
	h, err := ParseSignatureHeader("t=1700000000,v1=abc,v0=legacy")
	require.NoError(t, err)
	assert.Equal(t, SignatureHeader{Timestamp: 1700000000, V1: "abc"}, h)

	h, err = ParseSignatureHeader(" v1=def , t=5 ,junk")
	require.NoError(t, err)
	assert.Equal(t, SignatureHeader{Timestamp: 5, V1: "def"}, h)

	for _, bad := range []string{"", "t=1", "v1=abc", "t=abc,v1=def", "t=1,v1="} {
		_, err := ParseSignatureHeader(bad)
		assert.ErrorIs(t, err, ErrMalformedHeader, "header %q", bad)
	}
}

func TestVerifyTolerance(t *testing.T) {
	v := newTestVerifier(t)
	body := []byte(`{"id":"evt_1"}`)
	now := time.Unix(1700000000, 0)

	assert.NoError(t, v.Verify(body, v.Sign(body, now), now))
	assert.NoError(t, v.Verify(body, v.Sign(body, now.Add(-299*time.Second)), now))
	assert.NoError(t, v.Verify(body, v.Sign(body, now.Add(300*time.Second)), now))
	assert.ErrorIs(t, v.Verify(body, v.Sign(body, now.Add(-301*time.Second)), now), ErrStaleTimestamp)
	assert.ErrorIs(t, v.Verify(body, v.Sign(body, now.Add(301*time.Second)), now), ErrStaleTimestamp)
}

func TestVerifyRejectsExtremeTimestamps(t *testing.T) {
	v := newTestVerifier(t)
	s, err := license.NewSigner("whsec_test")
	require.NoError(t, err)
	body := []byte(`{"id":"evt_1"}`)
	now := time.Unix(1700000000, 0)

	for _, ts := range []int64{math.MinInt64, math.MinInt64 + 1, -1, 0, math.MaxInt64, math.MaxInt64 - 1} {
		stamp := strconv.FormatInt(ts, 10)
		header := "t=" + stamp + ",v1=" + s.Sign([]byte(stamp+"."+string(body)))
		assert.ErrorIs(t, v.Verify(body, header, now), ErrStaleTimestamp, "t=%s", stamp)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	v := newTestVerifier(t)
	now := time.Unix(1700000000, 0)
	header := v.Sign([]byte(`{"amount_total":4900}`), now)

	assert.ErrorIs(t, v.Verify([]byte(`{"amount_total":500}`), header, now), ErrInvalidSignature)

	other, err := NewVerifier("whsec_other", time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, other.Verify([]byte(`{"amount_total":4900}`), header, now), ErrInvalidSignature)
}

func TestVerifyKnownSignature(t *testing.T) {
	// HMAC-SHA256("whsec_test", "1700000000.{}")
	s, err := license.NewSigner("whsec_test")
	require.NoError(t, err)
	header := "t=1700000000,v1=" + s.Sign([]byte("1700000000.{}"))

	v := newTestVerifier(t)
	assert.Equal(t, header, v.Sign([]byte("{}"), time.Unix(1700000000, 0)))
	assert.NoError(t, v.Verify([]byte("{}"), header, time.Unix(1700000100, 0)))
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("", 0)
	assert.ErrorIs(t, err, license.ErrEmptySecret)
}
