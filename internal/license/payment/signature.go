// Package payment authenticates inbound payment-provider events and turns a
// completed checkout into an issued license.
package payment

import (
	"strconv"
	"strings"
	"time"

	"github.com/usefence/licensed/internal/license"
)

// DefaultTolerance is the replay window for signed events.
const DefaultTolerance = 300 * time.Second

// AuthErrorKind enumerates why an event was rejected.
type AuthErrorKind int

const (
	MalformedHeader AuthErrorKind = iota + 1
	StaleTimestamp
	InvalidSignature
)

func (k AuthErrorKind) String() string {
	switch k {
	case MalformedHeader:
		return "malformed_header"
	case StaleTimestamp:
		return "stale_timestamp"
	case InvalidSignature:
		return "invalid_signature"
	}
	return "unknown"
}

// AuthError is returned by Verifier.Verify.
type AuthError struct {
	Kind AuthErrorKind
}

func (e *AuthError) Error() string { return "payment: " + e.Kind.String() }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMalformedHeader  = &AuthError{Kind: MalformedHeader}
	ErrStaleTimestamp   = &AuthError{Kind: StaleTimestamp}
	ErrInvalidSignature = &AuthError{Kind: InvalidSignature}
)

// SignatureHeader is the parsed `t=<unix>,v1=<hex>[,v0=...]` header.
type SignatureHeader struct {
	Timestamp int64
	V1        string
}

// ParseSignatureHeader reads the t and v1 entries and ignores the rest.
func ParseSignatureHeader(header string) (SignatureHeader, error) {
	var (
		h       SignatureHeader
		haveT   bool
		haveSig bool
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return SignatureHeader{}, &AuthError{Kind: MalformedHeader}
			}
			h.Timestamp, haveT = ts, true
		case "v1":
			if value != "" {
				h.V1, haveSig = value, true
			}
		}
	}
	if !haveT || !haveSig {
		return SignatureHeader{}, &AuthError{Kind: MalformedHeader}
	}
	return h, nil
}

// Verifier checks event signatures with the provider's signing secret.
type Verifier struct {
	signer    *license.Signer
	tolerance time.Duration
}

// NewVerifier returns a Verifier; tolerance <= 0 selects DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	s, err := license.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{signer: s, tolerance: tolerance}, nil
}

// Verify accepts rawBody only if header carries a v1 signature of
// "{t}.{rawBody}" and t lies within the tolerance of now.
func (v *Verifier) Verify(rawBody []byte, header string, now time.Time) error {
	h, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}
	// Bounds derive from now only, so no arithmetic touches the untrusted t.
	window := int64(v.tolerance / time.Second)
	if h.Timestamp < now.Unix()-window || h.Timestamp > now.Unix()+window {
		return &AuthError{Kind: StaleTimestamp}
	}
	signed := make([]byte, 0, len(rawBody)+21)
	signed = strconv.AppendInt(signed, h.Timestamp, 10)
	signed = append(signed, '.')
	signed = append(signed, rawBody...)
	if !v.signer.Verify(signed, h.V1) {
		return &AuthError{Kind: InvalidSignature}
	}
	return nil
}

// Sign produces a header value for rawBody at ts. Used by tests and the CLI
// to forge local webhook deliveries.
func (v *Verifier) Sign(rawBody []byte, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + v.signer.Sign(append([]byte(t+"."), rawBody...))
}
