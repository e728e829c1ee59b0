package license

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// CodePrefix starts every license code.
const CodePrefix = "FENCE-"

// Codec mints and checks license codes.
//
// A code is CodePrefix followed by standard padded base64 of
// `<payload JSON>.<hex HMAC-SHA256 of payload JSON>`. Payload keys are
// always emitted in the order e, t, c.
type Codec struct {
	signer *Signer
}

func NewCodec(secret string) (*Codec, error) {
	s, err := NewSigner(secret)
	if err != nil {
		return nil, err
	}
	return &Codec{signer: s}, nil
}

// Encode returns the license code for email and type issued at now. The
// output depends only on its inputs (now is truncated to whole seconds).
// An empty email or unknown type is a *ValidationError, so every code
// Encode returns decodes.
func (c *Codec) Encode(email string, typ LicenseType, now time.Time) (string, error) {
	if email == "" {
		return "", &ValidationError{Field: "email"}
	}
	if _, err := ParseLicenseType(string(typ)); err != nil {
		return "", &ValidationError{Field: "type"}
	}
	payload, err := marshalPayload(LicensePayload{Email: email, Type: typ, IssuedAt: now.Unix()})
	if err != nil {
		return "", err
	}
	combined := make([]byte, 0, len(payload)+1+sha256HexLen)
	combined = append(combined, payload...)
	combined = append(combined, '.')
	combined = append(combined, c.signer.Sign(payload)...)
	return CodePrefix + base64.StdEncoding.EncodeToString(combined), nil
}

const sha256HexLen = 64

// marshalPayload matches JSON.stringify: no HTML escaping, no trailing newline.
func marshalPayload(p LicensePayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode validates code and returns its payload. Failures are *DecodeError.
func (c *Codec) Decode(code string) (LicensePayload, error) {
	if !strings.HasPrefix(code, CodePrefix) {
		return LicensePayload{}, &DecodeError{Kind: MalformedPrefix}
	}
	raw, err := decodeBase64(code[len(CodePrefix):])
	if err != nil {
		return LicensePayload{}, &DecodeError{Kind: MalformedEncoding, Err: err}
	}
	if !utf8.Valid(raw) {
		return LicensePayload{}, &DecodeError{Kind: MalformedEncoding, Err: errors.New("not utf-8")}
	}

	// Emails may contain dots, so the signature starts after the last one.
	dot := bytes.LastIndexByte(raw, '.')
	if dot < 0 {
		return LicensePayload{}, &DecodeError{Kind: MalformedStructure}
	}
	payload, sig := raw[:dot], string(raw[dot+1:])

	if !c.signer.Verify(payload, sig) {
		return LicensePayload{}, &DecodeError{Kind: InvalidSignature}
	}

	p, err := parsePayload(payload)
	if err != nil {
		return LicensePayload{}, &DecodeError{Kind: InvalidPayload, Err: err}
	}
	return p, nil
}

// decodeBase64 accepts the standard alphabet and, like the desktop client,
// its URL-safe variant.
func decodeBase64(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	if alt, altErr := base64.URLEncoding.DecodeString(s); altErr == nil {
		return alt, nil
	}
	return nil, err
}

func parsePayload(b []byte) (LicensePayload, error) {
	var wire struct {
		Email *string      `json:"e"`
		Type  *string      `json:"t"`
		Time  *json.Number `json:"c"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return LicensePayload{}, err
	}
	if wire.Email == nil || *wire.Email == "" {
		return LicensePayload{}, errors.New("missing e")
	}
	if wire.Type == nil {
		return LicensePayload{}, errors.New("missing t")
	}
	typ, err := ParseLicenseType(*wire.Type)
	if err != nil {
		return LicensePayload{}, err
	}
	if wire.Time == nil {
		return LicensePayload{}, errors.New("missing c")
	}
	issued, err := wire.Time.Int64()
	if err != nil {
		return LicensePayload{}, errors.New("c is not an integer")
	}
	return LicensePayload{Email: *wire.Email, Type: typ, IssuedAt: issued}, nil
}
