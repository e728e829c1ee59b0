package license

import (
	"errors"
	"fmt"
)

// DecodeErrorKind enumerates why a license code was rejected.
type DecodeErrorKind int

const (
	MalformedPrefix DecodeErrorKind = iota + 1
	MalformedEncoding
	MalformedStructure
	InvalidSignature
	InvalidPayload
)

func (k DecodeErrorKind) String() string {
	switch k {
	case MalformedPrefix:
		return "malformed_prefix"
	case MalformedEncoding:
		return "malformed_encoding"
	case MalformedStructure:
		return "malformed_structure"
	case InvalidSignature:
		return "invalid_signature"
	case InvalidPayload:
		return "invalid_payload"
	}
	return "unknown"
}

// DecodeError is returned by Codec.Decode.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "license: " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "license: " + e.Kind.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches any DecodeError of the same kind, so the sentinels below work with errors.Is.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMalformedPrefix    = &DecodeError{Kind: MalformedPrefix}
	ErrMalformedEncoding  = &DecodeError{Kind: MalformedEncoding}
	ErrMalformedStructure = &DecodeError{Kind: MalformedStructure}
	ErrInvalidSignature   = &DecodeError{Kind: InvalidSignature}
	ErrInvalidPayload     = &DecodeError{Kind: InvalidPayload}
)

// ActivationErrorKind enumerates the non-transient activation failures.
type ActivationErrorKind int

const (
	NotFound ActivationErrorKind = iota + 1
	AlreadyActivated
)

func (k ActivationErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case AlreadyActivated:
		return "already_activated"
	}
	return "unknown"
}

// ActivationError is returned by Ledger.Activate. For AlreadyActivated,
// Device holds the device that won the activation, which lets a caller
// retrying after a timeout recognise its own earlier success.
type ActivationError struct {
	Kind   ActivationErrorKind
	Device string
}

func (e *ActivationError) Error() string {
	if e.Kind == AlreadyActivated && e.Device != "" {
		return fmt.Sprintf("license: already activated by device %s", e.Device)
	}
	return "license: " + e.Kind.String()
}

func (e *ActivationError) Is(target error) bool {
	t, ok := target.(*ActivationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound         = &ActivationError{Kind: NotFound}
	ErrAlreadyActivated = &ActivationError{Kind: AlreadyActivated}
)

// ValidationError reports a missing or malformed caller-supplied field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return "license: missing or invalid " + e.Field }

// TransientError wraps store failures. Idempotent operations may be retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return "license: " + e.Op + ": " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

var ErrEmptySecret = errors.New("license: empty secret key")

var errTrialVanished = errors.New("trial row missing after conflicting insert")
