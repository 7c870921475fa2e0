package tokens

import (
	"errors"
	"fmt"
)

var (
	ErrProviderUnreachable = errors.New("identity provider unreachable")
	ErrKeyNotFound         = errors.New("signing key not found")
	ErrMalformedToken      = errors.New("token malformed")
	ErrSignatureInvalid    = errors.New("token signature invalid")
	ErrClaimsInvalid       = errors.New("token claims invalid")

	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidScheme      = errors.New("invalid authentication scheme")
)

// Stage is a state of the verification state machine. A VerifyError
// carries the stage that failed: StageReceived for an unparseable or
// disallowed token, StageKeySetFetched when no key set could be
// obtained, StageKeyNotFound, StageSignatureChecked or StageClaimsInvalid.
type Stage int

const (
	StageReceived Stage = iota
	StageKeySetFetched
	StageKeyResolved
	StageKeyNotFound
	StageSignatureChecked
	StageClaimsDecoded
	StageClaimsInvalid
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageKeySetFetched:
		return "key_set_fetched"
	case StageKeyResolved:
		return "key_resolved"
	case StageKeyNotFound:
		return "key_not_found"
	case StageSignatureChecked:
		return "signature_checked"
	case StageClaimsDecoded:
		return "claims_decoded"
	case StageClaimsInvalid:
		return "claims_invalid"
	default:
		return "unknown"
	}
}

// VerifyError is returned by Verifier.Verify for every rejected token.
// Stage is the step that failed, not the last one that passed. Err is
// one of the category sentinels above; errors.Is matches both the
// category and the underlying cause.
type VerifyError struct {
	Stage   Stage
	Err     error
	context string
	cause   error
}

func (e *VerifyError) Error() string {
	if e.context == "" {
		return fmt.Sprintf("%v (stage %s)", e.Err, e.Stage)
	}
	return fmt.Sprintf("%v (stage %s): %s", e.Err, e.Stage, e.context)
}

func (e *VerifyError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.cause}
}

// Context returns the internal detail behind the rejection. It is meant
// for logs and must not be sent to clients.
func (e *VerifyError) Context() string {
	return e.context
}

// Temporary reports whether retrying the same token later may succeed.
func (e *VerifyError) Temporary() bool {
	return errors.Is(e.Err, ErrProviderUnreachable)
}

func newVerifyError(stage Stage, category error, cause error) *VerifyError {
	e := &VerifyError{Stage: stage, Err: category, cause: cause}
	if cause != nil {
		e.context = cause.Error()
	}
	return e
}

// Category returns a stable label for err, suitable for metrics and logs.
func Category(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrProviderUnreachable):
		return "provider_unreachable"
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrClaimsInvalid):
		return "claims_invalid"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrInvalidScheme):
		return "invalid_scheme"
	default:
		return "unknown"
	}
}
