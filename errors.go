package trust

import "fmt"

// Reason classifies why a trust link could not be established.
type Reason string

const (
	InvalidSignature         Reason = "INVALID_SIGNATURE"
	InvalidValidityInterval  Reason = "INVALID_VALIDITY_INTERVAL"
	InvalidRevocationStatus  Reason = "INVALID_REVOCATION_STATUS"
	OCSPUnavailable          Reason = "OCSP_UNAVAILABLE"
	NoTrust                  Reason = "NO_TRUST"
	RootNotTrusted           Reason = "ROOT_NOT_TRUSTED"
	ConstraintViolation      Reason = "CONSTRAINT_VIOLATION"
)

// TrustLinkerError is the single structured error type a linker or the
// validator raises when a chain cannot be trusted. Benign ambiguity never
// produces one of these: it produces Undecided instead.
type TrustLinkerError struct {
	Reason Reason
	Msg    string
	Err    error
}

func (e *TrustLinkerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Msg)
}

func (e *TrustLinkerError) Unwrap() error {
	return e.Err
}

// NewError builds a TrustLinkerError for the given reason.
func NewError(reason Reason, msg string, cause error) *TrustLinkerError {
	return &TrustLinkerError{Reason: reason, Msg: msg, Err: cause}
}
