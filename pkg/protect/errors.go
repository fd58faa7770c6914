package protect

import (
	"errors"
	"fmt"
)

var (
	// ErrLicenseInvalid is returned by RequireValid when the license is
	// proven invalid past its grace period, or was never validated.
	ErrLicenseInvalid = errors.New("license invalid")

	// ErrLicenseExpired is part of the exposed taxonomy for callers that
	// want to branch on expiry specifically. The validation flow itself
	// reports expiry through the verdict status, not through this error.
	ErrLicenseExpired = errors.New("license expired")
)

// ValidationFailedError indicates the validation request itself failed:
// unreachable server, HTTP error, or a malformed response. It is distinct
// from a successful round trip carrying valid=false.
type ValidationFailedError struct {
	Reason string
	Err    error
}

func (e *ValidationFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation request failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("validation request failed: %s", e.Reason)
}

func (e *ValidationFailedError) Unwrap() error {
	return e.Err
}

// IsValidationFailed reports whether err is a transport-level validation
// failure rather than a business denial.
func IsValidationFailed(err error) bool {
	var vf *ValidationFailedError
	return errors.As(err, &vf)
}
