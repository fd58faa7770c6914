package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttemptResult is the outcome recorded for one validation attempt.
type AttemptResult string

const (
	// ResultSuccess marks an attempt whose signature and lookup succeeded
	// and whose license was in an expected state (active or pending).
	ResultSuccess AttemptResult = "success"
	// ResultFail marks every other attempt that reached the audit stage.
	ResultFail AttemptResult = "fail"
)

// ValidationAttempt is one append-only audit row. LicenseID is null when the
// supplied key could not be resolved (bad signature or unknown key); those
// attempts are still recorded so abuse is not under-reported.
type ValidationAttempt struct {
	ID          uuid.UUID     `json:"id"`
	LicenseID   uuid.NullUUID `json:"license_id"`
	ValidatedAt time.Time     `json:"validated_at"`
	IPAddress   string        `json:"ip_address,omitempty"`
	Result      AttemptResult `json:"result"`
	ErrorReason string        `json:"error_reason,omitempty"`
}
