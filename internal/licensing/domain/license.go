// Package domain holds the license aggregate, its status lattice, and the
// audit entities shared by the validation protocol and the admin API.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the administrative state of a license.
type Status string

const (
	// StatusPending indicates the license was issued but not yet activated.
	StatusPending Status = "pending"
	// StatusActive indicates the license is valid and in use.
	StatusActive Status = "active"
	// StatusSuspended indicates the license is temporarily disabled.
	StatusSuspended Status = "suspended"
	// StatusInactive indicates the license was soft-deleted or deactivated.
	StatusInactive Status = "inactive"
)

// ValidStatuses lists every status a license record may hold.
var ValidStatuses = []Status{StatusPending, StatusActive, StatusSuspended, StatusInactive}

// IsValidStatus reports whether s is one of the storable statuses.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// License is a server-owned license record. The plaintext key is never part
// of this struct: only its SHA-256 digest is persisted, and the plaintext is
// returned to the caller exactly once at issuance.
type License struct {
	ID             uuid.UUID `json:"id"`
	KeyHash        string    `json:"-"`
	AppName        string    `json:"app_name"`
	ClientName     string    `json:"client_name"`
	ExpiryDate     time.Time `json:"expiry_date"`
	Status         Status    `json:"status"`
	MonthlyRenewal bool      `json:"monthly_renewal"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ExpiresAt returns the instant at which the license stops being valid:
// the end of the expiry date, UTC. A license expiring on 2026-03-01 is
// accepted for the whole of that day.
func (l *License) ExpiresAt() time.Time {
	d := l.ExpiryDate.UTC()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(24 * time.Hour)
}

// IsExpired reports whether now is at or past the expiry instant.
func (l *License) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt())
}

// Deactivate marks the license inactive. Records are never physically
// removed; this is the only form of deletion.
func (l *License) Deactivate() {
	l.Status = StatusInactive
}
