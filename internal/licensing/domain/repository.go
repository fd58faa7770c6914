package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a license listing. Zero values mean "no filter".
type ListFilter struct {
	Status     Status
	ClientName string // substring match, case-insensitive
	ExpiryFrom time.Time
	ExpiryTo   time.Time
	Offset     int
	Limit      int
}

// Repository persists license records. Implementations exist for PostgreSQL
// (pgx) and SQLite (modernc); both treat deletion as a status transition.
type Repository interface {
	// Create inserts a new license. Returns ErrDuplicateKeyHash if the key
	// digest already exists.
	Create(ctx context.Context, l *License) error

	// FindByID returns the license or ErrLicenseNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*License, error)

	// FindByKeyHash resolves a license by its key digest, the only lookup
	// the validation protocol performs. Returns ErrLicenseNotFound.
	FindByKeyHash(ctx context.Context, keyHash string) (*License, error)

	// List returns licenses newest-first, applying the filter.
	List(ctx context.Context, f ListFilter) ([]*License, error)

	// Update persists mutable fields (app name, client, expiry, status,
	// renewal flag) of an existing license.
	Update(ctx context.Context, l *License) error

	// CountByStatus returns the number of licenses with the given status.
	CountByStatus(ctx context.Context, s Status) (int, error)

	// ExpiringWithin returns licenses whose expiry date falls inside
	// [today, today+d], soonest first.
	ExpiringWithin(ctx context.Context, d time.Duration) ([]*License, error)
}

// AttemptRepository appends and reads the validation audit trail. Rows are
// never mutated or deleted.
type AttemptRepository interface {
	// Append records one validation attempt.
	Append(ctx context.Context, a *ValidationAttempt) error

	// ListByLicense returns attempts for one license, newest first.
	ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*ValidationAttempt, error)

	// RecentFailures returns the latest attempts with Result == ResultFail,
	// including unresolved-key attempts.
	RecentFailures(ctx context.Context, limit int) ([]*ValidationAttempt, error)
}
