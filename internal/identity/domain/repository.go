package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists admin accounts.
type Repository interface {
	// Create inserts a new admin account.
	Create(ctx context.Context, a *Admin) error

	// FindByEmail returns the admin or ErrAdminNotFound.
	FindByEmail(ctx context.Context, email string) (*Admin, error)

	// FindByID returns the admin or ErrAdminNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Admin, error)

	// RecordLogin sets the admin's last-login timestamp.
	RecordLogin(ctx context.Context, id uuid.UUID) error
}
