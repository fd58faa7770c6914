package domain

import "errors"

var (
	// ErrLicenseNotFound indicates no license matches the given id or key digest.
	ErrLicenseNotFound = errors.New("license not found")

	// ErrDuplicateKeyHash indicates a license with the same key digest already exists.
	ErrDuplicateKeyHash = errors.New("license key digest already exists")

	// ErrInvalidStatus indicates a status outside the pending/active/suspended/inactive lattice.
	ErrInvalidStatus = errors.New("invalid license status")
)
