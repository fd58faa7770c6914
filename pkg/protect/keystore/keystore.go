// Package keystore stores license keys on the client machine so they do
// not have to live in plaintext config files.
package keystore

import "errors"

// ErrNotFound is returned when no key has been stored yet.
var ErrNotFound = errors.New("license key not found")

// Store persists a license key for a named application.
type Store interface {
	// Save stores the license key, replacing any previous value.
	Save(appID, licenseKey string) error
	// Load returns the stored key, or ErrNotFound.
	Load(appID string) (string, error)
	// Delete removes the stored key. Deleting a missing key is not an
	// error.
	Delete(appID string) error
}
