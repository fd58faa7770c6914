package keystore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "keygate"

// Keyring stores license keys in the operating system credential store
// (Keychain, Secret Service, Windows Credential Manager).
type Keyring struct{}

// NewKeyring returns a Store backed by the OS credential store.
func NewKeyring() *Keyring {
	return &Keyring{}
}

func (k *Keyring) Save(appID, licenseKey string) error {
	if err := keyring.Set(serviceName, appID, licenseKey); err != nil {
		return fmt.Errorf("keystore: save key for %s: %w", appID, err)
	}
	return nil
}

func (k *Keyring) Load(appID string) (string, error) {
	secret, err := keyring.Get(serviceName, appID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keystore: load key for %s: %w", appID, err)
	}
	return secret, nil
}

func (k *Keyring) Delete(appID string) error {
	err := keyring.Delete(serviceName, appID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keystore: delete key for %s: %w", appID, err)
	}
	return nil
}
