package protect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/protect/keystore"
)

// fakeStore is an in-memory keystore.Store for wiring tests.
type fakeStore struct {
	keys    map[string]string
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: make(map[string]string)}
}

func (s *fakeStore) Save(appID, licenseKey string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.keys[appID] = licenseKey
	return nil
}

func (s *fakeStore) Load(appID string) (string, error) {
	key, ok := s.keys[appID]
	if !ok {
		return "", keystore.ErrNotFound
	}
	return key, nil
}

func (s *fakeStore) Delete(appID string) error {
	delete(s.keys, appID)
	return nil
}

func TestConfigFromEnvKeystoreFallback(t *testing.T) {
	t.Setenv("KEYGATE_SERVER_URL", "http://localhost:8080")
	t.Setenv("KEYGATE_SIGNING_SECRET", "env-secret")
	t.Setenv("KEYGATE_LICENSE_KEY", "")
	t.Setenv("KEYGATE_APP_ID", "myapp")

	store := newFakeStore()
	store.keys["myapp"] = "LIC-MYAPP-00000001-ABCDEF0123456789"

	cfg := ConfigFromEnv(store)
	assert.Equal(t, "LIC-MYAPP-00000001-ABCDEF0123456789", cfg.LicenseKey)
	assert.Same(t, store, cfg.Keystore)
}

func TestConfigFromEnvPrefersEnvironmentKey(t *testing.T) {
	t.Setenv("KEYGATE_LICENSE_KEY", "LIC-ENV-00000001-ABCDEF0123456789")
	t.Setenv("KEYGATE_APP_ID", "myapp")

	store := newFakeStore()
	store.keys["myapp"] = "LIC-STORED-00000001-ABCDEF0123456789"

	cfg := ConfigFromEnv(store)
	assert.Equal(t, "LIC-ENV-00000001-ABCDEF0123456789", cfg.LicenseKey)
}

func TestConfigFromEnvMissingKeyEverywhere(t *testing.T) {
	t.Setenv("KEYGATE_LICENSE_KEY", "")
	t.Setenv("KEYGATE_APP_ID", "myapp")

	cfg := ConfigFromEnv(newFakeStore())
	assert.Empty(t, cfg.LicenseKey)
	require.Error(t, cfg.validate())
}
