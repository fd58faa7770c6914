package protect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/protect/keystore"
)

func newVerdictServer(valid *atomic.Bool, calls *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if valid.Load() {
			json.NewEncoder(w).Encode(map[string]any{
				"valid": true, "status": "active", "message": "License valid",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"valid": false, "status": "inactive", "message": "License is inactive",
		})
	}))
}

func TestGuardValidateNow(t *testing.T) {
	var valid atomic.Bool
	valid.Store(true)
	server := newVerdictServer(&valid, nil)
	defer server.Close()

	guard, err := NewGuard(testClientConfig(server.URL), nil)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	guard.enforcer.now = func() time.Time { return now }

	require.NoError(t, guard.ValidateNow(context.Background()))
	assert.True(t, guard.Allowed())
	assert.NoError(t, guard.RequireValid())

	// A denial opens the grace window instead of blocking immediately.
	valid.Store(false)
	require.NoError(t, guard.ValidateNow(context.Background()))
	assert.Equal(t, StateInvalid, guard.State())
	assert.True(t, guard.Allowed())

	// Once grace lapses, access stops.
	now = now.Add(49 * time.Hour)
	assert.ErrorIs(t, guard.RequireValid(), ErrLicenseInvalid)
	assert.Equal(t, StateRestricted, guard.State())
}

func TestGuardTransportFailureKeepsGrace(t *testing.T) {
	var valid atomic.Bool
	valid.Store(true)
	server := newVerdictServer(&valid, nil)

	cfg := testClientConfig(server.URL)
	cfg.GracePeriod = 48 * time.Hour
	guard, err := NewGuard(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, guard.ValidateNow(context.Background()))
	server.Close()

	err = guard.ValidateNow(context.Background())
	assert.True(t, IsValidationFailed(err))
	// Still inside the grace window.
	assert.True(t, guard.Allowed())
}

func TestGuardKeystore(t *testing.T) {
	var valid atomic.Bool
	valid.Store(true)
	server := newVerdictServer(&valid, nil)
	defer server.Close()

	t.Run("persists a configured key", func(t *testing.T) {
		store := newFakeStore()
		cfg := testClientConfig(server.URL)
		cfg.Keystore = store

		_, err := NewGuard(cfg, nil)
		require.NoError(t, err)
		saved, err := store.Load(cfg.AppID)
		require.NoError(t, err)
		assert.Equal(t, cfg.LicenseKey, saved)
	})

	t.Run("loads a stored key when none is configured", func(t *testing.T) {
		store := newFakeStore()
		store.keys["testapp"] = "LIC-TESTAPP-00000001-ABCDEF0123456789"
		cfg := testClientConfig(server.URL)
		cfg.LicenseKey = ""
		cfg.Keystore = store

		guard, err := NewGuard(cfg, nil)
		require.NoError(t, err)
		require.NoError(t, guard.ValidateNow(context.Background()))
		assert.True(t, guard.Allowed())
	})

	t.Run("errors when no key is configured or stored", func(t *testing.T) {
		cfg := testClientConfig(server.URL)
		cfg.LicenseKey = ""
		cfg.Keystore = newFakeStore()

		_, err := NewGuard(cfg, nil)
		assert.ErrorIs(t, err, keystore.ErrNotFound)
	})

	t.Run("save failure does not break the run", func(t *testing.T) {
		store := newFakeStore()
		store.saveErr = errors.New("credential store locked")
		cfg := testClientConfig(server.URL)
		cfg.Keystore = store

		guard, err := NewGuard(cfg, nil)
		require.NoError(t, err)
		require.NoError(t, guard.ValidateNow(context.Background()))
		assert.True(t, guard.Allowed())
	})
}

func TestRevalidatorRunsOnTicks(t *testing.T) {
	var valid atomic.Bool
	valid.Store(true)
	var calls atomic.Int32
	server := newVerdictServer(&valid, &calls)
	defer server.Close()

	guard, err := NewGuard(testClientConfig(server.URL), nil)
	require.NoError(t, err)

	var offset atomic.Int64
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	guard.enforcer.now = func() time.Time { return base.Add(time.Duration(offset.Load())) }

	ticks := make(chan time.Time)
	rv := &Revalidator{Guard: guard, Ticks: ticks}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rv.Run(ctx)
		close(done)
	}()

	ticks <- time.Now()
	ticks <- time.Now()

	// The server starts denying; ticks keep revalidating and the grace
	// window eventually runs out.
	valid.Store(false)
	ticks <- time.Now()
	offset.Store(int64(49 * time.Hour))
	ticks <- time.Now()

	require.Eventually(t, func() bool {
		return !guard.Allowed()
	}, time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, calls.Load(), int32(4))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("revalidator did not stop on context cancel")
	}
}
