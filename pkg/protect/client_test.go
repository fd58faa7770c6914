package protect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/internal/licensing/infrastructure/crypto"
)

func testClientConfig(serverURL string) Config {
	return Config{
		ServerURL:     serverURL,
		LicenseKey:    "LIC-TESTAPP-00000001-ABCDEF0123456789",
		SigningSecret: "client-test-secret",
		AppID:         "testapp",
		RetryCount:    0,
		RetryBackoff:  time.Millisecond,
	}
}

func TestClientValidate(t *testing.T) {
	t.Run("sends a signed request and decodes the verdict", func(t *testing.T) {
		var got validatePayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/licenses/validate", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			expires := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
			json.NewEncoder(w).Encode(map[string]any{
				"valid":      true,
				"status":     "active",
				"expires_at": expires,
				"message":    "License valid",
			})
		}))
		defer server.Close()

		client, err := NewClient(testClientConfig(server.URL))
		require.NoError(t, err)

		verdict, err := client.Validate(context.Background())
		require.NoError(t, err)

		assert.True(t, verdict.Valid)
		assert.Equal(t, "active", verdict.Status)
		require.NotNil(t, verdict.ExpiresAt)

		assert.Equal(t, "LIC-TESTAPP-00000001-ABCDEF0123456789", got.LicenseKey)
		assert.Equal(t, "testapp", got.AppID)
		assert.Equal(t, crypto.Sign(got.LicenseKey, got.AppID, got.Timestamp, "client-test-secret"), got.Signature)
	})

	t.Run("denial is a verdict, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"valid":   false,
				"status":  "expired",
				"message": "License has expired",
			})
		}))
		defer server.Close()

		client, err := NewClient(testClientConfig(server.URL))
		require.NoError(t, err)

		verdict, err := client.Validate(context.Background())
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, "expired", verdict.Status)
	})

	t.Run("non-200 is a transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client, err := NewClient(testClientConfig(server.URL))
		require.NoError(t, err)

		_, err = client.Validate(context.Background())
		assert.True(t, IsValidationFailed(err))
	})

	t.Run("missing fields are a transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"valid": true}`))
		}))
		defer server.Close()

		client, err := NewClient(testClientConfig(server.URL))
		require.NoError(t, err)

		_, err = client.Validate(context.Background())
		assert.True(t, IsValidationFailed(err))
	})

	t.Run("unreachable server", func(t *testing.T) {
		client, err := NewClient(testClientConfig("http://127.0.0.1:1"))
		require.NoError(t, err)

		_, err = client.Validate(context.Background())
		assert.True(t, IsValidationFailed(err))
	})
}

func TestClientValidateWithRetry(t *testing.T) {
	t.Run("retries transport failures then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"valid": true, "status": "active", "message": "License valid",
			})
		}))
		defer server.Close()

		cfg := testClientConfig(server.URL)
		cfg.RetryCount = 3
		client, err := NewClient(cfg)
		require.NoError(t, err)

		verdict, err := client.ValidateWithRetry(context.Background())
		require.NoError(t, err)
		assert.True(t, verdict.Valid)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("a denial stops the retry loop", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			json.NewEncoder(w).Encode(map[string]any{
				"valid": false, "status": "suspended", "message": "License is suspended",
			})
		}))
		defer server.Close()

		cfg := testClientConfig(server.URL)
		cfg.RetryCount = 3
		client, err := NewClient(cfg)
		require.NoError(t, err)

		verdict, err := client.ValidateWithRetry(context.Background())
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("cancelled context ends the loop", func(t *testing.T) {
		cfg := testClientConfig("http://127.0.0.1:1")
		cfg.RetryCount = 5
		cfg.RetryBackoff = time.Hour
		client, err := NewClient(cfg)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err = client.ValidateWithRetry(ctx)
		assert.Error(t, err)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{LicenseKey: "k", SigningSecret: "s"})
	assert.Error(t, err)

	_, err = NewClient(Config{ServerURL: "http://x", SigningSecret: "s"})
	assert.Error(t, err)

	_, err = NewClient(Config{ServerURL: "http://x", LicenseKey: "k"})
	assert.Error(t, err)
}
