package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/internal/licensing/application"
	"github.com/keygate/keygate/internal/licensing/domain"
	"github.com/keygate/keygate/internal/licensing/infrastructure/crypto"
	"github.com/keygate/keygate/internal/ratelimit"
	"github.com/keygate/keygate/internal/shared/infrastructure/eventbus"
)

// stubLicenseRepo serves exactly one license by digest; the validation
// endpoint never needs more.
type stubLicenseRepo struct {
	domain.Repository
	lic *domain.License
}

func (r *stubLicenseRepo) FindByKeyHash(_ context.Context, keyHash string) (*domain.License, error) {
	if r.lic != nil && r.lic.KeyHash == keyHash {
		cp := *r.lic
		return &cp, nil
	}
	return nil, domain.ErrLicenseNotFound
}

type stubAttemptRepo struct {
	domain.AttemptRepository
	appended []*domain.ValidationAttempt
}

func (r *stubAttemptRepo) Append(_ context.Context, a *domain.ValidationAttempt) error {
	r.appended = append(r.appended, a)
	return nil
}

const handlerSecret = "handler-test-secret"

func newValidationEndpoint(t *testing.T, lic *domain.License) http.Handler {
	t.Helper()
	service := application.NewValidationService(
		&stubLicenseRepo{lic: lic},
		&stubAttemptRepo{},
		ratelimit.NewMemory(100, time.Hour),
		eventbus.NewNoopPublisher(nil),
		application.ValidationConfig{SigningSecret: handlerSecret, TimestampWindow: 5 * time.Minute},
		nil,
	)
	return http.HandlerFunc(NewValidationHandler(service, nil).Validate)
}

func postJSON(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses/validate", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestValidationEndpoint(t *testing.T) {
	key, hash, err := crypto.CreateKeyPair("TESTAPP", handlerSecret)
	require.NoError(t, err)
	lic := &domain.License{
		ID:         uuid.New(),
		KeyHash:    hash,
		AppName:    "Test App",
		ClientName: "Acme",
		ExpiryDate: time.Now().UTC().Add(90 * 24 * time.Hour),
		Status:     domain.StatusActive,
	}

	t.Run("valid license", func(t *testing.T) {
		handler := newValidationEndpoint(t, lic)
		ts := time.Now().Unix()
		rec := postJSON(t, handler, application.ValidateRequest{
			LicenseKey: key,
			AppID:      "testapp",
			Timestamp:  ts,
			Signature:  crypto.Sign(key, "testapp", ts, handlerSecret),
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp application.ValidateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Equal(t, application.VerdictActive, resp.Status)
	})

	t.Run("denial still returns 200", func(t *testing.T) {
		handler := newValidationEndpoint(t, lic)
		ts := time.Now().Unix()
		rec := postJSON(t, handler, application.ValidateRequest{
			LicenseKey: key,
			AppID:      "testapp",
			Timestamp:  ts,
			Signature:  "tampered",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp application.ValidateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Valid)
		assert.Equal(t, application.VerdictInvalid, resp.Status)
	})

	t.Run("omitted app_id defaults", func(t *testing.T) {
		handler := newValidationEndpoint(t, lic)
		ts := time.Now().Unix()
		rec := postJSON(t, handler, map[string]any{
			"license_key": key,
			"timestamp":   ts,
			"signature":   crypto.Sign(key, application.DefaultAppID, ts, handlerSecret),
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp application.ValidateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Equal(t, application.VerdictActive, resp.Status)
	})

	t.Run("malformed body", func(t *testing.T) {
		handler := newValidationEndpoint(t, lic)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses/validate", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		handler := newValidationEndpoint(t, lic)
		rec := postJSON(t, handler, map[string]any{"license_key": key})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
