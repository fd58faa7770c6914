package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/keygate/keygate/internal/licensing/application"
)

// ValidationHandler serves the public validation endpoint.
type ValidationHandler struct {
	service *application.ValidationService
	logger  *slog.Logger
}

// NewValidationHandler creates the handler for POST /api/v1/licenses/validate.
func NewValidationHandler(service *application.ValidationService, logger *slog.Logger) *ValidationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationHandler{service: service, logger: logger}
}

// Validate handles POST /api/v1/licenses/validate. Business denials are
// carried in the verdict with HTTP 200; only a malformed body is a 400.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req application.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.AppID == "" {
		req.AppID = application.DefaultAppID
	}
	if req.LicenseKey == "" || req.Signature == "" || req.Timestamp == 0 {
		writeError(w, http.StatusBadRequest, "license_key, timestamp and signature are required")
		return
	}

	verdict := h.service.Validate(r.Context(), req, clientIP(r))
	writeJSON(w, http.StatusOK, verdict)
}
