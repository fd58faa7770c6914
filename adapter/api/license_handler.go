package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/keygate/keygate/internal/licensing/application"
	"github.com/keygate/keygate/internal/licensing/domain"
)

const dateLayout = "2006-01-02"

// LicenseHandler serves the authenticated license management API.
type LicenseHandler struct {
	service *application.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates the admin license handler.
func NewLicenseHandler(service *application.LicenseService, logger *slog.Logger) *LicenseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseHandler{service: service, logger: logger}
}

type createLicenseRequest struct {
	AppName        string `json:"app_name"`
	ClientName     string `json:"client_name"`
	ExpiryDate     string `json:"expiry_date"`
	Status         string `json:"status"`
	MonthlyRenewal bool   `json:"monthly_renewal"`
}

type createLicenseResponse struct {
	License    *domain.License `json:"license"`
	LicenseKey string          `json:"license_key"`
}

type updateLicenseRequest struct {
	AppName        *string `json:"app_name"`
	ClientName     *string `json:"client_name"`
	ExpiryDate     *string `json:"expiry_date"`
	Status         *string `json:"status"`
	MonthlyRenewal *bool   `json:"monthly_renewal"`
}

// Create handles POST /api/v1/licenses. The plaintext key appears in
// this response and nowhere else.
func (h *LicenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.AppName == "" || req.ClientName == "" || req.ExpiryDate == "" {
		writeError(w, http.StatusBadRequest, "app_name, client_name and expiry_date are required")
		return
	}
	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
		return
	}

	in := application.CreateLicenseInput{
		AppName:        req.AppName,
		ClientName:     req.ClientName,
		ExpiryDate:     expiry,
		MonthlyRenewal: req.MonthlyRenewal,
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		if !domain.IsValidStatus(status) {
			writeError(w, http.StatusBadRequest, "Unknown status")
			return
		}
		in.Status = status
	}

	license, key, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("failed to create license", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create license")
		return
	}

	writeJSON(w, http.StatusCreated, createLicenseResponse{License: license, LicenseKey: key})
}

// List handles GET /api/v1/licenses with status, client, expiry range
// and pagination filters.
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter{
		ClientName: r.URL.Query().Get("client_name"),
		Offset:     parseIntParam(r, "skip", 0),
		Limit:      parseIntParam(r, "limit", 50),
	}

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.Status(statusParam)
		if !domain.IsValidStatus(status) {
			writeError(w, http.StatusBadRequest, "Unknown status")
			return
		}
		filter.Status = status
	}
	if from := r.URL.Query().Get("expiry_from"); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expiry_from must be YYYY-MM-DD")
			return
		}
		filter.ExpiryFrom = t
	}
	if to := r.URL.Query().Get("expiry_to"); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expiry_to must be YYYY-MM-DD")
			return
		}
		filter.ExpiryTo = t
	}

	licenses, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list licenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list licenses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"licenses": licenses,
		"skip":     filter.Offset,
		"limit":    filter.Limit,
	})
}

// Get handles GET /api/v1/licenses/{licenseID}.
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := licenseIDFromPath(w, r)
	if !ok {
		return
	}
	license, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondLicenseError(w, err, "fetch")
		return
	}
	writeJSON(w, http.StatusOK, license)
}

// Update handles PATCH /api/v1/licenses/{licenseID}. Absent fields are
// left unchanged.
func (h *LicenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := licenseIDFromPath(w, r)
	if !ok {
		return
	}

	var req updateLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	in := application.UpdateLicenseInput{
		AppName:        req.AppName,
		ClientName:     req.ClientName,
		MonthlyRenewal: req.MonthlyRenewal,
	}
	if req.ExpiryDate != nil {
		t, err := time.Parse(dateLayout, *req.ExpiryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
			return
		}
		in.ExpiryDate = &t
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		if !domain.IsValidStatus(status) {
			writeError(w, http.StatusBadRequest, "Unknown status")
			return
		}
		in.Status = &status
	}

	license, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.respondLicenseError(w, err, "update")
		return
	}
	writeJSON(w, http.StatusOK, license)
}

// Deactivate handles DELETE /api/v1/licenses/{licenseID}. Deletion is a
// transition to inactive; the record and its audit trail remain.
func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := licenseIDFromPath(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Deactivate(r.Context(), id); err != nil {
		h.respondLicenseError(w, err, "deactivate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/v1/licenses/{licenseID}/history.
func (h *LicenseHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := licenseIDFromPath(w, r)
	if !ok {
		return
	}
	attempts, err := h.service.History(r.Context(), id, parseIntParam(r, "limit", 50))
	if err != nil {
		h.respondLicenseError(w, err, "fetch history for")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

// Stats handles GET /api/v1/admin/stats.
func (h *LicenseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *LicenseHandler) respondLicenseError(w http.ResponseWriter, err error, verb string) {
	if errors.Is(err, domain.ErrLicenseNotFound) {
		writeError(w, http.StatusNotFound, "License not found")
		return
	}
	h.logger.Error("failed to "+verb+" license", "error", err)
	writeError(w, http.StatusInternalServerError, "Failed to "+verb+" license")
}

func licenseIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("licenseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid license ID")
		return uuid.Nil, false
	}
	return id, true
}

// parseIntParam reads an integer query parameter, returning def when the
// parameter is absent or malformed.
func parseIntParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
