// Package application contains the licensing use cases: the validation
// protocol on one side and admin-facing license management on the other.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keygate/keygate/internal/licensing/domain"
	"github.com/keygate/keygate/internal/licensing/infrastructure/crypto"
)

// CreateLicenseInput carries the fields an admin supplies at issuance.
type CreateLicenseInput struct {
	AppName        string
	ClientName     string
	ExpiryDate     time.Time
	Status         domain.Status
	MonthlyRenewal bool
}

// UpdateLicenseInput carries a partial update; nil fields are left unchanged.
type UpdateLicenseInput struct {
	AppName        *string
	ClientName     *string
	ExpiryDate     *time.Time
	Status         *domain.Status
	MonthlyRenewal *bool
}

// Stats summarizes the license estate for the admin dashboard endpoint.
type Stats struct {
	CountsByStatus map[domain.Status]int       `json:"counts_by_status"`
	ExpiringSoon   []*domain.License           `json:"expiring_soon"`
	RecentFailures []*domain.ValidationAttempt `json:"recent_failures"`
	GeneratedAt    time.Time                   `json:"generated_at"`
	ExpiringWithin string                      `json:"expiring_within"`
}

// LicenseService implements license issuance and management. Key generation
// happens here so the plaintext key exists only for the duration of the
// create call.
type LicenseService struct {
	licenses domain.Repository
	attempts domain.AttemptRepository
	secret   string
	logger   *slog.Logger
	now      func() time.Time
}

// NewLicenseService creates the management service. secret is the HMAC seed
// used for key generation.
func NewLicenseService(licenses domain.Repository, attempts domain.AttemptRepository, secret string, logger *slog.Logger) *LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseService{
		licenses: licenses,
		attempts: attempts,
		secret:   secret,
		logger:   logger,
		now:      time.Now,
	}
}

// Create issues a new license and returns it with the plaintext key. The
// plaintext is never persisted and never retrievable again.
func (s *LicenseService) Create(ctx context.Context, in CreateLicenseInput) (*domain.License, string, error) {
	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !domain.IsValidStatus(status) {
		return nil, "", domain.ErrInvalidStatus
	}

	appCode := crypto.NormalizeAppCode(in.AppName)
	plaintext, keyHash, err := crypto.CreateKeyPair(appCode, s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate license key: %w", err)
	}

	now := s.now().UTC()
	lic := &domain.License{
		ID:             uuid.New(),
		KeyHash:        keyHash,
		AppName:        in.AppName,
		ClientName:     in.ClientName,
		ExpiryDate:     in.ExpiryDate,
		Status:         status,
		MonthlyRenewal: in.MonthlyRenewal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.licenses.Create(ctx, lic); err != nil {
		return nil, "", err
	}

	s.logger.Info("license created",
		"license_id", lic.ID,
		"app_name", lic.AppName,
		"status", lic.Status,
	)
	return lic, plaintext, nil
}

// Get returns one license by id.
func (s *LicenseService) Get(ctx context.Context, id uuid.UUID) (*domain.License, error) {
	return s.licenses.FindByID(ctx, id)
}

// List returns licenses matching the filter, newest first.
func (s *LicenseService) List(ctx context.Context, f domain.ListFilter) ([]*domain.License, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Status != "" && !domain.IsValidStatus(f.Status) {
		return nil, domain.ErrInvalidStatus
	}
	return s.licenses.List(ctx, f)
}

// Update applies a partial update to a license.
func (s *LicenseService) Update(ctx context.Context, id uuid.UUID, in UpdateLicenseInput) (*domain.License, error) {
	lic, err := s.licenses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.AppName != nil {
		lic.AppName = *in.AppName
	}
	if in.ClientName != nil {
		lic.ClientName = *in.ClientName
	}
	if in.ExpiryDate != nil {
		lic.ExpiryDate = *in.ExpiryDate
	}
	if in.Status != nil {
		if !domain.IsValidStatus(*in.Status) {
			return nil, domain.ErrInvalidStatus
		}
		lic.Status = *in.Status
	}
	if in.MonthlyRenewal != nil {
		lic.MonthlyRenewal = *in.MonthlyRenewal
	}
	lic.UpdatedAt = s.now().UTC()

	if err := s.licenses.Update(ctx, lic); err != nil {
		return nil, err
	}
	return lic, nil
}

// Deactivate soft-deletes a license by moving it to the inactive status.
func (s *LicenseService) Deactivate(ctx context.Context, id uuid.UUID) (*domain.License, error) {
	lic, err := s.licenses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lic.Deactivate()
	lic.UpdatedAt = s.now().UTC()
	if err := s.licenses.Update(ctx, lic); err != nil {
		return nil, err
	}
	s.logger.Info("license deactivated", "license_id", lic.ID)
	return lic, nil
}

// History returns the validation audit trail for one license, newest first.
func (s *LicenseService) History(ctx context.Context, id uuid.UUID, limit int) ([]*domain.ValidationAttempt, error) {
	if _, err := s.licenses.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	return s.attempts.ListByLicense(ctx, id, limit)
}

// DashboardStats gathers the counters behind the admin stats endpoint.
func (s *LicenseService) DashboardStats(ctx context.Context) (*Stats, error) {
	counts := make(map[domain.Status]int, len(domain.ValidStatuses))
	for _, status := range domain.ValidStatuses {
		n, err := s.licenses.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}

	const window = 30 * 24 * time.Hour
	expiring, err := s.licenses.ExpiringWithin(ctx, window)
	if err != nil {
		return nil, err
	}
	failures, err := s.attempts.RecentFailures(ctx, 10)
	if err != nil {
		return nil, err
	}

	return &Stats{
		CountsByStatus: counts,
		ExpiringSoon:   expiring,
		RecentFailures: failures,
		GeneratedAt:    s.now().UTC(),
		ExpiringWithin: "720h",
	}, nil
}
