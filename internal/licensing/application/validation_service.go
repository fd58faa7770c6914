package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keygate/keygate/internal/licensing/domain"
	"github.com/keygate/keygate/internal/licensing/infrastructure/crypto"
	"github.com/keygate/keygate/internal/ratelimit"
	"github.com/keygate/keygate/internal/shared/infrastructure/eventbus"
)

// VerdictStatus is the coarse status reported to the SDK. It deliberately
// never distinguishes a bad signature from an unknown key, so the endpoint
// cannot be used as an oracle for enumerating keys.
type VerdictStatus string

const (
	VerdictActive      VerdictStatus = "active"
	VerdictExpired     VerdictStatus = "expired"
	VerdictSuspended   VerdictStatus = "suspended"
	VerdictInactive    VerdictStatus = "inactive"
	VerdictPending     VerdictStatus = "pending"
	VerdictInvalid     VerdictStatus = "invalid"
	VerdictRateLimited VerdictStatus = "rate_limited"
)

// DefaultAppID is assumed when a request omits app_id. Clients that sign
// with this value may leave the field out entirely.
const DefaultAppID = "default"

// ValidateRequest is the signed validation request sent by the SDK.
type ValidateRequest struct {
	LicenseKey string `json:"license_key"`
	AppID      string `json:"app_id"`
	Timestamp  int64  `json:"timestamp"`
	Signature  string `json:"signature"`
}

// ValidateResponse is the server's verdict for one validation request.
// Every business outcome, including denial, is carried here with HTTP 200.
type ValidateResponse struct {
	Valid     bool          `json:"valid"`
	Status    VerdictStatus `json:"status"`
	ExpiresAt *time.Time    `json:"expires_at"`
	Message   string        `json:"message"`
}

// ValidationConfig tunes the validation protocol.
type ValidationConfig struct {
	// SigningSecret is the shared HMAC secret for request signatures.
	SigningSecret string
	// TimestampWindow bounds request freshness on either side of now.
	TimestampWindow time.Duration
}

// DefaultValidationConfig returns the protocol defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{TimestampWindow: 5 * time.Minute}
}

// ValidationService implements the server side of the license validation
// protocol: freshness, per-key rate limiting, signature verification, digest
// lookup, the status lattice, and the audit trail.
type ValidationService struct {
	licenses  domain.Repository
	attempts  domain.AttemptRepository
	keyLimit  ratelimit.Limiter
	publisher eventbus.Publisher
	cfg       ValidationConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewValidationService wires the validation protocol. The publisher may be
// a NoopPublisher; audit rows are always written regardless.
func NewValidationService(
	licenses domain.Repository,
	attempts domain.AttemptRepository,
	keyLimit ratelimit.Limiter,
	publisher eventbus.Publisher,
	cfg ValidationConfig,
	logger *slog.Logger,
) *ValidationService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TimestampWindow <= 0 {
		cfg.TimestampWindow = DefaultValidationConfig().TimestampWindow
	}
	return &ValidationService{
		licenses:  licenses,
		attempts:  attempts,
		keyLimit:  keyLimit,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate runs the protocol gates in order, short-circuiting on the first
// failure. Exactly one audit row is appended per request that passes the
// freshness and rate-limit gates.
func (s *ValidationService) Validate(ctx context.Context, req ValidateRequest, ip string) ValidateResponse {
	now := s.now().UTC()

	// Gate 1: freshness. No audit row; there is no resolvable license yet.
	delta := now.Unix() - req.Timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > int64(s.cfg.TimestampWindow/time.Second) {
		return ValidateResponse{
			Valid:   false,
			Status:  VerdictInvalid,
			Message: "Request expired or invalid timestamp",
		}
	}

	// Gate 2: per-key rate limit, keyed by the digest so the plaintext key
	// never reaches the limiter. Checked before the signature to bound the
	// CPU cost of HMAC verification under attack.
	keyHash := crypto.HashKey(req.LicenseKey)
	allowed, err := s.keyLimit.Allow(ctx, keyHash)
	if err != nil {
		s.logger.Warn("per-key rate limiter unavailable, allowing request", "error", err)
		allowed = true
	}
	if !allowed {
		return ValidateResponse{
			Valid:   false,
			Status:  VerdictRateLimited,
			Message: "Too many validation attempts; try again later",
		}
	}

	// Gate 3: signature.
	if !crypto.VerifySignature(req.LicenseKey, req.AppID, req.Timestamp, req.Signature, s.cfg.SigningSecret) {
		s.audit(ctx, uuid.NullUUID{}, ip, domain.ResultFail, "Invalid signature")
		return ValidateResponse{
			Valid:   false,
			Status:  VerdictInvalid,
			Message: "Invalid request",
		}
	}

	// Gate 4: lookup by digest. Not-found is reported identically to a bad
	// signature so the response never reveals whether the key exists.
	lic, err := s.licenses.FindByKeyHash(ctx, keyHash)
	if err != nil {
		if !errors.Is(err, domain.ErrLicenseNotFound) {
			s.logger.Error("license lookup failed", "error", err)
		}
		s.audit(ctx, uuid.NullUUID{}, ip, domain.ResultFail, "License not found")
		return ValidateResponse{
			Valid:   false,
			Status:  VerdictInvalid,
			Message: "Invalid license",
		}
	}

	licID := uuid.NullUUID{UUID: lic.ID, Valid: true}
	expiresAt := lic.ExpiresAt()

	// Gate 5: status lattice, expiry first regardless of stored status.
	switch {
	case lic.IsExpired(now):
		s.audit(ctx, licID, ip, domain.ResultFail, "License expired")
		return ValidateResponse{Valid: false, Status: VerdictExpired, ExpiresAt: &expiresAt, Message: "License has expired"}
	case lic.Status == domain.StatusInactive:
		s.audit(ctx, licID, ip, domain.ResultFail, "License inactive")
		return ValidateResponse{Valid: false, Status: VerdictInactive, ExpiresAt: &expiresAt, Message: "License is inactive"}
	case lic.Status == domain.StatusSuspended:
		s.audit(ctx, licID, ip, domain.ResultFail, "License suspended")
		return ValidateResponse{Valid: false, Status: VerdictSuspended, ExpiresAt: &expiresAt, Message: "License is suspended"}
	case lic.Status == domain.StatusPending:
		// Pending is an expected pre-activation state, not an attack signal.
		s.audit(ctx, licID, ip, domain.ResultSuccess, "")
		return ValidateResponse{Valid: false, Status: VerdictPending, ExpiresAt: &expiresAt, Message: "License is pending activation"}
	default:
		s.audit(ctx, licID, ip, domain.ResultSuccess, "")
		return ValidateResponse{Valid: true, Status: VerdictActive, ExpiresAt: &expiresAt, Message: "License valid"}
	}
}

// audit appends one attempt row and publishes the matching event. Audit
// failures are logged, never surfaced to the client: the verdict stands.
func (s *ValidationService) audit(ctx context.Context, licenseID uuid.NullUUID, ip string, result domain.AttemptResult, reason string) {
	attempt := &domain.ValidationAttempt{
		ID:          uuid.New(),
		LicenseID:   licenseID,
		ValidatedAt: s.now().UTC(),
		IPAddress:   ip,
		Result:      result,
		ErrorReason: reason,
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.logger.Error("failed to append validation attempt", "error", err)
	}

	if s.publisher == nil {
		return
	}
	event := eventbus.NewEvent("license.validation."+string(result), attempt.ValidatedAt, attempt)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish validation event", "event", event.Name, "error", err)
	}
}
