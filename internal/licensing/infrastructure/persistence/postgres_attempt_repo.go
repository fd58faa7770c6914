package persistence

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keygate/keygate/internal/licensing/domain"
)

// PostgresAttemptRepository stores the validation audit trail in PostgreSQL.
// Rows are append-only; there is no update or delete path.
type PostgresAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAttemptRepository creates a new PostgresAttemptRepository.
func NewPostgresAttemptRepository(pool *pgxpool.Pool) *PostgresAttemptRepository {
	return &PostgresAttemptRepository{pool: pool}
}

// Append records one validation attempt.
func (r *PostgresAttemptRepository) Append(ctx context.Context, a *domain.ValidationAttempt) error {
	query := `
		INSERT INTO validation_attempts (id, license_id, validated_at, ip_address, result, error_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var licenseID any
	if a.LicenseID.Valid {
		licenseID = a.LicenseID.UUID
	}
	var ip any
	if a.IPAddress != "" {
		ip = a.IPAddress
	}
	var reason any
	if a.ErrorReason != "" {
		reason = a.ErrorReason
	}
	_, err := r.pool.Exec(ctx, query, a.ID, licenseID, a.ValidatedAt, ip, string(a.Result), reason)
	return err
}

// ListByLicense returns attempts for one license, newest first.
func (r *PostgresAttemptRepository) ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*domain.ValidationAttempt, error) {
	query := `
		SELECT id, license_id, validated_at, ip_address, result, error_reason
		FROM validation_attempts
		WHERE license_id = $1
		ORDER BY validated_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, licenseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// RecentFailures returns the latest failed attempts across all licenses,
// including those with no resolved license.
func (r *PostgresAttemptRepository) RecentFailures(ctx context.Context, limit int) ([]*domain.ValidationAttempt, error) {
	query := `
		SELECT id, license_id, validated_at, ip_address, result, error_reason
		FROM validation_attempts
		WHERE result = $1
		ORDER BY validated_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, string(domain.ResultFail), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func scanAttempts(rows pgx.Rows) ([]*domain.ValidationAttempt, error) {
	var out []*domain.ValidationAttempt
	for rows.Next() {
		var (
			a      domain.ValidationAttempt
			ip     sql.NullString
			reason sql.NullString
			result string
		)
		if err := rows.Scan(&a.ID, &a.LicenseID, &a.ValidatedAt, &ip, &result, &reason); err != nil {
			return nil, err
		}
		a.IPAddress = ip.String
		a.ErrorReason = reason.String
		a.Result = domain.AttemptResult(result)
		out = append(out, &a)
	}
	return out, rows.Err()
}
