package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keygate/keygate/internal/licensing/domain"
)

// SQLiteAttemptRepository stores the validation audit trail in SQLite.
type SQLiteAttemptRepository struct {
	db *sql.DB
}

// NewSQLiteAttemptRepository creates a new SQLiteAttemptRepository.
func NewSQLiteAttemptRepository(db *sql.DB) *SQLiteAttemptRepository {
	return &SQLiteAttemptRepository{db: db}
}

// Append records one validation attempt.
func (r *SQLiteAttemptRepository) Append(ctx context.Context, a *domain.ValidationAttempt) error {
	query := `
		INSERT INTO validation_attempts (id, license_id, validated_at, ip_address, result, error_reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var licenseID any
	if a.LicenseID.Valid {
		licenseID = a.LicenseID.UUID.String()
	}
	var ip any
	if a.IPAddress != "" {
		ip = a.IPAddress
	}
	var reason any
	if a.ErrorReason != "" {
		reason = a.ErrorReason
	}
	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(),
		licenseID,
		a.ValidatedAt.UTC().Format(time.RFC3339Nano),
		ip,
		string(a.Result),
		reason,
	)
	return err
}

// ListByLicense returns attempts for one license, newest first.
func (r *SQLiteAttemptRepository) ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*domain.ValidationAttempt, error) {
	query := `
		SELECT id, license_id, validated_at, ip_address, result, error_reason
		FROM validation_attempts
		WHERE license_id = ?
		ORDER BY validated_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, licenseID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteAttempts(rows)
}

// RecentFailures returns the latest failed attempts across all licenses.
func (r *SQLiteAttemptRepository) RecentFailures(ctx context.Context, limit int) ([]*domain.ValidationAttempt, error) {
	query := `
		SELECT id, license_id, validated_at, ip_address, result, error_reason
		FROM validation_attempts
		WHERE result = ?
		ORDER BY validated_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, string(domain.ResultFail), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteAttempts(rows)
}

func scanSQLiteAttempts(rows *sql.Rows) ([]*domain.ValidationAttempt, error) {
	var out []*domain.ValidationAttempt
	for rows.Next() {
		var (
			a                  domain.ValidationAttempt
			id, at, result     string
			licenseID, ip, why sql.NullString
		)
		if err := rows.Scan(&id, &licenseID, &at, &ip, &result, &why); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt attempt id %q: %w", id, err)
		}
		a.ID = parsedID
		if licenseID.Valid {
			lid, err := uuid.Parse(licenseID.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt attempt license id %q: %w", licenseID.String, err)
			}
			a.LicenseID = uuid.NullUUID{UUID: lid, Valid: true}
		}
		a.ValidatedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("corrupt validated_at %q: %w", at, err)
		}
		a.IPAddress = ip.String
		a.ErrorReason = why.String
		a.Result = domain.AttemptResult(result)
		out = append(out, &a)
	}
	return out, rows.Err()
}
