package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keygate/keygate/internal/licensing/domain"
)

const dateLayout = "2006-01-02"

// SQLiteLicenseRepository handles persistence for licenses using SQLite,
// for single-node deployments that do not run PostgreSQL. Dates are stored
// as ISO-8601 strings, UUIDs as their canonical text form.
type SQLiteLicenseRepository struct {
	db *sql.DB
}

// NewSQLiteLicenseRepository creates a new SQLiteLicenseRepository.
func NewSQLiteLicenseRepository(db *sql.DB) *SQLiteLicenseRepository {
	return &SQLiteLicenseRepository{db: db}
}

// Create inserts a new license record.
func (r *SQLiteLicenseRepository) Create(ctx context.Context, l *domain.License) error {
	query := `
		INSERT INTO licenses (id, key_hash, app_name, client_name, expiry_date, status, monthly_renewal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		l.ID.String(),
		l.KeyHash,
		l.AppName,
		l.ClientName,
		l.ExpiryDate.UTC().Format(dateLayout),
		string(l.Status),
		boolToInt(l.MonthlyRenewal),
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrDuplicateKeyHash
		}
		return err
	}
	return nil
}

// FindByID retrieves a license by its id.
func (r *SQLiteLicenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id.String()))
}

// FindByKeyHash retrieves a license by its key digest.
func (r *SQLiteLicenseRepository) FindByKeyHash(ctx context.Context, keyHash string) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE key_hash = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, keyHash))
}

// List returns licenses newest-first, applying the filter.
func (r *SQLiteLicenseRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE 1=1`
	args := []any{}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.ClientName != "" {
		query += ` AND LOWER(client_name) LIKE ?`
		args = append(args, "%"+strings.ToLower(f.ClientName)+"%")
	}
	if !f.ExpiryFrom.IsZero() {
		query += ` AND expiry_date >= ?`
		args = append(args, f.ExpiryFrom.UTC().Format(dateLayout))
	}
	if !f.ExpiryTo.IsZero() {
		query += ` AND expiry_date <= ?`
		args = append(args, f.ExpiryTo.UTC().Format(dateLayout))
	}

	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Update persists the mutable fields of an existing license.
func (r *SQLiteLicenseRepository) Update(ctx context.Context, l *domain.License) error {
	query := `
		UPDATE licenses
		SET app_name = ?, client_name = ?, expiry_date = ?, status = ?, monthly_renewal = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		l.AppName,
		l.ClientName,
		l.ExpiryDate.UTC().Format(dateLayout),
		string(l.Status),
		boolToInt(l.MonthlyRenewal),
		l.UpdatedAt.UTC().Format(time.RFC3339),
		l.ID.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLicenseNotFound
	}
	return nil
}

// CountByStatus returns the number of licenses with the given status.
func (r *SQLiteLicenseRepository) CountByStatus(ctx context.Context, s domain.Status) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM licenses WHERE status = ?`, string(s)).Scan(&count)
	return count, err
}

// ExpiringWithin returns licenses expiring between today and today+d.
func (r *SQLiteLicenseRepository) ExpiringWithin(ctx context.Context, d time.Duration) ([]*domain.License, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.Add(d)

	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE expiry_date >= ? AND expiry_date <= ?
		ORDER BY expiry_date ASC
		LIMIT 50
	`
	rows, err := r.db.QueryContext(ctx, query, today.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteLicenseRepository) scanOne(row rowScanner) (*domain.License, error) {
	lic, err := scanSQLiteLicense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLicenseNotFound
		}
		return nil, err
	}
	return lic, nil
}

func (r *SQLiteLicenseRepository) scanAll(rows *sql.Rows) ([]*domain.License, error) {
	var out []*domain.License
	for rows.Next() {
		lic, err := scanSQLiteLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lic)
	}
	return out, rows.Err()
}

func scanSQLiteLicense(row rowScanner) (*domain.License, error) {
	var (
		l                                    domain.License
		id, expiry, status, created, updated string
		renewal                              int
	)
	err := row.Scan(&id, &l.KeyHash, &l.AppName, &l.ClientName, &expiry, &status, &renewal, &created, &updated)
	if err != nil {
		return nil, err
	}

	l.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt license id %q: %w", id, err)
	}
	l.ExpiryDate, err = time.ParseInLocation(dateLayout, expiry, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("corrupt expiry date %q: %w", expiry, err)
	}
	l.CreatedAt, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at %q: %w", created, err)
	}
	l.UpdatedAt, err = time.Parse(time.RFC3339, updated)
	if err != nil {
		return nil, fmt.Errorf("corrupt updated_at %q: %w", updated, err)
	}
	l.Status = domain.Status(status)
	l.MonthlyRenewal = renewal != 0
	return &l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
