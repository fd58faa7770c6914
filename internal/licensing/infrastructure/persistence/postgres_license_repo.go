package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keygate/keygate/internal/licensing/domain"
)

// PostgresLicenseRepository handles persistence for licenses using PostgreSQL.
type PostgresLicenseRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLicenseRepository creates a new PostgresLicenseRepository.
func NewPostgresLicenseRepository(pool *pgxpool.Pool) *PostgresLicenseRepository {
	return &PostgresLicenseRepository{pool: pool}
}

const licenseColumns = `id, key_hash, app_name, client_name, expiry_date, status, monthly_renewal, created_at, updated_at`

// Create inserts a new license record.
func (r *PostgresLicenseRepository) Create(ctx context.Context, l *domain.License) error {
	query := `
		INSERT INTO licenses (id, key_hash, app_name, client_name, expiry_date, status, monthly_renewal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		l.ID,
		l.KeyHash,
		l.AppName,
		l.ClientName,
		l.ExpiryDate,
		string(l.Status),
		l.MonthlyRenewal,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateKeyHash
		}
		return err
	}
	return nil
}

// FindByID retrieves a license by its id.
func (r *PostgresLicenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// FindByKeyHash retrieves a license by its key digest.
func (r *PostgresLicenseRepository) FindByKeyHash(ctx context.Context, keyHash string) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE key_hash = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, keyHash))
}

// List returns licenses newest-first, applying the filter.
func (r *PostgresLicenseRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE 1=1`
	args := []any{}
	idx := 1

	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, string(f.Status))
		idx++
	}
	if f.ClientName != "" {
		query += fmt.Sprintf(" AND client_name ILIKE $%d", idx)
		args = append(args, "%"+f.ClientName+"%")
		idx++
	}
	if !f.ExpiryFrom.IsZero() {
		query += fmt.Sprintf(" AND expiry_date >= $%d", idx)
		args = append(args, f.ExpiryFrom)
		idx++
	}
	if !f.ExpiryTo.IsZero() {
		query += fmt.Sprintf(" AND expiry_date <= $%d", idx)
		args = append(args, f.ExpiryTo)
		idx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC OFFSET $%d LIMIT $%d", idx, idx+1)
	args = append(args, f.Offset, f.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Update persists the mutable fields of an existing license.
func (r *PostgresLicenseRepository) Update(ctx context.Context, l *domain.License) error {
	query := `
		UPDATE licenses
		SET app_name = $2, client_name = $3, expiry_date = $4, status = $5, monthly_renewal = $6, updated_at = $7
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		l.ID,
		l.AppName,
		l.ClientName,
		l.ExpiryDate,
		string(l.Status),
		l.MonthlyRenewal,
		l.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLicenseNotFound
	}
	return nil
}

// CountByStatus returns the number of licenses with the given status.
func (r *PostgresLicenseRepository) CountByStatus(ctx context.Context, s domain.Status) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM licenses WHERE status = $1`, string(s)).Scan(&count)
	return count, err
}

// ExpiringWithin returns licenses expiring between today and today+d.
func (r *PostgresLicenseRepository) ExpiringWithin(ctx context.Context, d time.Duration) ([]*domain.License, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.Add(d)

	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE expiry_date >= $1 AND expiry_date <= $2
		ORDER BY expiry_date ASC
		LIMIT 50
	`
	rows, err := r.pool.Query(ctx, query, today, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *PostgresLicenseRepository) scanOne(row pgx.Row) (*domain.License, error) {
	var (
		l      domain.License
		status string
	)
	err := row.Scan(
		&l.ID,
		&l.KeyHash,
		&l.AppName,
		&l.ClientName,
		&l.ExpiryDate,
		&status,
		&l.MonthlyRenewal,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLicenseNotFound
		}
		return nil, err
	}
	l.Status = domain.Status(status)
	return &l, nil
}

func (r *PostgresLicenseRepository) scanAll(rows pgx.Rows) ([]*domain.License, error) {
	var out []*domain.License
	for rows.Next() {
		var (
			l      domain.License
			status string
		)
		err := rows.Scan(
			&l.ID,
			&l.KeyHash,
			&l.AppName,
			&l.ClientName,
			&l.ExpiryDate,
			&status,
			&l.MonthlyRenewal,
			&l.CreatedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		l.Status = domain.Status(status)
		out = append(out, &l)
	}
	return out, rows.Err()
}
